// Package http hosts the loopback server that receives the identity
// provider's redirect and hands it to the auth service.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/service"
)

// CallbackPath is the route the redirect URI must point at.
const CallbackPath = "/auth/callback"

// fragmentRelayPage forwards implicit-flow parameters to the server. The
// provider delivers them in the URL fragment, which never leaves the
// browser, so a relay converts the fragment into a query string. Using
// location.replace keeps the parameter-bearing URL out of history.
const fragmentRelayPage = `<!DOCTYPE html>
<html><body><script>
var h = window.location.hash;
if (h && h.length > 1) {
  window.location.replace("` + CallbackPath + `?" + h.substring(1));
} else {
  window.location.replace("/auth/done");
}
</script></body></html>`

// donePage replaces the callback URL in history so a refresh cannot replay
// the authorization parameters.
const donePage = `<!DOCTYPE html>
<html><body>
<script>history.replaceState(null, "", "/auth/done");</script>
<p>%s You can close this window and return to the terminal.</p>
</body></html>`

type callbackResult struct {
	session *core.Session
	err     error
}

// CallbackServer serves the redirect URI on a loopback address during a
// login attempt.
type CallbackServer struct {
	auth *service.AuthService
	log  zerolog.Logger
	srv  *http.Server
	done chan callbackResult
}

// NewCallbackServer creates a server around the auth service.
func NewCallbackServer(auth *service.AuthService, log zerolog.Logger) *CallbackServer {
	s := &CallbackServer{
		auth: auth,
		log:  log.With().Str("component", "callback").Logger(),
		done: make(chan callbackResult, 1),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(CallbackPath, s.handleCallback)
	router.GET("/auth/done", s.handleDone)

	s.srv = &http.Server{Handler: router}
	return s
}

// Start begins serving on addr (host:port matching the redirect URI).
func (s *CallbackServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("callback server stopped")
		}
	}()

	s.log.Debug().Str("addr", addr).Msg("callback server listening")
	return nil
}

// Result blocks until a callback was processed or the context expires.
func (s *CallbackServer) Result(ctx context.Context) (*core.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-s.done:
		return res.session, res.err
	}
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(c *gin.Context) {
	// A bare request carries nothing in the query: the parameters are
	// either in the fragment (implicit flow) or absent. Relay either way.
	if c.Request.URL.RawQuery == "" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragmentRelayPage))
		return
	}

	rawURL := "http://" + c.Request.Host + c.Request.URL.String()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	session, err := s.auth.CompleteCallback(ctx, rawURL)

	// Deliver the first result only; later hits are stale replays.
	select {
	case s.done <- callbackResult{session: session, err: err}:
	default:
	}

	if err != nil {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(donePage, "Sign-in failed: "+err.Error()+".")))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(donePage, "Sign-in complete.")))
}

func (s *CallbackServer) handleDone(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(donePage, "Nothing left to do here.")))
}
