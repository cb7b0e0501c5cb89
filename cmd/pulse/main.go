// Command pulse is the terminal client for the AI Pulse analysis service.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ai-pulse/pulsekit"
	"github.com/ai-pulse/pulsekit/adapters/backend"
	"github.com/ai-pulse/pulsekit/adapters/store"
	"github.com/ai-pulse/pulsekit/adapters/telemetry"
	"github.com/ai-pulse/pulsekit/adapters/wallet"
	"github.com/ai-pulse/pulsekit/config"
	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/oauth"
	"github.com/ai-pulse/pulsekit/ports"
	"github.com/ai-pulse/pulsekit/service"
	transport "github.com/ai-pulse/pulsekit/transport/http"
)

const loginTimeout = 5 * time.Minute

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	client pulsekit.Client
	auth   *service.AuthService
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	a := &app{cfg: cfg, log: log}
	if err := a.wire(); err != nil {
		return err
	}

	root := &cobra.Command{
		Use:           "pulse",
		Short:         "AI Pulse client: sign in, connect a wallet, fetch reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(a.loginCmd(), a.logoutCmd(), a.whoamiCmd(), a.reportCmd(), a.deepReportCmd())
	return root.Execute()
}

// wire assembles adapters and services from configuration.
func (a *app) wire() error {
	ctx := context.Background()

	st, redisClientHolder, err := a.buildStore(ctx)
	if err != nil {
		return err
	}

	be := backend.NewClient(a.cfg.BackendURL, a.cfg.OAuth.ClientID, a.log)

	sinks := []ports.TelemetrySink{}
	httpSink := telemetry.NewHTTPSink(a.cfg.Telemetry.IngestURL, a.cfg.Telemetry.APIKey, a.log)
	httpSink.Start(ctx)
	sinks = append(sinks, httpSink)

	if redisClientHolder != nil {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClientHolder.Client()},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("failed to create telemetry publisher: %w", err)
		}
		sinks = append(sinks, telemetry.NewStreamSink(publisher, telemetry.DefaultTopic))
	}
	sink := telemetry.NewFanout(a.log, sinks...)

	var w ports.Wallet
	if a.cfg.Wallet.Key != "" {
		w, err = wallet.NewLocalWalletFromKey(a.cfg.Wallet.Key, a.cfg.Wallet.Address)
	} else {
		w, err = wallet.NewLocalWallet(a.cfg.Wallet.Address)
	}
	if err != nil {
		return err
	}

	flow := oauth.NewFlow(oauth.Config{
		AuthorizeURL: a.cfg.OAuth.AuthorizeURL,
		ClientID:     a.cfg.OAuth.ClientID,
		RedirectURI:  a.cfg.OAuth.RedirectURI,
		Scope:        a.cfg.OAuth.Scope,
		Flow:         a.cfg.FlowKind(),
	}, st, a.log)

	sessions := service.NewSessionStore(st)
	a.auth = service.NewAuthService(flow, be, sessions, a.log)
	reports := service.NewReportService(be, w, sink, service.PaymentConfig{
		Recipient:  a.cfg.Payment.Wallet,
		AmountNano: a.cfg.AmountNano(),
		TTL:        a.cfg.PaymentTTL(),
	}, a.log)

	a.client = pulsekit.New(a.auth, reports, w)
	return nil
}

// buildStore returns the durable state store: Redis when configured, a
// per-user state file otherwise.
func (a *app) buildStore(ctx context.Context) (ports.Store, *store.RedisStore, error) {
	if a.cfg.RedisURL != "" {
		rs, err := store.NewRedisStore(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs, nil
	}

	path := a.cfg.StatePath
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to locate config directory: %w", err)
		}
		path = filepath.Join(dir, "pulse", "state.json")
	}
	fs, err := store.NewFileStore(path)
	if err != nil {
		return nil, nil, err
	}
	return fs, nil, nil
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in via the identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
			defer cancel()

			redirect, err := url.Parse(a.cfg.OAuth.RedirectURI)
			if err != nil {
				return fmt.Errorf("invalid redirect URI: %w", err)
			}

			srv := transport.NewCallbackServer(a.auth, a.log)
			if err := srv.Start(redirect.Host); err != nil {
				return err
			}
			defer srv.Shutdown(context.Background())

			authURL, err := a.client.BeginLogin(ctx)
			if err != nil {
				return err
			}

			fmt.Println("Open this URL in your browser to sign in:")
			fmt.Println()
			fmt.Println("  " + authURL)
			fmt.Println()

			session, err := srv.Result(ctx)
			if err != nil {
				return err
			}
			printSession(session)
			return nil
		},
	}
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Destroy the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.Session(cmd.Context())
			if err != nil {
				return err
			}
			printSession(session)
			if addr, ok := a.client.WalletAddress(); ok {
				fmt.Println("Wallet:", addr)
			} else {
				fmt.Println("Wallet: not connected")
			}
			return nil
		},
	}
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Fetch the basic AI report for the connected wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.client.FetchReport(cmd.Context())
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
}

func (a *app) deepReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deep-report",
		Short: fmt.Sprintf("Pay %s TON and fetch the deep AI report", a.cfg.Payment.PriceTON),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.client.PurchaseDeepReport(cmd.Context())
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
}

func printSession(s *core.Session) {
	switch {
	case s.Authenticated():
		fmt.Println("Session: authenticated (verified)")
		if s.Profile != nil && s.Profile.Name != "" {
			fmt.Println("User:", s.Profile.Name)
		}
	case s.State == core.SessionFailed:
		fmt.Println("Session: last sign-in failed")
	default:
		fmt.Println("Session:", string(s.State))
	}
}

func printReport(r *core.Report) {
	fmt.Printf("Sentiment: %s\n\n%s\n", r.Sentiment, r.Summary)
	for _, d := range r.Details {
		fmt.Printf("  %s %s\n", d.Icon, d.Text)
	}
}
