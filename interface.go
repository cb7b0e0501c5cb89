// Package pulsekit is the client SDK for the AI Pulse analysis service:
// OAuth2 login with PKCE, a durable session, and two wallet-gated report
// actions against the pulse backend.
package pulsekit

import (
	"context"

	"github.com/ai-pulse/pulsekit/core"
)

// Client represents the public interface for the pulse client orchestration.
type Client interface {
	// BeginLogin persists a fresh authorization request and returns the
	// identity provider URL to open in a browser.
	BeginLogin(ctx context.Context) (string, error)

	// CompleteCallback consumes the redirect URL the provider returned
	// with and advances the session.
	CompleteCallback(ctx context.Context, rawURL string) (*core.Session, error)

	// Session returns the current persisted session.
	Session(ctx context.Context) (*core.Session, error)

	// SignOut destroys the session and any pending authorization request.
	SignOut(ctx context.Context) error

	// WalletAddress returns the connected wallet account, if any.
	WalletAddress() (string, bool)

	// FetchReport runs the basic report action. Requires a connected
	// wallet; no backend call is made without one.
	FetchReport(ctx context.Context) (*core.Report, error)

	// PurchaseDeepReport pays for and fetches the deep report. The
	// backend is only called after the payment was submitted.
	PurchaseDeepReport(ctx context.Context) (*core.Report, error)
}
