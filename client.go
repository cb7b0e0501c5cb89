package pulsekit

import (
	"context"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
	"github.com/ai-pulse/pulsekit/service"
)

// client composes the auth and report services behind the Client interface.
type client struct {
	auth    *service.AuthService
	reports *service.ReportService
	wallet  ports.Wallet
}

// New assembles a Client from the wired services.
func New(auth *service.AuthService, reports *service.ReportService, wallet ports.Wallet) Client {
	return &client{auth: auth, reports: reports, wallet: wallet}
}

func (c *client) BeginLogin(ctx context.Context) (string, error) {
	return c.auth.BeginLogin(ctx)
}

func (c *client) CompleteCallback(ctx context.Context, rawURL string) (*core.Session, error) {
	return c.auth.CompleteCallback(ctx, rawURL)
}

func (c *client) Session(ctx context.Context) (*core.Session, error) {
	return c.auth.Session(ctx)
}

func (c *client) SignOut(ctx context.Context) error {
	return c.auth.SignOut(ctx)
}

func (c *client) WalletAddress() (string, bool) {
	return c.wallet.Address()
}

func (c *client) FetchReport(ctx context.Context) (*core.Report, error) {
	return c.reports.FetchReport(ctx)
}

func (c *client) PurchaseDeepReport(ctx context.Context) (*core.Report, error) {
	return c.reports.PurchaseDeepReport(ctx)
}
