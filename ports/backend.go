package ports

import (
	"context"

	"github.com/ai-pulse/pulsekit/core"
)

// Backend is the REST contract the client consumes.
type Backend interface {
	// Analyze fetches the basic report for a wallet address.
	Analyze(ctx context.Context, address string) (*core.Report, error)

	// DeepAnalyze fetches the paid report. It must only be called after a
	// payment was submitted through the wallet.
	DeepAnalyze(ctx context.Context, address string) (*core.Report, error)

	// ExchangeCode trades a one-time authorization code plus its PKCE
	// verifier for an access token.
	ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (string, error)

	// VerifyToken forwards a provider token for authoritative validation.
	// No identity claim is trusted from provider tokens alone.
	VerifyToken(ctx context.Context, token string) (*core.UserProfile, error)
}
