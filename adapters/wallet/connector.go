// Package wallet adapts wallet connectors to the Wallet port.
package wallet

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// Connector is the minimal surface of an external wallet-connector session.
// Connecting, disconnecting and link persistence are the connector's
// business; this package only reads the address and submits transactions.
type Connector interface {
	// Account returns the connected account identifier, or false when no
	// wallet is connected.
	Account() (string, bool)

	// SendTransaction asks the wallet to sign and submit the transaction.
	// It blocks for user interaction, bounded by the transaction's
	// ValidUntil.
	SendTransaction(ctx context.Context, tx Transaction) (string, error)
}

// Transaction is the single-message payment shape the connector accepts.
type Transaction struct {
	ValidUntil int64     `json:"validUntil"`
	Messages   []Message `json:"messages"`
}

// Message is one transfer inside a transaction, with the amount in the
// wallet's base unit.
type Message struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// Gateway adapts a Connector to the Wallet port.
type Gateway struct {
	conn Connector
	log  zerolog.Logger
}

// NewGateway wraps an external connector session.
func NewGateway(conn Connector, log zerolog.Logger) *Gateway {
	return &Gateway{conn: conn, log: log.With().Str("component", "wallet").Logger()}
}

var _ ports.Wallet = (*Gateway)(nil)

// Address returns the connected account identifier.
func (g *Gateway) Address() (string, bool) {
	if g.conn == nil {
		return "", false
	}
	return g.conn.Account()
}

// SendPayment submits a single-message transfer through the connector.
// A rejected signing is terminal for the attempt; the user must re-initiate.
func (g *Gateway) SendPayment(ctx context.Context, req core.PaymentRequest) (core.TxReceipt, error) {
	if g.conn == nil {
		return core.TxReceipt{}, &core.WalletError{Err: core.ErrWalletNotConnected}
	}

	tx := Transaction{
		ValidUntil: req.ValidUntil,
		Messages: []Message{{
			Address: req.Recipient,
			Amount:  req.AmountNano.Truncate(0).String(),
		}},
	}

	raw, err := g.conn.SendTransaction(ctx, tx)
	if err != nil {
		g.log.Warn().Err(err).Msg("payment submission failed")
		return core.TxReceipt{}, &core.WalletError{Err: err}
	}

	return core.TxReceipt{Raw: raw, SubmittedAt: time.Now()}, nil
}
