package ports

import (
	"context"

	"github.com/ai-pulse/pulsekit/core"
)

// Wallet is a thin façade over the external wallet connector. The connector
// owns connect/disconnect and persistence of the link; callers only read the
// current address and submit payment requests.
type Wallet interface {
	// Address returns the connected account identifier, or false until a
	// user has connected a wallet.
	Address() (string, bool)

	// SendPayment asks the wallet to sign and submit a single-message
	// transfer. A rejected or failed signing is terminal for the attempt
	// and is never retried here.
	SendPayment(ctx context.Context, req core.PaymentRequest) (core.TxReceipt, error)
}
