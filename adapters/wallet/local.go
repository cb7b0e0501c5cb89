package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// LocalWallet is an in-process signing wallet for development and tests.
// It signs payment payloads with a local secp256k1 key instead of
// delegating to an external connector. The display address can be
// overridden so a chain-native address is presented while the local key
// only attests the payment payload.
type LocalWallet struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewLocalWallet creates a wallet with a freshly generated key. An empty
// addressOverride falls back to the key-derived address.
func NewLocalWallet(addressOverride string) (*LocalWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	return newLocalWallet(key, addressOverride), nil
}

// NewLocalWalletFromKey creates a wallet from a hex-encoded private key.
func NewLocalWalletFromKey(hexKey, addressOverride string) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet key: %w", err)
	}
	return newLocalWallet(key, addressOverride), nil
}

func newLocalWallet(key *ecdsa.PrivateKey, addressOverride string) *LocalWallet {
	address := addressOverride
	if address == "" {
		address = deriveAddress(key)
	}
	return &LocalWallet{key: key, address: address}
}

// deriveAddress builds an account identifier in the shape wallet connectors
// hand out: a 36-byte tag+workchain+hash+checksum payload, base64url encoded
// to 48 characters. Deterministic per key.
func deriveAddress(key *ecdsa.PrivateKey) string {
	hash := crypto.Keccak256(crypto.FromECDSAPub(&key.PublicKey))
	payload := make([]byte, 0, 36)
	payload = append(payload, 0x51, 0x00)
	payload = append(payload, hash...)
	payload = append(payload, crypto.Keccak256(hash)[:2]...)
	return base64.RawURLEncoding.EncodeToString(payload)
}

var _ ports.Wallet = (*LocalWallet)(nil)

// Address returns the wallet's account identifier.
func (w *LocalWallet) Address() (string, bool) {
	return w.address, true
}

// SendPayment signs the payment payload locally and returns a receipt.
// Nothing is broadcast; this wallet exists so flows can run end to end
// without a live connector.
func (w *LocalWallet) SendPayment(ctx context.Context, req core.PaymentRequest) (core.TxReceipt, error) {
	now := time.Now()
	if req.ValidUntil > 0 && now.Unix() > req.ValidUntil {
		return core.TxReceipt{}, &core.WalletError{Err: fmt.Errorf("payment request expired at %d", req.ValidUntil)}
	}

	payload := fmt.Sprintf("%s|%s|%d", req.Recipient, req.AmountNano.Truncate(0).String(), req.ValidUntil)
	digest := crypto.Keccak256([]byte(payload))

	sig, err := crypto.Sign(digest, w.key)
	if err != nil {
		return core.TxReceipt{}, &core.WalletError{Err: err}
	}

	return core.TxReceipt{
		Hash:        hexutil.Encode(digest),
		Raw:         hexutil.Encode(sig),
		SubmittedAt: now,
	}, nil
}
