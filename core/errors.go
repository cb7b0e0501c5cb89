package core

import (
	"errors"
	"fmt"
)

var (
	// ErrWalletNotConnected is returned when a gated action runs without a
	// connected wallet. No network call is made.
	ErrWalletNotConnected = errors.New("wallet is not connected")

	// ErrInvalidAddress is returned when the wallet address fails the basic
	// shape check the backend itself applies.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrStateMismatch indicates a callback whose state does not match the
	// stored authorization request. It is logged, never surfaced.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrVerifierMissing indicates a code callback arrived but no verifier
	// was found in storage, so the code cannot be exchanged.
	ErrVerifierMissing = errors.New("stored code verifier is missing")

	// ErrNoAuthRequest is returned when a callback arrives with no pending
	// authorization request in storage.
	ErrNoAuthRequest = errors.New("no pending authorization request")

	// ErrActionInFlight is returned when an action is re-dispatched before
	// the previous run finished.
	ErrActionInFlight = errors.New("action is already in flight")

	// ErrKeyNotFound is returned by stores for absent keys.
	ErrKeyNotFound = errors.New("key not found")
)

// ProviderError is an error the identity provider delivered on the callback.
// It is surfaced verbatim; the pending authorization request is discarded.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("identity provider error: %s", e.Code)
	}
	return fmt.Sprintf("identity provider error: %s (%s)", e.Code, e.Description)
}

// ExchangeError means the token exchange rejected the authorization code.
// Codes are one-shot, so exchanges are never retried automatically.
type ExchangeError struct {
	StatusCode int
	Body       string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// VerifyError means the backend refused to vouch for the provider token.
type VerifyError struct {
	StatusCode int
	Body       string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("token verification failed with status %d: %s", e.StatusCode, e.Body)
}

// ReportFetchError means the analysis endpoint answered with a non-success
// status. The action returns to idle; the prior report is kept.
type ReportFetchError struct {
	StatusCode int
	Body       string
}

func (e *ReportFetchError) Error() string {
	return fmt.Sprintf("report fetch failed with status %d: %s", e.StatusCode, e.Body)
}

// WalletError wraps a connector failure or a user rejection of the signing
// request. Rejection is terminal for the attempt; the action aborts before
// any backend call.
type WalletError struct {
	Err error
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet payment failed: %v", e.Err)
}

func (e *WalletError) Unwrap() error {
	return e.Err
}
