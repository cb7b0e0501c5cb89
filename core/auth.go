package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowKind selects which authorization flow the redirect builder emits.
// Exactly one variant is used per authorization request.
type FlowKind string

const (
	// FlowCode is the Authorization-Code + PKCE flow (response_type=code).
	FlowCode FlowKind = "code"

	// FlowImplicit is the Implicit flow (response_type=id_token, no PKCE).
	FlowImplicit FlowKind = "id_token"
)

// AuthRequest is the ephemeral state written to durable storage immediately
// before redirecting to the identity provider. It is consumed and deleted
// exactly once by the callback resolver on the matching return.
type AuthRequest struct {
	CodeVerifier  string    `json:"code_verifier,omitempty"`
	CodeChallenge string    `json:"code_challenge,omitempty"`
	State         string    `json:"state"`
	Flow          FlowKind  `json:"flow"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionState tracks where the authentication outcome currently stands.
type SessionState string

const (
	SessionUnauthenticated SessionState = "unauthenticated"
	SessionPendingExchange SessionState = "pending_exchange"
	SessionAuthenticated   SessionState = "authenticated"
	SessionFailed          SessionState = "failed"
)

// UserProfile holds display attributes of the verified identity.
type UserProfile struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Session represents the authenticated identity.
//
// Invariant: SessionAuthenticated implies AccessToken is present and was
// obtained via a callback whose state matched the stored AuthRequest, or via
// a backend-mediated direct token.
type Session struct {
	State       SessionState `json:"state"`
	AccessToken string       `json:"access_token,omitempty"`
	Verified    bool         `json:"verified"`
	Profile     *UserProfile `json:"profile,omitempty"`
	IssuedAt    time.Time    `json:"issued_at,omitzero"`
}

// Authenticated reports whether the session carries a usable token.
func (s *Session) Authenticated() bool {
	return s != nil && s.State == SessionAuthenticated && s.AccessToken != ""
}

// PaymentRequest is a single-message transfer handed to the wallet
// connector. ValidUntil bounds how long the wallet may hold the unsigned
// request.
type PaymentRequest struct {
	Recipient  string
	AmountNano decimal.Decimal
	ValidUntil int64 // unix seconds
}

// TxReceipt is the connector's acknowledgement that a payment was signed
// and submitted. Submission is not on-chain confirmation.
type TxReceipt struct {
	Hash        string
	Raw         string
	SubmittedAt time.Time
}
