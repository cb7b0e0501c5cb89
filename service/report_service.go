package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// minAddressLength mirrors the backend's own address sanity check so the
// client fails fast instead of burning a round trip.
const minAddressLength = 48

// Telemetry event names emitted around the gated actions.
const (
	EventReportRequested     = "report_requested"
	EventDeepReportPurchased = "deep_report_purchased"
)

// ActionPhase tracks where a gated action currently stands.
type ActionPhase int

const (
	ActionIdle ActionPhase = iota
	ActionInFlight
	ActionSucceeded
	ActionFailed
)

// ActionState is the most recent outcome of a gated action. Report holds
// the last successful report; a later failure leaves it untouched.
type ActionState struct {
	Phase  ActionPhase
	Report *core.Report
	Err    error
}

// PaymentConfig is the fixed deep-report purchase: recipient, price in
// nano units, and how long the wallet may hold the unsigned request.
type PaymentConfig struct {
	Recipient  string
	AmountNano decimal.Decimal
	TTL        time.Duration
}

// ReportService runs the two wallet-gated actions. Both gate solely on
// wallet presence; the identity session is an independent status and is
// deliberately not a precondition here.
type ReportService struct {
	backend   ports.Backend
	wallet    ports.Wallet
	telemetry ports.TelemetrySink
	payment   PaymentConfig
	log       zerolog.Logger

	mu    sync.Mutex
	basic ActionState
	deep  ActionState
}

// NewReportService creates the action orchestrator.
func NewReportService(backend ports.Backend, wallet ports.Wallet, telemetry ports.TelemetrySink, payment PaymentConfig, log zerolog.Logger) *ReportService {
	return &ReportService{
		backend:   backend,
		wallet:    wallet,
		telemetry: telemetry,
		payment:   payment,
		log:       log.With().Str("component", "reports").Logger(),
	}
}

// FetchReport runs the basic report action: wallet precondition, telemetry,
// one backend call.
func (s *ReportService) FetchReport(ctx context.Context) (*core.Report, error) {
	address, err := s.begin(&s.basic)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, EventReportRequested, map[string]string{
		"address": address,
		"run_id":  uuid.New().String(),
	})

	report, err := s.backend.Analyze(ctx, address)
	return s.finish(&s.basic, report, err)
}

// PurchaseDeepReport runs the paid action: wallet precondition, payment
// submission, then the backend call. A payment failure aborts before the
// backend is ever asked to analyze.
//
// Submission success is taken as sufficient to request the analysis; the
// chain is not consulted for confirmation and the backend has no way to
// correlate this transaction with the request. Known trust gap, kept
// deliberately.
func (s *ReportService) PurchaseDeepReport(ctx context.Context) (*core.Report, error) {
	address, err := s.begin(&s.deep)
	if err != nil {
		return nil, err
	}

	receipt, err := s.wallet.SendPayment(ctx, core.PaymentRequest{
		Recipient:  s.payment.Recipient,
		AmountNano: s.payment.AmountNano,
		ValidUntil: time.Now().Add(s.payment.TTL).Unix(),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("deep report payment failed")
		_, ferr := s.finish(&s.deep, nil, err)
		return nil, ferr
	}

	s.emit(ctx, EventDeepReportPurchased, map[string]string{
		"address": address,
		"amount":  s.payment.AmountNano.Truncate(0).String(),
		"tx_hash": receipt.Hash,
		"run_id":  uuid.New().String(),
	})

	report, err := s.backend.DeepAnalyze(ctx, address)
	return s.finish(&s.deep, report, err)
}

// BasicState returns the basic action's most recent state.
func (s *ReportService) BasicState() ActionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basic
}

// DeepState returns the deep action's most recent state.
func (s *ReportService) DeepState() ActionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deep
}

// begin checks preconditions and moves the action to InFlight. It returns
// the wallet address the action will run against.
func (s *ReportService) begin(state *ActionState) (string, error) {
	address, ok := s.wallet.Address()
	if !ok || address == "" {
		return "", core.ErrWalletNotConnected
	}
	if len(address) < minAddressLength {
		return "", core.ErrInvalidAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Phase == ActionInFlight {
		return "", core.ErrActionInFlight
	}
	state.Phase = ActionInFlight
	state.Err = nil
	return address, nil
}

// finish records the outcome. A fresh report replaces the previous one;
// on failure the prior report is kept next to the error.
func (s *ReportService) finish(state *ActionState, report *core.Report, err error) (*core.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		state.Phase = ActionFailed
		state.Err = err
		return nil, err
	}
	state.Phase = ActionSucceeded
	state.Report = report
	state.Err = nil
	return report, nil
}

// emitTimeout bounds a detached telemetry delivery.
const emitTimeout = 10 * time.Second

// emit forwards a telemetry event without waiting for delivery. A slow or
// hung sink must never delay the action it annotates, so the send runs on
// its own goroutine, detached from the action's cancellation.
func (s *ReportService) emit(ctx context.Context, event string, attrs map[string]string) {
	if s.telemetry == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, emitTimeout)
		defer cancel()
		if err := s.telemetry.Emit(ctx, event, attrs); err != nil {
			s.log.Debug().Err(err).Str("event", event).Msg("telemetry emit failed")
		}
	}()
}
