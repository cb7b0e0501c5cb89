package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-pulse/pulsekit/adapters/wallet"
	"github.com/ai-pulse/pulsekit/core"
)

const testAddress = "0QAD3sa-ZJE929PM_rvnDormWmwZorniPoj5OcYmxdkHSabD"

type fakeBackend struct {
	report      *core.Report
	analyzeErr  error
	analyzeHits int
	deepHits    int
}

func (f *fakeBackend) Analyze(ctx context.Context, address string) (*core.Report, error) {
	f.analyzeHits++
	return f.report, f.analyzeErr
}

func (f *fakeBackend) DeepAnalyze(ctx context.Context, address string) (*core.Report, error) {
	f.deepHits++
	return f.report, f.analyzeErr
}

func (f *fakeBackend) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeBackend) VerifyToken(ctx context.Context, token string) (*core.UserProfile, error) {
	return nil, errors.New("not used")
}

type fakeWallet struct {
	address  string
	sendErr  error
	sendHits int
	lastReq  core.PaymentRequest
}

func (f *fakeWallet) Address() (string, bool) {
	return f.address, f.address != ""
}

func (f *fakeWallet) SendPayment(ctx context.Context, req core.PaymentRequest) (core.TxReceipt, error) {
	f.sendHits++
	f.lastReq = req
	if f.sendErr != nil {
		return core.TxReceipt{}, &core.WalletError{Err: f.sendErr}
	}
	return core.TxReceipt{Hash: "0xhash", SubmittedAt: time.Now()}, nil
}

type recordingSink struct {
	emitErr error
	delay   time.Duration

	mu     sync.Mutex
	events []string
	attrs  []map[string]string
}

func (r *recordingSink) Ready() bool { return true }

func (r *recordingSink) Emit(ctx context.Context, event string, attrs map[string]string) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.attrs = append(r.attrs, attrs)
	return r.emitErr
}

func (r *recordingSink) snapshot() ([]string, []map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...), append([]map[string]string(nil), r.attrs...)
}

// waitForEvents blocks until the sink has recorded n events. Emission is
// detached from the action, so tests observe it with a deadline.
func waitForEvents(t *testing.T, sink *recordingSink, n int) ([]string, []map[string]string) {
	t.Helper()
	require.Eventually(t, func() bool {
		events, _ := sink.snapshot()
		return len(events) >= n
	}, 2*time.Second, 10*time.Millisecond)
	return sink.snapshot()
}

func basicReport() *core.Report {
	return &core.Report{Sentiment: core.SentimentBullish, Summary: "up"}
}

func testPayment() PaymentConfig {
	return PaymentConfig{
		Recipient:  testAddress,
		AmountNano: decimal.NewFromInt(100000000),
		TTL:        10 * time.Minute,
	}
}

func TestFetchReport(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	sink := &recordingSink{}
	s := NewReportService(be, &fakeWallet{address: testAddress}, sink, testPayment(), zerolog.Nop())

	report, err := s.FetchReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SentimentBullish, report.Sentiment)
	assert.Equal(t, 1, be.analyzeHits)

	events, attrs := waitForEvents(t, sink, 1)
	require.Equal(t, []string{EventReportRequested}, events)
	assert.Equal(t, testAddress, attrs[0]["address"])
	assert.NotEmpty(t, attrs[0]["run_id"])

	state := s.BasicState()
	assert.Equal(t, ActionSucceeded, state.Phase)
	assert.Equal(t, report, state.Report)
}

func TestFetchReportWithoutWallet(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, &fakeWallet{}, &recordingSink{}, testPayment(), zerolog.Nop())

	_, err := s.FetchReport(context.Background())
	assert.ErrorIs(t, err, core.ErrWalletNotConnected)

	// The gate fires before any network traffic.
	assert.Zero(t, be.analyzeHits)
}

func TestFetchReportShortAddress(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, &fakeWallet{address: "0Qshort"}, &recordingSink{}, testPayment(), zerolog.Nop())

	_, err := s.FetchReport(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	assert.Zero(t, be.analyzeHits)
}

func TestFetchReportKeepsPriorReportOnFailure(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, &fakeWallet{address: testAddress}, &recordingSink{}, testPayment(), zerolog.Nop())

	first, err := s.FetchReport(context.Background())
	require.NoError(t, err)

	be.analyzeErr = &core.ReportFetchError{StatusCode: 502, Body: "upstream down"}
	_, err = s.FetchReport(context.Background())
	require.Error(t, err)

	state := s.BasicState()
	assert.Equal(t, ActionFailed, state.Phase)
	assert.Equal(t, first, state.Report)
	assert.Error(t, state.Err)
}

func TestFetchReportTelemetryFailureIsIsolated(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	sink := &recordingSink{emitErr: errors.New("ingest down")}
	s := NewReportService(be, &fakeWallet{address: testAddress}, sink, testPayment(), zerolog.Nop())

	_, err := s.FetchReport(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, be.analyzeHits)
}

func TestFetchReportDoesNotWaitForSlowSink(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	sink := &recordingSink{delay: 500 * time.Millisecond}
	s := NewReportService(be, &fakeWallet{address: testAddress}, sink, testPayment(), zerolog.Nop())

	start := time.Now()
	_, err := s.FetchReport(context.Background())
	require.NoError(t, err)

	// The action must return without riding out the sink's latency.
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	// Delivery still happens, just off the action's path.
	events, _ := waitForEvents(t, sink, 1)
	assert.Equal(t, []string{EventReportRequested}, events)
}

func TestFetchReportWithDefaultLocalWallet(t *testing.T) {
	w, err := wallet.NewLocalWallet("")
	require.NoError(t, err)

	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, w, nil, testPayment(), zerolog.Nop())

	// A freshly generated dev wallet must clear the address gate.
	_, err = s.FetchReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, be.analyzeHits)
}

func TestFetchReportWithoutSink(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, &fakeWallet{address: testAddress}, nil, testPayment(), zerolog.Nop())

	_, err := s.FetchReport(context.Background())
	assert.NoError(t, err)
}

func TestPurchaseDeepReport(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	w := &fakeWallet{address: testAddress}
	sink := &recordingSink{}
	s := NewReportService(be, w, sink, testPayment(), zerolog.Nop())

	before := time.Now()
	report, err := s.PurchaseDeepReport(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)

	// The payment carries the configured recipient, nano amount and a
	// validity window anchored at submission time.
	assert.Equal(t, 1, w.sendHits)
	assert.Equal(t, testAddress, w.lastReq.Recipient)
	assert.True(t, w.lastReq.AmountNano.Equal(decimal.NewFromInt(100000000)))
	assert.GreaterOrEqual(t, w.lastReq.ValidUntil, before.Add(10*time.Minute).Unix())

	events, attrs := waitForEvents(t, sink, 1)
	require.Equal(t, []string{EventDeepReportPurchased}, events)
	assert.Equal(t, "0xhash", attrs[0]["tx_hash"])
	assert.Equal(t, "100000000", attrs[0]["amount"])

	assert.Equal(t, 1, be.deepHits)
	assert.Equal(t, ActionSucceeded, s.DeepState().Phase)
}

func TestPurchaseDeepReportPaymentFailureAbortsBeforeBackend(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	w := &fakeWallet{address: testAddress, sendErr: errors.New("user rejected")}
	sink := &recordingSink{}
	s := NewReportService(be, w, sink, testPayment(), zerolog.Nop())

	_, err := s.PurchaseDeepReport(context.Background())
	require.Error(t, err)

	var werr *core.WalletError
	assert.ErrorAs(t, err, &werr)

	// No payment, no analysis, no purchase event.
	assert.Zero(t, be.deepHits)
	events, _ := sink.snapshot()
	assert.Empty(t, events)
	assert.Equal(t, ActionFailed, s.DeepState().Phase)
}

func TestPurchaseDeepReportWithoutWallet(t *testing.T) {
	w := &fakeWallet{}
	s := NewReportService(&fakeBackend{}, w, &recordingSink{}, testPayment(), zerolog.Nop())

	_, err := s.PurchaseDeepReport(context.Background())
	assert.ErrorIs(t, err, core.ErrWalletNotConnected)
	assert.Zero(t, w.sendHits)
}

func TestActionsTrackIndependentState(t *testing.T) {
	be := &fakeBackend{report: basicReport()}
	s := NewReportService(be, &fakeWallet{address: testAddress}, nil, testPayment(), zerolog.Nop())

	_, err := s.FetchReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ActionSucceeded, s.BasicState().Phase)
	assert.Equal(t, ActionIdle, s.DeepState().Phase)
}
