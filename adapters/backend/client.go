// Package backend implements the REST contract the pulse service exposes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/ai-pulse/pulsekit/core"
	"github.com/ai-pulse/pulsekit/ports"
)

// maxErrorBody caps how much of an upstream error body is carried in errors.
const maxErrorBody = 2048

// Client calls the pulse backend REST API.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a backend client. clientID is forwarded on token
// exchange requests.
func NewClient(baseURL, clientID string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		http:     &http.Client{Timeout: 60 * time.Second},
		log:      log.With().Str("component", "backend").Logger(),
	}
}

var _ ports.Backend = (*Client)(nil)

// Analyze fetches the basic report for a wallet address.
func (c *Client) Analyze(ctx context.Context, address string) (*core.Report, error) {
	return c.fetchReport(ctx, "/api/analyze/"+address)
}

// DeepAnalyze fetches the paid report for a wallet address.
func (c *Client) DeepAnalyze(ctx context.Context, address string) (*core.Report, error) {
	return c.fetchReport(ctx, "/api/deep-analyze/"+address)
}

func (c *Client) fetchReport(ctx context.Context, path string) (*core.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &core.ReportFetchError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}

	var report core.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
	ClientID     string `json:"client_id,omitempty"`
}

// ExchangeCode performs the single token-exchange POST. A failed exchange
// is never retried: the code is one-shot and a second attempt would fail
// identically.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (string, error) {
	payload, err := json.Marshal(exchangeRequest{
		Code:         code,
		CodeVerifier: verifier,
		RedirectURI:  redirectURI,
		ClientID:     c.clientID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode exchange request: %w", err)
	}

	status, body, err := c.post(ctx, "/api/auth/exchange", payload)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return "", &core.ExchangeError{StatusCode: status, Body: truncate(body)}
	}

	// Deployments differ on the token field name; take the first present.
	parsed := gjson.ParseBytes(body)
	for _, field := range []string{"access_token", "id_token", "token"} {
		if token := parsed.Get(field).String(); token != "" {
			return token, nil
		}
	}
	return "", &core.ExchangeError{StatusCode: status, Body: "exchange response carried no token"}
}

// VerifyToken forwards a provider token to the backend for authoritative
// validation.
func (c *Client) VerifyToken(ctx context.Context, token string) (*core.UserProfile, error) {
	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("failed to encode verify request: %w", err)
	}

	status, body, err := c.post(ctx, "/api/auth/verify", payload)
	if err != nil {
		return nil, fmt.Errorf("token verify request failed: %w", err)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &core.VerifyError{StatusCode: status, Body: truncate(body)}
	}

	var result struct {
		Success bool              `json:"success"`
		User    *core.UserProfile `json:"user"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode verify response: %w", err)
	}
	if !result.Success {
		return nil, &core.VerifyError{StatusCode: status, Body: "backend rejected the token"}
	}
	if result.User == nil {
		result.User = &core.UserProfile{}
	}
	return result.User, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
