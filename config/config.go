// Package config loads environment-provided configuration, with optional
// .env file support. Every optional setting either has a documented default
// or disables its dependent feature when absent.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ai-pulse/pulsekit/core"
)

// Config is the full environment surface of the pulse client.
type Config struct {
	// BackendURL is the base URL of the pulse backend REST API.
	BackendURL string `env:"PULSE_BACKEND_URL,default=http://localhost:8000"`

	// StatePath overrides where the durable state file lives. Empty means
	// a per-user default under the OS config directory.
	StatePath string `env:"PULSE_STATE_PATH"`

	// RedisURL switches durable state and the telemetry stream to Redis
	// when set; absent disables both.
	RedisURL string `env:"PULSE_REDIS_URL"`

	LogLevel string `env:"PULSE_LOG_LEVEL,default=info"`

	OAuth struct {
		// AuthorizeURL and ClientID disable login when absent.
		AuthorizeURL string `env:"PULSE_AUTHORIZE_URL"`
		ClientID     string `env:"PULSE_OAUTH_CLIENT_ID"`
		RedirectURI  string `env:"PULSE_REDIRECT_URI,default=http://127.0.0.1:8976/auth/callback"`
		Scope        string `env:"PULSE_OAUTH_SCOPE,default=openid profile"`
		// Flow is "code" (Authorization Code + PKCE) or "id_token"
		// (Implicit); selected once at startup.
		Flow string `env:"PULSE_AUTH_FLOW,default=code"`
	}

	Payment struct {
		// Wallet receives the deep-report payment.
		Wallet string `env:"PULSE_PAYMENT_WALLET,default=0QAD3sa-ZJE929PM_rvnDormWmwZorniPoj5OcYmxdkHSabD"`
		// PriceTON is the deep-report price in whole TON.
		PriceTON string `env:"PULSE_DEEP_REPORT_PRICE_TON,default=0.1"`
		// TTLSeconds bounds how long the wallet may hold the unsigned
		// payment request.
		TTLSeconds int `env:"PULSE_PAYMENT_TTL_SECONDS,default=600"`
	}

	Telemetry struct {
		// IngestURL and APIKey both set enable the HTTP analytics sink;
		// either absent disables it.
		IngestURL string `env:"PULSE_ANALYTICS_URL"`
		APIKey    string `env:"PULSE_ANALYTICS_KEY"`
	}

	Wallet struct {
		// Address is the connected account the CLI acts for.
		Address string `env:"PULSE_WALLET_ADDRESS"`
		// Key is an optional hex private key for the local dev wallet.
		Key string `env:"PULSE_WALLET_KEY"`
	}
}

// Load reads configuration from the environment, after loading a .env file
// if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := url.Parse(c.BackendURL); err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	switch core.FlowKind(c.OAuth.Flow) {
	case core.FlowCode, core.FlowImplicit:
	default:
		return fmt.Errorf("unknown auth flow %q", c.OAuth.Flow)
	}
	if _, err := decimal.NewFromString(c.Payment.PriceTON); err != nil {
		return fmt.Errorf("invalid deep report price: %w", err)
	}
	return nil
}

// FlowKind returns the configured authorization flow.
func (c *Config) FlowKind() core.FlowKind {
	return core.FlowKind(c.OAuth.Flow)
}

// AmountNano converts the configured TON price to nano units.
func (c *Config) AmountNano() decimal.Decimal {
	price, err := decimal.NewFromString(c.Payment.PriceTON)
	if err != nil {
		return decimal.Zero
	}
	return price.Shift(9)
}

// PaymentTTL returns the payment validity window.
func (c *Config) PaymentTTL() time.Duration {
	return time.Duration(c.Payment.TTLSeconds) * time.Second
}
