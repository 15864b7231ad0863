package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderLemonSqueezy = "lemonsqueezy"
	ProviderStripe       = "stripe"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	LemonAPIKey string `envconfig:"LEMON_API_KEY"`
	LemonAPIURL string `envconfig:"LEMON_API_URL" default:"https://api.lemonsqueezy.com"`

	MaintenanceVariantID string `envconfig:"MAINTENANCE_VARIANT_ID" default:"1175280"`

	OrderProvider string `envconfig:"ORDER_PROVIDER" default:"lemonsqueezy"` // "lemonsqueezy" or "stripe"
	StripeSecret  string `envconfig:"STRIPE_SECRET"`

	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"20s"`

	RateLimitRPS   float64  `envconfig:"RATE_LIMIT_RPS" default:"1"`
	RateLimitBurst int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Only enable behind a proxy that overwrites X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`
	SentryDSN string `envconfig:"SENTRY_DSN"`
}

// New reads the environment. Missing credentials are not an error here,
// see CredentialsError.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	if c.OrderProvider != ProviderLemonSqueezy && c.OrderProvider != ProviderStripe {
		result = multierror.Append(result, fmt.Errorf("ORDER_PROVIDER must be %q or %q, got %q",
			ProviderLemonSqueezy, ProviderStripe, c.OrderProvider))
	}

	if c.MaintenanceVariantID == "" {
		result = multierror.Append(result, errors.New("MAINTENANCE_VARIANT_ID must not be empty"))
	}

	if u, err := url.Parse(c.LemonAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("LEMON_API_URL must be an absolute URL, got %q", c.LemonAPIURL))
	}

	if c.UpstreamTimeout <= 0 {
		result = multierror.Append(result, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		result = multierror.Append(result, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return result.ErrorOrNil()
}

// CredentialsError reports the upstream credentials the configured
// providers need but that are absent.
func (c *Config) CredentialsError() error {
	var result *multierror.Error

	if c.LemonAPIKey == "" && c.OrderProvider == ProviderLemonSqueezy {
		result = multierror.Append(result, errors.New("LEMON_API_KEY environment variable is required"))
	}

	if c.StripeSecret == "" && c.OrderProvider == ProviderStripe {
		result = multierror.Append(result, errors.New("STRIPE_SECRET environment variable is required when ORDER_PROVIDER=stripe"))
	}

	return result.ErrorOrNil()
}
