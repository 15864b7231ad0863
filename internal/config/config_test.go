package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"PORT", "LEMON_API_KEY", "LEMON_API_URL", "MAINTENANCE_VARIANT_ID",
	"ORDER_PROVIDER", "STRIPE_SECRET", "UPSTREAM_TIMEOUT", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "ALLOWED_ORIGINS", "TRUST_PROXY_HEADERS", "LOG_LEVEL", "SENTRY_DSN",
}

// clearEnv unsets every variable the config reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.lemonsqueezy.com", cfg.LemonAPIURL)
	assert.Equal(t, "1175280", cfg.MaintenanceVariantID)
	assert.Equal(t, ProviderLemonSqueezy, cfg.OrderProvider)
	assert.Equal(t, 20*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestNew_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LEMON_API_KEY", "test-api-key")
	t.Setenv("MAINTENANCE_VARIANT_ID", "42")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://auto-focus.app,https://www.auto-focus.app")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "test-api-key", cfg.LemonAPIKey)
	assert.Equal(t, "42", cfg.MaintenanceVariantID)
	assert.Equal(t, 5*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, []string{"https://auto-focus.app", "https://www.auto-focus.app"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.NoError(t, cfg.CredentialsError())
}

func TestNew_ReportsAllProblems(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDER_PROVIDER", "paddle")
	t.Setenv("UPSTREAM_TIMEOUT", "-1s")
	t.Setenv("LEMON_API_URL", "not a url")

	_, err := New()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "ORDER_PROVIDER")
	assert.Contains(t, err.Error(), "UPSTREAM_TIMEOUT")
	assert.Contains(t, err.Error(), "LEMON_API_URL")
}

func TestNew_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPSTREAM_TIMEOUT", "twenty")

	_, err := New()
	assert.Error(t, err)
}

func TestCredentialsError(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErr  bool
		contains string
	}{
		{
			name:     "lemonsqueezy without api key",
			cfg:      Config{OrderProvider: ProviderLemonSqueezy},
			wantErr:  true,
			contains: "LEMON_API_KEY",
		},
		{
			name: "lemonsqueezy with api key",
			cfg:  Config{OrderProvider: ProviderLemonSqueezy, LemonAPIKey: "key"},
		},
		{
			name:     "stripe without secret",
			cfg:      Config{OrderProvider: ProviderStripe},
			wantErr:  true,
			contains: "STRIPE_SECRET",
		},
		{
			name: "stripe does not need the lemon api key",
			cfg:  Config{OrderProvider: ProviderStripe, StripeSecret: "sk_test_123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.CredentialsError()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
