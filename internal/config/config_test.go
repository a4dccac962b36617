package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/pricing",
		"REDIS_URL":    "redis://localhost:6379/0",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "Standard Selling", cfg.DefaultPriceList)
	require.Equal(t, "IDR", cfg.DefaultCurrency)
	require.Equal(t, 150*time.Millisecond, cfg.PricingDebounce)
	require.Equal(t, 10*time.Minute, cfg.RuleSnapshotTTL)
	require.Equal(t, 10*time.Second, cfg.ReconcileTimeout)
	require.Equal(t, 3, cfg.ReconcileRetries)
	require.Equal(t, 0.5, cfg.BreakerThreshold)
	require.Equal(t, 600, cfg.RateLimitPerMinute)
	require.Empty(t, cfg.ReconcileURL)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9090"
	env["PRICING_DEBOUNCE"] = "300ms"
	env["RECONCILE_URL"] = "http://pricing-backend:8000/reconcile"
	env["CORS_ALLOWED_ORIGINS"] = "https://pos.example.com, https://admin.example.com"
	env["BREAKER_THRESHOLD"] = "0.7"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 300*time.Millisecond, cfg.PricingDebounce)
	require.Equal(t, "http://pricing-backend:8000/reconcile", cfg.ReconcileURL)
	require.Equal(t, []string{"https://pos.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 0.7, cfg.BreakerThreshold)
}

func TestLoadRequiresDataStores(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")

	env = baseEnv()
	env["REDIS_URL"] = ""
	_, err = LoadForTests(env)
	require.ErrorContains(t, err, "REDIS_URL")
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	env := baseEnv()
	env["PRICING_DEBOUNCE"] = "soon"
	env["RECONCILE_RETRIES"] = "lots"
	env["BREAKER_THRESHOLD"] = "half"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, 150*time.Millisecond, cfg.PricingDebounce)
	require.Equal(t, 3, cfg.ReconcileRetries)
	require.Equal(t, 0.5, cfg.BreakerThreshold)
}
