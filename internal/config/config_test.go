package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/domain"
)

// load reads the config without picking up a .env from the working directory.
func load(t *testing.T) (*Config, error) {
	t.Helper()
	return Load(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := load(t)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, domain.CheckoutStrict, cfg.Mode())
	assert.Equal(t, domain.MissingReferenceSkip, cfg.Policy())
	assert.Equal(t, 10*time.Second, cfg.CheckoutTimeout())
	assert.Equal(t, 168*time.Hour, cfg.CartTTL())
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL())
	assert.Equal(t, "marketplace", cfg.KafkaTopicPrefix)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowQueryThreshold())
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
}

func TestLoad_CheckoutSettings(t *testing.T) {
	t.Setenv("CHECKOUT_MODE", "lenient")
	t.Setenv("MISSING_REFERENCE_POLICY", "reject")
	t.Setenv("CHECKOUT_TIMEOUT_SECONDS", "3")

	cfg, err := load(t)

	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutLenient, cfg.Mode())
	assert.Equal(t, domain.MissingReferenceReject, cfg.Policy())
	assert.Equal(t, 3*time.Second, cfg.CheckoutTimeout())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		msg  string
	}{
		{"http port", "HTTP_PORT", "0", "invalid HTTP port"},
		{"redis port", "REDIS_PORT", "70000", "invalid REDIS_PORT"},
		{"checkout mode", "CHECKOUT_MODE", "eventual", "CHECKOUT_MODE"},
		{"policy", "MISSING_REFERENCE_POLICY", "ignore", "MISSING_REFERENCE_POLICY"},
		{"checkout timeout", "CHECKOUT_TIMEOUT_SECONDS", "0", "CHECKOUT_TIMEOUT_SECONDS must be positive"},
		{"cart ttl", "CART_TTL_HOURS", "-1", "CART_TTL_HOURS must be positive"},
		{"idempotency ttl", "IDEMPOTENCY_TTL_MINUTES", "0", "IDEMPOTENCY_TTL_MINUTES must be positive"},
		{"sample rate", "OTEL_SAMPLE_RATE", "2.0", "OTEL_SAMPLE_RATE must be between 0.0 and 1.0"},
		{"failure ratio", "CB_FAILURE_RATIO", "0", "CB_FAILURE_RATIO"},
		{"pool bounds", "DB_MIN_CONNS", "50", "must not exceed DB_MAX_CONNS"},
		{"rate limit", "RATE_LIMIT_RPS", "-1", "RATE_LIMIT_RPS must not be negative"},
		{"rate burst", "RATE_LIMIT_BURST", "0", "RATE_LIMIT_BURST must be positive"},
		{"not a number", "HTTP_PORT", "eighty", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			cfg, err := load(t)

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KAFKA_BROKERS=k1:9092,k2:9092\nKAFKA_TOPIC_PREFIX=staging\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("KAFKA_TOPIC_PREFIX")
	})

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "staging", cfg.KafkaTopicPrefix)
}

func TestConfig_Postgres(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("DB_MAX_CONN_LIFETIME_MINUTES", "15")

	cfg, err := load(t)
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, int32(25), pg.MaxConns)
	assert.Equal(t, 15*time.Minute, pg.MaxConnLifetime)
	assert.Contains(t, pg.DSN(), "db.internal:5432/marketplace")
}

func TestConfig_Breaker(t *testing.T) {
	t.Setenv("CB_TIMEOUT_SECONDS", "5")

	cfg, err := load(t)
	require.NoError(t, err)

	b := cfg.Breaker("kafka")
	assert.Equal(t, "kafka", b.Name)
	assert.Equal(t, 5*time.Second, b.Timeout)
	assert.Equal(t, time.Minute, b.Interval)
	assert.Equal(t, uint32(5), b.MinRequests)
	assert.Equal(t, "localhost:6379", cfg.Redis().Addr())
}
