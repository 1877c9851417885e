package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":    "test",
		"APP_PORT":   "8080",
		"DB_USER":    "cinema",
		"DB_HOST":    "127.0.0.1",
		"DB_PORT":    "3306",
		"DB_NAME":    "cinema",
		"JWT_SECRET": "secret",
		"ENV_FILE":   filepath.Join(t.TempDir(), "missing.env"),
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.TxRetryBackoff)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.EventsEnabled)
	assert.False(t, cfg.ConsumerEnabled)
	assert.Equal(t, "logs", cfg.BookingLogDir)
	assert.Equal(t, "", cfg.AMQPURL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TX_MAX_RETRIES", "5")
	t.Setenv("TX_RETRY_BACKOFF", "10ms")
	t.Setenv("DB_AUTO_MIGRATE", "off")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	t.Setenv("BOOKING_CONSUMER_ENABLED", "1")

	cfg := Load()
	assert.Equal(t, 5, cfg.TxMaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.TxRetryBackoff)
	assert.False(t, cfg.AutoMigrate)
	assert.True(t, cfg.ConsumerEnabled)
	assert.Equal(t, "amqp://broker:5672/", cfg.AMQPURL)
}

func TestLoadReadsDotEnv(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("BOOKING_LOG_DIR=/var/log/cinema\nAPP_PORT=9999\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("BOOKING_LOG_DIR", "")
	os.Unsetenv("BOOKING_LOG_DIR")

	cfg := Load()
	assert.Equal(t, "/var/log/cinema", cfg.BookingLogDir)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("AVAILABILITY_CACHE_ENABLED", "false")
	t.Setenv("AVAILABILITY_CACHE_TTL", "-1s")
	t.Setenv("AVAILABILITY_CACHE_PREFIX", "")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, "avail", cfg.Prefix)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TLS", "1")

	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.NotNil(t, opts.TLSConfig)
}
