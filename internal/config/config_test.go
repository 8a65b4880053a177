package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	noEnvFile(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "etr_cart_v1", cfg.Storage.KeyPrefix)
	assert.Equal(t, time.Duration(0), cfg.Storage.RedisTTL)
	assert.Equal(t, time.Duration(0), cfg.Storage.MongoTTL)
	assert.True(t, cfg.Breaker.Enabled)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ETR_HTTP_PORT", "9090")
	t.Setenv("ETR_STORAGE_DRIVER", "Redis")
	t.Setenv("ETR_STORAGE_REDIS_TTL", "720h")
	t.Setenv("ETR_STORAGE_MONGO_TTL", "2160h")
	t.Setenv("ETR_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, 720*time.Hour, cfg.Storage.RedisTTL)
	assert.Equal(t, 2160*time.Hour, cfg.Storage.MongoTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ETR_STORAGE_DRIVER=memory\nETR_APP_LOG_LEVEL=debug\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	// godotenv never overrides variables that are already set
	t.Setenv("ETR_STORAGE_DRIVER", "")
	os.Unsetenv("ETR_STORAGE_DRIVER")
	os.Unsetenv("ETR_APP_LOG_LEVEL")
	t.Cleanup(func() {
		os.Unsetenv("ETR_STORAGE_DRIVER")
		os.Unsetenv("ETR_APP_LOG_LEVEL")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.App.LogLevel)
}

func TestLoad_UnknownDriver(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ETR_STORAGE_DRIVER", "cassandra")

	_, err := Load()
	assert.ErrorContains(t, err, "unknown storage driver")
}

func TestLoad_NegativeTTL(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ETR_STORAGE_REDIS_TTL", "-1s")

	_, err := Load()
	assert.ErrorContains(t, err, "redis ttl")
}

func TestLoad_NegativeMongoTTL(t *testing.T) {
	noEnvFile(t)
	t.Setenv("ETR_STORAGE_MONGO_TTL", "-1h")

	_, err := Load()
	assert.ErrorContains(t, err, "mongo ttl")
}
