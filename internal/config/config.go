package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "ETR"

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
)

type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Storage StorageConfig
	Breaker BreakerConfig
	Kafka   KafkaConfig
}

type AppConfig struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"etr-storefront"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	CatalogPath string `envconfig:"CATALOG_PATH"`
}

type HTTPConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE" default:"false"`
}

type StorageConfig struct {
	Driver        string        `envconfig:"DRIVER" default:"sqlite"`
	KeyPrefix     string        `envconfig:"KEY_PREFIX" default:"etr_cart_v1"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:"etr_cart.db"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisTTL      time.Duration `envconfig:"REDIS_TTL" default:"0s"`
	MongoURI      string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName   string        `envconfig:"MONGO_DB_NAME" default:"cartdb"`
	MongoTTL      time.Duration `envconfig:"MONGO_TTL" default:"0s"`
}

type BreakerConfig struct {
	Enabled          bool          `envconfig:"ENABLED" default:"true"`
	MaxFailures      uint32        `envconfig:"MAX_FAILURES" default:"5"`
	OpenTimeout      time.Duration `envconfig:"OPEN_TIMEOUT" default:"30s"`
	HalfOpenRequests uint32        `envconfig:"HALF_OPEN_REQUESTS" default:"1"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"BROKERS"`
	Topic   string   `envconfig:"PAYMENT_TOPIC" default:"payment-completed"`
	GroupID string   `envconfig:"GROUP_ID" default:"etr-storefront"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads an optional .env file (ENV_FILE, default ".env") and then the
// environment. Variables are named ETR_<SECTION>_<NAME>, e.g.
// ETR_STORAGE_DRIVER or ETR_HTTP_PORT; the bare <NAME> is accepted as a
// fallback.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis, DriverMongo:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.KeyPrefix == "" {
		return errors.New("storage key prefix must not be empty")
	}
	if c.Storage.RedisTTL < 0 {
		return errors.New("redis ttl must not be negative")
	}
	if c.Storage.MongoTTL < 0 {
		return errors.New("mongo ttl must not be negative")
	}
	return nil
}
