// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. KONDITER_HTTP_ADDR.
const Prefix = "KONDITER"

// Config holds runtime configuration for the server and the worker.
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development" validate:"oneof=development staging production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" validate:"gt=0"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`

	// DatabaseURL empty selects the in-memory backend.
	DatabaseURL      string `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"20" validate:"gte=1"`
	DatabaseMinConns int32  `envconfig:"DATABASE_MIN_CONNS" default:"2" validate:"gte=0,ltefield=DatabaseMaxConns"`

	// RedisAddr empty disables Redis: dedup and idempotency fall back, jobs are not queued.
	RedisAddr     string `envconfig:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`

	JWTSecret string        `envconfig:"JWT_SECRET" validate:"required,min=16"`
	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"konditer"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"15m" validate:"gt=0"`

	// MaintenanceKeyHash is a bcrypt hash guarding /admin endpoints.
	MaintenanceKeyHash string `envconfig:"MAINTENANCE_KEY_HASH"`

	LowStockRule        string        `envconfig:"LOW_STOCK_RULE" default:"quantity < min_stock"`
	LowStockSuppressFor time.Duration `envconfig:"LOW_STOCK_SUPPRESS_FOR" default:"24h" validate:"gt=0"`

	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s" validate:"gt=0"`
	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100" validate:"gte=1,lte=1000"`
	OutboxRetention    time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h" validate:"gt=0"`

	// ReconcileCron schedules the nightly balance recompute; empty disables it.
	ReconcileCron     string `envconfig:"RECONCILE_CRON" default:"30 3 * * *"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5" validate:"gte=1"`
	// WorkerMetricsAddr serves /metrics of the worker; empty disables it.
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`

	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT" validate:"omitempty,hostname_port"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"konditer"`
}

// Load reads and validates configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// UseMemory reports whether no database is configured.
func (c *Config) UseMemory() bool { return c.DatabaseURL == "" }

// UseRedis reports whether Redis is configured.
func (c *Config) UseRedis() bool { return c.RedisAddr != "" }
