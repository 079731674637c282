package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the ledger's PostgreSQL pool. LockTimeout bounds
// how long a transfer waits on a wallet row lock.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"dbname"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig configures validation of session tokens minted by the identity service.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry"` // lifetime of tokens minted by emoneyctl session-token
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects the persistence backend.
// "postgres" uses PostgreSQL for the ledger and Redis for tokens and the idempotency cache;
// "memory" keeps everything in-process (single instance, dev and tests).
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type LedgerConfig struct {
	Currency               string        `mapstructure:"currency"`
	OperationTimeout       time.Duration `mapstructure:"operation_timeout"`
	MaxRetries             int           `mapstructure:"max_retries"`
	RequireSCAForTransfers bool          `mapstructure:"require_sca_for_transfers"`
	TrustAccountID         string        `mapstructure:"trust_account_id"`
	IdempotencyCacheTTL    time.Duration `mapstructure:"idempotency_cache_ttl"`
}

type AuditConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// AlertsConfig configures discrepancy alert delivery. An empty WebhookURL logs alerts only.
type AlertsConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Secret     string        `mapstructure:"secret"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: EMC_ (e-money core).
// Nested keys use underscore: EMC_DATABASE_HOST, EMC_LEDGER_MAX_RETRIES, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "emoney")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "3s")
	v.SetDefault("database.statement_timeout", "10s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "2s")
	v.SetDefault("redis.read_timeout", "500ms")
	v.SetDefault("redis.write_timeout", "500ms")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.expiry", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("ledger.currency", "NAD")
	v.SetDefault("ledger.operation_timeout", "5s")
	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.require_sca_for_transfers", true)
	v.SetDefault("ledger.trust_account_id", "")
	v.SetDefault("ledger.idempotency_cache_ttl", "24h")
	v.SetDefault("audit.workers", 2)
	v.SetDefault("audit.queue_size", 1024)
	v.SetDefault("alerts.webhook_url", "")
	v.SetDefault("alerts.secret", "")
	v.SetDefault("alerts.timeout", "10s")
	v.SetDefault("alerts.max_retries", 3)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: EMC_DATABASE_HOST -> database.host
	v.SetEnvPrefix("EMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Ledger.OperationTimeout <= 0 {
		return fmt.Errorf("config: ledger.operation_timeout must be positive")
	}
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("config: ledger.max_retries must not be negative")
	}
	if c.Audit.Workers < 1 || c.Audit.QueueSize < 1 {
		return fmt.Errorf("config: audit.workers and audit.queue_size must be at least 1")
	}
	return nil
}
