// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"cuidame-health/backend/internal/security"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret is the HS256 signing secret, inline or "file:<path>". Resolved by Load into Secret.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim stamped on and required of every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTLSeconds is the access token lifetime. Refresh tokens are fixed at 30 days.
	JWTAccessTTLSeconds int `mapstructure:"JWT_ACCESS_TTL_SECONDS"`

	MaxSessionsPerUser          int  `mapstructure:"MAX_SESSIONS_PER_USER"`
	SessionRetentionDays        int  `mapstructure:"SESSION_RETENTION_DAYS"`
	SessionNeverUsedGraceHours  int  `mapstructure:"SESSION_NEVER_USED_GRACE_HOURS"`
	SweepOnLogin                bool `mapstructure:"SWEEP_ON_LOGIN"`
	// SweepInterval is the worker's sweep period (e.g. "15m").
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`

	Argon2MemoryKiB       uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Time            uint32 `mapstructure:"ARGON2_TIME"`
	Argon2Threads         uint8  `mapstructure:"ARGON2_THREADS"`
	RehashLegacyPasswords bool   `mapstructure:"REHASH_LEGACY_PASSWORDS"`

	// RedisAddr enables the Redis-backed per-user login lock; empty uses in-process locks.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Telemetry (optional). When Kafka brokers are set, gRPC server emits telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	TelemetryKafkaTopic   string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Secret is the resolved JWT signing secret. Never logged.
	Secret []byte `mapstructure:"-"`
}

var defaults = map[string]any{
	"GRPC_ADDR":                      ":8080",
	"DATABASE_URL":                   "",
	"JWT_SECRET":                     "",
	"JWT_ISSUER":                     "cuidame-auth",
	"JWT_ACCESS_TTL_SECONDS":         3600,
	"MAX_SESSIONS_PER_USER":          5,
	"SESSION_RETENTION_DAYS":         30,
	"SESSION_NEVER_USED_GRACE_HOURS": 24,
	"SWEEP_ON_LOGIN":                 true,
	"SWEEP_INTERVAL":                 "15m",
	"ARGON2_MEMORY_KIB":              64 * 1024,
	"ARGON2_TIME":                    1,
	"ARGON2_THREADS":                 2,
	"REHASH_LEGACY_PASSWORDS":        true,
	"REDIS_ADDR":                     "",
	"KAFKA_BROKERS":                  "",
	"TELEMETRY_KAFKA_TOPIC":          "cuidame-telemetry",
	"OTEL_EXPORTER_OTLP_ENDPOINT":    "",
	"OTEL_EXPORTER_OTLP_INSECURE":    false,
	"OTEL_SERVICE_NAME":              "cuidame-auth",
	"LOG_LEVEL":                      "info",
	"LOG_FORMAT":                     "json",
	"APP_ENV":                        "",
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	secret, err := security.LoadSecret(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("config: JWT_SECRET: %w", err)
	}
	cfg.Secret = secret
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.JWTIssuer == "" {
		return errors.New("config: JWT_ISSUER must be set")
	}
	if c.JWTAccessTTLSeconds <= 0 {
		return errors.New("config: JWT_ACCESS_TTL_SECONDS must be positive")
	}
	if c.MaxSessionsPerUser < 1 {
		return errors.New("config: MAX_SESSIONS_PER_USER must be at least 1")
	}
	if c.SessionRetentionDays < 1 {
		return errors.New("config: SESSION_RETENTION_DAYS must be at least 1")
	}
	if c.SessionNeverUsedGraceHours < 1 {
		return errors.New("config: SESSION_NEVER_USED_GRACE_HOURS must be at least 1")
	}
	if d, err := time.ParseDuration(c.SweepInterval); err != nil || d <= 0 {
		return errors.New("config: SWEEP_INTERVAL must be a positive duration")
	}
	if c.Argon2Threads == 0 || c.Argon2Time == 0 || c.Argon2MemoryKiB < 8 {
		return errors.New("config: ARGON2_* parameters are out of range")
	}
	return nil
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLSeconds) * time.Second
}

// SweepEvery returns SweepInterval as a duration. Load has already validated it.
func (c *Config) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// Argon2Params returns the password hashing cost for new hashes.
func (c *Config) Argon2Params() security.Argon2Params {
	return security.Argon2Params{
		Memory:  c.Argon2MemoryKiB,
		Time:    c.Argon2Time,
		Threads: c.Argon2Threads,
	}
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
