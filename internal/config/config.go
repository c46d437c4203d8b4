// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAllowList is the set of path patterns reachable without a token.
const DefaultAllowList = "/assets/**,/forget/**,/not_found/**,/error/**,/swagger-ui.html,/webjars/**," +
	"/swagger-resources/**,/v2/api-docs,/configuration/ui,/configuration/security,/wx/**,/healthz"

// Token formats accepted by TOKEN_FORMAT.
const (
	TokenFormatOpaque = "opaque"
	TokenFormatJWT    = "jwt"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health listener; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty the in-memory stores are used.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// TokenTTL is the lifetime of an issued login token (e.g. "12h").
	TokenTTL string `mapstructure:"TOKEN_TTL"`
	// TokenFormat is "opaque" (random value) or "jwt" (signed, still backed by the token store).
	TokenFormat string `mapstructure:"TOKEN_FORMAT"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file. Required for TOKEN_FORMAT=jwt.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file. Required for TOKEN_FORMAT=jwt.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// PreventLoginWhenMaximum rejects a new login while the user still holds a live session
	// instead of evicting the older one.
	PreventLoginWhenMaximum bool `mapstructure:"PREVENT_LOGIN_WHEN_MAXIMUM"`
	// LockoutThreshold locks an account after this many consecutive bad passwords; 0 disables lockout.
	LockoutThreshold int `mapstructure:"LOCKOUT_THRESHOLD"`
	// AllowList is a comma-separated list of ant-style path patterns that need no token.
	AllowList string `mapstructure:"AUTH_ALLOW_LIST"`
	// AuthzPolicyFile is an optional Rego file replacing the built-in authorization policy.
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs whose X-Forwarded-For is
	// trusted for client IPs; empty trusts none.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`
	// TokenSweepInterval enables the background sweep of expired tokens (e.g. "10m"); "0" disables it.
	TokenSweepInterval string `mapstructure:"TOKEN_SWEEP_INTERVAL"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty keeps no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for auth events (default asr-auth-events).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker pushes events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("TOKEN_FORMAT", TokenFormatOpaque)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "asr-auth")
	v.SetDefault("JWT_AUDIENCE", "asr-api")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PREVENT_LOGIN_WHEN_MAXIMUM", false)
	v.SetDefault("LOCKOUT_THRESHOLD", 0)
	v.SetDefault("AUTH_ALLOW_LIST", DefaultAllowList)
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "asr-auth-events")
	v.SetDefault("KAFKA_GROUP_ID", "asr-auth-event-worker")
	v.SetDefault("LOKI_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.LockoutThreshold < 0 {
		return nil, errors.New("config: LOCKOUT_THRESHOLD must not be negative")
	}

	cfg.TokenFormat = strings.ToLower(strings.TrimSpace(cfg.TokenFormat))
	switch cfg.TokenFormat {
	case TokenFormatOpaque:
	case TokenFormatJWT:
		if cfg.JWTPrivateKey == "" || cfg.JWTPublicKey == "" {
			return nil, errors.New("config: TOKEN_FORMAT=jwt requires JWT_PRIVATE_KEY and JWT_PUBLIC_KEY")
		}
	default:
		return nil, errors.New("config: TOKEN_FORMAT must be opaque or jwt")
	}

	return &cfg, nil
}

// TokenLifetime parses TokenTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) TokenLifetime() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// SweepInterval parses TokenSweepInterval. Returns 0 (sweeper off) if unset, zero or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.TokenSweepInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// AllowListPatterns returns the allow-list patterns from the comma-separated config.
func (c *Config) AllowListPatterns() []string {
	if c == nil {
		return nil
	}
	return splitList(c.AllowList)
}

// TrustedProxyList returns the trusted proxy addresses, or nil when none are configured.
func (c *Config) TrustedProxyList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
