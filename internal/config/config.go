// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address of the registration front HTTP server (e.g. :8081).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// MetricsAddr serves /metrics for Prometheus; empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// DatabaseURL is the identity store DSN: a Postgres URL, or sqlite3://<path> for a local file.
	// Empty keeps the identity in memory only.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// CheckinURL and RegisterURL override the production endpoints.
	CheckinURL  string `mapstructure:"CHECKIN_URL"`
	RegisterURL string `mapstructure:"REGISTER_URL"`
	// CheckinTimeout bounds one HTTP exchange (e.g. "30s").
	CheckinTimeout string `mapstructure:"CHECKIN_TIMEOUT"`
	// DeviceProfile is the path of the TOML device profile. Required.
	DeviceProfile string `mapstructure:"DEVICE_PROFILE"`

	// CallerJWTPublicKey verifies caller capability tokens (PEM or path). May be derived from the private key.
	CallerJWTPublicKey string `mapstructure:"CALLER_JWT_PUBLIC_KEY"`
	// CallerJWTPrivateKey signs caller capability tokens (PEM or path). Optional on a verify-only front.
	CallerJWTPrivateKey string `mapstructure:"CALLER_JWT_PRIVATE_KEY"`
	CallerJWTIssuer     string `mapstructure:"CALLER_JWT_ISSUER"`
	CallerJWTAudience   string `mapstructure:"CALLER_JWT_AUDIENCE"`
	// CallerTokenTTL is the lifetime of issued caller tokens (e.g. "720h").
	CallerTokenTTL string `mapstructure:"CALLER_TOKEN_TTL"`

	// SenderPolicyFile is an optional Rego module replacing the default sender policy.
	SenderPolicyFile string `mapstructure:"SENDER_POLICY_FILE"`
	// DeniedSenders and DeniedPackages are comma-separated deny lists fed to the sender policy.
	DeniedSenders  string `mapstructure:"DENIED_SENDERS"`
	DeniedPackages string `mapstructure:"DENIED_PACKAGES"`

	// KafkaBrokers is a comma-separated broker list. When set, results without a reply channel
	// are broadcast to BroadcastKafkaTopic; otherwise they are logged.
	KafkaBrokers        string `mapstructure:"KAFKA_BROKERS"`
	BroadcastKafkaTopic string `mapstructure:"BROADCAST_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the broadcast worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the broadcast worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// FrontWorkers and FrontQueueSize size the intent worker pool.
	FrontWorkers   int `mapstructure:"FRONT_WORKERS"`
	FrontQueueSize int `mapstructure:"FRONT_QUEUE_SIZE"`

	// OTELEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTELEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTELInsecure forces plaintext gRPC to the collector even for https endpoints.
	OTELInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production"). It selects the
	// HTTP router mode; see GinMode.
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("CHECKIN_URL", "")
	v.SetDefault("REGISTER_URL", "")
	v.SetDefault("CHECKIN_TIMEOUT", "30s")
	v.SetDefault("DEVICE_PROFILE", "")
	v.SetDefault("CALLER_JWT_PUBLIC_KEY", "")
	v.SetDefault("CALLER_JWT_PRIVATE_KEY", "")
	v.SetDefault("CALLER_JWT_ISSUER", "device-checkin")
	v.SetDefault("CALLER_JWT_AUDIENCE", "gcm-front")
	v.SetDefault("CALLER_TOKEN_TTL", "720h")
	v.SetDefault("SENDER_POLICY_FILE", "")
	v.SetDefault("DENIED_SENDERS", "")
	v.SetDefault("DENIED_PACKAGES", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("BROADCAST_KAFKA_TOPIC", "gcm-registrations")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "gcm-broadcast-worker")
	v.SetDefault("FRONT_WORKERS", 4)
	v.SetDefault("FRONT_QUEUE_SIZE", 64)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.FrontWorkers < 1 {
		return nil, errors.New("config: FRONT_WORKERS must be at least 1")
	}
	if cfg.FrontQueueSize < 1 {
		return nil, errors.New("config: FRONT_QUEUE_SIZE must be at least 1")
	}
	if _, err := time.ParseDuration(cfg.CheckinTimeout); err != nil {
		return nil, errors.New("config: CHECKIN_TIMEOUT must be a duration (e.g. 30s)")
	}

	return &cfg, nil
}

// Timeout parses CheckinTimeout. Returns 30s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.CheckinTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// CallerTTL parses CallerTokenTTL. Returns 720h if unset or invalid.
func (c *Config) CallerTTL() time.Duration {
	d, err := time.ParseDuration(c.CallerTokenTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// GinMode maps Env to a gin router mode: "debug" for development, "test" for test, otherwise
// "release".
func (c *Config) GinMode() string {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "development", "dev":
		return "debug"
	case "test":
		return "test"
	}
	return "release"
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables Kafka broadcast.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// DeniedSendersList returns the sender deny list.
func (c *Config) DeniedSendersList() []string {
	return splitList(c.DeniedSenders)
}

// DeniedPackagesList returns the package deny list.
func (c *Config) DeniedPackagesList() []string {
	return splitList(c.DeniedPackages)
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
