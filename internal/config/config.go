// Package config loads and validates process configuration from the
// environment, with an optional .env file for local development.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the full set of tunables for the analyticsd process. Fields use
// envdecode struct tags under the ANALYTICS_ prefix (envdecode's default
// separator is "_", mirroring the original service's "SHYMINI__" double
// underscore convention closely enough for a single-level, flat config).
type Config struct {
	Host string `env:"ANALYTICS_HOST,default=0.0.0.0"`
	Port int    `env:"ANALYTICS_PORT,default=8080" validate:"min=1,max=65535"`

	DatabaseURL         string `env:"ANALYTICS_DATABASE_URL,required" validate:"required"`
	DatabaseMaxOpenConn int    `env:"ANALYTICS_DB_MAX_OPEN_CONNS,default=20" validate:"min=1"`
	DatabaseMaxIdleConn int    `env:"ANALYTICS_DB_MAX_IDLE_CONNS,default=10" validate:"min=1"`

	MigrationsPath string `env:"ANALYTICS_MIGRATIONS_PATH,default=migrations"`

	GeoCityDBPath string `env:"ANALYTICS_GEOIP_CITY_DB,default="`
	GeoASNDBPath  string `env:"ANALYTICS_GEOIP_ASN_DB,default="`

	CacheMaxEntries           int           `env:"ANALYTICS_CACHE_MAX_ENTRIES,default=10000"`
	CacheTTL                  time.Duration `env:"ANALYTICS_CACHE_TTL,default=5m"`
	SessionMemoryTimeout      time.Duration `env:"ANALYTICS_SESSION_MEMORY_TIMEOUT,default=30m"`
	ActiveCutoff              time.Duration `env:"ANALYTICS_ACTIVE_CUTOFF,default=5m"`

	AggressiveSaltingDefault bool `env:"ANALYTICS_AGGRESSIVE_SALTING,default=true"`
	BlockAllIPs              bool `env:"ANALYTICS_BLOCK_ALL_IPS,default=false"`
	IgnoredNetworksCSV       string `env:"ANALYTICS_IGNORED_NETWORKS,default="`

	HeartbeatFrequency time.Duration `env:"ANALYTICS_HEARTBEAT_FREQUENCY,default=30s"`
	DefaultHTTPS       bool          `env:"ANALYTICS_DEFAULT_HTTPS,default=true"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	MetricsEnabled bool `env:"ANALYTICS_METRICS_ENABLED,default=true"`

	RequestTimeout  time.Duration `env:"ANALYTICS_REQUEST_TIMEOUT,default=30s"`
	MaxRequestBytes int64         `env:"ANALYTICS_MAX_REQUEST_BYTES,default=1048576"`

	RateLimitPerSecond int `env:"ANALYTICS_RATE_LIMIT_RPS,default=50"`
	RateLimitBurst     int `env:"ANALYTICS_RATE_LIMIT_BURST,default=100"`
}

// Load reads a .env file if present (silently ignoring its absence — .env is
// a local-dev convenience, not a deployment requirement), decodes the
// environment into a Config, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IgnoredNetworks parses IgnoredNetworksCSV into CIDR strings, filtering
// empty entries. Actual net.ParseCIDR validation happens in internal/privacy
// so that a malformed entry there can be reported with IP-checking context.
func (c *Config) IgnoredNetworks() []string {
	if strings.TrimSpace(c.IgnoredNetworksCSV) == "" {
		return nil
	}
	parts := strings.Split(c.IgnoredNetworksCSV, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// GetEnvInt is a small standalone helper retained for callers (e.g. CLI
// flags) that need default-aware integer parsing outside of envdecode's
// struct-tag driven flow.
func GetEnvInt(raw string, defaultValue int) int {
	if raw == "" {
		return defaultValue
	}
	if parsed, err := strconv.Atoi(raw); err == nil {
		return parsed
	}
	return defaultValue
}
