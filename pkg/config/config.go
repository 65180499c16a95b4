// Package config loads service settings from the environment, with an optional
// .env file for local development.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting of the fastlist service.
type Config struct {
	AppPort         string        `mapstructure:"APP_PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// CacheOpTimeout bounds every cache store call; slower calls count as a miss.
	CacheOpTimeout time.Duration `mapstructure:"CACHE_OP_TIMEOUT"`
	// MemoryCacheTTL caps how long the in-process tier keeps an entry.
	MemoryCacheTTL time.Duration `mapstructure:"MEMORY_CACHE_TTL"`

	CompressionThreshold int `mapstructure:"COMPRESSION_THRESHOLD"`
	CompressionLevel     int `mapstructure:"COMPRESSION_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RateLimitPerMinute int64 `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	TrustProxy         bool  `mapstructure:"TRUST_PROXY"`

	WarmPages int           `mapstructure:"WARM_PAGES"`
	StatsTTL  time.Duration `mapstructure:"STATS_TTL"`
}

var defaults = map[string]any{
	"APP_PORT":              "8080",
	"SHUTDOWN_TIMEOUT":      "15s",
	"LOG_LEVEL":             "info",
	"LOG_PRETTY":            false,
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_DB":              0,
	"REDIS_PASSWORD":        "",
	"CACHE_OP_TIMEOUT":      "150ms",
	"MEMORY_CACHE_TTL":      "10s",
	"COMPRESSION_THRESHOLD": 1024,
	"COMPRESSION_LEVEL":     6,
	"DATABASE_URL":          "",
	"RATE_LIMIT_PER_MINUTE": 600,
	"TRUST_PROXY":           false,
	"WARM_PAGES":            0,
	"STATS_TTL":             "30s",
}

// LoadFromEnv loads .env when it exists in the working directory, then reads
// the environment.
func LoadFromEnv() (*Config, error) {
	return Load(".env")
}

// Load reads envFile (if present) and the environment. Variables already set in
// the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required"))
	}
	if c.CacheOpTimeout <= 0 {
		errs = append(errs, errors.New("CACHE_OP_TIMEOUT must be positive"))
	}
	if c.MemoryCacheTTL < 0 {
		errs = append(errs, errors.New("MEMORY_CACHE_TTL must not be negative"))
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		errs = append(errs, fmt.Errorf("COMPRESSION_LEVEL %d out of range 1..9", c.CompressionLevel))
	}
	if c.WarmPages < 0 {
		errs = append(errs, errors.New("WARM_PAGES must not be negative"))
	}
	return errors.Join(errs...)
}

// String implements fmt.Stringer with secrets masked.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  ShutdownTimeout: %s\n", c.ShutdownTimeout))
	sb.WriteString(fmt.Sprintf("  LogLevel: %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  LogPretty: %v\n", c.LogPretty))
	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	if c.RedisPassword != "" {
		sb.WriteString("  RedisPassword: ********\n")
	} else {
		sb.WriteString("  RedisPassword: (empty)\n")
	}
	sb.WriteString(fmt.Sprintf("  CacheOpTimeout: %s\n", c.CacheOpTimeout))
	sb.WriteString(fmt.Sprintf("  MemoryCacheTTL: %s\n", c.MemoryCacheTTL))
	sb.WriteString(fmt.Sprintf("  Compression: threshold=%d level=%d\n", c.CompressionThreshold, c.CompressionLevel))
	sb.WriteString(fmt.Sprintf("  DatabaseURL: %s\n", redactURL(c.DatabaseURL)))
	sb.WriteString(fmt.Sprintf("  RateLimitPerMinute: %d\n", c.RateLimitPerMinute))
	sb.WriteString(fmt.Sprintf("  TrustProxy: %v\n", c.TrustProxy))
	sb.WriteString(fmt.Sprintf("  WarmPages: %d\n", c.WarmPages))
	sb.WriteString(fmt.Sprintf("  StatsTTL: %s\n", c.StatsTTL))
	return sb.String()
}

func redactURL(raw string) string {
	if raw == "" {
		return "(empty)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "********"
	}
	return u.Redacted()
}
