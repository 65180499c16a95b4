// Package logging configures zerolog for the service and provides the
// request logging middleware.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is attached to every line when set.
	Service string
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache lookups (hit/miss, key)
//   - Malformed If-None-Match headers
//   - Generated SQL and row counts
//
// Info: Normal operation events
//   - Access log lines for 2xx/3xx/4xx responses
//   - Mutations written to the source of record
//   - Cache flushes and warm-up runs
//   - Server startup/shutdown
//
// Warn: Conditions that degrade but do not fail a request
//   - Cache store unavailable (request served from the database)
//   - Detached cache writes or invalidations that failed
//   - Rate limiter unavailable (request allowed)
//   - Clients over their rate limit
//
// Error: Error conditions requiring attention
//   - Source queries that failed (500 to the client)
//   - Panics recovered in detached tasks
//   - Configuration errors
//
// Context Fields:
//   - request_id: X-Request-ID of the request
//   - entity: list namespace (product, vendor, client, wallet)
//   - component: emitting package
//   - error_kind: QueryError kind
//   - cache_hit: whether the list came from the cache
//   - duration: elapsed time of the operation
