// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
	LevelDisabled LogLevel = "disabled"
)

// Component names used with NewLogger.
const (
	ComponentClient      = "graphql-client"
	ComponentAccumulator = "accumulator"
	ComponentRateLimit   = "ratelimit"
	ComponentExport      = "export"
	ComponentCLI         = "cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelWarn,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name from flags or the environment.
func ParseLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelDisabled:
		return l, nil
	case "warning":
		return LevelWarn, nil
	case "":
		return LevelWarn, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

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
	case "disabled":
		return zerolog.Disabled
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
// Debug: detail for following a session
//   - Pages merged, discarded (stale generation) or skipped (no next page)
//   - Cache hit/miss per query
//   - Filter changes
//
// Info: normal operation events
//   - Requests that succeeded after a retry
//   - Export start and completion
//   - Metrics server startup
//
// Warn: conditions that don't stop the program
//   - Failed page fetches (surfaced as Error state in the UI)
//   - Retry attempts, rate limit throttling
//   - Cache errors (fallback to the API)
//
// Error: conditions requiring attention
//   - Retries exhausted
//   - Rate limit cool-down blocks
//   - Configuration errors
//
// Context Fields:
//   - component: logger owner (see Component* constants)
//   - operation: accumulator operation (set_filter, load_more, refresh)
//   - page: page number
//   - filter: active filter (status and species)
//   - generation: filter generation of a request
//   - error_class: client, server, rate_limit, network, graphql
//   - duration: request duration
