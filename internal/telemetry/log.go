package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance used across Mercury's packages.
var Logger zerolog.Logger

// Level represents a log severity level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger. Safe to call multiple times (e.g.
// once per test); the last call wins.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// A sane default so packages that log before Init (tests, library
	// callers that never call telemetry.Init) don't panic on a zero
	// Logger.
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the given component,
// e.g. "atom", "wal", "btree", "store", "pool".
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithStore returns a child logger tagged with a store's directory path.
func WithStore(logger zerolog.Logger, path string) zerolog.Logger {
	return logger.With().Str("store", path).Logger()
}
