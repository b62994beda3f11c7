package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"backendmonitoring/internal/config"
)

// New builds the service logger. Events go to out and to every sink;
// console format only affects out, sinks always receive JSON.
func New(cfg config.LoggingConfig, out io.Writer, sinks ...io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = out
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if len(sinks) > 0 {
		w = zerolog.MultiLevelWriter(append([]io.Writer{w}, sinks...)...)
	}

	return zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
