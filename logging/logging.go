// Package logging configures the process logger and hands out child loggers
// tagged with the component they belong to.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu   sync.RWMutex
	base = newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, zerolog.InfoLevel)
)

// Init replaces the process logger. It is called once at startup, before any
// component asks for a logger.
func Init(level, format string) error {
	logger, err := New(os.Stderr, level, format)
	if err != nil {
		return err
	}

	mu.Lock()
	base = logger
	mu.Unlock()
	return nil
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	case FormatJSON:
	default:
		return zerolog.Nop(), errors.Errorf("unknown log format %q", format)
	}

	return newLogger(w, lvl), nil
}

// ParseLevel accepts debug, info, warn and error. An empty level means info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.NoLevel, errors.Errorf("unknown log level %q", level)
}

// For returns a child of the process logger carrying a component field.
func For(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

func newLogger(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
