// Package logging builds the structured logger used across indexdash.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"github.com/seenimoa/indexdash/internal/config"
)

// New returns a logger writing to w (stderr when nil). The text format is
// a human-readable console layout; json emits one object per line.
func New(cfg config.LoggingConfig, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	var writer log.Writer
	if strings.EqualFold(cfg.Format, "json") {
		writer = &log.IOWriter{Writer: w}
	} else {
		writer = &log.ConsoleWriter{
			Writer:         w,
			ColorOutput:    w == os.Stderr,
			QuoteString:    true,
			EndWithMessage: true,
		}
	}

	return &log.Logger{
		Level:      ParseLevel(cfg.Level),
		TimeFormat: "15:04:05",
		Writer:     writer,
	}
}

// ParseLevel maps a config level name to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}
}
