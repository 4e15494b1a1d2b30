// Package logger provides structured logging with file and console output.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Output formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New creates a logger writing to stdout and, when logFile is set, appending to
// that file as JSON. format selects the stdout encoding; anything other than
// "json" gives the human readable console form. Unknown levels fall back to info.
func New(level, logFile, format string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var stdout io.Writer = os.Stdout
	if format != FormatJSON {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	writers := []io.Writer{stdout}

	var file *os.File
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, err
		}
		file, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "tgstats").
		Caller().
		Logger()

	return &Logger{Logger: zl, file: file}, nil
}

// Global is the global logger instance for convenience.
var Global *Logger

// Init replaces the global logger.
func Init(level, logFile, format string) error {
	l, err := New(level, logFile, format)
	if err != nil {
		return err
	}
	if Global != nil {
		_ = Global.Close()
	}
	Global = l
	return nil
}

// Get returns the global logger, a no-op one before Init.
func Get() *Logger {
	if Global == nil {
		return &Logger{Logger: zerolog.Nop()}
	}
	return Global
}

// Component returns a child logger tagging every entry with the subsystem name.
// It shares the parent's file, which only the parent closes.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With().Str("component", name).Logger()}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
