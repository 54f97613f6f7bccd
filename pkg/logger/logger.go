// Package logger sets up the append-only log stream: human-readable console
// lines plus an optional rotated file, both fed by one zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where log lines go.
type Config struct {
	Level      string
	Console    bool
	NoColor    bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Logger is the process logger. It discards everything until Init is called.
var Logger = zerolog.Nop()

var fileSink *lumberjack.Logger

// Init builds the global logger from cfg.
func Init(cfg Config) {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
			NoColor:    cfg.NoColor,
		})
	}

	if cfg.File != "" {
		fileSink = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileSink)
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	zerolog.TimeFieldFormat = time.RFC3339
	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// For returns a child logger tagged with module.
func For(module string) zerolog.Logger {
	return Logger.With().Str("module", module).Logger()
}

// Debug logs at debug level for module.
func Debug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

// Info logs at info level for module.
func Info(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

// Warn logs at warn level for module.
func Warn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

// Error logs at error level for module.
func Error(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}

// Close flushes and closes the file sink, if any.
func Close() error {
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}
