// Package logger is a thin level/format switch over log/slog. Warnings and
// notes from every phase go through here; progress and summaries do not.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config holds logger configuration.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
}

var (
	mu       sync.RWMutex
	levelVar = new(slog.LevelVar)
	output   io.Writer = os.Stderr
	format             = "text"
	slogger  *slog.Logger
)

func init() {
	levelVar.Set(slog.LevelInfo)
	reconfigure()
}

func reconfigure() {
	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Interactive runs read better without timestamps.
			if a.Key == slog.TimeKey && len(groups) == 0 && format == "text" {
				return slog.Attr{}
			}
			return a
		},
	}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	slogger = slog.New(h)
}

// Init applies cfg. Unknown levels and formats are errors.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Level != "" {
		lvl, err := parseLevel(cfg.Level)
		if err != nil {
			return err
		}
		levelVar.Set(lvl)
	}
	if cfg.Format != "" {
		f := strings.ToLower(cfg.Format)
		if f != "text" && f != "json" {
			return fmt.Errorf("unknown log format %q (expected text|json)", cfg.Format)
		}
		format = f
	}
	reconfigure()
	return nil
}

// InitWithWriter redirects output, mainly for tests.
func InitWithWriter(w io.Writer, level, fmtName string) {
	mu.Lock()
	output = w
	mu.Unlock()
	_ = Init(Config{Level: level, Format: fmtName})
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q (expected debug|info|warn|error)", s)
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Enabled reports whether level would be emitted.
func Enabled(level slog.Level) bool {
	return get().Enabled(context.Background(), level)
}

// Debug logs at debug level. Usage: Debug("msg", "key", value, ...)
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }
