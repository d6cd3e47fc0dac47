// Package logging sets up the plugin's diagnostic log.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LevelCritical is for problems that stop the hook from being installed.
const LevelCritical = slog.LevelError + 4

// TimeFormat is the timestamp layout of each line.
const TimeFormat = "2006-01-02 15:04:05.000"

// New returns a logger writing lines like
//
//	time="2024-05-01 12:00:00.000" level=CRITICAL msg="Unsupported runtime version!" version=1.8.0.0
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr,
	}))
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			return slog.String(a.Key, t.Format(TimeFormat))
		}
	case slog.LevelKey:
		if lvl, ok := a.Value.Any().(slog.Level); ok {
			return slog.String(a.Key, LevelName(lvl))
		}
	}
	return a
}

// LevelName returns the name printed for lvl.
func LevelName(lvl slog.Level) string {
	if lvl >= LevelCritical {
		return "CRITICAL"
	}
	return lvl.String()
}

// Open creates (or truncates) the log file at path, creating its directory
// if needed. The caller closes the returned file.
func Open(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}
	return New(f, level), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Critical logs msg at LevelCritical.
func Critical(log *slog.Logger, msg string, args ...any) {
	log.Log(context.Background(), LevelCritical, msg, args...)
}
