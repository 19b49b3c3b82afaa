package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, err
	}
	return lvl, nil
}

// NewLogger builds a text or JSON slog logger writing to w.
//
// Parameters:
//   - w: the log destination
//
// Returns:
//   - *slog.Logger: the logger
func (l Log) NewLogger(w io.Writer) *slog.Logger {
	lvl, err := l.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Interval parses ProfileInterval. An empty value is one second.
func (e Engine) Interval() (time.Duration, error) {
	if e.ProfileInterval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(e.ProfileInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s is not positive", e.ProfileInterval)
	}
	return d, nil
}
