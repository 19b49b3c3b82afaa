package profiler

import (
	"log/slog"
	"time"
)

// ProfilerBuilderOption configures a Profiler at construction time.
type ProfilerBuilderOption func(*Profiler)

// WithLogger sets the logger frame statistics are written to.
//
// Parameters:
//   - l: the logger, nil keeps slog.Default
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithUpdateInterval sets how often Tick logs statistics.
//
// Parameters:
//   - d: the interval, values <= 0 are ignored
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the interval
func WithUpdateInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now, used by tests to control elapsed time.
//
// Parameters:
//   - now: the clock function
//
// Returns:
//   - ProfilerBuilderOption: a function that applies the clock
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
