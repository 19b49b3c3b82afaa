package watcher

import (
	"log/slog"
	"time"
)

// WatcherBuilderOption configures a Watcher at construction time.
type WatcherBuilderOption func(*watcherImpl)

// WithDebounce sets how long a burst of events must be quiet before it is reported.
//
// Parameters:
//   - d: the debounce interval, values <= 0 are ignored
//
// Returns:
//   - WatcherBuilderOption: a function that applies the interval
func WithDebounce(d time.Duration) WatcherBuilderOption {
	return func(w *watcherImpl) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watch events and errors.
func WithLogger(l *slog.Logger) WatcherBuilderOption {
	return func(w *watcherImpl) {
		if l != nil {
			w.logger = l
		}
	}
}
