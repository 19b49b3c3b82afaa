package webgpu

import "log/slog"

// ServerBuilderOption configures a WebGPU server.
type ServerBuilderOption func(*server)

// WithVSync selects FIFO presentation instead of immediate presentation.
//
// Parameters:
//   - vsync: whether presentation waits for vertical blank
//
// Returns:
//   - ServerBuilderOption: a function that applies the setting
func WithVSync(vsync bool) ServerBuilderOption {
	return func(s *server) {
		s.vsync = vsync
	}
}

// WithStrict compiles every shader with naga before handing it to the device, so errors are
// reported with naga's diagnostics.
//
// Parameters:
//   - strict: whether loads validate the WGSL source
//
// Returns:
//   - ServerBuilderOption: a function that applies the setting
func WithStrict(strict bool) ServerBuilderOption {
	return func(s *server) {
		s.strict = strict
	}
}

// WithForceFallbackAdapter requests the software adapter.
func WithForceFallbackAdapter(force bool) ServerBuilderOption {
	return func(s *server) {
		s.forceFallbackAdapter = force
	}
}

// WithLogger sets the logger for device warnings and pipeline creation. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) ServerBuilderOption {
	return func(s *server) {
		if l != nil {
			s.logger = l
		}
	}
}
