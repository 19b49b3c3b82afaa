package engine

import (
	"log/slog"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/config"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/renderpath"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithServer sets the graphics device frames are presented on. Required.
//
// Parameters:
//   - srv: the graphics server
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithServer(srv gfx.Server) EngineBuilderOption {
	return func(e *engine) {
		e.server = srv
	}
}

// WithRenderPath sets the render path executed every frame. Required, it should already be
// open; a closed path is skipped until a reload opens it.
//
// Parameters:
//   - rp: the render path
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderPath(rp renderpath.RenderPath) EngineBuilderOption {
	return func(e *engine) {
		e.renderPath = rp
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler sets the profiler ticked every frame. Pass the same profiler to the render path
// so pass timings show up in its reports.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetTickRate(fps)
	}
}

// WithWindow sets the window Run drives. Drag, scroll, key and resize events of the window
// control the cameras and the render path.
//
// Parameters:
//   - w: the window, typically created by window.NewWindow
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithScene registers a scene at the given z-index key during engine construction.
// Scenes are drawn in ascending key order inside every sequence.
//
// Parameters:
//   - key: the z-index determining render order (lower renders first)
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.SetRenderFrameLimit(fps)
	}
}

// WithLogger sets the logger for reloads and frame errors. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHotReload watches the render path file and the WGSL files under its shader root, and
// reopens the path when one of them changes.
//
// Parameters:
//   - enabled: whether to watch the sources
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHotReload(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.hotReload = enabled
	}
}

// WithConfig applies the engine, log and hot reload settings of a configuration file. Options
// after it override single settings.
//
// Parameters:
//   - cfg: a validated configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.logger = cfg.Log.NewLogger(os.Stderr)
		e.SetTickRate(cfg.Engine.TickRate)
		e.SetRenderFrameLimit(cfg.Engine.FrameLimit)
		e.profilingEnabled = cfg.Engine.Profiling
		e.hotReload = cfg.RenderPath.HotReload

		interval, err := cfg.Engine.Interval()
		if err != nil {
			interval = time.Second
		}
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger), profiler.WithUpdateInterval(interval))
	}
}
