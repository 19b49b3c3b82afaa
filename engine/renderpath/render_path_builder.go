package renderpath

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// RenderPathBuilderOption configures a render path at construction time.
type RenderPathBuilderOption func(*renderPath)

// WithServer sets the graphics server. Required.
//
// Parameters:
//   - s: the graphics server
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the server
func WithServer(s gfx.Server) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.server = s
	}
}

// WithRegistry sets the variable registry. A private registry is created if omitted.
//
// Parameters:
//   - r: the variable registry
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the registry
func WithRegistry(r variable.Registry) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.registry = r
	}
}

// WithFilename sets the XML file Open reads.
//
// Parameters:
//   - path: the render path file
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the filename
func WithFilename(path string) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.filename = path
	}
}

// WithShaderRoot overrides the shaderPath attribute of the file.
//
// Parameters:
//   - dir: the directory shader files are resolved against
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the shader root
func WithShaderRoot(dir string) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.shaderRootOpt = dir
	}
}

// WithLogger sets the logger of this render path instead of the package logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the logger
func WithLogger(l *slog.Logger) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.logger = l
	}
}

// WithProfiler times every pass that is neither a shadow nor an occlusion pass.
//
// Parameters:
//   - p: the profiler receiving pass timers
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the profiler
func WithProfiler(p *profiler.Profiler) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.profiler = p
	}
}

// WithGuiHook sets the function passes with drawGui call to render the user interface.
//
// Parameters:
//   - hook: the GUI draw function
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the hook
func WithGuiHook(hook func()) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.guiHook = hook
	}
}

// WithPreloadWorkers loads shaders with up to n workers during Validate.
//
// Parameters:
//   - n: the worker count, values <= 1 load on the calling goroutine
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the worker count
func WithPreloadWorkers(n int) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.preloadWorkers = n
	}
}

// WithShadowsEnabled sets whether passes with a shadow condition run. Defaults to true.
//
// Parameters:
//   - b: whether shadows are enabled
//
// Returns:
//   - RenderPathBuilderOption: a function that applies the setting
func WithShadowsEnabled(b bool) RenderPathBuilderOption {
	return func(rp *renderPath) {
		rp.shadowsEnabled = b
	}
}
