// Package engine runs the frame loop of a render path viewer. Every frame ticks game logic
// at a fixed rate, prepares the scenes, publishes the camera into the variable registry,
// executes the render path and presents, all on the thread that owns the window.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/camera"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/renderpath"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/scene"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/watcher"
)

// maxTicksPerFrame bounds the fixed-rate catch-up after a long frame.
const maxTicksPerFrame = 5

// resizer is implemented by servers that own a window surface.
type resizer interface {
	Resize(width, height int)
}

// Window is the part of a platform window the engine drives. window.Window implements it;
// engines driven by Frame need none, so headless tools do not link the windowing system.
type Window interface {
	SetUpdateCallback(callback func())
	SetResizeCallback(callback func(width, height int))
	SetScrollCallback(callback func(delta float32))
	SetKeyDownCallback(callback func(keyCode uint32))
	SetDragCallback(callback func(dx, dy float32))
	ProcessMessages()
	Close() error
}

// engine implements the Engine interface.
type engine struct {
	logger *slog.Logger

	window     Window
	server     gfx.Server
	registry   variable.Registry
	renderPath renderpath.RenderPath
	publisher  *camera.Publisher

	hotReload     bool
	watcher       watcher.Watcher
	reloadPending bool

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickRate         time.Duration
	tickAccumulator  time.Duration
	tickCallback     func(deltaTime float32)
	renderCallback   func(deltaTime float32)
	renderFrameLimit time.Duration

	scenes map[int]scene.Scene
	paused bool

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32

	elapsed float32
	frames  uint64

	running     atomic.Bool
	quitChannel chan struct{}
	quitOnce    sync.Once
}

// Engine is the main entry point of the viewer. It owns the frame loop and routes window
// input to the cameras, the render path and the scenes.
type Engine interface {
	// Window returns the window, nil for an engine driven by Frame.
	Window() Window

	// Server returns the graphics device.
	Server() gfx.Server

	// RenderPath returns the render path executed every frame.
	RenderPath() renderpath.RenderPath

	// Registry returns the variable registry the render path and the cameras share.
	Registry() variable.Registry

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// ProfilingEnabled reports whether the profiler is ticked every frame.
	ProfilingEnabled() bool

	// SetTickRate sets the rate of the tick callback in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called at the tick rate, before the scenes
	// are prepared. Use it for game logic and input processing.
	//
	// Parameters:
	//   - callback: function receiving the fixed tick duration in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called after each presented frame.
	//
	// Parameters:
	//   - callback: function receiving the frame delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// AddScene registers a scene at the given z-index key.
	// Scenes are drawn in ascending key order inside every sequence of the render path.
	//
	// Parameters:
	//   - key: the z-index determining draw order (lower draws first)
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given z-index key.
	//
	// Parameters:
	//   - key: the z-index of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given z-index key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the z-index of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by z-index.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// SetPaused stops scene animation while rendering continues.
	SetPaused(paused bool)
	Paused() bool

	// RequestReload reopens the render path at the start of the next frame.
	RequestReload()

	// Frame runs one frame: pending reloads, fixed-rate ticks, scene preparation, camera
	// publication, the render path and Present. Rendering is skipped while the display is 0x0.
	//
	// Parameters:
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - error: a content error raised while rendering, the frame is still presented
	Frame(deltaTime float32) error

	// Run drives Frame from the window loop until the window closes or Quit is called.
	//
	// Returns:
	//   - error: the first frame error, which also stops the loop
	Run() error

	// Quit stops Run after the current frame. Safe to call multiple times.
	Quit()

	// Close stops the hot reload watcher and the scenes and closes the render path.
	Close()
}

var _ Engine = &engine{}

// NewEngine creates an engine around an opened render path.
//
// Parameters:
//   - options: functional options for engine configuration; WithServer and WithRenderPath
//     are required
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		logger:      slog.Default(),
		scenes:      make(map[int]scene.Scene),
		tickRate:    time.Second / 60,
		orbitSpeed:  0.005,
		zoomSpeed:   1,
		panSpeed:    0.5,
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.server == nil {
		panic("engine: NewEngine requires a gfx.Server")
	}
	if e.renderPath == nil {
		panic("engine: NewEngine requires a render path")
	}
	if e.registry == nil {
		e.registry = e.renderPath.Registry()
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	e.publisher = camera.NewPublisher(e.registry, camera.WithTransformServer(e.server))

	if e.hotReload {
		e.startWatcher()
	}
	if e.window != nil {
		e.bindWindow()
	}
	return e
}

// startWatcher watches the render path file and its shader directory. A watcher that
// cannot start disables hot reload without failing the engine.
func (e *engine) startWatcher() {
	w, err := watcher.NewWatcher(watcher.WithLogger(e.logger))
	if err != nil {
		e.logger.Warn("hot reload disabled", "error", err)
		return
	}
	if err := w.AddFile(e.renderPath.Filename()); err != nil {
		e.logger.Warn("hot reload disabled", "error", err)
		w.Close()
		return
	}
	if root := e.renderPath.ShaderRoot(); root != "" {
		if err := w.AddDir(root, ".wgsl"); err != nil {
			e.logger.Warn("shader directory not watched", "dir", root, "error", err)
		}
	}
	e.watcher = w
}

func (e *engine) bindWindow() {
	e.window.SetResizeCallback(e.resize)
	e.window.SetDragCallback(func(dx, dy float32) {
		e.orbit(-dx*e.orbitSpeed, dy*e.orbitSpeed)
	})
	e.window.SetScrollCallback(func(delta float32) {
		e.zoom(delta * e.zoomSpeed)
	})
	e.window.SetKeyDownCallback(e.handleKey)
}

func (e *engine) Window() Window {
	return e.window
}

func (e *engine) Server() gfx.Server {
	return e.server
}

func (e *engine) RenderPath() renderpath.RenderPath {
	return e.renderPath
}

func (e *engine) Registry() variable.Registry {
	return e.registry
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) ProfilingEnabled() bool {
	return e.profilingEnabled
}

func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	e.tickRate = time.Duration(float64(time.Second) / fps)
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.scenes[key] = s
}

func (e *engine) RemoveScene(key int) {
	delete(e.scenes, key)
}

func (e *engine) Scene(key int) scene.Scene {
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	cp := make(map[int]scene.Scene, len(e.scenes))
	for k, v := range e.scenes {
		cp[k] = v
	}
	return cp
}

func (e *engine) SetPaused(paused bool) {
	e.paused = paused
}

func (e *engine) Paused() bool {
	return e.paused
}

func (e *engine) RequestReload() {
	e.reloadPending = true
}

// activeScenes returns the active scenes in ascending key order.
func (e *engine) activeScenes() []scene.Scene {
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var active []scene.Scene
	for _, k := range keys {
		if s := e.scenes[k]; s.Active() {
			active = append(active, s)
		}
	}
	return active
}

func (e *engine) Frame(deltaTime float32) error {
	e.pollReload()
	if e.reloadPending {
		e.reload()
	}

	e.tick(deltaTime)

	active := e.activeScenes()
	if !e.paused {
		for _, s := range active {
			s.Prepare(deltaTime)
		}
	}

	e.elapsed += deltaTime
	e.frames++

	var err error
	// a minimized window has no surface to draw into
	if w, h := e.server.DisplaySize(); e.renderPath.IsOpen() && w > 0 && h > 0 {
		if len(active) > 0 {
			e.publisher.Publish(active[0].Camera(), e.elapsed, w, h)
		}
		err = renderpath.Render(e.renderPath, sceneSet(active))
		e.server.Present()
	}

	if e.renderCallback != nil {
		e.renderCallback(deltaTime)
	}
	if e.profilingEnabled {
		e.profiler.Tick()
	}
	return err
}

// tick runs the tick callback once per elapsed tick interval.
func (e *engine) tick(deltaTime float32) {
	if e.tickCallback == nil {
		return
	}
	e.tickAccumulator += time.Duration(float64(deltaTime) * float64(time.Second))
	step := float32(e.tickRate.Seconds())
	for n := 0; e.tickAccumulator >= e.tickRate; n++ {
		if n == maxTicksPerFrame {
			e.tickAccumulator = 0
			break
		}
		e.tickCallback(step)
		e.tickAccumulator -= e.tickRate
	}
}

// pollReload drains the watcher without blocking.
func (e *engine) pollReload() {
	if e.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-e.watcher.Changed():
			if !ok {
				return
			}
			e.logger.Info("render path source changed", "file", path)
			e.reloadPending = true
		default:
			return
		}
	}
}

// reload closes and reopens the render path. A failed open leaves the path closed, frames
// skip rendering until a later reload succeeds.
func (e *engine) reload() {
	e.reloadPending = false
	e.renderPath.Close()
	if err := e.renderPath.Open(); err != nil {
		e.logger.Error("render path reload failed", "file", e.renderPath.Filename(), "error", err)
		return
	}
	e.logger.Info("render path reloaded", "name", e.renderPath.Name())
}

func (e *engine) Run() error {
	if e.window == nil {
		panic("engine: Run requires a window")
	}
	e.running.Store(true)
	defer e.running.Store(false)

	var runErr error
	last := time.Now()
	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.Close()
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start
		if err := e.Frame(dt); err != nil {
			e.logger.Error("frame failed", "frame", e.frames, "error", err)
			runErr = err
			e.Quit()
			return
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	})
	e.window.ProcessMessages()
	return runErr
}

func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Close() {
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			e.logger.Warn("failed to close watcher", "error", err)
		}
		e.watcher = nil
	}
	for _, s := range e.scenes {
		s.Close()
	}
	e.renderPath.Close()
}

// resize forwards a framebuffer change to the device, the render path's relative targets
// and the camera aspect ratios.
func (e *engine) resize(width, height int) {
	if r, ok := e.server.(resizer); ok {
		r.Resize(width, height)
	}
	e.renderPath.DisplayResized()
	if width <= 0 || height <= 0 {
		return
	}
	for _, s := range e.scenes {
		if c := s.Camera(); c != nil {
			c.SetAspect(float32(width) / float32(height))
		}
	}
}

// sceneSet draws every active scene into each sequence, in key order.
type sceneSet []scene.Scene

func (ss sceneSet) RenderSequence(pass *renderpath.Pass, phase *renderpath.Phase, seq *renderpath.Sequence, shaderPass int) {
	for _, s := range ss {
		s.RenderSequence(pass, phase, seq, shaderPass)
	}
}

func (ss sceneSet) RenderShadows(pass *renderpath.Pass, technique renderpath.ShadowTechnique) {
	for _, s := range ss {
		s.RenderShadows(pass, technique)
	}
}

func (ss sceneSet) RenderOcclusion(pass *renderpath.Pass) {
	for _, s := range ss {
		s.RenderOcclusion(pass)
	}
}
