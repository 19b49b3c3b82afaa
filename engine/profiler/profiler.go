package profiler

import (
	"log/slog"
	"runtime"
	"sort"
	"time"
)

// Profiler tracks frame rate, memory statistics and named per-pass timers.
// Outputs stats to its logger at a configurable interval.
type Profiler struct {
	logger         *slog.Logger
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	timers map[string]*timer
	order  []string
}

type timer struct {
	started time.Time
	running bool
	last    time.Duration
	total   time.Duration
	count   int
}

// TimerStat is a snapshot of one named timer.
type TimerStat struct {
	Name    string
	Last    time.Duration
	Average time.Duration
	Count   int
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and output goes to slog.Default.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		logger:         slog.Default(),
		now:            time.Now,
		updateInterval: time.Second,
		timers:         make(map[string]*timer),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory,
// and the average of every pass timer.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	attrs := []any{
		slog.Float64("fps", fps),
		slog.Float64("heap_mb", allocMB),
		slog.Float64("alloc_rate_mb_s", allocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Uint64("gc_last_us", lastPauseUs),
		slog.Uint64("gc_max_us", maxPauseUs),
		slog.Float64("sys_mb", sysMB),
	}
	if len(p.order) > 0 {
		passes := make([]any, 0, len(p.order))
		for _, st := range p.Timers() {
			passes = append(passes, slog.Duration(st.Name, st.Average))
		}
		attrs = append(attrs, slog.Group("passes", passes...))
	}
	p.logger.Info("profiler", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// StartTimer starts the named timer, creating it on first use. Starting a running timer
// restarts it.
//
// Parameters:
//   - name: the timer name, usually a pass name
func (p *Profiler) StartTimer(name string) {
	t, ok := p.timers[name]
	if !ok {
		t = &timer{}
		p.timers[name] = t
		p.order = append(p.order, name)
	}
	t.started = p.now()
	t.running = true
}

// StopTimer stops the named timer and accumulates the elapsed time. Stopping a timer that
// is not running does nothing.
//
// Parameters:
//   - name: the timer name
func (p *Profiler) StopTimer(name string) {
	t, ok := p.timers[name]
	if !ok || !t.running {
		return
	}
	t.running = false
	t.last = p.now().Sub(t.started)
	t.total += t.last
	t.count++
}

// Timers returns a snapshot of all timers sorted by name.
//
// Returns:
//   - []TimerStat: one entry per timer that was started at least once
func (p *Profiler) Timers() []TimerStat {
	out := make([]TimerStat, 0, len(p.order))
	for _, name := range p.order {
		t := p.timers[name]
		st := TimerStat{Name: name, Last: t.last, Count: t.count}
		if t.count > 0 {
			st.Average = t.total / time.Duration(t.count)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResetTimers drops all timers.
func (p *Profiler) ResetTimers() {
	p.timers = make(map[string]*timer)
	p.order = p.order[:0]
}
