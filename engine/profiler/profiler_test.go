package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now))

	p.StartTimer("main")
	clock.advance(4 * time.Millisecond)
	p.StopTimer("main")

	p.StartTimer("main")
	clock.advance(2 * time.Millisecond)
	p.StopTimer("main")

	p.StartTimer("bloom")
	clock.advance(time.Millisecond)
	p.StopTimer("bloom")
	p.StopTimer("bloom")
	p.StopTimer("unknown")

	stats := p.Timers()
	require.Len(t, stats, 2)
	assert.Equal(t, TimerStat{Name: "bloom", Last: time.Millisecond, Average: time.Millisecond, Count: 1}, stats[0])
	assert.Equal(t, TimerStat{Name: "main", Last: 2 * time.Millisecond, Average: 3 * time.Millisecond, Count: 2}, stats[1])

	p.ResetTimers()
	assert.Empty(t, p.Timers())
}

func TestTickLogsAtInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var buf bytes.Buffer
	p := NewProfiler(
		WithClock(clock.now),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithUpdateInterval(time.Second),
	)
	p.StartTimer("main")
	clock.advance(time.Millisecond)
	p.StopTimer("main")

	clock.advance(500 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Zero(t, buf.Len())

	clock.advance(600 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Contains(t, buf.String(), "fps=")
	assert.Contains(t, buf.String(), "passes.main=1ms")
}
