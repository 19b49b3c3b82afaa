package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{}
	for _, opt := range []WindowBuilderOption{
		WithTitle("viewer"),
		WithWidth(800),
		WithHeight(600),
		WithMinWidth(100),
		WithMinHeight(50),
		WithMaxWidth(1000),
		WithMaxHeight(900),
		WithResizable(false),
		WithFullscreen(true),
	} {
		opt(w)
	}
	assert.Equal(t, "viewer", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	assert.Equal(t, [4]int{100, 50, 1000, 900}, [4]int{w.minWidth, w.minHeight, w.maxWidth, w.maxHeight})
	assert.False(t, w.resizable)
	assert.True(t, w.fullscreen)
}

func TestNewWindowRejectsInvertedLimits(t *testing.T) {
	_, err := NewWindow(WithMinWidth(2000), WithMaxWidth(1000))
	assert.ErrorContains(t, err, "inverted")
}

func TestCursorMovedReportsDragDeltas(t *testing.T) {
	w := &engineWindow{}
	var got [][2]float32
	w.SetDragCallback(func(dx, dy float32) { got = append(got, [2]float32{dx, dy}) })

	w.cursorMoved(10, 10)
	w.dragging = true
	w.cursorMoved(15, 8)
	w.cursorMoved(15, 20)
	w.dragging = false
	w.cursorMoved(0, 0)

	assert.Equal(t, [][2]float32{{5, -2}, {0, 12}}, got)
}

func TestUninitializedWindow(t *testing.T) {
	w := &engineWindow{}
	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.SetTitle("no window")
	assert.Equal(t, "no window", w.title)
}
