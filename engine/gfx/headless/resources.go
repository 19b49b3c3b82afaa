package headless

import (
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

type texture struct {
	name          string
	width, height int
	format        gfx.PixelFormat
	released      bool
}

var _ gfx.Texture = &texture{}

func (t *texture) Name() string {
	return t.name
}

func (t *texture) Width() int {
	return t.width
}

func (t *texture) Height() int {
	return t.height
}

func (t *texture) Format() gfx.PixelFormat {
	return t.format
}

func (t *texture) Release() {
	t.released = true
}

type mesh struct {
	name       string
	vertices   []float32
	components gfx.VertexComponents
	indices    []uint16
}

var _ gfx.Mesh = &mesh{}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) SetVertices(data []float32, components gfx.VertexComponents) {
	m.vertices = append(m.vertices[:0], data...)
	m.components = components
}

func (m *mesh) SetIndices(indices []uint16) {
	m.indices = append(m.indices[:0], indices...)
}

func (m *mesh) Vertices() []float32 {
	return m.vertices
}

func (m *mesh) NumVertices() int {
	stride := m.components.Stride()
	if stride == 0 {
		return 0
	}
	return len(m.vertices) / stride
}

func (m *mesh) NumIndices() int {
	return len(m.indices)
}

func (m *mesh) Release() {
	m.vertices = nil
	m.indices = nil
}
