package webgpu

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

type texture struct {
	name          string
	width, height int
	format        gfx.PixelFormat
	deviceFormat  wgpu.TextureFormat

	tex  *wgpu.Texture
	view *wgpu.TextureView
	// sampleView is view for color formats and a depth-only view for depth formats.
	sampleView *wgpu.TextureView
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
	if t.sampleView != nil && t.sampleView != t.view {
		t.sampleView.Release()
	}
	t.sampleView = nil
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// createTexture allocates a sampled 2D texture, usable as a color or depth attachment when
// renderTarget is set.
func (s *server) createTexture(name string, width, height int, format gfx.PixelFormat, deviceFormat wgpu.TextureFormat, renderTarget bool) (*texture, error) {
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if renderTarget {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	tex, err := s.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     name,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        deviceFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: texture %s: %w", name, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("webgpu: texture %s: %w", name, err)
	}
	sampleView := view
	if isDepthFormat(deviceFormat) {
		sampleView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           name + " Depth View",
			Format:          deviceFormat,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  0,
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectDepthOnly,
		})
		if err != nil {
			view.Release()
			tex.Release()
			return nil, fmt.Errorf("webgpu: texture %s: %w", name, err)
		}
	}
	return &texture{
		name:         name,
		width:        width,
		height:       height,
		format:       format,
		deviceFormat: deviceFormat,
		tex:          tex,
		view:         view,
		sampleView:   sampleView,
	}, nil
}

// uploadTexture creates an sRGB texture from decoded RGBA pixels.
func (s *server) uploadTexture(name string, staging *common.TextureStagingData) (*texture, error) {
	t, err := s.createTexture(name, int(staging.Width), int(staging.Height), gfx.FormatA8R8G8B8, wgpu.TextureFormatRGBA8UnormSrgb, false)
	if err != nil {
		return nil, err
	}
	s.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return t, nil
}

type mesh struct {
	server     *server
	name       string
	vertices   []float32
	components gfx.VertexComponents
	indices    []uint16

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	dirty        bool
}

var _ gfx.Mesh = &mesh{}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) SetVertices(data []float32, components gfx.VertexComponents) {
	m.vertices = append(m.vertices[:0], data...)
	m.components = components
	m.dirty = true
}

func (m *mesh) SetIndices(indices []uint16) {
	m.indices = append(m.indices[:0], indices...)
	m.dirty = true
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
	m.releaseBuffers()
	m.vertices = nil
	m.indices = nil
}

func (m *mesh) releaseBuffers() {
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
		m.indexBuffer = nil
	}
}

// upload recreates the device buffers after the CPU data changed. Buffer writes must be a
// multiple of four bytes, an odd index count is padded with a trailing zero.
func (m *mesh) upload() error {
	if !m.dirty {
		return nil
	}
	if m.vertexBuffer != nil {
		m.server.retire(m.vertexBuffer)
		m.vertexBuffer = nil
	}
	if m.indexBuffer != nil {
		m.server.retire(m.indexBuffer)
		m.indexBuffer = nil
	}

	if len(m.vertices) > 0 {
		data := common.SliceToBytes(m.vertices)
		buf, err := m.server.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: m.name + " Vertex Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("webgpu: mesh %s: %w", m.name, err)
		}
		m.server.queue.WriteBuffer(buf, 0, data)
		m.vertexBuffer = buf
	}

	if len(m.indices) > 0 {
		indices := m.indices
		if len(indices)%2 != 0 {
			indices = append(append([]uint16(nil), indices...), 0)
		}
		data := common.SliceToBytes(indices)
		buf, err := m.server.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: m.name + " Index Buffer",
			Size:  uint64(len(data)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("webgpu: mesh %s: %w", m.name, err)
		}
		m.server.queue.WriteBuffer(buf, 0, data)
		m.indexBuffer = buf
	}

	m.dirty = false
	return nil
}
