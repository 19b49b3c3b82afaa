package webgpu

import (
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformSlotAlignment is the dynamic offset granularity of uniform slots. 256 is the largest
// minUniformBufferOffsetAlignment WebGPU allows, so it is valid on every adapter.
const uniformSlotAlignment = 256

// Shader locations of the vertex components. A component keeps its location whether or not
// the mesh carries the components before it.
const (
	locationCoord  = 0
	locationNormal = 1
	locationUv0    = 2
	locationColor  = 3
)

// textureFormat maps a render path pixel format to the texture format used on the device.
// 16 bit packed formats have no WebGPU equivalent and are widened to RGBA8. 32 bit float
// formats are narrowed to 16 bit float so they stay filterable without optional features.
//
// Parameters:
//   - f: the pixel format
//
// Returns:
//   - wgpu.TextureFormat: the device format
func textureFormat(f gfx.PixelFormat) wgpu.TextureFormat {
	switch f {
	case gfx.FormatR16F, gfx.FormatR32F:
		return wgpu.TextureFormatR16Float
	case gfx.FormatG16R16F, gfx.FormatG32R32F:
		return wgpu.TextureFormatRG16Float
	case gfx.FormatA16B16G16R16F, gfx.FormatA32B32G32R32F:
		return wgpu.TextureFormatRGBA16Float
	case gfx.FormatD24S8:
		return wgpu.TextureFormatDepth24PlusStencil8
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func isDepthFormat(f wgpu.TextureFormat) bool {
	return f == wgpu.TextureFormatDepth24PlusStencil8 || f == wgpu.TextureFormatDepth24Plus || f == wgpu.TextureFormatDepth32Float
}

// vertexLayout builds the interleaved vertex buffer layout for a component set, in the order
// Coord, Normal, Uv0, Color.
//
// Parameters:
//   - c: the vertex components
//
// Returns:
//   - wgpu.VertexBufferLayout: the buffer layout, ArrayStride is zero for an empty set
func vertexLayout(c gfx.VertexComponents) wgpu.VertexBufferLayout {
	var attrs []wgpu.VertexAttribute
	var offset uint64
	add := func(format wgpu.VertexFormat, location uint32, floats uint64) {
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         format,
			Offset:         offset,
			ShaderLocation: location,
		})
		offset += floats * 4
	}
	if c&gfx.Coord != 0 {
		add(wgpu.VertexFormatFloat32x3, locationCoord, 3)
	}
	if c&gfx.Normal != 0 {
		add(wgpu.VertexFormatFloat32x3, locationNormal, 3)
	}
	if c&gfx.Uv0 != 0 {
		add(wgpu.VertexFormatFloat32x2, locationUv0, 2)
	}
	if c&gfx.Color != 0 {
		add(wgpu.VertexFormatFloat32x4, locationColor, 4)
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// alignUp rounds v up to a multiple of a, which must be a power of two.
func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}
