package webgpu

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/wgsl"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		in   gfx.PixelFormat
		want wgpu.TextureFormat
	}{
		{gfx.FormatA8R8G8B8, wgpu.TextureFormatRGBA8Unorm},
		{gfx.FormatX8R8G8B8, wgpu.TextureFormatRGBA8Unorm},
		{gfx.FormatR5G6B5, wgpu.TextureFormatRGBA8Unorm},
		{gfx.FormatR16F, wgpu.TextureFormatR16Float},
		{gfx.FormatR32F, wgpu.TextureFormatR16Float},
		{gfx.FormatG32R32F, wgpu.TextureFormatRG16Float},
		{gfx.FormatA16B16G16R16F, wgpu.TextureFormatRGBA16Float},
		{gfx.FormatA32B32G32R32F, wgpu.TextureFormatRGBA16Float},
		{gfx.FormatD24S8, wgpu.TextureFormatDepth24PlusStencil8},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, textureFormat(tt.in))
		})
	}
	assert.True(t, isDepthFormat(textureFormat(gfx.FormatD24S8)))
	assert.False(t, isDepthFormat(textureFormat(gfx.FormatA8R8G8B8)))
}

func TestVertexLayout(t *testing.T) {
	l := vertexLayout(gfx.Coord | gfx.Uv0)
	assert.Equal(t, uint64(20), l.ArrayStride)
	want := []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: locationCoord},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: locationUv0},
	}
	if diff := cmp.Diff(want, l.Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}

	full := vertexLayout(gfx.Coord | gfx.Normal | gfx.Uv0 | gfx.Color)
	assert.Equal(t, uint64(gfx.VertexComponents(gfx.Coord|gfx.Normal|gfx.Uv0|gfx.Color).Stride()*4), full.ArrayStride)
	assert.Equal(t, uint32(locationColor), full.Attributes[3].ShaderLocation)
	assert.Equal(t, uint64(32), full.Attributes[3].Offset)

	assert.Zero(t, vertexLayout(0).ArrayStride)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(256), alignUp(1, uniformSlotAlignment))
	assert.Equal(t, uint64(256), alignUp(256, uniformSlotAlignment))
	assert.Equal(t, uint64(512), alignUp(257, uniformSlotAlignment))
	assert.Equal(t, uint64(0), alignUp(0, 16))
}

const blockShader = `
struct Params {
    mvp: mat4x4<f32>,
    tint: vec4<f32>,
    sun: vec3<f32>,
    exposure: f32,
    steps: i32,
    palette: array<mat4x4<f32>, 2>,
};
@group(0) @binding(0) var<uniform> params: Params;

@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return params.mvp * vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return params.tint * params.exposure;
}
`

func readFloat(data []byte, offset uint64) float32 {
	bits := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
	return math.Float32frombits(bits)
}

func TestUniformBlock(t *testing.T) {
	r, err := wgsl.Reflect(blockShader)
	require.NoError(t, err)
	b := newUniformBlock(r)
	require.Zero(t, b.size()%16)
	require.GreaterOrEqual(t, b.size(), r.UniformSize)

	param := func(name string) wgsl.Param {
		p, ok := r.Param(name)
		require.True(t, ok, name)
		return p
	}

	b.setMatrix("mvp", gfx.Identity())
	assert.Equal(t, float32(1), readFloat(b.data, param("mvp").Offset))
	assert.Equal(t, float32(1), readFloat(b.data, param("mvp").Offset+5*4))

	b.setFloat4("tint", [4]float32{0.25, 0.5, 0.75, 1})
	assert.Equal(t, float32(0.75), readFloat(b.data, param("tint").Offset+8))

	// a float4 written to a vec3 keeps xyz and leaves the next member alone
	b.setFloat("exposure", 2)
	b.setFloat4("sun", [4]float32{1, 2, 3, 4})
	assert.Equal(t, float32(3), readFloat(b.data, param("sun").Offset+8))
	assert.Equal(t, float32(2), readFloat(b.data, param("exposure").Offset))

	b.setInt("steps", 7)
	steps := param("steps").Offset
	assert.Equal(t, byte(7), b.data[steps])

	palette := [][16]float32{gfx.Identity(), gfx.Identity(), gfx.Identity()}
	palette[1][12] = 9
	palette[2][12] = 42
	b.setMatrixArray("palette", palette)
	assert.Equal(t, float32(9), readFloat(b.data, param("palette").Offset+64+12*4))
	assert.Equal(t, 2, param("palette").Count)

	before := append([]byte(nil), b.data...)
	b.setFloat("missing", 1)
	assert.Equal(t, before, b.data)
}

func TestUniformBlockWithoutUniforms(t *testing.T) {
	src := `
@vertex
fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	r, err := wgsl.Reflect(src)
	require.NoError(t, err)
	b := newUniformBlock(r)
	assert.Zero(t, b.size())
	b.setFloat("anything", 1)
}
