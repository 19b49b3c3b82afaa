package wgsl

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blurShader = `
// two pass separable blur
struct Params {
    mvp: mat4x4f,
    tint: vec4f,
    exposure: f32,
    steps: i32,
    palette: array<mat4x4f, 2>,
}

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var source: texture_2d<f32>;
@group(0) @binding(2) var linearSampler: sampler;

struct VsOut {
    @builtin(position) pos: vec4f,
    @location(0) uv: vec2f,
}

@vertex
fn vs_main(@location(0) pos: vec3f, @location(1) uv: vec2f) -> VsOut {
    var out: VsOut;
    out.pos = params.mvp * vec4f(pos, 1.0);
    out.uv = uv;
    return out;
}

/* block comment with @fragment fn fs_ignored */
@fragment
fn fs_blur_1(in: VsOut) -> @location(0) vec4f {
    return textureSample(source, linearSampler, in.uv) * params.tint;
}

@fragment
fn fs_blur_0(in: VsOut) -> @location(0) vec4f {
    return textureSample(source, linearSampler, in.uv) * params.exposure;
}

@fragment
fn fs_copy(in: VsOut) -> @location(0) vec4f {
    return textureSample(source, linearSampler, in.uv);
}
`

func TestReflectTechniques(t *testing.T) {
	r, err := Reflect(blurShader)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", r.VertexEntry)
	want := []Technique{
		{Name: "blur", Passes: []string{"fs_blur_0", "fs_blur_1"}},
		{Name: "copy", Passes: []string{"fs_copy"}},
	}
	if diff := cmp.Diff(want, r.Techniques); diff != "" {
		t.Errorf("techniques mismatch (-want +got):\n%s", diff)
	}
	_, ok := r.Technique("ignored")
	assert.False(t, ok)
}

func TestReflectUniformLayout(t *testing.T) {
	r, err := Reflect(blurShader)
	require.NoError(t, err)

	assert.Equal(t, "params", r.Uniform.Name)
	assert.Equal(t, uint64(224), r.UniformSize)

	want := []Param{
		{Name: "mvp", Type: "mat4x4f", Kind: KindMatrix, Offset: 0, Size: 64, Count: 1},
		{Name: "tint", Type: "vec4f", Kind: KindFloat4, Offset: 64, Size: 16, Count: 1},
		{Name: "exposure", Type: "f32", Kind: KindFloat, Offset: 80, Size: 4, Count: 1},
		{Name: "steps", Type: "i32", Kind: KindInt, Offset: 84, Size: 4, Count: 1},
		{Name: "palette", Type: "array<mat4x4f, 2>", Kind: KindMatrixArray, Offset: 96, Size: 128, Count: 2},
	}
	if diff := cmp.Diff(want, r.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestReflectResources(t *testing.T) {
	r, err := Reflect(blurShader)
	require.NoError(t, err)

	require.Len(t, r.Textures, 1)
	assert.Equal(t, Binding{Name: "source", Type: "texture_2d<f32>", Group: 0, Binding: 1}, r.Textures[0])
	require.Len(t, r.Samplers, 1)
	assert.Equal(t, "linearSampler", r.Samplers[0].Name)

	assert.True(t, r.HasParameter("source"))
	assert.True(t, r.HasParameter("exposure"))
	assert.False(t, r.HasParameter("linearSampler"))
	assert.False(t, r.HasParameter("missing"))
}

func TestReflectDefaultTechnique(t *testing.T) {
	src := `
@vertex fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }
`
	r, err := Reflect(src)
	require.NoError(t, err)
	require.Len(t, r.Techniques, 1)
	assert.Equal(t, DefaultTechnique, r.Techniques[0].Name)
	assert.Equal(t, []string{"fs_main"}, r.Techniques[0].Passes)
	assert.Empty(t, r.Uniform.Name)
	assert.Empty(t, r.Params)
}

func TestReflectErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "no vertex",
			src:  `@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }`,
			want: ErrNoVertexEntry,
		},
		{
			name: "no fragment",
			src:  `@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }`,
			want: ErrNoFragmentEntry,
		},
		{
			name: "pass gap",
			src: `@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs_glow_0() -> @location(0) vec4f { return vec4f(1.0); }
@fragment fn fs_glow_2() -> @location(0) vec4f { return vec4f(1.0); }`,
			want: ErrPassGap,
		},
		{
			name: "unknown uniform member",
			src: `struct P { s: MyThing, }
@group(0) @binding(0) var<uniform> p: P;
@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }`,
			want: ErrUniformLayout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reflect(tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestSplitEntryName(t *testing.T) {
	tests := []struct {
		entry string
		tech  string
		pass  int
	}{
		{"fs_main", DefaultTechnique, 0},
		{"fs_bloom", "bloom", 0},
		{"fs_bloom_3", "bloom", 3},
		{"fs_depth_of_field_1", "depth_of_field", 1},
		{"shade", "shade", 0},
	}
	for _, tt := range tests {
		tech, pass := splitEntryName(tt.entry)
		assert.Equal(t, tt.tech, tech, tt.entry)
		assert.Equal(t, tt.pass, pass, tt.entry)
	}
}
