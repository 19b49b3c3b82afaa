package renderpath

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geomShader = `
struct Params {
    mvp: mat4x4f,
    color: vec4f,
    palette: array<mat4x4f, 2>,
}
@group(0) @binding(0) var<uniform> params: Params;
@vertex fn vs_main(@location(0) p: vec3f) -> @builtin(position) vec4f { return params.mvp * vec4f(p, 1.0); }
@fragment fn fs_solid() -> @location(0) vec4f { return params.color; }
@fragment fn fs_glow_0() -> @location(0) vec4f { return params.color; }
@fragment fn fs_glow_1() -> @location(0) vec4f { return params.color * 2.0; }
`

const postShader = `
struct Params { exposure: f32, tint: vec4f, }
@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var source: texture_2d<f32>;
@group(0) @binding(2) var samp: sampler;
@vertex fn vs_main(@location(0) p: vec3f) -> @builtin(position) vec4f { return vec4f(p, 1.0); }
@fragment fn fs_main() -> @location(0) vec4f { return params.tint * params.exposure; }
`

const mainPath = `<?xml version="1.0"?>
<RenderPath name="test" shaderPath="shaders">
  <Shaders>
    <Shader name="post" file="post.wgsl"/>
    <Shader name="geom" file="geom.wgsl"/>
  </Shaders>
  <RenderTarget name="RT0" format="X8R8G8B8" relSize="0.5"/>
  <RenderTarget name="Shadow" format="R32F" width="512" height="256"/>
  <Float name="Exposure" value="1.5"/>
  <Float4 name="Tint" value="1 0.5 0.25 1"/>
  <Int name="Steps" value="3"/>
  <Texture name="Noise" value="noise.png"/>
  <Section name="main">
    <Pass name="scene" renderTarget="RT0" clearColor="0 0 0 1" clearDepth="1.0">
      <Phase name="opaque" sort="FrontToBack" lightMode="Shader">
        <Sequence shader="geom" technique="glow">
          <Float4 name="color" variable="Tint"/>
        </Sequence>
        <Sequence shader="geom" shaderUpdates="false" mvpOnly="true">
          <Float4 name="color" variable="Tint"/>
        </Sequence>
      </Phase>
    </Pass>
    <Pass name="compose" shader="post" drawQuad="true" clearStencil="0">
      <Float name="exposure" variable="Exposure"/>
      <Float4 name="tint" value="1 1 1 1"/>
      <Texture name="source" variable="Noise"/>
    </Pass>
    <Pass name="shadow" shader="post" renderTarget="Shadow" drawShadows="Simple"
          shadowEnabledCondition="true" drawQuad="yes"/>
  </Section>
</RenderPath>
`

// writeFixture writes the render path file, the shaders and a 4x2 noise texture into a
// temporary directory and returns the render path file name.
func writeFixture(t *testing.T, xmlSrc string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	files := map[string]string{
		"path.xml":          xmlSrc,
		"shaders/geom.wgsl": geomShader,
		"shaders/post.wgsl": postShader,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	f, err := os.Create(filepath.Join(dir, "noise.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 2))))
	require.NoError(t, f.Close())
	return filepath.Join(dir, "path.xml")
}

func openFixture(t *testing.T, xmlSrc string, options ...RenderPathBuilderOption) (RenderPath, headless.Server, variable.Registry) {
	t.Helper()
	srv := headless.NewServer()
	reg := variable.NewRegistry()
	opts := append([]RenderPathBuilderOption{
		WithServer(srv),
		WithRegistry(reg),
		WithFilename(writeFixture(t, xmlSrc)),
	}, options...)
	rp := New(opts...)
	require.NoError(t, rp.Open())
	t.Cleanup(rp.Close)
	return rp, srv, reg
}

func TestNewRequiresServer(t *testing.T) {
	assert.Panics(t, func() { New() })
}

func TestOpenXmlReadsHeaderOnly(t *testing.T) {
	path := writeFixture(t, mainPath)
	rp := New(WithServer(headless.NewServer()), WithFilename(path))
	require.NoError(t, rp.OpenXml())

	assert.Equal(t, "test", rp.Name())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "shaders"), rp.ShaderRoot())
	assert.Zero(t, rp.NumSections())
	assert.Zero(t, rp.NumShaders())
	assert.False(t, rp.IsOpen())

	override := New(WithServer(headless.NewServer()), WithFilename(path), WithShaderRoot("/opt/shaders"))
	require.NoError(t, override.OpenXml())
	assert.Equal(t, "/opt/shaders", override.ShaderRoot())
}

func TestOpenRoundTrip(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath)
	require.True(t, rp.IsOpen())

	for i, name := range []string{"post", "geom"} {
		assert.Equal(t, i, rp.FindShaderIndex(name), name)
		assert.Equal(t, i, rp.Shader(i).BucketIndex())
		assert.True(t, rp.Shader(i).Shader().IsLoaded())
	}
	for i, name := range []string{"RT0", "Shadow"} {
		assert.Equal(t, i, rp.FindRenderTargetIndex(name), name)
	}
	assert.Equal(t, 0, rp.FindSectionIndex("main"))
	assert.Equal(t, -1, rp.FindShaderIndex("DoesNotExist"))
	assert.Equal(t, -1, rp.FindRenderTargetIndex("DoesNotExist"))
	assert.Equal(t, -1, rp.FindSectionIndex("DoesNotExist"))

	s := rp.Section(0)
	require.Equal(t, 3, s.NumPasses())
	assert.Equal(t, 1, s.FindPassIndex("compose"))
	assert.Equal(t, -1, s.FindPassIndex("nope"))
	assert.Len(t, rp.Variables(), 4)
}

func TestRelativeRenderTargetSize(t *testing.T) {
	rp, srv, _ := openFixture(t, mainPath)

	rt0 := rp.RenderTarget(rp.FindRenderTargetIndex("RT0"))
	require.NotNil(t, rt0.Texture())
	assert.Equal(t, 960, rt0.Texture().Width())
	assert.Equal(t, 540, rt0.Texture().Height())
	assert.Equal(t, gfx.FormatX8R8G8B8, rt0.Format())

	shadow := rp.RenderTarget(rp.FindRenderTargetIndex("Shadow"))
	assert.Equal(t, 512, shadow.Texture().Width())
	assert.Equal(t, 256, shadow.Texture().Height())
	shadowTex := shadow.Texture()

	srv.SetDisplaySize(1000, 500)
	rp.DisplayResized()
	assert.Nil(t, rt0.Texture())
	require.NoError(t, rp.Validate())
	assert.Equal(t, 500, rt0.Texture().Width())
	assert.Equal(t, 250, rt0.Texture().Height())
	assert.Same(t, shadowTex, shadow.Texture())
}

func TestRenderTargetDefaultsToDisplaySize(t *testing.T) {
	xmlSrc := `<RenderPath name="d"><RenderTarget name="full" format="A8R8G8B8"/></RenderPath>`
	rp, _, _ := openFixture(t, xmlSrc)
	rt := rp.RenderTarget(0)
	assert.True(t, rt.IsRelative())
	assert.Equal(t, float32(1), rt.RelSize())
	assert.Equal(t, 1920, rt.Texture().Width())
}

func TestValidateIsIdempotent(t *testing.T) {
	rp, srv, _ := openFixture(t, mainPath)
	seq := rp.Section(0).Pass(0).Phase(0).Sequence(0)
	idx := seq.ShaderIndex()
	tex := rp.RenderTarget(0).Texture()
	created := len(srv.CallsOf(headless.OpNewShader))

	require.NoError(t, rp.Validate())
	require.NoError(t, rp.Validate())
	require.NoError(t, seq.Validate())

	assert.Equal(t, idx, seq.ShaderIndex())
	assert.Equal(t, rp.FindShaderIndex("geom"), seq.ShaderIndex())
	assert.Equal(t, rp.FindShaderIndex("post"), rp.Section(0).Pass(1).ShaderIndex())
	assert.Same(t, tex, rp.RenderTarget(0).Texture())
	assert.Len(t, srv.CallsOf(headless.OpNewShader), created)
}

func TestGlobalVariables(t *testing.T) {
	rp, _, reg := openFixture(t, mainPath)

	assert.Equal(t, float32(1.5), reg.Float(reg.HandleByName("Exposure")))
	assert.Equal(t, [4]float32{1, 0.5, 0.25, 1}, reg.Float4(reg.HandleByName("Tint")))
	assert.Equal(t, 3, reg.Int(reg.HandleByName("Steps")))

	tex, ok := reg.Object(reg.HandleByName("Noise")).(gfx.Texture)
	require.True(t, ok)
	assert.Equal(t, 4, tex.Width())
	assert.Equal(t, 2, tex.Height())

	h := reg.HandleByName("Exposure")
	rp.AddVariable(variable.NewFloat(h, 2))
	assert.Len(t, rp.Variables(), 4)
	assert.Equal(t, float32(2), reg.Float(h))
}

func TestPreloadWorkers(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath, WithPreloadWorkers(4))
	for i := 0; i < rp.NumShaders(); i++ {
		assert.True(t, rp.Shader(i).Shader().IsLoaded(), rp.Shader(i).Name())
	}
}

func TestPreloadReportsLoadErrors(t *testing.T) {
	xmlSrc := `<RenderPath name="bad" shaderPath="shaders">
  <Shader name="geom" file="geom.wgsl"/>
  <Shader name="a" file="missing_a.wgsl"/>
  <Shader name="b" file="missing_b.wgsl"/>
</RenderPath>`
	rp := New(WithServer(headless.NewServer()), WithFilename(writeFixture(t, xmlSrc)), WithPreloadWorkers(3))
	err := rp.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShaderLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.False(t, rp.IsOpen())
}

func TestOpenFailureCloses(t *testing.T) {
	xmlSrc := `<RenderPath name="bad" shaderPath="shaders">
  <Shader name="geom" file="geom.wgsl"/>
  <Section name="s">
    <Pass name="p"><Phase name="ph"><Sequence shader="missing"/></Phase></Pass>
  </Section>
</RenderPath>`
	rp := New(WithServer(headless.NewServer()), WithFilename(writeFixture(t, xmlSrc)))
	err := rp.Open()

	var ce *ContentError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Sequence", ce.Element)
	assert.Equal(t, "missing", ce.Name)
	assert.ErrorIs(t, err, ErrShaderAliasNotFound)
	assert.False(t, rp.IsOpen())
	assert.Zero(t, rp.NumSections())
	assert.Zero(t, rp.NumShaders())
}

func TestCloseAndReopen(t *testing.T) {
	rp, srv, _ := openFixture(t, mainPath)
	rp.Close()
	assert.False(t, rp.IsOpen())
	assert.Zero(t, rp.NumSections())
	assert.Zero(t, rp.NumRenderTargets())
	assert.Empty(t, rp.Variables())

	srv.ResetCalls()
	require.NoError(t, rp.Open())
	assert.Equal(t, 1, rp.NumSections())
	assert.Len(t, srv.CallsOf(headless.OpNewShader), 2)
}

func TestRenderPathBeginEnd(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath)
	assert.Panics(t, rp.End)
	assert.Equal(t, 1, rp.Begin())
	assert.True(t, rp.InBegin())
	assert.Panics(t, func() { rp.Begin() })
	assert.Panics(t, rp.Close)
	rp.End()
	assert.False(t, rp.InBegin())
}

func TestOpenMissingFile(t *testing.T) {
	rp := New(WithServer(headless.NewServer()), WithFilename(filepath.Join(t.TempDir(), "nope.xml")))
	err := rp.Open()
	assert.ErrorIs(t, err, ErrFileRead)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, New(WithServer(headless.NewServer())).OpenXml(), ErrFileRead)
}
