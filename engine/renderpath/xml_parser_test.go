package renderpath

import (
	"encoding/xml"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassAttributes(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath)
	s := rp.Section(0)

	scene := s.Pass(0)
	assert.Equal(t, "scene", scene.Name())
	assert.Equal(t, gfx.ColorBuffer|gfx.DepthBuffer, scene.ClearFlags())
	assert.Equal(t, [4]float32{0, 0, 0, 1}, scene.ClearColor())
	assert.Equal(t, float32(1.0), scene.ClearDepth())
	assert.Equal(t, "RT0", scene.RenderTargetName(0))
	assert.Equal(t, 1, scene.NumRenderTargets())
	assert.Equal(t, "", scene.ShaderAlias())
	assert.Equal(t, -1, scene.ShaderIndex())
	assert.Equal(t, KindGeometry, scene.Kind())

	compose := s.Pass(1)
	assert.Equal(t, gfx.StencilBuffer, compose.ClearFlags())
	assert.True(t, compose.DrawQuad())
	assert.Equal(t, 3, compose.NumParams())
	assert.Equal(t, "", compose.RenderTargetName(0))

	shadow := s.Pass(2)
	assert.Equal(t, ShadowSimple, shadow.ShadowTechnique())
	assert.True(t, shadow.ShadowEnabledCondition())
	assert.True(t, shadow.DrawQuad())
	assert.Zero(t, shadow.ClearFlags())
}

func TestPhaseAndSequenceAttributes(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath)
	ph := rp.Section(0).Pass(0).Phase(0)
	assert.Equal(t, "opaque", ph.Name())
	assert.Equal(t, SortFrontToBack, ph.SortOrder())
	assert.Equal(t, LightShader, ph.LightMode())
	assert.Same(t, rp.Section(0).Pass(0), ph.Pass())
	require.Equal(t, 2, ph.NumSequences())

	s0, s1 := ph.Sequence(0), ph.Sequence(1)
	assert.Equal(t, "glow", s0.Technique())
	assert.True(t, s0.ShaderUpdatesEnabled())
	assert.False(t, s0.MvpOnly())
	assert.Equal(t, 1, s0.NumParams())
	assert.Same(t, ph, s0.Phase())

	assert.False(t, s1.ShaderUpdatesEnabled())
	assert.True(t, s1.MvpOnly())
	assert.False(t, s1.FirstLightAlphaEnabled())
	assert.Equal(t, 1, s1.Index())
	assert.Equal(t, rp.FindShaderIndex("geom"), s1.ShaderBucketIndex())
}

func TestSortOrderParsing(t *testing.T) {
	good := `<RenderPath name="s" shaderPath="shaders">
  <Shader name="geom" file="geom.wgsl"/>
  <Section name="s"><Pass name="p">
    <Phase name="a" sort="FrontToBack"><Sequence shader="geom"/></Phase>
    <Phase name="b" sort="BackToFront" lightMode="FFP"/>
    <Phase name="c"/>
  </Pass></Section>
</RenderPath>`
	rp, _, _ := openFixture(t, good)
	p := rp.Section(0).Pass(0)
	assert.Equal(t, SortFrontToBack, p.Phase(0).SortOrder())
	assert.Equal(t, SortBackToFront, p.Phase(1).SortOrder())
	assert.Equal(t, LightFFP, p.Phase(1).LightMode())
	assert.Equal(t, SortNone, p.Phase(2).SortOrder())
	assert.Equal(t, LightOff, p.Phase(2).LightMode())

	bad := `<RenderPath name="s"><Section name="s"><Pass name="p">
    <Phase name="a" sort="Garbage"/>
  </Pass></Section></RenderPath>`
	rp2 := New(WithServer(headless.NewServer()), WithFilename(writeFixture(t, bad)))
	err := rp2.Open()
	assert.ErrorIs(t, err, ErrUnknownSortOrder)
	assert.Contains(t, err.Error(), "Garbage")
	assert.False(t, rp2.IsOpen())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want error
	}{
		{
			name: "unknown root",
			xml:  `<Scene/>`,
			want: ErrUnknownRoot,
		},
		{
			name: "malformed document",
			xml:  `<RenderPath name="x"><Section name="s"></RenderPath>`,
			want: ErrInvalidAttribute,
		},
		{
			name: "short clear color",
			xml:  `<RenderPath><Section name="s"><Pass name="p" clearColor="1 2 3"/></Section></RenderPath>`,
			want: ErrInvalidAttribute,
		},
		{
			name: "bad bool",
			xml:  `<RenderPath><Section name="s"><Pass name="p" drawQuad="maybe"/></Section></RenderPath>`,
			want: ErrInvalidAttribute,
		},
		{
			name: "bad relSize",
			xml:  `<RenderPath><RenderTarget name="rt" format="R32F" relSize="half"/></RenderPath>`,
			want: ErrInvalidAttribute,
		},
		{
			name: "unknown pixel format",
			xml:  `<RenderPath><RenderTarget name="rt" format="BOGUS" relSize="1"/></RenderPath>`,
			want: ErrUnknownPixelFormat,
		},
		{
			name: "unknown shadow technique",
			xml:  `<RenderPath><Section name="s"><Pass name="p" drawShadows="Soft"/></Section></RenderPath>`,
			want: ErrUnknownShadowTechnique,
		},
		{
			name: "unknown light mode",
			xml:  `<RenderPath><Section name="s"><Pass name="p"><Phase name="ph" lightMode="Sun"/></Pass></Section></RenderPath>`,
			want: ErrUnknownLightMode,
		},
		{
			name: "duplicate shader",
			xml:  `<RenderPath><Shader name="a" file="a.wgsl"/><Shader name="a" file="b.wgsl"/></RenderPath>`,
			want: ErrDuplicateName,
		},
		{
			name: "duplicate render target",
			xml:  `<RenderPath><RenderTarget name="rt" format="R32F"/><RenderTarget name="rt" format="R32F"/></RenderPath>`,
			want: ErrDuplicateName,
		},
		{
			name: "pass outside section",
			xml:  `<RenderPath><Pass name="p"/></RenderPath>`,
			want: ErrUnexpectedElement,
		},
		{
			name: "unknown element",
			xml:  `<RenderPath><Camera name="c"/></RenderPath>`,
			want: ErrUnexpectedElement,
		},
		{
			name: "section in frame shader",
			xml:  `<FrameShader><Section name="s"/></FrameShader>`,
			want: ErrUnexpectedElement,
		},
		{
			name: "parameter on phase",
			xml:  `<RenderPath><Section name="s"><Pass name="p"><Phase name="ph"><Float name="f" value="1"/></Phase></Pass></Section></RenderPath>`,
			want: ErrUnexpectedElement,
		},
		{
			name: "unknown render target",
			xml:  `<RenderPath><Section name="s"><Pass name="p" renderTarget="missing"/></Section></RenderPath>`,
			want: ErrRenderTargetNotFound,
		},
		{
			name: "unknown pass shader",
			xml:  `<RenderPath><Section name="s"><Pass name="p" shader="missing"/></Section></RenderPath>`,
			want: ErrShaderAliasNotFound,
		},
		{
			name: "missing shader file",
			xml:  `<RenderPath shaderPath="shaders"><Shader name="a" file="missing.wgsl"/></RenderPath>`,
			want: ErrShaderLoad,
		},
		{
			name: "missing texture",
			xml:  `<RenderPath><Texture name="t" value="missing.png"/></RenderPath>`,
			want: ErrTextureLoad,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := New(WithServer(headless.NewServer()), WithFilename(writeFixture(t, tt.xml)))
			err := rp.Open()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, rp.IsOpen())
		})
	}
}

func TestRenderTargetSlots(t *testing.T) {
	xmlSrc := `<RenderPath name="mrt">
  <RenderTarget name="albedo" format="A8R8G8B8"/>
  <RenderTarget name="normal" format="A16B16G16R16F"/>
  <RenderTarget name="depth" format="R32F"/>
  <Section name="s">
    <Pass name="gbuffer" renderTarget0="albedo" renderTarget1="normal" renderTarget2="depth"/>
  </Section>
</RenderPath>`
	rp, srv, _ := openFixture(t, xmlSrc)
	p := rp.Section(0).Pass(0)
	assert.Equal(t, 3, p.NumRenderTargets())
	assert.Equal(t, "normal", p.RenderTargetName(1))

	n, err := p.Begin()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "albedo", srv.RenderTarget(0).Name())
	assert.Equal(t, "depth", srv.RenderTarget(2).Name())
	p.End()
	for i := 0; i < 3; i++ {
		assert.Nil(t, srv.RenderTarget(i))
	}
}

func TestFrameShaderDialect(t *testing.T) {
	xmlSrc := `<FrameShader name="deferred" shaderPath="shaders">
  <Shader name="post" file="post.wgsl"/>
  <RenderTarget name="light" format="A16B16G16R16F" relSize="1"/>
  <Float name="Exposure" value="2"/>
  <Pass name="depth" type="Occlusion"/>
  <Pass name="lights" type="Geometry" renderTarget="light"/>
  <Pass name="tonemap" type="Posteffect" shader="post" drawQuad="false">
    <Float name="exposure" variable="Exposure"/>
  </Pass>
  <Pass name="odd" type="Wobble"/>
</FrameShader>`
	rp, _, reg := openFixture(t, xmlSrc)

	require.Equal(t, 1, rp.NumSections())
	s := rp.Section(0)
	assert.Equal(t, "deferred", s.Name())
	require.Equal(t, 4, s.NumPasses())

	assert.Equal(t, KindOcclusion, s.Pass(0).Kind())
	assert.True(t, s.Pass(0).OcclusionQuery())
	assert.Equal(t, KindGeometry, s.Pass(1).Kind())
	assert.Equal(t, KindPosteffect, s.Pass(2).Kind())
	assert.True(t, s.Pass(2).DrawQuad())
	assert.Equal(t, KindGeometry, s.Pass(3).Kind())

	assert.Equal(t, float32(2), reg.Float(reg.HandleByName("Exposure")))
}

func TestAttrHelpers(t *testing.T) {
	a := attrs{
		{Name: xml.Name{Local: "f"}, Value: " 0.25 "},
		{Name: xml.Name{Local: "i"}, Value: "7"},
		{Name: xml.Name{Local: "yes"}, Value: "Yes"},
		{Name: xml.Name{Local: "zero"}, Value: "0"},
		{Name: xml.Name{Local: "v"}, Value: "1, 2, 3, 4"},
	}
	f, err := a.float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), f)

	i, err := a.int("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	def, err := a.int("missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, def)

	b, err := a.bool("yes", false)
	require.NoError(t, err)
	assert.True(t, b)
	b, err = a.bool("zero", true)
	require.NoError(t, err)
	assert.False(t, b)

	v, ok, err := a.float4("v")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, [4]float32{1, 2, 3, 4}, v)

	_, ok, err = a.float4("missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}
