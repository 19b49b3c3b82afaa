package renderpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBuiltPath creates a render path in code with the geom and post shaders available.
func newBuiltPath(t *testing.T) (*renderPath, headless.Server) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geom.wgsl"), []byte(geomShader), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.wgsl"), []byte(postShader), 0o644))
	srv := headless.NewServer()
	rp := New(WithServer(srv), WithShaderRoot(dir)).(*renderPath)
	rp.AddShader("geom", "geom.wgsl")
	rp.AddShader("post", "post.wgsl")
	return rp, srv
}

func TestShaderUpdatesDisabledSkipsRegistry(t *testing.T) {
	rp, _, reg := openFixture(t, mainPath)
	ph := rp.Section(0).Pass(0).Phase(0)

	updating, frozen := ph.Sequence(0), ph.Sequence(1)
	require.False(t, frozen.ShaderUpdatesEnabled())

	before := reg.Reads()
	n, err := frozen.Begin()
	require.NoError(t, err)
	assert.Positive(t, n)
	frozen.End()
	assert.Equal(t, before, reg.Reads())

	_, err = updating.Begin()
	require.NoError(t, err)
	updating.End()
	assert.Equal(t, before+1, reg.Reads())
}

func TestBeginEndNesting(t *testing.T) {
	rp, _, _ := openFixture(t, mainPath)
	s := rp.Section(0)
	pass := s.Pass(0)
	ph := pass.Phase(0)
	seq := ph.Sequence(0)

	assert.Panics(t, s.End)
	assert.Panics(t, pass.End)
	assert.Panics(t, ph.End)
	assert.Panics(t, seq.End)
	assert.Panics(t, seq.EndPass)
	assert.Panics(t, func() { seq.BeginPass(0) })

	_, err := s.Begin()
	require.NoError(t, err)
	assert.Panics(t, func() { s.Begin() })

	_, err = pass.Begin()
	require.NoError(t, err)
	assert.Panics(t, func() { pass.Begin() })

	_, err = ph.Begin()
	require.NoError(t, err)
	assert.Panics(t, func() { ph.Begin() })

	n, err := seq.Begin()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Panics(t, func() { seq.Begin() })
	seq.BeginPass(0)
	assert.Panics(t, func() { seq.BeginPass(1) })
	assert.Panics(t, seq.End)
	seq.EndPass()
	seq.End()

	ph.End()
	pass.End()
	s.End()
	assert.False(t, s.InBegin())
}

func TestBeginBeforeValidatePanics(t *testing.T) {
	rp, _ := newBuiltPath(t)
	p := rp.AddSection("s").AddPass("p")
	p.SetShaderAlias("post")
	seq := p.AddPhase("ph").AddSequence("geom")

	assert.Panics(t, func() { p.Begin() })
	assert.Panics(t, func() { seq.Begin() })
	assert.Panics(t, func() { seq.ShaderBucketIndex() })
	assert.Nil(t, seq.Shader())

	require.NoError(t, rp.Validate())
	assert.Equal(t, 0, seq.ShaderBucketIndex())
	assert.NotNil(t, seq.Shader())
}

func TestArenaIndices(t *testing.T) {
	rp, _ := newBuiltPath(t)
	s0 := rp.AddSection("a")
	s1 := rp.AddSection("b")
	p0 := s0.AddPass("a0")
	p1 := s1.AddPass("b0")
	p2 := s0.AddPass("a1")
	ph := p2.AddPhase("ph")
	q0 := ph.AddSequence("geom")
	q1 := ph.AddSequence("post")

	assert.Equal(t, 1, s1.Index())
	assert.Equal(t, 0, p0.Index())
	assert.Equal(t, 0, p1.Index())
	assert.Equal(t, 1, p2.Index())
	assert.Same(t, s0, p2.Section())
	assert.Same(t, s1, p1.Section())
	assert.Same(t, p2, s0.Pass(1))
	assert.Same(t, p2, ph.Pass())
	assert.Same(t, q1, ph.Sequence(1))
	assert.Same(t, ph, q0.Phase())
	assert.Equal(t, 1, q1.Index())
}

func TestPassShaderMustBeSinglePass(t *testing.T) {
	rp, srv := newBuiltPath(t)
	p := rp.AddSection("s").AddPass("p")
	p.SetShaderAlias("geom")
	p.SetTechnique("glow")
	require.NoError(t, rp.Validate())

	n, err := p.Begin()
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrMultiPassShader)
	assert.False(t, p.InBegin())

	calls := srv.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, headless.OpSetRenderTarget, calls[len(calls)-1].Op)
	assert.Len(t, srv.CallsOf(headless.OpShaderEnd), 1)
	assert.Len(t, srv.CallsOf(headless.OpEndScene), 1)
}

func TestPhaseShaderMustBeSinglePass(t *testing.T) {
	rp, _ := newBuiltPath(t)
	ph := rp.AddSection("s").AddPass("p").AddPhase("ph")
	ph.SetShaderAlias("geom")
	ph.SetTechnique("glow")
	require.NoError(t, rp.Validate())

	_, err := ph.Begin()
	assert.ErrorIs(t, err, ErrMultiPassShader)
	assert.False(t, ph.InBegin())

	ph.SetTechnique("solid")
	n, err := ph.Begin()
	require.NoError(t, err)
	assert.Zero(t, n)
	ph.End()
}

func TestPhaseResetsScissor(t *testing.T) {
	rp, srv := newBuiltPath(t)
	ph := rp.AddSection("s").AddPass("p").AddPhase("ph")
	require.NoError(t, rp.Validate())

	_, err := ph.Begin()
	require.NoError(t, err)
	ph.End()
	sc := srv.CallsOf(headless.OpScissor)
	require.Len(t, sc, 1)
	assert.Equal(t, "0,0,1920,1080", sc[0].Detail)
}

func TestUnknownTechnique(t *testing.T) {
	rp, _ := newBuiltPath(t)
	seq := rp.AddSection("s").AddPass("p").AddPhase("ph").AddSequence("geom")
	seq.SetTechnique("missing")
	require.NoError(t, rp.Validate())

	_, err := seq.Begin()
	assert.ErrorIs(t, err, ErrInvalidAttribute)
	assert.False(t, seq.InBegin())
}

func TestUpdateMeshCoords(t *testing.T) {
	rp, srv := newBuiltPath(t)
	rp.AddRenderTarget("half", gfx.FormatX8R8G8B8, 0.5, 0, 0)
	p := rp.AddSection("s").AddPass("quad")
	p.SetRenderTargetName(0, "half")
	p.SetDrawQuad(true)
	require.NoError(t, rp.Validate())
	require.NotNil(t, rp.quad)
	assert.Equal(t, 6, rp.quad.NumIndices())

	_, err := p.Begin()
	require.NoError(t, err)
	assert.Equal(t, 4, rp.quad.NumVertices())

	du, dv := float32(0.5/960.0), float32(0.5/540.0)
	want := []float32{
		-1, 1, 0, du, dv,
		1, 1, 0, 1 + du, dv,
		-1, -1, 0, du, 1 + dv,
		1, -1, 0, 1 + du, 1 + dv,
	}
	if diff := cmp.Diff(want, rp.quad.Vertices(), cmpopts.EquateApprox(0, 1e-7)); diff != "" {
		t.Errorf("quad mismatch (-want +got):\n%s", diff)
	}
	p.End()

	draws := srv.CallsOf(headless.OpDrawIndexed)
	require.Len(t, draws, 1)
	assert.Equal(t, rp.quad.Name(), draws[0].Target)

	other := rp.Section(0).AddPass("other")
	other.SetDrawQuad(true)
	require.NoError(t, rp.Validate())
	_, err = other.Begin()
	require.NoError(t, err)
	assert.InDelta(t, 0.5/1920.0, rp.quad.Vertices()[3], 1e-9)
	other.End()
}

func TestPassKindBehaviour(t *testing.T) {
	rp, _ := newBuiltPath(t)
	p := rp.AddSection("s").AddPass("p")
	assert.Equal(t, KindGeometry, p.Kind())

	p.SetKind(KindOcclusion)
	assert.True(t, p.OcclusionQuery())
	p.SetOcclusionQuery(false)
	assert.True(t, p.OcclusionQuery())

	p.SetKind(KindPosteffect)
	assert.True(t, p.DrawQuad())
	p.SetDrawQuad(false)
	assert.True(t, p.DrawQuad())

	p.SetKind(KindGeometry)
	p.SetDrawQuad(false)
	assert.False(t, p.DrawQuad())
}

func TestSequenceConstantParams(t *testing.T) {
	rp, srv := newBuiltPath(t)
	seq := rp.AddSection("s").AddPass("p").AddPhase("ph").AddSequence("geom")
	seq.SetParam("color", variable.NewFloat4(variable.InvalidHandle, [4]float32{1, 2, 3, 4}))
	seq.SetParam("color", variable.NewFloat4(variable.InvalidHandle, [4]float32{4, 3, 2, 1}))
	seq.SetParam("unused", variable.NewFloat(variable.InvalidHandle, 1))
	assert.Equal(t, 2, seq.NumParams())
	require.NoError(t, rp.Validate())

	_, err := seq.Begin()
	require.NoError(t, err)
	seq.End()

	v, ok := headless.ParamValue(seq.Shader(), "color")
	require.True(t, ok)
	assert.Equal(t, [4]float32{4, 3, 2, 1}, v)
	_, ok = headless.ParamValue(seq.Shader(), "unused")
	assert.False(t, ok)
	assert.Len(t, srv.CallsOf(headless.OpSetParam), 1)
}

func TestApplyShaderArg(t *testing.T) {
	rp, srv := newBuiltPath(t)
	require.NoError(t, rp.Validate())
	geom := rp.shaders[0].shader
	post := rp.shaders[1].shader

	palette := [][16]float32{gfx.Identity(), gfx.Identity()}
	pv := variable.NewObject(variable.InvalidHandle, palette)
	require.NoError(t, applyShaderArg(geom, "palette", &pv))
	got, _ := headless.ParamValue(geom, "palette")
	assert.Equal(t, palette, got)

	m := variable.NewMatrix(variable.InvalidHandle, gfx.Identity())
	require.NoError(t, applyShaderArg(geom, "mvp", &m))

	tex, err := srv.NewRenderTarget("rt", 4, 4, gfx.FormatR32F)
	require.NoError(t, err)
	tv := variable.NewObject(variable.InvalidHandle, tex)
	require.NoError(t, applyShaderArg(post, "source", &tv))
	got, _ = headless.ParamValue(post, "source")
	assert.Same(t, tex, got)

	nv := variable.NewObject(variable.InvalidHandle, nil)
	require.NoError(t, applyShaderArg(post, "source", &nv))

	iv := variable.NewInt(variable.InvalidHandle, 3)
	require.NoError(t, applyShaderArg(post, "exposure", &iv))

	sv := variable.NewString(variable.InvalidHandle, "text")
	assert.ErrorIs(t, applyShaderArg(post, "exposure", &sv), ErrUnsupportedArgType)
	ov := variable.NewObject(variable.InvalidHandle, 3.5)
	assert.ErrorIs(t, applyShaderArg(post, "source", &ov), ErrUnsupportedArgType)
	assert.NoError(t, applyShaderArg(post, "notDeclared", &sv))
}

func TestEnumParsing(t *testing.T) {
	for _, s := range []string{"None", "FrontToBack", "BackToFront"} {
		o, err := StringToSortingOrder(s)
		require.NoError(t, err)
		assert.Equal(t, s, o.String())
	}
	for _, s := range []string{"Off", "FFP", "Shader"} {
		m, err := StringToLightMode(s)
		require.NoError(t, err)
		assert.Equal(t, s, m.String())
	}
	for _, s := range []string{"NoShadows", "Simple", "MultiLight"} {
		st, err := StringToShadowTechnique(s)
		require.NoError(t, err)
		assert.Equal(t, s, st.String())
	}
	_, err := StringToLightMode("shader")
	assert.ErrorIs(t, err, ErrUnknownLightMode)
	_, err = StringToShadowTechnique("")
	assert.ErrorIs(t, err, ErrUnknownShadowTechnique)

	assert.Equal(t, KindOcclusion, StringToPassKind("Occlusion"))
	assert.Equal(t, KindPosteffect, StringToPassKind("Posteffect"))
	assert.Equal(t, KindGeometry, StringToPassKind(""))
	assert.Equal(t, KindGeometry, StringToPassKind("Unknown"))
}
