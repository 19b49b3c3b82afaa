package renderpath

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// MaxRenderTargets is the number of render targets a pass can bind.
const MaxRenderTargets = 4

// Pass binds render targets, clears them, optionally draws a full screen quad with its shader
// and owns the phases rendered into the targets.
type Pass struct {
	rp      *renderPath
	id      int
	index   int
	section int

	name              string
	shaderAlias       string
	technique         string
	renderTargetNames [MaxRenderTargets]string
	numRenderTargets  int
	clearFlags        gfx.ClearFlags
	clearColor        [4]float32
	clearDepth        float32
	clearStencil      int
	drawQuad          bool
	drawGui           bool
	shadowTechnique   ShadowTechnique
	occlusionQuery    bool
	shadowCondition   bool
	behaviour         passBehaviour
	params            paramBlock
	phases            []int

	rpShaderIndex   int
	renderTargetIdx [MaxRenderTargets]int
	validated       bool
	inBegin         bool
	timed           bool
}

// Index returns the pass's position in its section.
func (p *Pass) Index() int {
	return p.index
}

// Section returns the owning section.
func (p *Pass) Section() *Section {
	return p.rp.sections[p.section]
}

func (p *Pass) Name() string {
	return p.name
}

func (p *Pass) ShaderAlias() string {
	return p.shaderAlias
}

// SetShaderAlias sets the pass shader. An empty alias means the pass binds no shader.
func (p *Pass) SetShaderAlias(alias string) {
	p.shaderAlias = alias
	p.rpShaderIndex = -1
}

func (p *Pass) Technique() string {
	return p.technique
}

func (p *Pass) SetTechnique(t string) {
	p.technique = t
}

// SetRenderTargetName names the render target bound to slot i. An empty name on slot 0
// selects the backbuffer.
func (p *Pass) SetRenderTargetName(i int, name string) {
	if i < 0 || i >= MaxRenderTargets {
		panic(fmt.Sprintf("renderpath: pass %q: render target slot %d out of range", p.name, i))
	}
	p.renderTargetNames[i] = name
	if i >= p.numRenderTargets {
		p.numRenderTargets = i + 1
	}
	p.validated = false
}

// RenderTargetName returns the render target name of slot i.
func (p *Pass) RenderTargetName(i int) string {
	return p.renderTargetNames[i]
}

// NumRenderTargets returns the number of bound slots, at least 1.
func (p *Pass) NumRenderTargets() int {
	return max(p.numRenderTargets, 1)
}

func (p *Pass) ClearFlags() gfx.ClearFlags {
	return p.clearFlags
}

func (p *Pass) ClearColor() [4]float32 {
	return p.clearColor
}

func (p *Pass) ClearDepth() float32 {
	return p.clearDepth
}

func (p *Pass) ClearStencil() int {
	return p.clearStencil
}

// SetClearColor enables color clears with c.
func (p *Pass) SetClearColor(c [4]float32) {
	p.clearColor = c
	p.clearFlags |= gfx.ColorBuffer
}

// SetClearDepth enables depth clears with d.
func (p *Pass) SetClearDepth(d float32) {
	p.clearDepth = d
	p.clearFlags |= gfx.DepthBuffer
}

// SetClearStencil enables stencil clears with s.
func (p *Pass) SetClearStencil(s int) {
	p.clearStencil = s
	p.clearFlags |= gfx.StencilBuffer
}

func (p *Pass) DrawQuad() bool {
	return p.drawQuad
}

func (p *Pass) SetDrawQuad(b bool) {
	p.drawQuad = b
	p.behaviour.prepare(p)
}

func (p *Pass) DrawGui() bool {
	return p.drawGui
}

func (p *Pass) SetDrawGui(b bool) {
	p.drawGui = b
}

func (p *Pass) ShadowTechnique() ShadowTechnique {
	return p.shadowTechnique
}

func (p *Pass) SetShadowTechnique(t ShadowTechnique) {
	p.shadowTechnique = t
}

func (p *Pass) OcclusionQuery() bool {
	return p.occlusionQuery
}

func (p *Pass) SetOcclusionQuery(b bool) {
	p.occlusionQuery = b
	p.behaviour.prepare(p)
}

// ShadowEnabledCondition reports whether the pass only runs while shadows are enabled.
func (p *Pass) ShadowEnabledCondition() bool {
	return p.shadowCondition
}

func (p *Pass) SetShadowEnabledCondition(b bool) {
	p.shadowCondition = b
}

// Kind returns the pass kind.
func (p *Pass) Kind() PassKind {
	return p.behaviour.kind()
}

// SetKind selects the pass behaviour. Occlusion passes always run occlusion queries,
// posteffect passes always draw the full screen quad.
func (p *Pass) SetKind(k PassKind) {
	p.behaviour = newPassBehaviour(k)
	p.behaviour.prepare(p)
}

// SetParam sets a constant shader parameter of the pass shader. The handle of v is ignored.
func (p *Pass) SetParam(name string, v variable.Variable) {
	p.params.setConst(name, v)
}

// BindParam feeds the pass shader parameter name from the global variable globalName.
func (p *Pass) BindParam(name, globalName string) {
	p.params.bind(name, p.rp.registry.HandleByName(globalName))
}

// NumParams returns the number of constant and bound parameters.
func (p *Pass) NumParams() int {
	return p.params.len()
}

// AddPhase appends a new phase.
//
// Parameters:
//   - name: the phase name
//
// Returns:
//   - *Phase: the new phase, owned by the render path
func (p *Pass) AddPhase(name string) *Phase {
	ph := &Phase{
		rp:            p.rp,
		index:         len(p.phases),
		pass:          p.id,
		name:          name,
		rpShaderIndex: -1,
	}
	p.phases = append(p.phases, p.rp.addPhase(ph))
	return ph
}

// NumPhases returns the number of phases.
func (p *Pass) NumPhases() int {
	return len(p.phases)
}

// Phase returns phase i.
func (p *Pass) Phase(i int) *Phase {
	return p.rp.phases[p.phases[i]]
}

// ShaderIndex returns the resolved pass shader index, -1 if unresolved or without shader.
func (p *Pass) ShaderIndex() int {
	return p.rpShaderIndex
}

// InBegin reports whether the pass is between Begin and End.
func (p *Pass) InBegin() bool {
	return p.inBegin
}

// Validate validates all phases, resolves the pass shader alias and render target names,
// creates missing render target textures and the shared quad mesh if the pass draws it.
//
// Returns:
//   - error: the first content error
func (p *Pass) Validate() error {
	for _, pi := range p.phases {
		if err := p.rp.phases[pi].Validate(); err != nil {
			return err
		}
	}
	if p.shaderAlias != "" && p.rpShaderIndex < 0 {
		idx := p.rp.FindShaderIndex(p.shaderAlias)
		if idx < 0 {
			return contentErr("Pass", p.name, fmt.Errorf("%w: %q", ErrShaderAliasNotFound, p.shaderAlias))
		}
		p.rpShaderIndex = idx
	}
	if !p.validated {
		for i := 0; i < p.NumRenderTargets(); i++ {
			p.renderTargetIdx[i] = -1
			name := p.renderTargetNames[i]
			if name == "" {
				continue
			}
			idx := p.rp.FindRenderTargetIndex(name)
			if idx < 0 {
				return contentErr("Pass", p.name, fmt.Errorf("%w: %q", ErrRenderTargetNotFound, name))
			}
			p.renderTargetIdx[i] = idx
		}
		p.validated = true
	}
	// targets released by DisplayResized are recreated at the new size
	for i := 0; i < p.NumRenderTargets(); i++ {
		if idx := p.renderTargetIdx[i]; idx >= 0 {
			if err := p.rp.renderTargets[idx].Validate(p.rp.server); err != nil {
				return err
			}
		}
	}
	if p.drawQuad {
		p.rp.ensureQuadMesh()
	}
	return nil
}

// Begin binds the render targets, begins the scene, clears, begins the pass shader and draws
// the GUI and the full screen quad if requested.
//
// Begin returns 0 without beginning the pass if the pass requires shadows while they are
// disabled, or if the graphics server refuses to begin the scene. The caller must not call
// End in that case; InBegin reports false.
//
// Returns:
//   - int: the number of phases
//   - error: a content error if the pass shader has more than one pass or a parameter fails
func (p *Pass) Begin() (int, error) {
	if p.inBegin {
		panic(fmt.Sprintf("renderpath: pass %q: Begin inside Begin", p.name))
	}
	if !p.validated || (p.shaderAlias != "" && p.rpShaderIndex < 0) {
		panic(fmt.Sprintf("renderpath: pass %q: Begin before Validate", p.name))
	}
	if p.shadowCondition && !p.rp.shadowsEnabled {
		return 0, nil
	}

	srv := p.rp.server
	n := p.NumRenderTargets()
	for i := 0; i < n; i++ {
		var tex gfx.Texture
		if idx := p.renderTargetIdx[i]; idx >= 0 {
			tex = p.rp.renderTargets[idx].texture
		}
		srv.SetRenderTarget(i, tex)
	}
	if p.drawQuad {
		p.UpdateMeshCoords()
	}
	if !srv.BeginScene() {
		p.unbindRenderTargets()
		return 0, nil
	}
	if p.clearFlags != 0 {
		srv.Clear(p.clearFlags, p.clearColor, p.clearDepth, p.clearStencil)
	}

	if sh := p.shader(); sh != nil {
		if err := p.beginShader(sh); err != nil {
			srv.EndScene()
			p.unbindRenderTargets()
			return 0, err
		}
	}
	if p.drawGui && p.rp.guiHook != nil {
		p.rp.guiHook()
	}
	if p.drawQuad {
		srv.SetMesh(p.rp.quad)
		srv.DrawIndexed(0, p.rp.quad.NumIndices())
	}

	p.timed = p.rp.profiler != nil && p.shadowTechnique == NoShadows && !p.occlusionQuery
	if p.timed {
		p.rp.profiler.StartTimer(p.name)
	}
	p.inBegin = true
	return len(p.phases), nil
}

func (p *Pass) beginShader(sh gfx.Shader) error {
	if err := p.rp.pushParams(&p.params, sh); err != nil {
		return contentErr("Pass", p.name, err)
	}
	if p.technique != "" && !sh.SetTechnique(p.technique) {
		return contentErr("Pass", p.name, fmt.Errorf("%w: technique %q", ErrInvalidAttribute, p.technique))
	}
	p.rp.server.SetShader(sh)
	if n := sh.Begin(true); n != 1 {
		sh.End()
		return contentErr("Pass", p.name, fmt.Errorf("%w: %s has %d", ErrMultiPassShader, p.shaderAlias, n))
	}
	sh.BeginPass(0)
	return nil
}

// End ends the pass shader and the scene and unbinds the render targets.
func (p *Pass) End() {
	if !p.inBegin {
		panic(fmt.Sprintf("renderpath: pass %q: End without Begin", p.name))
	}
	if sh := p.shader(); sh != nil {
		sh.EndPass()
		sh.End()
	}
	p.rp.server.EndScene()
	p.unbindRenderTargets()
	if p.timed {
		p.rp.profiler.StopTimer(p.name)
	}
	p.inBegin = false
}

// UpdateMeshCoords recomputes the full screen quad for the size of the bound render target,
// or the display if the backbuffer is bound. Texture coordinates are offset by half a texel
// so texels map onto pixel centers.
func (p *Pass) UpdateMeshCoords() {
	p.rp.ensureQuadMesh()
	srv := p.rp.server
	var w, h int
	if rt := srv.RenderTarget(0); rt != nil {
		w, h = rt.Width(), rt.Height()
	} else {
		w, h = srv.DisplaySize()
	}
	p.rp.quad.SetVertices(quadVertices(w, h), quadComponents)
}

func (p *Pass) unbindRenderTargets() {
	for i := 0; i < p.NumRenderTargets(); i++ {
		p.rp.server.SetRenderTarget(i, nil)
	}
}

func (p *Pass) shader() gfx.Shader {
	if p.rpShaderIndex < 0 {
		return nil
	}
	return p.rp.shaders[p.rpShaderIndex].shader
}

const quadComponents = gfx.Coord | gfx.Uv0

var quadIndices = []uint16{0, 1, 2, 2, 1, 3}

// quadVertices returns x, y, z, u, v for the four corners of a clip space quad.
func quadVertices(width, height int) []float32 {
	var du, dv float32
	if width > 0 && height > 0 {
		du = 0.5 / float32(width)
		dv = 0.5 / float32(height)
	}
	return []float32{
		-1, 1, 0, du, dv,
		1, 1, 0, 1 + du, dv,
		-1, -1, 0, du, 1 + dv,
		1, -1, 0, 1 + du, 1 + dv,
	}
}

// passBehaviour is the kind-specific behaviour of a pass.
type passBehaviour interface {
	kind() PassKind
	prepare(p *Pass)
}

type geometryPass struct{}

func (geometryPass) kind() PassKind {
	return KindGeometry
}

func (geometryPass) prepare(*Pass) {}

type occlusionPass struct{}

func (occlusionPass) kind() PassKind {
	return KindOcclusion
}

func (occlusionPass) prepare(p *Pass) {
	p.occlusionQuery = true
}

type posteffectPass struct{}

func (posteffectPass) kind() PassKind {
	return KindPosteffect
}

func (posteffectPass) prepare(p *Pass) {
	p.drawQuad = true
}

func newPassBehaviour(k PassKind) passBehaviour {
	switch k {
	case KindOcclusion:
		return occlusionPass{}
	case KindPosteffect:
		return posteffectPass{}
	default:
		return geometryPass{}
	}
}
