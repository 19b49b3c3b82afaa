package renderpath

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

// Phase groups sequences under an optional single-pass shader. Its sort order and light
// mode are consulted by the scene renderer.
type Phase struct {
	rp    *renderPath
	id    int
	index int
	pass  int

	name        string
	shaderAlias string
	technique   string
	sortOrder   SortOrder
	lightMode   LightMode
	sequences   []int

	rpShaderIndex int
	inBegin       bool
}

// Index returns the phase's position in its pass.
func (p *Phase) Index() int {
	return p.index
}

// Pass returns the owning pass.
func (p *Phase) Pass() *Pass {
	return p.rp.passes[p.pass]
}

func (p *Phase) Name() string {
	return p.name
}

func (p *Phase) ShaderAlias() string {
	return p.shaderAlias
}

// SetShaderAlias sets the phase shader. An empty alias means the phase binds no shader.
func (p *Phase) SetShaderAlias(alias string) {
	p.shaderAlias = alias
	p.rpShaderIndex = -1
}

func (p *Phase) Technique() string {
	return p.technique
}

func (p *Phase) SetTechnique(t string) {
	p.technique = t
}

func (p *Phase) SortOrder() SortOrder {
	return p.sortOrder
}

func (p *Phase) SetSortOrder(o SortOrder) {
	p.sortOrder = o
}

func (p *Phase) LightMode() LightMode {
	return p.lightMode
}

func (p *Phase) SetLightMode(m LightMode) {
	p.lightMode = m
}

// AddSequence appends a new sequence using the given shader alias.
//
// Parameters:
//   - shaderAlias: the name of a shader in the render path's shader table
//
// Returns:
//   - *Sequence: the new sequence, owned by the render path
func (p *Phase) AddSequence(shaderAlias string) *Sequence {
	s := &Sequence{
		rp:            p.rp,
		index:         len(p.sequences),
		phase:         p.id,
		shaderAlias:   shaderAlias,
		shaderUpdates: true,
		params:        newParamBlock(),
		rpShaderIndex: -1,
	}
	p.sequences = append(p.sequences, p.rp.addSequence(s))
	return s
}

// NumSequences returns the number of sequences.
func (p *Phase) NumSequences() int {
	return len(p.sequences)
}

// Sequence returns sequence i.
func (p *Phase) Sequence(i int) *Sequence {
	return p.rp.sequences[p.sequences[i]]
}

// ShaderIndex returns the resolved phase shader index, -1 if unresolved or without shader.
func (p *Phase) ShaderIndex() int {
	return p.rpShaderIndex
}

// InBegin reports whether the phase is between Begin and End.
func (p *Phase) InBegin() bool {
	return p.inBegin
}

// Validate validates all sequences, then resolves the phase shader alias.
//
// Returns:
//   - error: the first content error
func (p *Phase) Validate() error {
	for _, si := range p.sequences {
		if err := p.rp.sequences[si].Validate(); err != nil {
			return err
		}
	}
	if p.shaderAlias == "" || p.rpShaderIndex >= 0 {
		return nil
	}
	idx := p.rp.FindShaderIndex(p.shaderAlias)
	if idx < 0 {
		return contentErr("Phase", p.name, fmt.Errorf("%w: %q", ErrShaderAliasNotFound, p.shaderAlias))
	}
	p.rpShaderIndex = idx
	return nil
}

// Begin resets the scissor rect and begins pass 0 of the phase shader.
//
// Returns:
//   - int: the number of sequences
//   - error: a content error if the phase shader has more than one pass
func (p *Phase) Begin() (int, error) {
	if p.inBegin {
		panic(fmt.Sprintf("renderpath: phase %q: Begin inside Begin", p.name))
	}
	if p.shaderAlias != "" && p.rpShaderIndex < 0 {
		panic(fmt.Sprintf("renderpath: phase %q: Begin before Validate", p.name))
	}
	srv := p.rp.server
	w, h := srv.DisplaySize()
	srv.SetScissorRect(gfx.Rect{MaxX: w, MaxY: h})

	if sh := p.shader(); sh != nil {
		if p.technique != "" && !sh.SetTechnique(p.technique) {
			return 0, contentErr("Phase", p.name, fmt.Errorf("%w: technique %q", ErrInvalidAttribute, p.technique))
		}
		srv.SetShader(sh)
		if n := sh.Begin(true); n != 1 {
			sh.End()
			return 0, contentErr("Phase", p.name, fmt.Errorf("%w: %s has %d", ErrMultiPassShader, p.shaderAlias, n))
		}
		sh.BeginPass(0)
	}
	p.inBegin = true
	return len(p.sequences), nil
}

// End ends the phase shader pass.
func (p *Phase) End() {
	if !p.inBegin {
		panic(fmt.Sprintf("renderpath: phase %q: End without Begin", p.name))
	}
	if sh := p.shader(); sh != nil {
		sh.EndPass()
		sh.End()
	}
	p.inBegin = false
}

func (p *Phase) shader() gfx.Shader {
	if p.rpShaderIndex < 0 {
		return nil
	}
	return p.rp.shaders[p.rpShaderIndex].shader
}
