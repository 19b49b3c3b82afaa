package renderpath

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// Sequence binds one shader, pushes its parameters and brackets the shader passes the scene
// renderer draws geometry in.
type Sequence struct {
	rp    *renderPath
	id    int
	index int
	phase int

	shaderAlias     string
	technique       string
	shaderUpdates   bool
	firstLightAlpha bool
	mvpOnly         bool
	params          paramBlock

	rpShaderIndex int
	inBegin       bool
	inPass        bool
}

// Index returns the sequence's position in its phase.
func (s *Sequence) Index() int {
	return s.index
}

// Phase returns the owning phase.
func (s *Sequence) Phase() *Phase {
	return s.rp.phases[s.phase]
}

func (s *Sequence) ShaderAlias() string {
	return s.shaderAlias
}

func (s *Sequence) SetShaderAlias(alias string) {
	s.shaderAlias = alias
	s.rpShaderIndex = -1
}

func (s *Sequence) Technique() string {
	return s.technique
}

func (s *Sequence) SetTechnique(t string) {
	s.technique = t
}

func (s *Sequence) ShaderUpdatesEnabled() bool {
	return s.shaderUpdates
}

func (s *Sequence) SetShaderUpdatesEnabled(b bool) {
	s.shaderUpdates = b
}

func (s *Sequence) FirstLightAlphaEnabled() bool {
	return s.firstLightAlpha
}

func (s *Sequence) SetFirstLightAlphaEnabled(b bool) {
	s.firstLightAlpha = b
}

func (s *Sequence) MvpOnly() bool {
	return s.mvpOnly
}

func (s *Sequence) SetMvpOnly(b bool) {
	s.mvpOnly = b
}

// SetParam sets a constant shader parameter. The handle of v is ignored.
func (s *Sequence) SetParam(name string, v variable.Variable) {
	s.params.setConst(name, v)
}

// BindParam feeds the shader parameter name from the global variable globalName.
func (s *Sequence) BindParam(name, globalName string) {
	s.params.bind(name, s.rp.registry.HandleByName(globalName))
}

// NumParams returns the number of constant and bound parameters.
func (s *Sequence) NumParams() int {
	return s.params.len()
}

// ShaderIndex returns the resolved index of the shader alias, -1 before Validate.
func (s *Sequence) ShaderIndex() int {
	return s.rpShaderIndex
}

// ShaderBucketIndex returns the bucket index of the sequence shader, used by the scene renderer
// to batch geometry by shader.
func (s *Sequence) ShaderBucketIndex() int {
	if s.rpShaderIndex < 0 {
		panic("renderpath: sequence bucket index requested before Validate")
	}
	return s.rp.shaders[s.rpShaderIndex].bucketIndex
}

// Shader returns the sequence shader, nil before Validate.
func (s *Sequence) Shader() gfx.Shader {
	if s.rpShaderIndex < 0 {
		return nil
	}
	return s.rp.shaders[s.rpShaderIndex].shader
}

// InBegin reports whether the sequence is between Begin and End.
func (s *Sequence) InBegin() bool {
	return s.inBegin
}

// Validate resolves the shader alias on the first call.
//
// Returns:
//   - error: a content error wrapping ErrShaderAliasNotFound
func (s *Sequence) Validate() error {
	if s.rpShaderIndex >= 0 {
		return nil
	}
	idx := s.rp.FindShaderIndex(s.shaderAlias)
	if idx < 0 {
		return contentErr("Sequence", s.shaderAlias, ErrShaderAliasNotFound)
	}
	s.rpShaderIndex = idx
	return nil
}

// Begin pushes parameters, selects the technique and begins the shader.
//
// Returns:
//   - int: the number of shader passes
//   - error: a content error if a bound global is missing or has an unsupported type
func (s *Sequence) Begin() (int, error) {
	if s.inBegin {
		panic(fmt.Sprintf("renderpath: sequence %q: Begin inside Begin", s.shaderAlias))
	}
	if s.rpShaderIndex < 0 {
		panic(fmt.Sprintf("renderpath: sequence %q: Begin before Validate", s.shaderAlias))
	}
	sh := s.rp.shaders[s.rpShaderIndex].shader
	srv := s.rp.server

	if s.shaderUpdates {
		if err := s.params.pull(s.rp.registry); err != nil {
			return 0, contentErr("Sequence", s.shaderAlias, err)
		}
		if err := s.params.apply(sh); err != nil {
			return 0, contentErr("Sequence", s.shaderAlias, err)
		}
	}
	if s.technique != "" && !sh.SetTechnique(s.technique) {
		return 0, contentErr("Sequence", s.shaderAlias, fmt.Errorf("%w: technique %q", ErrInvalidAttribute, s.technique))
	}
	if s.mvpOnly {
		srv.SetHint(gfx.HintMVPOnly, true)
	}
	srv.SetShader(sh)
	n := sh.Begin(true)
	s.inBegin = true
	return n, nil
}

// BeginPass begins shader pass i.
func (s *Sequence) BeginPass(i int) {
	if !s.inBegin || s.inPass {
		panic(fmt.Sprintf("renderpath: sequence %q: BeginPass outside Begin or inside a pass", s.shaderAlias))
	}
	s.rp.shaders[s.rpShaderIndex].shader.BeginPass(i)
	s.inPass = true
}

// EndPass ends the current shader pass.
func (s *Sequence) EndPass() {
	if !s.inPass {
		panic(fmt.Sprintf("renderpath: sequence %q: EndPass without BeginPass", s.shaderAlias))
	}
	s.rp.shaders[s.rpShaderIndex].shader.EndPass()
	s.inPass = false
}

// End ends the shader and clears the MVP hint. The technique selected by Begin stays active.
func (s *Sequence) End() {
	if !s.inBegin {
		panic(fmt.Sprintf("renderpath: sequence %q: End without Begin", s.shaderAlias))
	}
	if s.inPass {
		panic(fmt.Sprintf("renderpath: sequence %q: End inside a pass", s.shaderAlias))
	}
	s.rp.shaders[s.rpShaderIndex].shader.End()
	if s.mvpOnly {
		s.rp.server.SetHint(gfx.HintMVPOnly, false)
	}
	s.inBegin = false
}
