package headless

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/wgsl"
)

type shader struct {
	server       *server
	name         string
	filename     string
	passOverride int

	reflection *wgsl.Reflection
	technique  string
	values     map[string]any

	begun      bool
	activePass int
}

var _ gfx.Shader = &shader{}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Filename() string {
	return s.filename
}

func (s *shader) Load() error {
	src, err := os.ReadFile(s.filename)
	if err != nil {
		return fmt.Errorf("headless: shader %s: %w", s.name, err)
	}
	r, err := wgsl.Reflect(string(src))
	if err != nil {
		return fmt.Errorf("headless: shader %s: %w", s.name, err)
	}
	if s.server.strict {
		if err := wgsl.Validate(string(src)); err != nil {
			return fmt.Errorf("headless: shader %s: %w", s.name, err)
		}
	}
	s.reflection = r
	s.technique = r.Techniques[0].Name
	s.values = make(map[string]any)
	s.activePass = -1
	return nil
}

func (s *shader) IsLoaded() bool {
	return s.reflection != nil
}

func (s *shader) SetTechnique(name string) bool {
	s.mustBeLoaded()
	if _, ok := s.reflection.Technique(name); !ok {
		return false
	}
	s.technique = name
	s.server.record(OpSetTechnique, s.name, name)
	return true
}

func (s *shader) Technique() string {
	return s.technique
}

func (s *shader) IsParameterUsed(name string) bool {
	s.mustBeLoaded()
	return s.reflection.HasParameter(name)
}

// Value returns the last value set for a parameter. It is used by tests through the
// ParamValue helper.
func (s *shader) Value(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *shader) set(name string, v any, detail string) {
	s.mustBeLoaded()
	s.values[name] = v
	s.server.record(OpSetParam, s.name, name+"="+detail)
}

func (s *shader) SetInt(name string, v int) {
	s.set(name, v, fmt.Sprint(v))
}

func (s *shader) SetFloat(name string, v float32) {
	s.set(name, v, fmt.Sprint(v))
}

func (s *shader) SetFloat4(name string, v [4]float32) {
	s.set(name, v, fmt.Sprint(v))
}

func (s *shader) SetVector4(name string, v [4]float32) {
	s.set(name, v, fmt.Sprint(v))
}

func (s *shader) SetMatrix(name string, v [16]float32) {
	s.set(name, v, "matrix")
}

func (s *shader) SetMatrixArray(name string, v [][16]float32) {
	s.set(name, append([][16]float32(nil), v...), fmt.Sprintf("matrix[%d]", len(v)))
}

func (s *shader) SetTexture(name string, t gfx.Texture) {
	detail := "nil"
	if t != nil {
		detail = t.Name()
	}
	s.set(name, t, detail)
}

func (s *shader) Begin(saveState bool) int {
	s.mustBeLoaded()
	if s.begun {
		panic(fmt.Sprintf("headless: shader %s: Begin inside Begin", s.name))
	}
	s.begun = true
	n := s.passOverride
	if n == 0 {
		t, _ := s.reflection.Technique(s.technique)
		n = len(t.Passes)
	}
	s.server.record(OpShaderBegin, s.name, fmt.Sprintf("technique=%s passes=%d", s.technique, n))
	return n
}

func (s *shader) BeginPass(i int) {
	if !s.begun || s.activePass >= 0 {
		panic(fmt.Sprintf("headless: shader %s: BeginPass(%d) outside Begin or inside a pass", s.name, i))
	}
	s.activePass = i
	s.server.record(OpShaderBeginPass, s.name, fmt.Sprint(i))
}

func (s *shader) EndPass() {
	if s.activePass < 0 {
		panic(fmt.Sprintf("headless: shader %s: EndPass without BeginPass", s.name))
	}
	s.server.record(OpShaderEndPass, s.name, fmt.Sprint(s.activePass))
	s.activePass = -1
}

func (s *shader) End() {
	if !s.begun {
		panic(fmt.Sprintf("headless: shader %s: End without Begin", s.name))
	}
	s.begun = false
	s.server.record(OpShaderEnd, s.name, "")
}

func (s *shader) Release() {
	s.reflection = nil
	s.values = nil
}

func (s *shader) mustBeLoaded() {
	if s.reflection == nil {
		panic(fmt.Sprintf("headless: shader %s used before Load", s.name))
	}
}

// ParamValue returns the last value written to a parameter of a headless shader.
//
// Parameters:
//   - sh: a shader created by a headless server
//   - name: the parameter name
//
// Returns:
//   - any: the value
//   - bool: false if the parameter was never set or sh is not a headless shader
func ParamValue(sh gfx.Shader, name string) (any, bool) {
	hs, ok := sh.(*shader)
	if !ok {
		return nil, false
	}
	return hs.Value(name)
}
