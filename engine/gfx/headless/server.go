// Package headless implements gfx.Server without a GPU. Every device call is recorded so render
// paths can be validated and inspected in tests and on CI machines.
package headless

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

// MaxRenderTargets is the number of color attachment slots.
const MaxRenderTargets = 4

// Call is one recorded device call.
type Call struct {
	Op     string
	Target string
	Detail string
}

func (c Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Op)
	if c.Target != "" {
		sb.WriteString(" ")
		sb.WriteString(c.Target)
	}
	if c.Detail != "" {
		sb.WriteString(" ")
		sb.WriteString(c.Detail)
	}
	return sb.String()
}

// Recorded operation names.
const (
	OpNewRenderTarget = "NewRenderTarget"
	OpLoadTexture     = "LoadTexture"
	OpNewShader       = "NewShader"
	OpSetRenderTarget = "SetRenderTarget"
	OpBeginScene      = "BeginScene"
	OpEndScene        = "EndScene"
	OpPresent         = "Present"
	OpClear           = "Clear"
	OpSetShader       = "SetShader"
	OpSetMesh         = "SetMesh"
	OpDrawIndexed     = "DrawIndexed"
	OpScissor         = "SetScissorRect"
	OpSetHint         = "SetHint"
	OpSetParam        = "SetParam"
	OpSetTechnique    = "SetTechnique"
	OpShaderBegin     = "ShaderBegin"
	OpShaderBeginPass = "ShaderBeginPass"
	OpShaderEndPass   = "ShaderEndPass"
	OpShaderEnd       = "ShaderEnd"
)

// Server is a recording gfx.Server.
type Server interface {
	gfx.Server

	// Calls returns the recorded calls since the last ResetCalls.
	Calls() []Call

	// CallsOf returns the recorded calls with the given op.
	CallsOf(op string) []Call

	// ResetCalls drops the recorded calls.
	ResetCalls()

	// SetDisplaySize changes the backbuffer size, as a window resize would.
	SetDisplaySize(width, height int)

	// RefuseScenes makes BeginScene return false until called again with false.
	RefuseScenes(refuse bool)
}

type server struct {
	width, height int
	strict        bool
	passOverride  map[string]int
	refuse        bool

	calls   []Call
	targets [MaxRenderTargets]gfx.Texture
	inScene bool
	shader  gfx.Shader
	mesh    gfx.Mesh
	hints   [gfx.NumHints]bool
	stacks  [gfx.NumTransformTypes][][16]float32
}

var _ Server = &server{}

// NewServer creates a recording server with a 1920x1080 display unless configured otherwise.
//
// Parameters:
//   - options: variadic list of ServerBuilderOption functions
//
// Returns:
//   - Server: the new server
func NewServer(options ...ServerBuilderOption) Server {
	s := &server{
		width:        1920,
		height:       1080,
		passOverride: make(map[string]int),
	}
	for i := range s.stacks {
		s.stacks[i] = [][16]float32{gfx.Identity()}
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *server) record(op, target, detail string) {
	s.calls = append(s.calls, Call{Op: op, Target: target, Detail: detail})
}

func (s *server) Calls() []Call {
	return s.calls
}

func (s *server) CallsOf(op string) []Call {
	var out []Call
	for _, c := range s.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *server) ResetCalls() {
	s.calls = s.calls[:0]
}

func (s *server) SetDisplaySize(width, height int) {
	s.width, s.height = width, height
}

func (s *server) RefuseScenes(refuse bool) {
	s.refuse = refuse
}

func (s *server) DisplaySize() (int, int) {
	return s.width, s.height
}

func (s *server) NewRenderTarget(name string, width, height int, format gfx.PixelFormat) (gfx.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("headless: render target %s has invalid size %dx%d", name, width, height)
	}
	s.record(OpNewRenderTarget, name, fmt.Sprintf("%dx%d %s", width, height, format))
	return &texture{name: name, width: width, height: height, format: format}, nil
}

func (s *server) LoadTexture(name, path string) (gfx.Texture, error) {
	w, h, err := common.DecodeImageSize(path)
	if err != nil {
		return nil, err
	}
	s.record(OpLoadTexture, name, path)
	return &texture{name: name, width: w, height: h, format: gfx.FormatA8R8G8B8}, nil
}

func (s *server) NewShader(name, path string) gfx.Shader {
	s.record(OpNewShader, name, path)
	return &shader{server: s, name: name, filename: path, passOverride: s.passOverride[name]}
}

func (s *server) NewMesh(name string) gfx.Mesh {
	return &mesh{name: name}
}

func (s *server) SetRenderTarget(index int, tex gfx.Texture) {
	if index < 0 || index >= MaxRenderTargets {
		panic(fmt.Sprintf("headless: render target index %d out of range", index))
	}
	s.targets[index] = tex
	target := "backbuffer"
	if tex != nil {
		target = tex.Name()
	} else if index > 0 {
		target = "none"
	}
	s.record(OpSetRenderTarget, target, fmt.Sprintf("index=%d", index))
}

func (s *server) RenderTarget(index int) gfx.Texture {
	if index < 0 || index >= MaxRenderTargets {
		return nil
	}
	return s.targets[index]
}

func (s *server) BeginScene() bool {
	if s.inScene {
		panic("headless: BeginScene inside scene")
	}
	if s.refuse {
		s.record(OpBeginScene, s.targetName(), "refused")
		return false
	}
	s.inScene = true
	s.record(OpBeginScene, s.targetName(), "")
	return true
}

func (s *server) EndScene() {
	if !s.inScene {
		panic("headless: EndScene outside scene")
	}
	s.inScene = false
	s.record(OpEndScene, s.targetName(), "")
}

func (s *server) Present() {
	s.record(OpPresent, "", "")
}

func (s *server) Clear(flags gfx.ClearFlags, color [4]float32, depth float32, stencil int) {
	s.record(OpClear, s.targetName(), fmt.Sprintf("flags=%s color=%g,%g,%g,%g depth=%g stencil=%d",
		flags, color[0], color[1], color[2], color[3], depth, stencil))
}

func (s *server) SetShader(sh gfx.Shader) {
	s.shader = sh
	name := ""
	if sh != nil {
		name = sh.Name()
	}
	s.record(OpSetShader, name, "")
}

func (s *server) Shader() gfx.Shader {
	return s.shader
}

func (s *server) SetMesh(m gfx.Mesh) {
	s.mesh = m
	name := ""
	if m != nil {
		name = m.Name()
	}
	s.record(OpSetMesh, name, "")
}

func (s *server) DrawIndexed(first, count int) {
	if s.mesh == nil {
		panic("headless: DrawIndexed without mesh")
	}
	if first < 0 || first+count > s.mesh.NumIndices() {
		panic(fmt.Sprintf("headless: DrawIndexed range %d+%d exceeds %d indices", first, count, s.mesh.NumIndices()))
	}
	s.record(OpDrawIndexed, s.mesh.Name(), fmt.Sprintf("first=%d count=%d", first, count))
}

func (s *server) SetScissorRect(r gfx.Rect) {
	s.record(OpScissor, "", fmt.Sprintf("%d,%d,%d,%d", r.MinX, r.MinY, r.MaxX, r.MaxY))
}

func (s *server) SetHint(h gfx.Hint, enabled bool) {
	s.hints[h] = enabled
	s.record(OpSetHint, fmt.Sprintf("hint=%d", h), fmt.Sprintf("%t", enabled))
}

func (s *server) Hint(h gfx.Hint) bool {
	return s.hints[h]
}

func (s *server) SetTransform(t gfx.TransformType, m [16]float32) {
	st := s.stacks[t]
	st[len(st)-1] = m
}

func (s *server) Transform(t gfx.TransformType) [16]float32 {
	st := s.stacks[t]
	return st[len(st)-1]
}

func (s *server) PushTransform(t gfx.TransformType, m [16]float32) {
	s.stacks[t] = append(s.stacks[t], m)
}

func (s *server) PopTransform(t gfx.TransformType) [16]float32 {
	st := s.stacks[t]
	if len(st) == 1 {
		panic("headless: transform stack underflow")
	}
	top := st[len(st)-1]
	s.stacks[t] = st[:len(st)-1]
	return top
}

func (s *server) targetName() string {
	if s.targets[0] == nil {
		return "backbuffer"
	}
	return s.targets[0].Name()
}
