package renderpath

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// Root element names of the two supported dialects.
const (
	DialectRenderPath  = "RenderPath"
	DialectFrameShader = "FrameShader"
)

func (rp *renderPath) OpenXml() error {
	if rp.xmlOpened {
		return nil
	}
	if rp.filename == "" {
		return contentErr("RenderPath", "", fmt.Errorf("%w: no filename", ErrFileRead))
	}
	data, err := os.ReadFile(rp.filename)
	if err != nil {
		return contentErr("RenderPath", rp.filename, fmt.Errorf("%w: %w", ErrFileRead, err))
	}
	root, err := readRootElement(data)
	if err != nil {
		return contentErr("RenderPath", rp.filename, err)
	}
	a := attrs(root.Attr)
	rp.dialect = root.Name.Local
	rp.name = a.str("name", "")
	rp.shaderPath = a.str("shaderPath", "")
	rp.source = data
	rp.xmlOpened = true
	rp.logger.Debug("render path header read", "file", rp.filename, "dialect", rp.dialect, "shaderRoot", rp.ShaderRoot())
	return nil
}

// readRootElement returns the first start element of data.
func readRootElement(data []byte) (xml.StartElement, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		t, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return xml.StartElement{}, fmt.Errorf("%w: empty document", ErrUnknownRoot)
			}
			return xml.StartElement{}, fmt.Errorf("%w: %w", ErrInvalidAttribute, err)
		}
		if se, ok := t.(xml.StartElement); ok {
			switch se.Name.Local {
			case DialectRenderPath, DialectFrameShader:
				return se, nil
			}
			return xml.StartElement{}, fmt.Errorf("%w: <%s>", ErrUnknownRoot, se.Name.Local)
		}
	}
}

// xmlParser builds the node tree of a render path from its source. Nesting is tracked by the
// current node of each level, a level is cleared by its end element.
type xmlParser struct {
	rp  *renderPath
	dir string

	section *Section
	pass    *Pass
	phase   *Phase
	seq     *Sequence
	depth   int
}

// parse builds the tree from the source read by OpenXml.
func (rp *renderPath) parse() error {
	p := &xmlParser{rp: rp, dir: filepath.Dir(rp.filename)}
	d := xml.NewDecoder(bytes.NewReader(rp.source))
	for {
		t, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return contentErr("RenderPath", rp.filename, fmt.Errorf("%w: %w", ErrInvalidAttribute, err))
		}
		switch se := t.(type) {
		case xml.StartElement:
			p.depth++
			if err := p.start(se); err != nil {
				return err
			}
		case xml.EndElement:
			p.depth--
			p.end(se.Name.Local)
		}
	}
}

func (p *xmlParser) start(se xml.StartElement) error {
	a := attrs(se.Attr)
	nm := se.Name.Local
	switch {
	case p.depth == 1:
		if nm == DialectFrameShader {
			p.section = p.rp.AddSection(a.str("name", ""))
		}
		return nil
	case nm == "Shaders":
		return nil
	case nm == "Shader":
		return p.shader(a)
	case nm == "RenderTarget":
		return p.renderTarget(a)
	case nm == "Float" || nm == "Float4" || nm == "Int" || nm == "Texture":
		return p.param(nm, a)
	case nm == "Section":
		return p.sectionElem(a)
	case nm == "Pass":
		return p.passElem(a)
	case nm == "Phase":
		return p.phaseElem(a)
	case nm == "Sequence":
		return p.sequenceElem(a)
	}
	return contentErr(nm, a.str("name", ""), ErrUnexpectedElement)
}

func (p *xmlParser) end(nm string) {
	switch nm {
	case "Sequence":
		p.seq = nil
	case "Phase":
		p.phase = nil
	case "Pass":
		p.pass = nil
	case "Section":
		p.section = nil
	}
}

func (p *xmlParser) shader(a attrs) error {
	name := a.str("name", "")
	if p.rp.FindShaderIndex(name) >= 0 {
		return contentErr("Shader", name, ErrDuplicateName)
	}
	p.rp.AddShader(name, a.str("file", ""))
	return nil
}

func (p *xmlParser) renderTarget(a attrs) error {
	name := a.str("name", "")
	if p.rp.FindRenderTargetIndex(name) >= 0 {
		return contentErr("RenderTarget", name, ErrDuplicateName)
	}
	format, err := gfx.ParsePixelFormat(a.str("format", ""))
	if err != nil {
		return contentErr("RenderTarget", name, fmt.Errorf("%w: %w", ErrUnknownPixelFormat, err))
	}
	relSize, err := a.float("relSize", 0)
	if err != nil {
		return contentErr("RenderTarget", name, err)
	}
	width, err := a.int("width", 0)
	if err != nil {
		return contentErr("RenderTarget", name, err)
	}
	height, err := a.int("height", 0)
	if err != nil {
		return contentErr("RenderTarget", name, err)
	}
	if relSize <= 0 && (width <= 0 || height <= 0) {
		relSize = 1
	}
	p.rp.AddRenderTarget(name, format, relSize, width, height)
	return nil
}

func (p *xmlParser) sectionElem(a attrs) error {
	name := a.str("name", "")
	if p.rp.dialect != DialectRenderPath || p.section != nil {
		return contentErr("Section", name, ErrUnexpectedElement)
	}
	if p.rp.FindSectionIndex(name) >= 0 {
		return contentErr("Section", name, ErrDuplicateName)
	}
	p.section = p.rp.AddSection(name)
	return nil
}

func (p *xmlParser) passElem(a attrs) error {
	name := a.str("name", "")
	if p.section == nil || p.pass != nil {
		return contentErr("Pass", name, ErrUnexpectedElement)
	}
	pass := p.section.AddPass(name)
	pass.SetKind(StringToPassKind(a.str("type", "")))
	pass.SetShaderAlias(a.str("shader", ""))
	pass.SetTechnique(a.str("technique", ""))

	if v, ok := a.get("renderTarget"); ok {
		pass.SetRenderTargetName(0, v)
	}
	for i := 0; i < MaxRenderTargets; i++ {
		if v, ok := a.get("renderTarget" + strconv.Itoa(i)); ok {
			pass.SetRenderTargetName(i, v)
		}
	}

	if c, ok, err := a.float4("clearColor"); err != nil {
		return contentErr("Pass", name, err)
	} else if ok {
		pass.SetClearColor(c)
	}
	if _, ok := a.get("clearDepth"); ok {
		d, err := a.float("clearDepth", 1)
		if err != nil {
			return contentErr("Pass", name, err)
		}
		pass.SetClearDepth(d)
	}
	if _, ok := a.get("clearStencil"); ok {
		s, err := a.int("clearStencil", 0)
		if err != nil {
			return contentErr("Pass", name, err)
		}
		pass.SetClearStencil(s)
	}

	flags := []struct {
		attr string
		set  func(bool)
	}{
		{"drawQuad", pass.SetDrawQuad},
		{"drawGui", pass.SetDrawGui},
		{"occlusionQuery", pass.SetOcclusionQuery},
		{"shadowEnabledCondition", pass.SetShadowEnabledCondition},
	}
	for _, f := range flags {
		if _, ok := a.get(f.attr); !ok {
			continue
		}
		b, err := a.bool(f.attr, false)
		if err != nil {
			return contentErr("Pass", name, err)
		}
		f.set(b)
	}
	if v, ok := a.get("drawShadows"); ok {
		t, err := StringToShadowTechnique(v)
		if err != nil {
			return contentErr("Pass", name, err)
		}
		pass.SetShadowTechnique(t)
	}
	p.pass = pass
	return nil
}

func (p *xmlParser) phaseElem(a attrs) error {
	name := a.str("name", "")
	if p.pass == nil || p.phase != nil {
		return contentErr("Phase", name, ErrUnexpectedElement)
	}
	ph := p.pass.AddPhase(name)
	ph.SetShaderAlias(a.str("shader", ""))
	ph.SetTechnique(a.str("technique", ""))
	if v, ok := a.get("sort"); ok {
		o, err := StringToSortingOrder(v)
		if err != nil {
			return contentErr("Phase", name, err)
		}
		ph.SetSortOrder(o)
	}
	if v, ok := a.get("lightMode"); ok {
		m, err := StringToLightMode(v)
		if err != nil {
			return contentErr("Phase", name, err)
		}
		ph.SetLightMode(m)
	}
	p.phase = ph
	return nil
}

func (p *xmlParser) sequenceElem(a attrs) error {
	alias := a.str("shader", "")
	if p.phase == nil || p.seq != nil {
		return contentErr("Sequence", alias, ErrUnexpectedElement)
	}
	s := p.phase.AddSequence(alias)
	s.SetTechnique(a.str("technique", ""))
	var err error
	if s.shaderUpdates, err = a.bool("shaderUpdates", true); err != nil {
		return contentErr("Sequence", alias, err)
	}
	if s.firstLightAlpha, err = a.bool("firstLightAlpha", false); err != nil {
		return contentErr("Sequence", alias, err)
	}
	if s.mvpOnly, err = a.bool("mvpOnly", false); err != nil {
		return contentErr("Sequence", alias, err)
	}
	p.seq = s
	return nil
}

// paramTarget receives shader parameters declared inside a Pass or Sequence.
type paramTarget interface {
	SetParam(name string, v variable.Variable)
	BindParam(name, globalName string)
}

// param handles Float, Float4, Int and Texture elements. Inside a Pass or Sequence they set a
// shader parameter, at the root they declare a global variable.
func (p *xmlParser) param(elem string, a attrs) error {
	name := a.str("name", "")
	var target paramTarget
	switch {
	case p.seq != nil:
		target = p.seq
	case p.phase != nil:
		return contentErr(elem, name, ErrUnexpectedElement)
	case p.pass != nil:
		target = p.pass
	case p.section != nil && p.rp.dialect == DialectRenderPath:
		return contentErr(elem, name, ErrUnexpectedElement)
	}

	if target != nil {
		if g, ok := a.get("variable"); ok {
			target.BindParam(name, g)
			return nil
		}
		v, err := p.value(elem, name, variable.InvalidHandle, a)
		if err != nil {
			return err
		}
		target.SetParam(name, v)
		return nil
	}

	v, err := p.value(elem, name, p.rp.registry.HandleByName(name), a)
	if err != nil {
		return err
	}
	p.rp.AddVariable(v)
	return nil
}

// value builds a variable of the element's type from the value attribute.
func (p *xmlParser) value(elem, name string, h variable.Handle, a attrs) (variable.Variable, error) {
	switch elem {
	case "Float":
		f, err := a.float("value", 0)
		if err != nil {
			return variable.Variable{}, contentErr(elem, name, err)
		}
		return variable.NewFloat(h, f), nil
	case "Float4":
		f4, _, err := a.float4("value")
		if err != nil {
			return variable.Variable{}, contentErr(elem, name, err)
		}
		return variable.NewFloat4(h, f4), nil
	case "Int":
		i, err := a.int("value", 0)
		if err != nil {
			return variable.Variable{}, contentErr(elem, name, err)
		}
		return variable.NewInt(h, i), nil
	default:
		// a value naming a declared render target samples that target
		if i := p.rp.FindRenderTargetIndex(a.str("value", "")); i >= 0 {
			return variable.NewObject(h, p.rp.RenderTarget(i)), nil
		}
		tex, err := p.rp.loadTexture(name, p.resolve(a.str("value", "")))
		if err != nil {
			return variable.Variable{}, err
		}
		return variable.NewObject(h, tex), nil
	}
}

// resolve makes a content path relative to the render path file.
func (p *xmlParser) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}

// loadTexture loads a texture referenced by the file. The render path releases it on Close.
func (rp *renderPath) loadTexture(name, path string) (gfx.Texture, error) {
	tex, err := rp.server.LoadTexture(name, path)
	if err != nil {
		return nil, contentErr("Texture", name, fmt.Errorf("%w: %w", ErrTextureLoad, err))
	}
	rp.textures = append(rp.textures, tex)
	return tex, nil
}

// attrs wraps the attributes of one element.
type attrs []xml.Attr

func (a attrs) get(name string) (string, bool) {
	for _, at := range a {
		if at.Name.Local == name {
			return at.Value, true
		}
	}
	return "", false
}

func (a attrs) str(name, def string) string {
	if v, ok := a.get(name); ok {
		return v
	}
	return def
}

func (a attrs) float(name string, def float32) (float32, error) {
	v, ok := a.get(name)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, v)
	}
	return float32(f), nil
}

func (a attrs) int(name string, def int) (int, error) {
	v, ok := a.get(name)
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, v)
	}
	return i, nil
}

func (a attrs) bool(name string, def bool) (bool, error) {
	v, ok := a.get(name)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return def, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, v)
}

// float4 parses four space separated numbers. The bool result reports whether the attribute
// is present.
func (a attrs) float4(name string) ([4]float32, bool, error) {
	var out [4]float32
	v, ok := a.get(name)
	if !ok {
		return out, false, nil
	}
	fields := strings.Fields(strings.ReplaceAll(v, ",", " "))
	if len(fields) != 4 {
		return out, true, fmt.Errorf("%w: %s=%q needs 4 components", ErrInvalidAttribute, name, v)
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, true, fmt.Errorf("%w: %s=%q", ErrInvalidAttribute, name, v)
		}
		out[i] = float32(x)
	}
	return out, true, nil
}
