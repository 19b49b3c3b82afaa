// Package wgsl reflects the render-path facing surface of WGSL shaders: the uniform parameter
// block, sampled texture bindings, and the technique/pass structure encoded in fragment entry
// point names. Validate compiles a shader with naga to catch errors before a GPU is involved.
package wgsl

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultTechnique is the technique of a shader whose only fragment entry point is fs_main.
const DefaultTechnique = "default"

var (
	// ErrNoVertexEntry is returned for shaders without an @vertex function.
	ErrNoVertexEntry = errors.New("wgsl: no @vertex entry point")
	// ErrNoFragmentEntry is returned for shaders without an @fragment function.
	ErrNoFragmentEntry = errors.New("wgsl: no @fragment entry point")
	// ErrPassGap is returned when a technique's pass indices are not contiguous from zero.
	ErrPassGap = errors.New("wgsl: technique passes are not contiguous")
	// ErrUniformLayout is returned when the uniform block contains a type without a known layout.
	ErrUniformLayout = errors.New("wgsl: cannot lay out uniform block")
)

// ParamKind classifies a uniform member by the setter that writes it.
type ParamKind int

const (
	KindOther ParamKind = iota
	KindInt
	KindFloat
	KindFloat4
	KindMatrix
	KindMatrixArray
)

// Param is one member of the shader's uniform block.
type Param struct {
	Name   string
	Type   string
	Kind   ParamKind
	Offset uint64
	Size   uint64
	// Count is the element count of array members, 1 otherwise.
	Count int
}

// Binding is a resource declared with @group/@binding.
type Binding struct {
	Name    string
	Type    string
	Group   int
	Binding int
}

// Technique lists the fragment entry points of one technique, indexed by pass.
type Technique struct {
	Name   string
	Passes []string
}

// Reflection is the result of Reflect.
type Reflection struct {
	VertexEntry string
	// Techniques are ordered by the first appearance of their entry points.
	Techniques []Technique

	// Uniform is the uniform block binding, Uniform.Name is empty if the shader has none.
	Uniform     Binding
	Params      []Param
	UniformSize uint64

	Textures []Binding
	Samplers []Binding
}

// Reflect parses WGSL source and extracts its parameters, resources and techniques.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - *Reflection: the reflected shader interface
//   - error: an error if entry points are missing, passes are not contiguous, or the
//     uniform block has members of unknown size
func Reflect(source string) (*Reflection, error) {
	cleaned := stripComments(source)
	r := &Reflection{}

	vertex := parseEntries(cleaned, vertexEntryRegex)
	if len(vertex) == 0 {
		return nil, ErrNoVertexEntry
	}
	r.VertexEntry = vertex[0]

	fragments := parseEntries(cleaned, fragmentEntryRegex)
	if len(fragments) == 0 {
		return nil, ErrNoFragmentEntry
	}
	techniques, err := buildTechniques(fragments)
	if err != nil {
		return nil, err
	}
	r.Techniques = techniques

	structs := parseStructBlocks(cleaned)
	known := resolveStructs(structs)

	for _, b := range parseBindings(cleaned) {
		binding := Binding{Name: b.name, Type: b.typeName, Group: b.group, Binding: b.binding}
		switch {
		case b.addressSpace == "uniform":
			if r.Uniform.Name != "" {
				return nil, fmt.Errorf("wgsl: more than one uniform block (%s, %s)", r.Uniform.Name, b.name)
			}
			if err := r.reflectUniform(binding, structs, known); err != nil {
				return nil, err
			}
		case strings.HasPrefix(b.typeName, "texture_"):
			r.Textures = append(r.Textures, binding)
		case b.typeName == "sampler" || b.typeName == "sampler_comparison":
			r.Samplers = append(r.Samplers, binding)
		}
	}

	return r, nil
}

func (r *Reflection) reflectUniform(b Binding, structs []parsedStruct, known map[string]typeLayout) error {
	for _, ps := range structs {
		if ps.name != b.Type {
			continue
		}
		params, layout, ok := layoutStruct(ps, known)
		if !ok {
			return fmt.Errorf("%w %s: %s", ErrUniformLayout, b.Name, b.Type)
		}
		r.Uniform = b
		r.Params = params
		r.UniformSize = layout.size
		return nil
	}
	return fmt.Errorf("%w %s: struct %s not found", ErrUniformLayout, b.Name, b.Type)
}

func buildTechniques(entries []string) ([]Technique, error) {
	type entryPass struct {
		pass  int
		entry string
	}
	var order []string
	byName := make(map[string][]entryPass)
	for _, e := range entries {
		tech, pass := splitEntryName(e)
		if _, ok := byName[tech]; !ok {
			order = append(order, tech)
		}
		byName[tech] = append(byName[tech], entryPass{pass: pass, entry: e})
	}

	out := make([]Technique, 0, len(order))
	for _, name := range order {
		passes := byName[name]
		sort.SliceStable(passes, func(i, j int) bool { return passes[i].pass < passes[j].pass })
		t := Technique{Name: name, Passes: make([]string, len(passes))}
		for i, p := range passes {
			if p.pass != i {
				return nil, fmt.Errorf("%w: %s pass %d (entry %s)", ErrPassGap, name, i, p.entry)
			}
			t.Passes[i] = p.entry
		}
		out = append(out, t)
	}
	return out, nil
}

// Technique returns the technique with the given name.
func (r *Reflection) Technique(name string) (*Technique, bool) {
	for i := range r.Techniques {
		if r.Techniques[i].Name == name {
			return &r.Techniques[i], true
		}
	}
	return nil, false
}

// Param returns the uniform member with the given name.
func (r *Reflection) Param(name string) (Param, bool) {
	for _, p := range r.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Texture returns the texture binding with the given name.
func (r *Reflection) Texture(name string) (Binding, bool) {
	for _, t := range r.Textures {
		if t.Name == name {
			return t, true
		}
	}
	return Binding{}, false
}

// HasParameter reports whether name is a uniform member or a texture binding.
func (r *Reflection) HasParameter(name string) bool {
	if _, ok := r.Param(name); ok {
		return true
	}
	_, ok := r.Texture(name)
	return ok
}
