package wgsl

import (
	"strconv"
	"strings"
)

// typeLayout holds the byte size and alignment of a WGSL type in the uniform address space.
type typeLayout struct {
	size  uint64
	align uint64
}

// primitiveLayouts maps host-shareable WGSL scalar, vector and matrix types to their layout.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"f16":  {2, 2},
	"bool": {4, 4},

	"vec2<f32>": {8, 8},
	"vec2f":     {8, 8},
	"vec3<f32>": {12, 16},
	"vec3f":     {12, 16},
	"vec4<f32>": {16, 16},
	"vec4f":     {16, 16},

	"vec2<i32>": {8, 8},
	"vec2i":     {8, 8},
	"vec3<i32>": {12, 16},
	"vec3i":     {12, 16},
	"vec4<i32>": {16, 16},
	"vec4i":     {16, 16},

	"vec2<u32>": {8, 8},
	"vec2u":     {8, 8},
	"vec3<u32>": {12, 16},
	"vec3u":     {12, 16},
	"vec4<u32>": {16, 16},
	"vec4u":     {16, 16},

	"mat2x2<f32>": {16, 8},
	"mat2x2f":     {16, 8},
	"mat3x3<f32>": {48, 16},
	"mat3x3f":     {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

// roundUpAlign rounds value up to the next multiple of alignment, which must be a power of two.
func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout computes the layout of a type name against primitives and already
// resolved structs. Uniform arrays use a 16 byte element stride.
func resolveTypeLayout(typeName string, known map[string]typeLayout) (typeLayout, bool) {
	typeName = strings.Join(strings.Fields(typeName), "")
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := known[typeName]; ok {
		return l, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return typeLayout{}, false
	}

	inner := typeName[len("array<") : len(typeName)-1]
	idx := strings.LastIndex(inner, ",")
	if idx < 0 {
		// runtime sized arrays cannot live in a uniform block
		return typeLayout{}, false
	}
	elem, ok := resolveTypeLayout(inner[:idx], known)
	if !ok {
		return typeLayout{}, false
	}
	count, err := strconv.ParseUint(strings.TrimSpace(inner[idx+1:]), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	align := roundUpAlign(16, elem.align)
	stride := roundUpAlign(align, elem.size)
	return typeLayout{size: count * stride, align: align}, true
}

// layoutStruct assigns offsets to the fields of ps and returns the struct layout.
func layoutStruct(ps parsedStruct, known map[string]typeLayout) ([]Param, typeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	params := make([]Param, 0, len(ps.fields))

	for _, f := range ps.fields {
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return nil, typeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset)
		params = append(params, Param{
			Name:   f.name,
			Type:   f.typeName,
			Kind:   kindOf(f.typeName),
			Offset: offset,
			Size:   fl.size,
			Count:  arrayCount(f.typeName),
		})
		offset += fl.size
		if fl.align > maxAlign {
			maxAlign = fl.align
		}
	}

	// uniform structs are rounded to 16 bytes
	if maxAlign < 16 {
		maxAlign = 16
	}
	return params, typeLayout{size: roundUpAlign(maxAlign, offset), align: maxAlign}, true
}

// resolveStructs lays out every struct whose member types can be resolved, iterating until no
// further progress is made so structs may reference structs declared later.
func resolveStructs(structs []parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)

	for len(remaining) > 0 {
		progress := false
		next := remaining[:0]
		for _, ps := range remaining {
			if _, l, ok := layoutStruct(ps, resolved); ok {
				resolved[ps.name] = l
				progress = true
			} else {
				next = append(next, ps)
			}
		}
		remaining = next
		if !progress {
			break
		}
	}
	return resolved
}

func kindOf(typeName string) ParamKind {
	t := strings.Join(strings.Fields(typeName), "")
	switch {
	case strings.HasPrefix(t, "array<"):
		elem := strings.TrimPrefix(t, "array<")
		if i := strings.LastIndex(elem, ","); i >= 0 {
			elem = elem[:i]
		}
		if kindOf(elem) == KindMatrix {
			return KindMatrixArray
		}
		return KindOther
	case t == "i32" || t == "u32" || t == "bool":
		return KindInt
	case t == "f32":
		return KindFloat
	case t == "vec4f" || t == "vec4<f32>":
		return KindFloat4
	case t == "mat4x4f" || t == "mat4x4<f32>":
		return KindMatrix
	default:
		return KindOther
	}
}

func arrayCount(typeName string) int {
	t := strings.Join(strings.Fields(typeName), "")
	if !strings.HasPrefix(t, "array<") {
		return 1
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(t, "array<"), ">")
	i := strings.LastIndex(inner, ",")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(inner[i+1:])
	if err != nil {
		return 0
	}
	return n
}
