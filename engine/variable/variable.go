// Package variable implements the typed values that flow between game logic and shader
// parameters: the Variable tagged union, the process-wide name/handle Registry and the
// per-owner Context collections.
package variable

import (
	"fmt"
)

// Handle identifies a registry entry. Handles are assigned in declaration order and never reused.
type Handle uint32

// InvalidHandle is returned for lookups that do not resolve to a registry entry.
const InvalidHandle Handle = 0xffffffff

// Type is the tag of a Variable.
type Type int

const (
	// Void is the type of a zero Variable. It carries no value.
	Void Type = iota
	// Int holds a signed integer.
	Int
	// Float holds a single float32.
	Float
	// Float4 holds four float32 components (colors, packed parameters).
	Float4
	// String holds a string.
	String
	// Object holds an opaque reference, usually a gfx.Texture.
	Object
	// Matrix holds a column-major 4x4 float32 matrix.
	Matrix
	// HandleVal holds another variable's Handle.
	HandleVal
	// Vector4 holds a homogeneous vector.
	Vector4
)

var typeNames = [...]string{
	Void:      "void",
	Int:       "int",
	Float:     "float",
	Float4:    "float4",
	String:    "string",
	Object:    "object",
	Matrix:    "matrix",
	HandleVal: "handle",
	Vector4:   "vector4",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType maps a type name as produced by Type.String back to its Type.
//
// Parameters:
//   - s: the type name (e.g. "float4")
//
// Returns:
//   - Type: the parsed type
//   - bool: false if s names no type
func ParseType(s string) (Type, bool) {
	for i, n := range typeNames {
		if n == s {
			return Type(i), true
		}
	}
	return Void, false
}

// Variable is a tagged union of the supported value types, identified by a registry Handle.
// A Variable is a plain value: assigning it copies everything including matrix data.
// The type is fixed when the Variable is created, typed setters panic on a mismatch.
type Variable struct {
	handle Handle
	typ    Type

	i   int
	f   float32
	f4  [4]float32
	m   [16]float32
	s   string
	obj any
	h   Handle
}

// NewVoid creates a Variable without a value.
func NewVoid(h Handle) Variable {
	return Variable{handle: h, typ: Void}
}

// NewInt creates an Int Variable.
func NewInt(h Handle, v int) Variable {
	return Variable{handle: h, typ: Int, i: v}
}

// NewFloat creates a Float Variable.
func NewFloat(h Handle, v float32) Variable {
	return Variable{handle: h, typ: Float, f: v}
}

// NewFloat4 creates a Float4 Variable.
func NewFloat4(h Handle, v [4]float32) Variable {
	return Variable{handle: h, typ: Float4, f4: v}
}

// NewVector4 creates a Vector4 Variable.
func NewVector4(h Handle, v [4]float32) Variable {
	return Variable{handle: h, typ: Vector4, f4: v}
}

// NewString creates a String Variable.
func NewString(h Handle, v string) Variable {
	return Variable{handle: h, typ: String, s: v}
}

// NewObject creates an Object Variable holding an opaque reference.
func NewObject(h Handle, v any) Variable {
	return Variable{handle: h, typ: Object, obj: v}
}

// NewMatrix creates a Matrix Variable. The matrix is copied.
func NewMatrix(h Handle, v [16]float32) Variable {
	return Variable{handle: h, typ: Matrix, m: v}
}

// NewHandle creates a HandleVal Variable referencing another registry entry.
func NewHandle(h Handle, v Handle) Variable {
	return Variable{handle: h, typ: HandleVal, h: v}
}

// Handle returns the registry handle of the variable.
func (v *Variable) Handle() Handle {
	return v.handle
}

// Type returns the variable's type tag.
func (v *Variable) Type() Type {
	return v.typ
}

// Copy returns an independent copy of the variable.
func (v *Variable) Copy() Variable {
	return *v
}

func (v *Variable) Int() int {
	v.mustBe(Int)
	return v.i
}

func (v *Variable) Float() float32 {
	v.mustBe(Float)
	return v.f
}

func (v *Variable) Float4() [4]float32 {
	v.mustBe(Float4)
	return v.f4
}

func (v *Variable) Vector4() [4]float32 {
	v.mustBe(Vector4)
	return v.f4
}

// Str returns the string value. It is not named String to keep fmt's Stringer free.
func (v *Variable) Str() string {
	v.mustBe(String)
	return v.s
}

func (v *Variable) Object() any {
	v.mustBe(Object)
	return v.obj
}

func (v *Variable) Matrix() [16]float32 {
	v.mustBe(Matrix)
	return v.m
}

func (v *Variable) HandleValue() Handle {
	v.mustBe(HandleVal)
	return v.h
}

func (v *Variable) SetInt(x int) {
	v.mustBe(Int)
	v.i = x
}

func (v *Variable) SetFloat(x float32) {
	v.mustBe(Float)
	v.f = x
}

func (v *Variable) SetFloat4(x [4]float32) {
	v.mustBe(Float4)
	v.f4 = x
}

func (v *Variable) SetVector4(x [4]float32) {
	v.mustBe(Vector4)
	v.f4 = x
}

func (v *Variable) SetStr(x string) {
	v.mustBe(String)
	v.s = x
}

func (v *Variable) SetObject(x any) {
	v.mustBe(Object)
	v.obj = x
}

func (v *Variable) SetMatrix(x [16]float32) {
	v.mustBe(Matrix)
	v.m = x
}

func (v *Variable) SetHandleValue(x Handle) {
	v.mustBe(HandleVal)
	v.h = x
}

// SetValue copies the value of other into v. Both variables must have the same type,
// the handle of v is kept.
//
// Parameters:
//   - other: the variable to copy the value from
func (v *Variable) SetValue(other *Variable) {
	v.mustBe(other.typ)
	h := v.handle
	*v = *other
	v.handle = h
}

func (v Variable) String() string {
	switch v.typ {
	case Int:
		return fmt.Sprintf("%d:int(%d)", v.handle, v.i)
	case Float:
		return fmt.Sprintf("%d:float(%g)", v.handle, v.f)
	case Float4, Vector4:
		return fmt.Sprintf("%d:%s(%g %g %g %g)", v.handle, v.typ, v.f4[0], v.f4[1], v.f4[2], v.f4[3])
	case String:
		return fmt.Sprintf("%d:string(%q)", v.handle, v.s)
	case Object:
		return fmt.Sprintf("%d:object(%T)", v.handle, v.obj)
	case Matrix:
		return fmt.Sprintf("%d:matrix(%v)", v.handle, v.m)
	case HandleVal:
		return fmt.Sprintf("%d:handle(%d)", v.handle, v.h)
	default:
		return fmt.Sprintf("%d:void", v.handle)
	}
}

func (v *Variable) mustBe(t Type) {
	if v.typ != t {
		panic(fmt.Sprintf("variable: handle %d is %s, not %s", v.handle, v.typ, t))
	}
}
