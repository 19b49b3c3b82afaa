package variable

import (
	"fmt"
)

// Registry maps variable names and four character codes to stable handles and holds the
// global variable context. A registry is not safe for concurrent use: all declarations,
// reads and writes happen on the render thread.
type Registry interface {
	// DeclareVariable registers a name/fourcc pair and returns its handle.
	// Declaring an existing pair again returns the same handle. If only one of name or
	// fourcc is known, or both are known under different handles, the registry panics.
	// A name that was declared lazily without a code may be bound to an unused code.
	//
	// Parameters:
	//   - name: the variable name
	//   - fourcc: the variable's four character code, or InvalidFourCC
	//
	// Returns:
	//   - Handle: the handle of the pair
	DeclareVariable(name string, fourcc FourCC) Handle

	// HandleByName returns the handle for name, declaring it with an invalid code if needed.
	//
	// Parameters:
	//   - name: the variable name
	//
	// Returns:
	//   - Handle: the variable handle
	HandleByName(name string) Handle

	// HandleByFourCC returns the handle for fourcc, declaring it with the code's string as
	// name if needed.
	//
	// Parameters:
	//   - fourcc: the four character code
	//
	// Returns:
	//   - Handle: the variable handle
	HandleByFourCC(fourcc FourCC) Handle

	// FindHandleByName returns the handle for name without declaring it.
	//
	// Parameters:
	//   - name: the variable name
	//
	// Returns:
	//   - Handle: the handle, or InvalidHandle if name was never declared
	FindHandleByName(name string) Handle

	// Name returns the name a handle was declared with.
	Name(h Handle) string

	// FourCC returns the code a handle was declared with, InvalidFourCC if none.
	FourCC(h Handle) FourCC

	// Len returns the number of declared handles.
	Len() int

	// Globals returns the global variable context.
	Globals() *Context

	// SetGlobalVariable stores v in the global context, replacing a previous value.
	//
	// Parameters:
	//   - v: the variable to store, its handle must come from this registry
	SetGlobalVariable(v Variable)

	// GlobalVariable returns the global value for h, or nil if it was never set.
	//
	// Parameters:
	//   - h: the variable handle
	//
	// Returns:
	//   - *Variable: the stored variable or nil
	GlobalVariable(h Handle) *Variable

	// GlobalVariableByName returns the global value for name, or nil if it was never set.
	GlobalVariableByName(name string) *Variable

	// Typed getters panic if the global context holds no value for h.
	Int(h Handle) int
	Float(h Handle) float32
	Float4(h Handle) [4]float32
	Vector4(h Handle) [4]float32
	Matrix(h Handle) [16]float32
	String(h Handle) string
	Object(h Handle) any

	// Typed setters create the global value if it does not exist yet.
	SetInt(h Handle, v int)
	SetFloat(h Handle, v float32)
	SetFloat4(h Handle, v [4]float32)
	SetVector4(h Handle, v [4]float32)
	SetMatrix(h Handle, v [16]float32)
	SetString(h Handle, v string)
	SetObject(h Handle, v any)

	// Reads returns how many global lookups the registry has served.
	Reads() uint64
}

type registryEntry struct {
	name   string
	fourcc FourCC
}

type registry struct {
	entries  []registryEntry
	byName   map[string]Handle
	byFourCC map[FourCC]Handle
	globals  *Context
	reads    uint64
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry. Declarations listed in the options are applied
// in order.
//
// Parameters:
//   - options: variadic list of RegistryBuilderOption functions
//
// Returns:
//   - Registry: the new registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		byName:   make(map[string]Handle),
		byFourCC: make(map[FourCC]Handle),
		globals:  NewContext(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) DeclareVariable(name string, fourcc FourCC) Handle {
	hn, nameKnown := r.byName[name]
	hf, codeKnown := r.byFourCC[fourcc]
	if fourcc == InvalidFourCC {
		codeKnown = false
	}

	switch {
	case nameKnown && codeKnown:
		if hn != hf {
			panic(fmt.Sprintf("variable: %q is handle %d but %s is handle %d", name, hn, fourcc, hf))
		}
		return hn
	case nameKnown:
		if fourcc == InvalidFourCC {
			return hn
		}
		if r.entries[hn].fourcc != InvalidFourCC {
			panic(fmt.Sprintf("variable: %q already declared with code %s, not %s", name, r.entries[hn].fourcc, fourcc))
		}
		r.entries[hn].fourcc = fourcc
		r.byFourCC[fourcc] = hn
		return hn
	case codeKnown:
		panic(fmt.Sprintf("variable: code %s already declared as %q, not %q", fourcc, r.entries[hf].name, name))
	}

	h := Handle(len(r.entries))
	r.entries = append(r.entries, registryEntry{name: name, fourcc: fourcc})
	r.byName[name] = h
	if fourcc != InvalidFourCC {
		r.byFourCC[fourcc] = h
	}
	Logger().Debug("variable declared", "name", name, "fourcc", fourcc.String(), "handle", h)
	return h
}

func (r *registry) HandleByName(name string) Handle {
	if h, ok := r.byName[name]; ok {
		return h
	}
	return r.DeclareVariable(name, InvalidFourCC)
}

func (r *registry) HandleByFourCC(fourcc FourCC) Handle {
	if h, ok := r.byFourCC[fourcc]; ok {
		return h
	}
	return r.DeclareVariable(fourcc.String(), fourcc)
}

func (r *registry) FindHandleByName(name string) Handle {
	if h, ok := r.byName[name]; ok {
		return h
	}
	return InvalidHandle
}

func (r *registry) Name(h Handle) string {
	if int(h) >= len(r.entries) {
		return ""
	}
	return r.entries[h].name
}

func (r *registry) FourCC(h Handle) FourCC {
	if int(h) >= len(r.entries) {
		return InvalidFourCC
	}
	return r.entries[h].fourcc
}

func (r *registry) Len() int {
	return len(r.entries)
}

func (r *registry) Globals() *Context {
	return r.globals
}

func (r *registry) SetGlobalVariable(v Variable) {
	if int(v.handle) >= len(r.entries) {
		panic(fmt.Sprintf("variable: handle %d was not declared", v.handle))
	}
	r.globals.SetVariable(v)
}

func (r *registry) GlobalVariable(h Handle) *Variable {
	r.reads++
	return r.globals.GetVariable(h)
}

func (r *registry) GlobalVariableByName(name string) *Variable {
	h := r.FindHandleByName(name)
	if h == InvalidHandle {
		r.reads++
		return nil
	}
	return r.GlobalVariable(h)
}

func (r *registry) Int(h Handle) int {
	return r.mustGet(h).Int()
}

func (r *registry) Float(h Handle) float32 {
	return r.mustGet(h).Float()
}

func (r *registry) Float4(h Handle) [4]float32 {
	return r.mustGet(h).Float4()
}

func (r *registry) Vector4(h Handle) [4]float32 {
	return r.mustGet(h).Vector4()
}

func (r *registry) Matrix(h Handle) [16]float32 {
	return r.mustGet(h).Matrix()
}

func (r *registry) String(h Handle) string {
	return r.mustGet(h).Str()
}

func (r *registry) Object(h Handle) any {
	return r.mustGet(h).Object()
}

func (r *registry) SetInt(h Handle, v int) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetInt(v)
		return
	}
	r.SetGlobalVariable(NewInt(h, v))
}

func (r *registry) SetFloat(h Handle, v float32) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetFloat(v)
		return
	}
	r.SetGlobalVariable(NewFloat(h, v))
}

func (r *registry) SetFloat4(h Handle, v [4]float32) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetFloat4(v)
		return
	}
	r.SetGlobalVariable(NewFloat4(h, v))
}

func (r *registry) SetVector4(h Handle, v [4]float32) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetVector4(v)
		return
	}
	r.SetGlobalVariable(NewVector4(h, v))
}

func (r *registry) SetMatrix(h Handle, v [16]float32) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetMatrix(v)
		return
	}
	r.SetGlobalVariable(NewMatrix(h, v))
}

func (r *registry) SetString(h Handle, v string) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetStr(v)
		return
	}
	r.SetGlobalVariable(NewString(h, v))
}

func (r *registry) SetObject(h Handle, v any) {
	if gv := r.globals.GetVariable(h); gv != nil {
		gv.SetObject(v)
		return
	}
	r.SetGlobalVariable(NewObject(h, v))
}

func (r *registry) Reads() uint64 {
	return r.reads
}

func (r *registry) mustGet(h Handle) *Variable {
	v := r.GlobalVariable(h)
	if v == nil {
		panic(fmt.Sprintf("variable: global %q (handle %d) is not set", r.Name(h), h))
	}
	return v
}
