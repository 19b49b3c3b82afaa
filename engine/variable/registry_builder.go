package variable

// RegistryBuilderOption configures a registry at construction time.
type RegistryBuilderOption func(*registry)

// WithDeclaration declares one name/code pair. An empty code declares the name only.
//
// Parameters:
//   - name: the variable name
//   - code: the four character code, may be empty
//
// Returns:
//   - RegistryBuilderOption: a function that applies the declaration
func WithDeclaration(name, code string) RegistryBuilderOption {
	return func(r *registry) {
		fourcc := InvalidFourCC
		if code != "" {
			fourcc = MakeFourCC(code)
		}
		r.DeclareVariable(name, fourcc)
	}
}

// WithGlobal declares name and stores an initial global value built by mk.
//
// Parameters:
//   - name: the variable name
//   - mk: builds the variable from the declared handle, e.g. func(h Handle) Variable { return NewFloat(h, 1) }
//
// Returns:
//   - RegistryBuilderOption: a function that applies the global
func WithGlobal(name string, mk func(Handle) Variable) RegistryBuilderOption {
	return func(r *registry) {
		h := r.HandleByName(name)
		r.SetGlobalVariable(mk(h))
	}
}
