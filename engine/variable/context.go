package variable

// Context is an unordered collection of variables owned by one component. Lookups are a
// linear scan by handle, contexts are expected to stay small.
//
// Render-path nodes use a Context to map global variable handles to shader parameter
// slots: each entry's handle names the global variable and its Int value is the slot.
type Context struct {
	vars []Variable
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{}
}

// AddVariable appends v without checking for an existing entry with the same handle.
// The caller guarantees uniqueness.
//
// Parameters:
//   - v: the variable to append
func (c *Context) AddVariable(v Variable) {
	c.vars = append(c.vars, v)
}

// SetVariable replaces the entry with v's handle, or appends v if there is none.
//
// Parameters:
//   - v: the variable to store
func (c *Context) SetVariable(v Variable) {
	if existing := c.GetVariable(v.handle); existing != nil {
		*existing = v
		return
	}
	c.vars = append(c.vars, v)
}

// GetVariable returns the entry for h, or nil if the context holds none. The pointer is
// valid until the next AddVariable or SetVariable that appends.
//
// Parameters:
//   - h: the handle to look up
//
// Returns:
//   - *Variable: the stored variable or nil
func (c *Context) GetVariable(h Handle) *Variable {
	for i := range c.vars {
		if c.vars[i].handle == h {
			return &c.vars[i]
		}
	}
	return nil
}

// Len returns the number of entries.
func (c *Context) Len() int {
	return len(c.vars)
}

// At returns the entry at index i.
func (c *Context) At(i int) *Variable {
	return &c.vars[i]
}

// Variables returns the backing slice. Callers must not append to it.
func (c *Context) Variables() []Variable {
	return c.vars
}

// Clear removes all entries.
func (c *Context) Clear() {
	c.vars = c.vars[:0]
}
