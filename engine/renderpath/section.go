package renderpath

import (
	"fmt"
)

// Section groups the passes that render one logical view.
type Section struct {
	rp     *renderPath
	id     int
	name   string
	passes []int

	inBegin bool
}

func (s *Section) Name() string {
	return s.name
}

// Index returns the section's position in the render path.
func (s *Section) Index() int {
	return s.id
}

// AddPass appends a new geometry pass.
//
// Parameters:
//   - name: the pass name, also used as profiler timer name
//
// Returns:
//   - *Pass: the new pass, owned by the render path
func (s *Section) AddPass(name string) *Pass {
	p := &Pass{
		rp:            s.rp,
		index:         len(s.passes),
		section:       s.id,
		name:          name,
		behaviour:     geometryPass{},
		params:        newParamBlock(),
		rpShaderIndex: -1,
	}
	for i := range p.renderTargetIdx {
		p.renderTargetIdx[i] = -1
	}
	s.passes = append(s.passes, s.rp.addPass(p))
	return p
}

// NumPasses returns the number of passes.
func (s *Section) NumPasses() int {
	return len(s.passes)
}

// Pass returns pass i.
func (s *Section) Pass(i int) *Pass {
	return s.rp.passes[s.passes[i]]
}

// FindPassIndex returns the index of the pass with the given name, or -1.
func (s *Section) FindPassIndex(name string) int {
	for i, pi := range s.passes {
		if s.rp.passes[pi].name == name {
			return i
		}
	}
	return -1
}

// InBegin reports whether the section is between Begin and End.
func (s *Section) InBegin() bool {
	return s.inBegin
}

// Validate validates all passes.
func (s *Section) Validate() error {
	for _, pi := range s.passes {
		if err := s.rp.passes[pi].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Begin validates all passes and begins the section.
//
// Returns:
//   - int: the number of passes
//   - error: the first content error from validation, the section is not begun
func (s *Section) Begin() (int, error) {
	if s.inBegin {
		panic(fmt.Sprintf("renderpath: section %q: Begin inside Begin", s.name))
	}
	if err := s.Validate(); err != nil {
		return 0, err
	}
	s.inBegin = true
	return len(s.passes), nil
}

// End ends the section.
func (s *Section) End() {
	if !s.inBegin {
		panic(fmt.Sprintf("renderpath: section %q: End without Begin", s.name))
	}
	s.inBegin = false
}
