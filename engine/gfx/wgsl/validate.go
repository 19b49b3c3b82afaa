package wgsl

import (
	"fmt"

	"github.com/gogpu/naga"
)

// Validate compiles source with naga and reports the first compile error.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - error: nil if the shader compiles
func Validate(source string) error {
	if _, err := naga.Compile(source); err != nil {
		return fmt.Errorf("wgsl: compile: %w", err)
	}
	return nil
}
