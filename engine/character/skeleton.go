// Package character evaluates skeletal animation on the CPU and produces the skin palettes
// (one matrix per joint) that skinned shaders read through the JointPalette variable.
package character

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// ErrInvalidSkeleton is wrapped by skeleton validation errors.
var ErrInvalidSkeleton = errors.New("invalid skeleton")

// Joint is one bone of a skeleton in bind pose.
type Joint struct {
	Name string
	// Parent is the index of the parent joint, -1 for a root. Parents precede their children.
	Parent      int
	InverseBind [16]float32
	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32
}

// NewJoint returns a joint with identity bind transforms.
func NewJoint(name string, parent int) Joint {
	j := Joint{
		Name:     name,
		Parent:   parent,
		Rotation: common.QuatIdentity(),
		Scale:    [3]float32{1, 1, 1},
	}
	common.Identity(j.InverseBind[:])
	return j
}

// Skeleton is an ordered joint hierarchy.
type Skeleton struct {
	Joints []Joint
}

// Validate checks that every parent index refers to an earlier joint.
func (s *Skeleton) Validate() error {
	if len(s.Joints) == 0 {
		return fmt.Errorf("%w: no joints", ErrInvalidSkeleton)
	}
	for i, j := range s.Joints {
		if j.Parent >= i || j.Parent < -1 {
			return fmt.Errorf("%w: joint %d (%s) has parent %d", ErrInvalidSkeleton, i, j.Name, j.Parent)
		}
	}
	return nil
}

// FindJoint returns the index of the joint called name, or -1.
func (s *Skeleton) FindJoint(name string) int {
	for i, j := range s.Joints {
		if j.Name == name {
			return i
		}
	}
	return -1
}
