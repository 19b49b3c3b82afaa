package renderpath

import (
	"fmt"
)

// SortOrder tells the scene renderer how to order geometry within a phase.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortFrontToBack
	SortBackToFront
)

var sortOrderNames = [...]string{
	SortNone:        "None",
	SortFrontToBack: "FrontToBack",
	SortBackToFront: "BackToFront",
}

func (s SortOrder) String() string {
	return enumName(sortOrderNames[:], int(s))
}

// StringToSortingOrder parses the sort attribute of a Phase.
//
// Parameters:
//   - s: one of None, FrontToBack, BackToFront
//
// Returns:
//   - SortOrder: the parsed order
//   - error: ErrUnknownSortOrder for any other string
func StringToSortingOrder(s string) (SortOrder, error) {
	i, err := parseEnum(sortOrderNames[:], s, ErrUnknownSortOrder)
	return SortOrder(i), err
}

// LightMode tells the scene renderer how to light geometry within a phase.
type LightMode int

const (
	LightOff LightMode = iota
	LightFFP
	LightShader
)

var lightModeNames = [...]string{
	LightOff:    "Off",
	LightFFP:    "FFP",
	LightShader: "Shader",
}

func (l LightMode) String() string {
	return enumName(lightModeNames[:], int(l))
}

// StringToLightMode parses the lightMode attribute of a Phase.
//
// Parameters:
//   - s: one of Off, FFP, Shader
//
// Returns:
//   - LightMode: the parsed mode
//   - error: ErrUnknownLightMode for any other string
func StringToLightMode(s string) (LightMode, error) {
	i, err := parseEnum(lightModeNames[:], s, ErrUnknownLightMode)
	return LightMode(i), err
}

// ShadowTechnique selects how a pass renders shadows.
type ShadowTechnique int

const (
	NoShadows ShadowTechnique = iota
	ShadowSimple
	ShadowMultiLight
)

var shadowTechniqueNames = [...]string{
	NoShadows:        "NoShadows",
	ShadowSimple:     "Simple",
	ShadowMultiLight: "MultiLight",
}

func (s ShadowTechnique) String() string {
	return enumName(shadowTechniqueNames[:], int(s))
}

// StringToShadowTechnique parses the drawShadows attribute of a Pass.
//
// Parameters:
//   - s: one of NoShadows, Simple, MultiLight
//
// Returns:
//   - ShadowTechnique: the parsed technique
//   - error: ErrUnknownShadowTechnique for any other string
func StringToShadowTechnique(s string) (ShadowTechnique, error) {
	i, err := parseEnum(shadowTechniqueNames[:], s, ErrUnknownShadowTechnique)
	return ShadowTechnique(i), err
}

// PassKind selects the behaviour of a pass in the FrameShader dialect.
type PassKind int

const (
	// KindGeometry renders phases into the bound targets.
	KindGeometry PassKind = iota
	// KindOcclusion runs occlusion queries and is never timed.
	KindOcclusion
	// KindPosteffect draws a full screen quad with the pass shader.
	KindPosteffect
)

var passKindNames = [...]string{
	KindGeometry:   "Geometry",
	KindOcclusion:  "Occlusion",
	KindPosteffect: "Posteffect",
}

func (k PassKind) String() string {
	return enumName(passKindNames[:], int(k))
}

// StringToPassKind parses the type attribute of a FrameShader Pass. Unknown and empty strings
// select KindGeometry.
//
// Parameters:
//   - s: the type attribute
//
// Returns:
//   - PassKind: the pass kind
func StringToPassKind(s string) PassKind {
	i, err := parseEnum(passKindNames[:], s, ErrInvalidAttribute)
	if err != nil {
		return KindGeometry
	}
	return PassKind(i)
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("%d", i)
	}
	return names[i]
}

func parseEnum(names []string, s string, sentinel error) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", sentinel, s)
}
