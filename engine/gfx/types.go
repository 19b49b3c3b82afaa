package gfx

import (
	"fmt"
	"strings"
)

// PixelFormat describes the layout of a texture texel.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatX8R8G8B8
	FormatA8R8G8B8
	FormatR5G6B5
	FormatA1R5G5B5
	FormatA4R4G4B4
	FormatR16F
	FormatG16R16F
	FormatA16B16G16R16F
	FormatR32F
	FormatG32R32F
	FormatA32B32G32R32F
	FormatD24S8
)

var pixelFormatNames = [...]string{
	FormatUnknown:       "Unknown",
	FormatX8R8G8B8:      "X8R8G8B8",
	FormatA8R8G8B8:      "A8R8G8B8",
	FormatR5G6B5:        "R5G6B5",
	FormatA1R5G5B5:      "A1R5G5B5",
	FormatA4R4G4B4:      "A4R4G4B4",
	FormatR16F:          "R16F",
	FormatG16R16F:       "G16R16F",
	FormatA16B16G16R16F: "A16B16G16R16F",
	FormatR32F:          "R32F",
	FormatG32R32F:       "G32R32F",
	FormatA32B32G32R32F: "A32B32G32R32F",
	FormatD24S8:         "D24S8",
}

func (f PixelFormat) String() string {
	if f < 0 || int(f) >= len(pixelFormatNames) {
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
	return pixelFormatNames[f]
}

// ParsePixelFormat maps a format name as written in render path files to a PixelFormat.
// Matching is case insensitive.
//
// Parameters:
//   - s: the format name (e.g. "A8R8G8B8")
//
// Returns:
//   - PixelFormat: the parsed format
//   - error: an error if s names no supported format
func ParsePixelFormat(s string) (PixelFormat, error) {
	for i, n := range pixelFormatNames {
		if i != int(FormatUnknown) && strings.EqualFold(n, s) {
			return PixelFormat(i), nil
		}
	}
	return FormatUnknown, fmt.Errorf("gfx: unknown pixel format %q", s)
}

// BytesPerPixel returns the texel size of f.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatR5G6B5, FormatA1R5G5B5, FormatA4R4G4B4, FormatR16F:
		return 2
	case FormatA16B16G16R16F, FormatG32R32F:
		return 8
	case FormatA32B32G32R32F:
		return 16
	default:
		return 4
	}
}

// ClearFlags selects the buffers cleared by Server.Clear.
type ClearFlags uint32

const (
	ColorBuffer ClearFlags = 1 << iota
	DepthBuffer
	StencilBuffer
)

func (c ClearFlags) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c&ColorBuffer != 0 {
		parts = append(parts, "color")
	}
	if c&DepthBuffer != 0 {
		parts = append(parts, "depth")
	}
	if c&StencilBuffer != 0 {
		parts = append(parts, "stencil")
	}
	return strings.Join(parts, "|")
}

// Hint is a device-wide rendering hint.
type Hint int

const (
	// HintMVPOnly limits per-draw transform updates to the model-view-projection matrix.
	HintMVPOnly Hint = iota
	numHints
)

// NumHints is the number of defined hints.
const NumHints = int(numHints)

// TransformType selects one of the device transform stacks.
type TransformType int

const (
	Model TransformType = iota
	View
	Projection
	numTransformTypes
)

// NumTransformTypes is the number of transform stacks.
const NumTransformTypes = int(numTransformTypes)

// Rect is a pixel rectangle, Max exclusive.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Width returns the horizontal extent of r.
func (r Rect) Width() int { return r.MaxX - r.MinX }

// Height returns the vertical extent of r.
func (r Rect) Height() int { return r.MaxY - r.MinY }

// Empty reports whether r covers no pixels.
func (r Rect) Empty() bool { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

// VertexComponents describes the per-vertex layout of a Mesh as a bit set.
type VertexComponents uint32

const (
	Coord VertexComponents = 1 << iota
	Normal
	Uv0
	Color
)

// Stride returns the float count per vertex.
func (c VertexComponents) Stride() int {
	n := 0
	if c&Coord != 0 {
		n += 3
	}
	if c&Normal != 0 {
		n += 3
	}
	if c&Uv0 != 0 {
		n += 2
	}
	if c&Color != 0 {
		n += 4
	}
	return n
}

// Identity returns the 4x4 identity matrix.
func Identity() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
