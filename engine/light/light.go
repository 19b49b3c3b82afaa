// Package light holds the light sources a scene hands to phases that render with a
// light mode other than Off.
package light

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional has a direction but no position and does not attenuate.
	LightTypeDirectional LightType = iota
	// LightTypePoint emits in all directions up to its range.
	LightTypePoint
	// LightTypeSpot emits in a cone along its direction up to its range.
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "Directional"
	case LightTypePoint:
		return "Point"
	case LightTypeSpot:
		return "Spot"
	}
	return fmt.Sprintf("LightType(%d)", int(t))
}

// ParseLightType maps "directional", "point" or "spot" (any case) to a LightType.
func ParseLightType(s string) (LightType, error) {
	switch strings.ToLower(s) {
	case "directional":
		return LightTypeDirectional, nil
	case "point":
		return LightTypePoint, nil
	case "spot":
		return LightTypeSpot, nil
	}
	return 0, fmt.Errorf("light: unknown light type %q", s)
}

type lightImpl struct {
	name         string
	lightType    LightType
	position     [3]float32
	direction    [3]float32
	color        [3]float32
	intensity    float32
	lightRange   float32
	innerCone    float32 // cos(inner half-angle)
	outerCone    float32 // cos(outer half-angle)
	enabled      bool
	castsShadows bool
}

// Light is a light source. Lights are plain values owned by a scene and are read on the
// render thread only.
type Light interface {
	Name() string
	Type() LightType

	// Position returns the world-space position. Unused for directional lights.
	Position() [3]float32

	// Direction returns the normalized light direction, the cone axis for spot lights.
	Direction() [3]float32

	Color() [3]float32
	Intensity() float32

	// Range returns the attenuation distance of point and spot lights.
	Range() float32

	// InnerCone and OuterCone return the cosines of the spot cone half-angles.
	InnerCone() float32
	OuterCone() float32

	Enabled() bool
	CastsShadows() bool

	SetPosition(x, y, z float32)
	SetDirection(x, y, z float32)
	SetColor(r, g, b float32)
	SetIntensity(intensity float32)
	SetRange(lightRange float32)
	SetSpotCone(innerDeg, outerDeg float32)
	SetEnabled(enabled bool)
	SetCastsShadows(castsShadows bool)

	// ShaderPosition encodes the light for a vec4 shader parameter. Point and spot lights
	// give (position, range), directional lights give (-direction, 0) so shaders can tell
	// them apart by w.
	//
	// Returns:
	//   - [4]float32: the encoded position
	ShaderPosition() [4]float32

	// ShaderColor returns the color premultiplied by intensity with the given alpha.
	//
	// Parameters:
	//   - alpha: the value stored in w
	//
	// Returns:
	//   - [4]float32: the encoded color
	ShaderColor(alpha float32) [4]float32

	// Affects reports whether the light reaches a bounding sphere.
	//
	// Parameters:
	//   - center: the sphere center
	//   - radius: the sphere radius
	//
	// Returns:
	//   - bool: true for enabled directional lights and for point/spot lights in range
	Affects(center [3]float32, radius float32) bool

	// ShadowViewProjection builds the matrix that renders the shadow map of this light.
	//
	// Parameters:
	//   - center: the world-space center of the shadowed area, usually the camera target
	//   - halfExtent: half-size of the orthographic volume of directional lights
	//   - near, far: the clipping planes
	//
	// Returns:
	//   - [16]float32: the column-major view-projection matrix
	ShadowViewProjection(center [3]float32, halfExtent, near, far float32) [16]float32
}

var _ Light = &lightImpl{}

// NewLight creates a light with a white color, unit intensity, a range of 10 and a
// 25/35 degree spot cone pointing down.
//
// Parameters:
//   - lightType: the kind of light
//   - opts: functional options
//
// Returns:
//   - Light: the new light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		direction:  [3]float32{0, -1, 0},
		color:      [3]float32{1, 1, 1},
		intensity:  1.0,
		lightRange: 10.0,
		innerCone:  cosDeg(25),
		outerCone:  cosDeg(35),
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Name() string          { return l.name }
func (l *lightImpl) Type() LightType       { return l.lightType }
func (l *lightImpl) Position() [3]float32  { return l.position }
func (l *lightImpl) Direction() [3]float32 { return l.direction }
func (l *lightImpl) Color() [3]float32     { return l.color }
func (l *lightImpl) Intensity() float32    { return l.intensity }
func (l *lightImpl) Range() float32        { return l.lightRange }
func (l *lightImpl) InnerCone() float32    { return l.innerCone }
func (l *lightImpl) OuterCone() float32    { return l.outerCone }
func (l *lightImpl) Enabled() bool         { return l.enabled }
func (l *lightImpl) CastsShadows() bool    { return l.castsShadows }

func (l *lightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *lightImpl) SetDirection(x, y, z float32) {
	l.direction = common.Normalize3([3]float32{x, y, z})
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}

func (l *lightImpl) SetCastsShadows(castsShadows bool) {
	l.castsShadows = castsShadows
}

func (l *lightImpl) ShaderPosition() [4]float32 {
	if l.lightType == LightTypeDirectional {
		return [4]float32{-l.direction[0], -l.direction[1], -l.direction[2], 0}
	}
	return [4]float32{l.position[0], l.position[1], l.position[2], l.lightRange}
}

func (l *lightImpl) ShaderColor(alpha float32) [4]float32 {
	return [4]float32{l.color[0] * l.intensity, l.color[1] * l.intensity, l.color[2] * l.intensity, alpha}
}

func (l *lightImpl) Affects(center [3]float32, radius float32) bool {
	if !l.enabled {
		return false
	}
	if l.lightType == LightTypeDirectional {
		return true
	}
	return common.Distance3(l.position, center)-radius <= l.lightRange
}
