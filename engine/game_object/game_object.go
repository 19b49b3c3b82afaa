// Package game_object holds the drawable entities a scene buckets into render path
// sequences by shader alias.
package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
)

type gameObject struct {
	id          uint64
	enabled     atomic.Bool
	mu          *sync.RWMutex
	mesh        gfx.Mesh
	shaderAlias string
	character   character.Character
	light       light.Light

	position      [3]float32
	scale         [3]float32
	rotation      [3]float32
	rotationSpeed [3]float32

	boundingRadius float32
	castsShadows   bool
}

// GameObject is a scene entity: a mesh drawn by every sequence whose shader alias matches,
// placed by a position, euler rotation and scale.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// SetID sets the object's unique identifier. Scenes assign IDs on Add.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Enabled returns whether this object is drawn.
	Enabled() bool
	SetEnabled(enabled bool)

	// Mesh returns the mesh drawn for this object, or nil.
	Mesh() gfx.Mesh
	SetMesh(m gfx.Mesh)

	// ShaderAlias returns the render path shader name that draws this object.
	//
	// Returns:
	//   - string: the alias, matched against Sequence.ShaderAlias
	ShaderAlias() string
	SetShaderAlias(alias string)

	// Character returns the skinned character driving the joint palette, or nil.
	Character() character.Character
	SetCharacter(c character.Character)

	// Light returns the attached light. Scenes move it to the object's position each frame.
	Light() light.Light
	SetLight(l light.Light)

	Position() [3]float32
	Rotation() [3]float32
	RotationSpeed() [3]float32
	Scale() [3]float32
	SetPosition(x, y, z float32)
	SetRotation(rx, ry, rz float32)
	SetRotationSpeed(rx, ry, rz float32)
	SetScale(sx, sy, sz float32)

	// BoundingRadius returns the radius of the bounding sphere in object space.
	BoundingRadius() float32

	// WorldBounds returns the bounding sphere in world space, with the radius scaled by the
	// largest scale component.
	//
	// Returns:
	//   - [3]float32: the sphere center
	//   - float32: the sphere radius
	WorldBounds() ([3]float32, float32)

	CastsShadows() bool

	// Update advances the rotation by the rotation speed.
	//
	// Parameters:
	//   - dt: elapsed seconds
	Update(dt float32)

	// ModelMatrix builds the object-to-world matrix from the current transform.
	//
	// Returns:
	//   - [16]float32: the column-major model matrix
	ModelMatrix() [16]float32
}

var _ GameObject = &gameObject{}

// NewGameObject creates an enabled GameObject with unit scale and a bounding radius of 1.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:             &sync.RWMutex{},
		scale:          [3]float32{1, 1, 1},
		boundingRadius: 1,
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) Mesh() gfx.Mesh {
	return g.mesh
}

func (g *gameObject) SetMesh(m gfx.Mesh) {
	g.mesh = m
}

func (g *gameObject) ShaderAlias() string {
	return g.shaderAlias
}

func (g *gameObject) SetShaderAlias(alias string) {
	g.shaderAlias = alias
}

func (g *gameObject) Character() character.Character {
	return g.character
}

func (g *gameObject) SetCharacter(c character.Character) {
	g.character = c
}

func (g *gameObject) Light() light.Light {
	return g.light
}

func (g *gameObject) SetLight(l light.Light) {
	g.light = l
}

func (g *gameObject) Position() [3]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.position
}

func (g *gameObject) Rotation() [3]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotation
}

func (g *gameObject) RotationSpeed() [3]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rotationSpeed
}

func (g *gameObject) Scale() [3]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetRotation(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetRotationSpeed(rx, ry, rz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotationSpeed = [3]float32{rx, ry, rz}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) BoundingRadius() float32 {
	return g.boundingRadius
}

func (g *gameObject) WorldBounds() ([3]float32, float32) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := max(absF32(g.scale[0]), absF32(g.scale[1]), absF32(g.scale[2]))
	return g.position, g.boundingRadius * s
}

func (g *gameObject) CastsShadows() bool {
	return g.castsShadows
}

func (g *gameObject) Update(dt float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.rotation {
		g.rotation[i] += g.rotationSpeed[i] * dt
	}
}

func (g *gameObject) ModelMatrix() [16]float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var m [16]float32
	common.BuildModelMatrix(m[:],
		g.position[0], g.position[1], g.position[2],
		g.rotation[0], g.rotation[1], g.rotation[2],
		g.scale[0], g.scale[1], g.scale[2],
	)
	return m
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
