package game_object

import (
	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is drawn.
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled.Store(enabled)
	}
}

// WithMesh sets the mesh drawn for the GameObject.
//
// Parameters:
//   - m: the mesh, created through gfx.Server.NewMesh
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the mesh
func WithMesh(m gfx.Mesh) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mesh = m
	}
}

// WithShaderAlias selects the render path shader that draws the GameObject.
//
// Parameters:
//   - alias: a shader name declared in the render path
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the alias
func WithShaderAlias(alias string) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.shaderAlias = alias
	}
}

// WithCharacter skins the GameObject with a character's joint palette.
func WithCharacter(c character.Character) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.character = c
	}
}

// WithPosition sets the initial position of the GameObject.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial position
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = [3]float32{x, y, z}
	}
}

// WithScale sets the initial scale of the GameObject.
//
// Parameters:
//   - sx: the x scale factor
//   - sy: the y scale factor
//   - sz: the z scale factor
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the initial scale
func WithScale(sx, sy, sz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = [3]float32{sx, sy, sz}
	}
}

// WithRotation sets the initial euler rotation of the GameObject in radians.
func WithRotation(rx, ry, rz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotation = [3]float32{rx, ry, rz}
	}
}

// WithRotationSpeed sets the rotation applied per second by Update.
//
// Parameters:
//   - rx: the x rotation speed
//   - ry: the y rotation speed
//   - rz: the z rotation speed
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the rotation speed
func WithRotationSpeed(rx, ry, rz float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.rotationSpeed = [3]float32{rx, ry, rz}
	}
}

// WithBoundingRadius sets the object-space bounding sphere radius used for culling and
// light reach.
func WithBoundingRadius(radius float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.boundingRadius = radius
	}
}

// WithCastsShadows includes the GameObject in shadow passes.
func WithCastsShadows(castsShadows bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.castsShadows = castsShadows
	}
}

// WithLight attaches a Light to the GameObject. A scene moves the light to the
// object's position each frame.
//
// Parameters:
//   - l: the Light to attach
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the attached light
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.light = l
	}
}
