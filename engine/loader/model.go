package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/game_object"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

// MeshComponents is the vertex layout of every loaded mesh.
const MeshComponents = gfx.Coord | gfx.Normal | gfx.Uv0

// Model is an imported asset: its meshes with node transforms baked in, the skeleton of its
// first skin and the animation clips that drive it.
type Model struct {
	Name       string
	Primitives []Primitive
	Materials  []Material

	// Skeleton is nil for static models.
	Skeleton *character.Skeleton
	Clips    []character.Clip
}

// Primitive is one drawable part of a Model.
type Primitive struct {
	Mesh gfx.Mesh
	// Material indexes Model.Materials, -1 for the default material.
	Material int
	// Radius is the distance of the farthest vertex from the model origin.
	Radius float32
}

// Material is the base color of a glTF metallic-roughness material.
type Material struct {
	Name      string
	BaseColor [4]float32
	// BaseColorTexture is nil when the material has no texture or embeds its image.
	BaseColorTexture gfx.Texture
}

// Radius returns the bounding radius of all primitives around the model origin.
func (m *Model) Radius() float32 {
	var r float32
	for _, p := range m.Primitives {
		r = max(r, p.Radius)
	}
	return r
}

// GameObjects creates one game object per primitive, sharing the primitive mesh and
// bounding radius.
//
// Parameters:
//   - options: options applied to every object after the mesh and radius
//
// Returns:
//   - []game_object.GameObject: the objects in primitive order
func (m *Model) GameObjects(options ...game_object.GameObjectBuilderOption) []game_object.GameObject {
	objects := make([]game_object.GameObject, 0, len(m.Primitives))
	for _, p := range m.Primitives {
		opts := append([]game_object.GameObjectBuilderOption{
			game_object.WithMesh(p.Mesh),
			game_object.WithBoundingRadius(p.Radius),
		}, options...)
		objects = append(objects, game_object.NewGameObject(opts...))
	}
	return objects
}

// NewCharacter creates a character from the model skeleton with every clip registered.
//
// Parameters:
//   - options: character options applied after the clips, e.g. character.WithAutoplay
//
// Returns:
//   - character.Character: the character
//   - error: an error if the model has no skeleton
func (m *Model) NewCharacter(options ...character.CharacterBuilderOption) (character.Character, error) {
	if m.Skeleton == nil {
		return nil, fmt.Errorf("loader: model %q has no skeleton", m.Name)
	}
	opts := append([]character.CharacterBuilderOption{character.WithClips(m.Clips...)}, options...)
	return character.NewCharacter(m.Name, *m.Skeleton, opts...), nil
}

// Release frees the meshes and textures of the model. Materials may share a texture.
func (m *Model) Release() {
	for _, p := range m.Primitives {
		p.Mesh.Release()
	}
	released := make(map[gfx.Texture]bool)
	for _, mat := range m.Materials {
		if mat.BaseColorTexture != nil && !released[mat.BaseColorTexture] {
			mat.BaseColorTexture.Release()
			released[mat.BaseColorTexture] = true
		}
	}
}
