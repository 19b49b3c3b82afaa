package scene

import (
	"github.com/Carmen-Shannon/oxy-renderpath/engine/game_object"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is rendered. Scenes are active by default.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithObjects adds initial objects to the scene.
// Objects without IDs will be assigned new IDs.
//
// Parameters:
//   - objects: the objects to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObjects(objects ...game_object.GameObject) SceneBuilderOption {
	return func(s *scene) {
		for _, obj := range objects {
			s.add(obj)
		}
	}
}

// WithLights adds lights that are not attached to any object.
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *scene) {
		s.lights = append(s.lights, lights...)
	}
}

// WithAmbientColor sets the ambient term handed to lit phases.
func WithAmbientColor(r, g, b float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambientColor = [3]float32{r, g, b}
	}
}

// WithRegistry publishes joint palettes and the shadow view-projection into reg, where
// render path parameters can bind to them.
//
// Parameters:
//   - reg: the variable registry shared with the render path
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRegistry(reg variable.Registry) SceneBuilderOption {
	return func(s *scene) {
		s.registry = reg
	}
}

// WithComputeWorkers sets the number of worker goroutines used by Prepare for object
// updates and character evaluation. Defaults to runtime.NumCPU()-1.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithCullingDisabled disables frustum culling, every matching object is drawn.
// By default culling is enabled (disabled = false).
//
// Parameters:
//   - disabled: true to disable frustum culling, false to enable it (default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCullingDisabled(disabled bool) SceneBuilderOption {
	return func(s *scene) {
		s.cullingDisabled = disabled
	}
}

// WithShadowHalfExtent sets the orthographic half-extent of the directional shadow
// frustum in world units. Larger values capture more of the scene but reduce shadow
// resolution. Default is light.DefaultShadowHalfExtent (40.0).
//
// Parameters:
//   - halfExtent: half-size of the shadow frustum in world units
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowHalfExtent(halfExtent float32) SceneBuilderOption {
	return func(s *scene) {
		s.shadowHalfExtent = halfExtent
	}
}

// WithShadowNearFar sets the near and far planes of shadow projections.
// Default is light.DefaultShadowNear (0.1) and light.DefaultShadowFar (200.0).
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadowNearFar(near, far float32) SceneBuilderOption {
	return func(s *scene) {
		s.shadowNear = near
		s.shadowFar = far
	}
}
