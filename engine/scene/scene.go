// Package scene draws game objects for a render path. It implements renderpath.SceneRenderer:
// every sequence gets the enabled objects whose shader alias matches, culled against the
// camera, ordered by the phase sort order and lit according to the phase light mode.
package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/camera"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/game_object"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/renderpath"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// Shader parameter names the scene writes per draw when the shader declares them.
const (
	ParamMVP           = "mvp"
	ParamWorld         = "world"
	ParamJointPalette  = "jointPalette"
	ParamAmbient       = "ambient"
	ParamLightPos      = "lightPos"
	ParamLightColor    = "lightColor"
	ParamLightViewProj = "lightViewProj"
)

// VarShadowViewProjection is the registry variable holding the view-projection of the first
// shadow casting light, for passes that sample the shadow map.
const VarShadowViewProjection = "ShadowViewProjection"

// Stats counts the work of the frames since the last Prepare.
type Stats struct {
	Drawn       int // draw calls issued for sequences
	Culled      int // objects rejected by the camera frustum
	ShadowDrawn int // draw calls issued for shadow casters
	Occluders   int // depth-only draws of occlusion passes
}

// Scene holds game objects, lights and a camera and renders them for a render path.
// Thread-safe for concurrent access, rendering happens on one thread.
type Scene interface {
	renderpath.SceneRenderer
	renderpath.ShadowRenderer
	renderpath.OcclusionRenderer

	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is rendered.
	Active() bool

	// SetActive sets whether this scene is rendered.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Server returns the graphics server draws are issued to.
	Server() gfx.Server

	CullingDisabled() bool
	SetCullingDisabled(disabled bool)

	// AddLight adds a light to the scene.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight removes a light, if present.
	//
	// Parameters:
	//   - l: the light to remove
	RemoveLight(l light.Light)

	// Lights returns a copy of the scene's lights.
	Lights() []light.Light

	AmbientColor() [3]float32
	SetAmbientColor(color [3]float32)

	// SetShadowVolume sets the orthographic half extent and the clipping planes of shadow
	// view-projections.
	SetShadowVolume(halfExtent, near, far float32)

	// Count returns the number of objects in the scene.
	Count() int

	// Add registers an object, assigning an ID if it has none. An attached light is added to
	// the scene lights.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object ID
	Add(obj game_object.GameObject) uint64

	// Get returns the object with the given ID, or nil.
	Get(id uint64) game_object.GameObject

	// Remove removes an object and its attached light.
	//
	// Parameters:
	//   - id: the object ID
	Remove(id uint64)

	// Clear removes every object. Lights added with AddLight stay.
	Clear()

	// Prepare advances the scene by deltaTime: object rotations are updated in parallel,
	// attached lights follow their objects and every character is evaluated. It resets Stats.
	//
	// Parameters:
	//   - deltaTime: elapsed time in seconds
	Prepare(deltaTime float32)

	// Stats returns the counters of the frames since the last Prepare.
	Stats() Stats

	// Close stops the worker pools.
	Close()
}

type scene struct {
	mu *sync.RWMutex

	name   string
	active bool

	cam      camera.Camera
	srv      gfx.Server
	registry variable.Registry

	objects map[uint64]game_object.GameObject
	nextID  uint64

	cullingDisabled bool

	lights       []light.Light
	lightObjects []game_object.GameObject
	ambientColor [3]float32

	shadowHalfExtent float32
	shadowNear       float32
	shadowFar        float32
	shadowVarHandle  variable.Handle

	computePool    worker.DynamicWorkerPool
	computeWorkers int
	evaluator      *character.Evaluator

	stats Stats
	// reused per sequence to avoid per-frame allocations
	bucket []drawItem
}

type drawItem struct {
	obj    game_object.GameObject
	center [3]float32
	radius float32
	dist   float32
}

var _ Scene = &scene{}

// NewScene creates a scene drawing through srv from the point of view of cam. Both are
// required and NewScene panics if either is nil.
//
// Parameters:
//   - name: the name of the scene
//   - cam: the camera (must not be nil)
//   - srv: the graphics server (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, srv gfx.Server, options ...SceneBuilderOption) Scene {
	if cam == nil {
		panic("scene: NewScene requires a non-nil Camera")
	}
	if srv == nil {
		panic("scene: NewScene requires a non-nil gfx.Server")
	}

	s := &scene{
		mu:               &sync.RWMutex{},
		name:             name,
		active:           true,
		cam:              cam,
		srv:              srv,
		objects:          make(map[uint64]game_object.GameObject),
		nextID:           1,
		computeWorkers:   max(runtime.NumCPU()-1, 1),
		shadowHalfExtent: light.DefaultShadowHalfExtent,
		shadowNear:       light.DefaultShadowNear,
		shadowFar:        light.DefaultShadowFar,
		shadowVarHandle:  variable.InvalidHandle,
	}
	for _, option := range options {
		option(s)
	}

	// pools start after options so WithComputeWorkers can override the default
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	evalOpts := []character.EvaluatorOption{character.WithWorkers(s.computeWorkers)}
	if s.registry != nil {
		evalOpts = append(evalOpts, character.WithRegistry(s.registry))
		s.shadowVarHandle = s.registry.DeclareVariable(VarShadowViewProjection, variable.MakeFourCC("shvp"))
		// sequences may bind it while shadow passes are disabled
		if s.registry.GlobalVariable(s.shadowVarHandle) == nil {
			s.registry.SetMatrix(s.shadowVarHandle, gfx.Identity())
		}
	}
	s.evaluator = character.NewEvaluator(evalOpts...)
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cam
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cam = cam
}

func (s *scene) Server() gfx.Server {
	return s.srv
}

func (s *scene) CullingDisabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cullingDisabled
}

func (s *scene) SetCullingDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cullingDisabled = disabled
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) RemoveLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLight(l)
}

// removeLight drops l from the light list. Caller must hold s.mu write lock.
func (s *scene) removeLight(l light.Light) {
	for i, existing := range s.lights {
		if existing == l {
			s.lights = append(s.lights[:i], s.lights[i+1:]...)
			return
		}
	}
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]light.Light, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *scene) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *scene) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

func (s *scene) SetShadowVolume(halfExtent, near, far float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shadowHalfExtent = halfExtent
	s.shadowNear = near
	s.shadowFar = far
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj. Caller must hold s.mu write lock.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
		s.nextID++
	} else if obj.ID() >= s.nextID {
		s.nextID = obj.ID() + 1
	}
	s.objects[obj.ID()] = obj

	if l := obj.Light(); l != nil {
		s.lightObjects = append(s.lightObjects, obj)
		s.lights = append(s.lights, l)
	}
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, exists := s.objects[id]
	if !exists {
		return
	}
	delete(s.objects, id)

	if l := obj.Light(); l != nil {
		s.removeLight(l)
		for i, o := range s.lightObjects {
			if o == obj {
				s.lightObjects = append(s.lightObjects[:i], s.lightObjects[i+1:]...)
				break
			}
		}
	}
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obj := range s.lightObjects {
		s.removeLight(obj.Light())
	}
	s.objects = make(map[uint64]game_object.GameObject)
	s.lightObjects = nil
}

func (s *scene) Prepare(deltaTime float32) {
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	// object updates are independent, fan them out and wait for all of them
	var wg sync.WaitGroup
	var chars []character.Character
	seen := make(map[character.Character]struct{})
	for _, obj := range s.objects {
		wg.Add(1)
		o := obj
		s.computePool.SubmitTask(worker.Task{
			ID: int(o.ID()),
			Do: func() (any, error) {
				defer wg.Done()
				o.Update(deltaTime)
				return nil, nil
			},
		})
		if c := obj.Character(); c != nil {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				chars = append(chars, c)
			}
		}
	}
	wg.Wait()

	for _, obj := range s.lightObjects {
		if l := obj.Light(); l != nil && obj.Enabled() {
			p := obj.Position()
			l.SetPosition(p[0], p[1], p[2])
		}
	}

	if len(chars) > 0 {
		s.evaluator.Evaluate(deltaTime, chars)
	}
}

func (s *scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *scene) Close() {
	s.computePool.Stop()
	s.evaluator.Stop()
}
