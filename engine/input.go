package engine

import (
	"math"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// orbitStep is the angle in radians an arrow key press orbits the camera by.
const orbitStep = 0.05

// handleKey applies the viewer key bindings.
//
//	R      reload the render path
//	P      toggle the profiler
//	H      toggle shadow passes
//	C      toggle frustum culling
//	Space  pause scene animation
//	Esc    quit
//	Arrows orbit, - and = zoom, WASD pan the camera target
func (e *engine) handleKey(keyCode uint32) {
	switch keyCode {
	case common.KeyR:
		e.RequestReload()
	case common.KeyP:
		e.profilingEnabled = !e.profilingEnabled
	case common.KeyH:
		enabled := !e.renderPath.ShadowsEnabled()
		e.renderPath.SetShadowsEnabled(enabled)
		e.logger.Info("shadows toggled", "enabled", enabled)
	case common.KeyC:
		for _, s := range e.scenes {
			s.SetCullingDisabled(!s.CullingDisabled())
		}
	case common.KeySpace:
		e.paused = !e.paused
	case common.KeyEsc:
		e.Quit()
	case common.KeyLeft:
		e.orbit(-orbitStep, 0)
	case common.KeyRight:
		e.orbit(orbitStep, 0)
	case common.KeyUp:
		e.orbit(0, orbitStep)
	case common.KeyDown:
		e.orbit(0, -orbitStep)
	case common.KeyMinus:
		e.zoom(-e.zoomSpeed)
	case common.KeyEqual:
		e.zoom(e.zoomSpeed)
	case common.KeyW:
		e.pan(0, e.panSpeed)
	case common.KeyS:
		e.pan(0, -e.panSpeed)
	case common.KeyA:
		e.pan(-e.panSpeed, 0)
	case common.KeyD:
		e.pan(e.panSpeed, 0)
	}
}

func (e *engine) orbit(dAzimuth, dElevation float32) {
	for _, s := range e.activeScenes() {
		if c := s.Camera(); c != nil {
			c.Orbit(dAzimuth, dElevation)
		}
	}
}

func (e *engine) zoom(delta float32) {
	for _, s := range e.activeScenes() {
		if c := s.Camera(); c != nil {
			c.Zoom(delta)
		}
	}
}

// pan moves the camera targets on the ground plane, forward along the view direction.
func (e *engine) pan(right, forward float32) {
	for _, s := range e.activeScenes() {
		c := s.Camera()
		if c == nil {
			continue
		}
		eye, target := c.Eye(), c.Target()
		fx, fz := target[0]-eye[0], target[2]-eye[2]
		l := float32(math.Sqrt(float64(fx*fx + fz*fz)))
		if l == 0 {
			continue
		}
		fx, fz = fx/l, fz/l
		// right of the forward direction with +Y up
		rx, rz := -fz, fx
		c.SetTarget(
			target[0]+fx*forward+rx*right,
			target[1],
			target[2]+fz*forward+rz*right,
		)
	}
}
