// Package camera provides an orbit camera and publishes its matrices into a variable registry,
// where render path parameters bound to View, Projection and friends pick them up.
package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	target [3]float32
	eye    [3]float32
	up     [3]float32

	radius       float32
	azimuth      float32
	elevation    float32
	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	view              [16]float32
	projection        [16]float32
	viewProjection    [16]float32
	inverseProjection [16]float32
}

// Camera is a perspective camera orbiting a target point. The eye position is derived from
// the spherical coordinates radius, azimuth and elevation around the target.
type Camera interface {
	// Eye returns the world-space camera position.
	Eye() [3]float32

	// Target returns the look-at point.
	Target() [3]float32

	// SetTarget moves the look-at point, keeping the orbit around it.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// Up returns the up vector.
	Up() [3]float32

	Fov() float32
	Aspect() float32
	Near() float32
	Far() float32

	// SetAspect sets the aspect ratio (width / height), usually after a display resize.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Orbit rotates the eye around the target. Elevation is clamped to the configured bounds.
	//
	// Parameters:
	//   - dAzimuth: horizontal rotation in radians
	//   - dElevation: vertical rotation in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye towards the target by delta, clamped to the radius bounds.
	//
	// Parameters:
	//   - delta: distance, positive zooms in
	Zoom(delta float32)

	Radius() float32
	Azimuth() float32
	Elevation() float32

	// View returns the view matrix (column-major).
	View() [16]float32

	// Projection returns the projection matrix (column-major).
	Projection() [16]float32

	// ViewProjection returns Projection * View.
	ViewProjection() [16]float32

	// InverseProjection returns the inverse of the projection matrix.
	InverseProjection() [16]float32

	// Frustum returns the culling planes of the current view-projection matrix.
	Frustum() common.Frustum
}

var _ Camera = &cameraImpl{}

// NewCamera creates an orbit camera looking at the origin from 10 units away.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:           &sync.Mutex{},
		up:           [3]float32{0, 1, 0},
		radius:       10,
		elevation:    float32(math.Pi / 6),
		minRadius:    0.5,
		maxRadius:    1000,
		minElevation: -float32(math.Pi/2 - 0.05),
		maxElevation: float32(math.Pi/2 - 0.05),
		fov:          45.0 * (math.Pi / 180.0),
		aspect:       16.0 / 9.0,
		near:         0.1,
		far:          500,
	}
	for _, option := range options {
		option(c)
	}
	c.update()
	return c
}

func (c *cameraImpl) Eye() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
	c.update()
}

func (c *cameraImpl) Up() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.update()
}

func (c *cameraImpl) Orbit(dAzimuth, dElevation float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth += dAzimuth
	c.elevation = clamp(c.elevation+dElevation, c.minElevation, c.maxElevation)
	c.update()
}

func (c *cameraImpl) Zoom(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = clamp(c.radius-delta, c.minRadius, c.maxRadius)
	c.update()
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) Azimuth() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.azimuth
}

func (c *cameraImpl) Elevation() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elevation
}

func (c *cameraImpl) View() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) ViewProjection() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjection
}

func (c *cameraImpl) InverseProjection() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjection
}

func (c *cameraImpl) Frustum() common.Frustum {
	c.mu.Lock()
	defer c.mu.Unlock()
	return common.ExtractFrustumFromMatrix(c.viewProjection[:])
}

// update recomputes the eye from the spherical coordinates and all matrices from the eye.
// Caller must hold the mutex.
func (c *cameraImpl) update() {
	cosElev := float32(math.Cos(float64(c.elevation)))
	sinElev := float32(math.Sin(float64(c.elevation)))
	cosAzim := float32(math.Cos(float64(c.azimuth)))
	sinAzim := float32(math.Sin(float64(c.azimuth)))

	c.eye[0] = c.target[0] + c.radius*cosElev*sinAzim
	c.eye[1] = c.target[1] + c.radius*sinElev
	c.eye[2] = c.target[2] + c.radius*cosElev*cosAzim

	common.LookAt(c.view[:],
		c.eye[0], c.eye[1], c.eye[2],
		c.target[0], c.target[1], c.target[2],
		c.up[0], c.up[1], c.up[2],
	)
	common.Perspective(c.projection[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjection[:], c.projection[:], c.view[:])
	common.Invert4(c.inverseProjection[:], c.projection[:])
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(v, hi))
}
