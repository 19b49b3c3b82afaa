package light

import (
	"math"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// Shadow volume defaults for directional lights.
const (
	DefaultShadowHalfExtent float32 = 40.0
	DefaultShadowNear       float32 = 0.1
	DefaultShadowFar        float32 = 200.0
)

func (l *lightImpl) ShadowViewProjection(center [3]float32, halfExtent, near, far float32) [16]float32 {
	var view, proj, vp [16]float32
	dir := l.direction

	// an up vector that is not parallel to the light
	up := [3]float32{0, 1, 0}
	if absF32(dir[1]) > 0.99 {
		up = [3]float32{1, 0, 0}
	}

	switch l.lightType {
	case LightTypeDirectional:
		// the eye sits behind the center, opposite the light direction
		eye := [3]float32{
			center[0] - dir[0]*far*0.5,
			center[1] - dir[1]*far*0.5,
			center[2] - dir[2]*far*0.5,
		}
		common.LookAt(view[:], eye[0], eye[1], eye[2], center[0], center[1], center[2], up[0], up[1], up[2])
		common.Ortho(proj[:], -halfExtent, halfExtent, -halfExtent, halfExtent, near, far)
	default:
		p := l.position
		common.LookAt(view[:], p[0], p[1], p[2], p[0]+dir[0], p[1]+dir[1], p[2]+dir[2], up[0], up[1], up[2])
		fov := float32(math.Pi / 2)
		if l.lightType == LightTypeSpot {
			fov = 2 * float32(math.Acos(float64(l.outerCone)))
		}
		common.Perspective(proj[:], fov, 1, near, min(far, l.lightRange))
	}
	common.Mul4(vp[:], proj[:], view[:])
	return vp
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
