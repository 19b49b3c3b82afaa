package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

func TestEyeFromOrbit(t *testing.T) {
	c := NewCamera(WithOrbit(10, 0, 0))
	if diff := cmp.Diff([3]float32{0, 0, 10}, c.Eye(), approx); diff != "" {
		t.Errorf("eye mismatch (-want +got):\n%s", diff)
	}

	c.Orbit(float32(math.Pi/2), 0)
	if diff := cmp.Diff([3]float32{10, 0, 0}, c.Eye(), approx); diff != "" {
		t.Errorf("eye mismatch (-want +got):\n%s", diff)
	}

	c.SetTarget(1, 2, 3)
	if diff := cmp.Diff([3]float32{11, 2, 3}, c.Eye(), approx); diff != "" {
		t.Errorf("eye mismatch (-want +got):\n%s", diff)
	}
}

func TestOrbitAndZoomClamp(t *testing.T) {
	c := NewCamera(
		WithOrbit(5, 0, 0),
		WithRadiusLimits(1, 8),
		WithElevationLimits(-0.5, 0.5),
	)
	c.Orbit(0, 2)
	assert.Equal(t, float32(0.5), c.Elevation())
	c.Orbit(0, -3)
	assert.Equal(t, float32(-0.5), c.Elevation())

	c.Zoom(100)
	assert.Equal(t, float32(1), c.Radius())
	c.Zoom(-100)
	assert.Equal(t, float32(8), c.Radius())
}

func TestMatricesAreConsistent(t *testing.T) {
	c := NewCamera(WithAspect(2), WithNear(1), WithFar(100), WithFov(1))
	assert.Equal(t, float32(2), c.Aspect())
	assert.Equal(t, [3]float32{0, 1, 0}, c.Up())

	// projection times its inverse is the identity
	proj := c.Projection()
	inv := c.InverseProjection()
	var id [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += proj[k*4+row] * inv[col*4+k]
			}
			id[col*4+row] = sum
		}
	}
	if diff := cmp.Diff(gfx.Identity(), id, approx); diff != "" {
		t.Errorf("proj*inv mismatch (-want +got):\n%s", diff)
	}

	before := c.Projection()
	c.SetAspect(1)
	assert.NotEqual(t, before, c.Projection())
}

func TestFrustumContainsTarget(t *testing.T) {
	c := NewCamera(WithOrbit(10, 0.3, 0.2))
	f := c.Frustum()
	for i, p := range f.Planes {
		// the target sits at the origin, so each signed distance is the plane offset
		assert.Greater(t, p.Distance, float32(0), "plane %d", i)
	}
}

func TestPublish(t *testing.T) {
	reg := variable.NewRegistry()
	srv := headless.NewServer()
	pub := NewPublisher(reg, WithTransformServer(srv))
	c := NewCamera(WithOrbit(4, 0, 0))

	pub.Publish(c, 2.5, 800, 400)

	assert.Equal(t, c.View(), reg.Matrix(reg.HandleByName(VarView)))
	assert.Equal(t, c.Projection(), reg.Matrix(reg.HandleByName(VarProjection)))
	assert.Equal(t, c.ViewProjection(), reg.Matrix(reg.HandleByName(VarViewProjection)))
	assert.Equal(t, c.InverseProjection(), reg.Matrix(reg.HandleByName(VarInvProjection)))
	assert.Equal(t, float32(2.5), reg.Float(reg.HandleByName(VarTime)))
	assert.Equal(t, [4]float32{800, 400, 1.0 / 800, 1.0 / 400}, reg.Float4(reg.HandleByName(VarDisplaySize)))

	eye := reg.Vector4(reg.HandleByFourCC(variable.MakeFourCC("eyep")))
	if diff := cmp.Diff([4]float32{0, 0, 4, 1}, eye, approx); diff != "" {
		t.Errorf("eye mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, c.View(), srv.Transform(gfx.View))
	assert.Equal(t, c.Projection(), srv.Transform(gfx.Projection))
}

func TestPublishZeroDisplay(t *testing.T) {
	reg := variable.NewRegistry()
	pub := NewPublisher(reg)
	pub.Publish(NewCamera(), 0, 0, 0)
	assert.Equal(t, [4]float32{}, reg.Float4(reg.HandleByName(VarDisplaySize)))
}

func TestNewPublisherRequiresRegistry(t *testing.T) {
	require.PanicsWithValue(t, "camera: a registry is required", func() { NewPublisher(nil) })
}
