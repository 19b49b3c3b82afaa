package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/light"
	"github.com/stretchr/testify/assert"
)

func TestNewGameObjectDefaults(t *testing.T) {
	obj := NewGameObject()
	assert.True(t, obj.Enabled())
	assert.Equal(t, [3]float32{1, 1, 1}, obj.Scale())
	assert.Equal(t, float32(1), obj.BoundingRadius())
	assert.Nil(t, obj.Mesh())
	assert.Nil(t, obj.Character())
	assert.Empty(t, obj.ShaderAlias())
}

func TestBuilderOptions(t *testing.T) {
	l := light.NewLight(light.LightTypePoint)
	obj := NewGameObject(
		WithID(7),
		WithEnabled(false),
		WithShaderAlias("geom"),
		WithPosition(1, 2, 3),
		WithScale(2, 3, 1),
		WithRotation(0.1, 0, 0),
		WithRotationSpeed(0, 1, 0),
		WithBoundingRadius(0.5),
		WithCastsShadows(true),
		WithLight(l),
	)
	assert.Equal(t, uint64(7), obj.ID())
	assert.False(t, obj.Enabled())
	assert.Equal(t, "geom", obj.ShaderAlias())
	assert.Equal(t, [3]float32{1, 2, 3}, obj.Position())
	assert.Equal(t, [3]float32{0.1, 0, 0}, obj.Rotation())
	assert.True(t, obj.CastsShadows())
	assert.Same(t, l, obj.Light())

	center, radius := obj.WorldBounds()
	assert.Equal(t, [3]float32{1, 2, 3}, center)
	assert.Equal(t, float32(1.5), radius)
}

func TestUpdateAppliesRotationSpeed(t *testing.T) {
	obj := NewGameObject(WithRotationSpeed(0, 2, -1))
	obj.Update(0.5)
	obj.Update(0.25)
	rot := obj.Rotation()
	assert.InDelta(t, 1.5, rot[1], 1e-6)
	assert.InDelta(t, -0.75, rot[2], 1e-6)
}

func TestModelMatrixPlacesOrigin(t *testing.T) {
	obj := NewGameObject(WithPosition(4, 5, 6), WithScale(2, 2, 2))
	m := obj.ModelMatrix()
	assert.Equal(t, [3]float32{4, 5, 6}, common.TransformPoint(m[:], [3]float32{0, 0, 0}))
	p := common.TransformPoint(m[:], [3]float32{1, 0, 0})
	assert.InDelta(t, 6, p[0], 1e-5)
}
