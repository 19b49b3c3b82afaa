package light

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLightDefaults(t *testing.T) {
	l := NewLight(LightTypePoint)
	assert.Equal(t, LightTypePoint, l.Type())
	assert.Equal(t, [3]float32{0, -1, 0}, l.Direction())
	assert.Equal(t, [3]float32{1, 1, 1}, l.Color())
	assert.Equal(t, float32(1), l.Intensity())
	assert.Equal(t, float32(10), l.Range())
	assert.True(t, l.Enabled())
	assert.False(t, l.CastsShadows())
	assert.Greater(t, l.InnerCone(), l.OuterCone())
}

func TestBuilderOptions(t *testing.T) {
	l := NewLight(LightTypeSpot,
		WithName("key"),
		WithPosition(1, 2, 3),
		WithDirection(0, 0, -2),
		WithColor(1, 0.5, 0),
		WithIntensity(2),
		WithRange(25),
		WithSpotCone(10, 20),
		WithCastsShadows(true),
		WithEnabled(false),
	)
	assert.Equal(t, "key", l.Name())
	assert.Equal(t, [3]float32{1, 2, 3}, l.Position())
	assert.Equal(t, [3]float32{0, 0, -1}, l.Direction())
	assert.Equal(t, float32(25), l.Range())
	assert.InDelta(t, math.Cos(10*math.Pi/180), l.InnerCone(), 1e-6)
	assert.InDelta(t, math.Cos(20*math.Pi/180), l.OuterCone(), 1e-6)
	assert.True(t, l.CastsShadows())
	assert.False(t, l.Enabled())
}

func TestShaderEncoding(t *testing.T) {
	p := NewLight(LightTypePoint, WithPosition(1, 2, 3), WithRange(5), WithColor(1, 0.5, 0.25), WithIntensity(2))
	assert.Equal(t, [4]float32{1, 2, 3, 5}, p.ShaderPosition())
	assert.Equal(t, [4]float32{2, 1, 0.5, 1}, p.ShaderColor(1))
	assert.Equal(t, float32(0), p.ShaderColor(0)[3])

	d := NewLight(LightTypeDirectional, WithDirection(0, -1, 0))
	assert.Equal(t, [4]float32{0, 1, 0, 0}, d.ShaderPosition())
}

func TestAffects(t *testing.T) {
	p := NewLight(LightTypePoint, WithRange(5))
	assert.True(t, p.Affects([3]float32{4, 0, 0}, 0.5))
	assert.True(t, p.Affects([3]float32{6, 0, 0}, 1))
	assert.False(t, p.Affects([3]float32{10, 0, 0}, 1))

	d := NewLight(LightTypeDirectional)
	assert.True(t, d.Affects([3]float32{1000, 0, 0}, 1))
	d.SetEnabled(false)
	assert.False(t, d.Affects([3]float32{0, 0, 0}, 1))
}

func TestParseLightType(t *testing.T) {
	lt, err := ParseLightType("Spot")
	require.NoError(t, err)
	assert.Equal(t, LightTypeSpot, lt)
	assert.Equal(t, "Spot", lt.String())

	_, err = ParseLightType("area")
	assert.Error(t, err)
}

func TestShadowViewProjectionContainsCenter(t *testing.T) {
	tests := []struct {
		name  string
		light Light
	}{
		{"directional", NewLight(LightTypeDirectional, WithDirection(-1, -1, 0))},
		{"straight down", NewLight(LightTypeDirectional)},
		{"spot", NewLight(LightTypeSpot, WithPosition(0, 10, 0), WithRange(50))},
		{"point", NewLight(LightTypePoint, WithPosition(0, 10, 0), WithRange(50))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := tt.light.ShadowViewProjection([3]float32{0, 0, 0}, DefaultShadowHalfExtent, DefaultShadowNear, DefaultShadowFar)
			f := common.ExtractFrustumFromMatrix(vp[:])
			assert.True(t, f.IntersectsSphere([3]float32{0, 0, 0}, 0.01))
			assert.False(t, f.IntersectsSphere([3]float32{0, 10000, 0}, 1))
		})
	}
}
