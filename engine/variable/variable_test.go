package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeFourCC(t *testing.T) {
	f := MakeFourCC("abcd")
	assert.Equal(t, FourCC(uint32('a')|uint32('b')<<8|uint32('c')<<16|uint32('d')<<24), f)
	assert.Equal(t, "abcd", f.String())
	assert.Equal(t, "ab  ", MakeFourCC("ab").String())
	assert.Equal(t, "<none>", InvalidFourCC.String())
}

func TestVariableTypeIsFixed(t *testing.T) {
	v := NewFloat(1, 2)
	assert.Equal(t, Float, v.Type())
	assert.Panics(t, func() { v.SetInt(3) })
	assert.Panics(t, func() { _ = v.Matrix() })

	v.SetFloat(4)
	assert.Equal(t, float32(4), v.Float())
}

func TestVariableCopyIsDeep(t *testing.T) {
	m := [16]float32{1, 2, 3}
	a := NewMatrix(5, m)
	b := a.Copy()
	b.SetMatrix([16]float32{9})

	assert.Equal(t, m, a.Matrix())
	assert.Equal(t, Handle(5), b.Handle())
}

func TestSetValueKeepsHandle(t *testing.T) {
	dst := NewFloat4(1, [4]float32{})
	src := NewFloat4(2, [4]float32{1, 2, 3, 4})
	dst.SetValue(&src)

	assert.Equal(t, Handle(1), dst.Handle())
	assert.Equal(t, [4]float32{1, 2, 3, 4}, dst.Float4())

	other := NewInt(3, 1)
	assert.Panics(t, func() { dst.SetValue(&other) })
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{Void, Int, Float, Float4, String, Object, Matrix, HandleVal, Vector4} {
		got, ok := ParseType(typ.String())
		require.True(t, ok, typ.String())
		assert.Equal(t, typ, got)
	}
	_, ok := ParseType("quaternion")
	assert.False(t, ok)
}

func TestContext(t *testing.T) {
	c := NewContext()
	assert.Nil(t, c.GetVariable(3))

	c.AddVariable(NewInt(3, 0))
	c.AddVariable(NewInt(4, 1))
	require.NotNil(t, c.GetVariable(3))
	assert.Equal(t, 0, c.GetVariable(3).Int())

	c.SetVariable(NewInt(3, 9))
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 9, c.GetVariable(3).Int())

	c.SetVariable(NewFloat(8, 1))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, Handle(8), c.At(2).Handle())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.GetVariable(4))
}
