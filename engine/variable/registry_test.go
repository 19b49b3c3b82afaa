package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeclareVariableIsIdempotent(t *testing.T) {
	r := NewRegistry()

	decls := []struct {
		name string
		code string
	}{
		{"ModelViewProjection", "mvpr"},
		{"Time", "time"},
		{"LightPos", "lpos"},
	}

	handles := make([]Handle, len(decls))
	for i, d := range decls {
		handles[i] = r.DeclareVariable(d.name, MakeFourCC(d.code))
	}

	for i, d := range decls {
		assert.Equal(t, handles[i], r.DeclareVariable(d.name, MakeFourCC(d.code)), d.name)
		assert.Equal(t, handles[i], r.HandleByName(d.name), d.name)
		assert.Equal(t, handles[i], r.HandleByFourCC(MakeFourCC(d.code)), d.name)
		assert.Equal(t, d.name, r.Name(handles[i]))
		assert.Equal(t, MakeFourCC(d.code), r.FourCC(handles[i]))
	}
	assert.Equal(t, len(decls), r.Len())
}

func TestHandlesAreAppendOnly(t *testing.T) {
	r := NewRegistry()
	a := r.HandleByName("a")
	b := r.HandleByName("b")
	c := r.HandleByFourCC(MakeFourCC("cccc"))

	assert.Equal(t, Handle(0), a)
	assert.Equal(t, Handle(1), b)
	assert.Equal(t, Handle(2), c)
	assert.Equal(t, "cccc", r.Name(c))
}

func TestDeclareVariableConsistency(t *testing.T) {
	r := NewRegistry()
	r.DeclareVariable("Time", MakeFourCC("time"))
	r.DeclareVariable("Fog", MakeFourCC("fogc"))

	assert.Panics(t, func() { r.DeclareVariable("Time", MakeFourCC("fogc")) })
	assert.Panics(t, func() { r.DeclareVariable("Other", MakeFourCC("time")) })
	assert.Panics(t, func() { r.DeclareVariable("Time", MakeFourCC("xxxx")) })
}

func TestDeclareVariableBindsLazyName(t *testing.T) {
	r := NewRegistry()
	h := r.HandleByName("Glow")
	require.Equal(t, InvalidFourCC, r.FourCC(h))

	assert.Equal(t, h, r.DeclareVariable("Glow", MakeFourCC("glow")))
	assert.Equal(t, h, r.HandleByFourCC(MakeFourCC("glow")))
	assert.Equal(t, h, r.DeclareVariable("Glow", InvalidFourCC))
}

func TestFindHandleByNameDoesNotDeclare(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, InvalidHandle, r.FindHandleByName("missing"))
	assert.Equal(t, 0, r.Len())
}

func TestTypedAccessors(t *testing.T) {
	r := NewRegistry(
		WithDeclaration("Exposure", "expo"),
		WithGlobal("Steps", func(h Handle) Variable { return NewInt(h, 4) }),
	)

	h := r.HandleByName("Exposure")
	assert.Panics(t, func() { r.Float(h) })

	r.SetFloat(h, 1.5)
	assert.Equal(t, float32(1.5), r.Float(h))
	r.SetFloat(h, 2)
	assert.Equal(t, float32(2), r.Float(h))
	assert.Equal(t, 1, countHandle(r.Globals(), h))

	steps := r.HandleByName("Steps")
	assert.Equal(t, 4, r.Int(steps))
	assert.Panics(t, func() { r.SetFloat(steps, 1) }, "type is fixed at creation")

	m := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	mh := r.HandleByName("World")
	r.SetMatrix(mh, m)
	got := r.Matrix(mh)
	got[0] = 42
	assert.Equal(t, m, r.Matrix(mh), "matrices are copied out")

	r.SetString(r.HandleByName("Label"), "hello")
	assert.Equal(t, "hello", r.String(r.HandleByName("Label")))

	obj := &struct{ n int }{1}
	r.SetObject(r.HandleByName("Tex"), obj)
	assert.Same(t, obj, r.Object(r.HandleByName("Tex")))

	r.SetVector4(r.HandleByName("Eye"), [4]float32{1, 2, 3, 1})
	assert.Equal(t, [4]float32{1, 2, 3, 1}, r.Vector4(r.HandleByName("Eye")))
	r.SetFloat4(r.HandleByName("Tint"), [4]float32{0.5, 0.5, 0.5, 1})
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, r.Float4(r.HandleByName("Tint")))
}

func TestSetGlobalVariableRejectsUndeclaredHandle(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.SetGlobalVariable(NewInt(7, 1)) })
}

func TestReadsCountsGlobalLookups(t *testing.T) {
	r := NewRegistry()
	h := r.HandleByName("x")
	r.SetInt(h, 3)
	before := r.Reads()

	r.GlobalVariable(h)
	r.GlobalVariableByName("x")
	r.GlobalVariableByName("never")
	_ = r.Int(h)

	assert.Equal(t, before+4, r.Reads())
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.HandleByName("only-in-a")
	assert.Equal(t, InvalidHandle, b.FindHandleByName("only-in-a"))
}

func countHandle(c *Context, h Handle) int {
	n := 0
	for _, v := range c.Variables() {
		if v.Handle() == h {
			n++
		}
	}
	return n
}
