package renderpath

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// shaderArg is one named shader parameter value.
type shaderArg struct {
	name  string
	value variable.Variable
	bound bool
}

// paramBlock holds the constant and variable-bound shader parameters of a pass or sequence.
// Bound parameters are mapped through a variable context whose entries carry the global
// variable handle and, as Int value, the index of the argument they feed.
type paramBlock struct {
	args []shaderArg
	vars *variable.Context
}

func newParamBlock() paramBlock {
	return paramBlock{vars: variable.NewContext()}
}

// setConst stores a constant value for name, replacing an earlier constant.
func (b *paramBlock) setConst(name string, v variable.Variable) {
	for i := range b.args {
		if b.args[i].name == name && !b.args[i].bound {
			b.args[i].value = v
			return
		}
	}
	b.args = append(b.args, shaderArg{name: name, value: v})
}

// bind feeds name from the global variable h on every pull.
func (b *paramBlock) bind(name string, h variable.Handle) {
	slot := len(b.args)
	b.args = append(b.args, shaderArg{name: name, value: variable.NewVoid(h), bound: true})
	b.vars.AddVariable(variable.NewInt(h, slot))
}

func (b *paramBlock) len() int {
	return len(b.args)
}

// pull copies the current global values of all bound parameters into the block.
func (b *paramBlock) pull(reg variable.Registry) error {
	for _, cv := range b.vars.Variables() {
		g := reg.GlobalVariable(cv.Handle())
		if g == nil {
			return fmt.Errorf("%w: %q", ErrGlobalVariableNotFound, reg.Name(cv.Handle()))
		}
		b.args[cv.Int()].value = g.Copy()
	}
	return nil
}

// apply writes every argument to sh. Bound arguments that were never pulled are skipped.
func (b *paramBlock) apply(sh gfx.Shader) error {
	for i := range b.args {
		a := &b.args[i]
		if a.value.Type() == variable.Void {
			continue
		}
		if err := applyShaderArg(sh, a.name, &a.value); err != nil {
			return err
		}
	}
	return nil
}

// applyShaderArg writes v to the shader parameter name, dispatching on the variable type.
// Parameters the shader does not declare are ignored.
func applyShaderArg(sh gfx.Shader, name string, v *variable.Variable) error {
	if !sh.IsParameterUsed(name) {
		return nil
	}
	switch v.Type() {
	case variable.Int:
		sh.SetInt(name, v.Int())
	case variable.Float:
		sh.SetFloat(name, v.Float())
	case variable.Float4:
		sh.SetFloat4(name, v.Float4())
	case variable.Vector4:
		sh.SetVector4(name, v.Vector4())
	case variable.Matrix:
		sh.SetMatrix(name, v.Matrix())
	case variable.Object:
		switch o := v.Object().(type) {
		case nil:
			sh.SetTexture(name, nil)
		case gfx.Texture:
			sh.SetTexture(name, o)
		case *RenderTargetDesc:
			// resolved per apply, the texture is recreated on resize
			sh.SetTexture(name, o.Texture())
		case [][16]float32:
			sh.SetMatrixArray(name, o)
		default:
			return fmt.Errorf("%w: object %T for %q", ErrUnsupportedArgType, o, name)
		}
	default:
		return fmt.Errorf("%w: %s for %q", ErrUnsupportedArgType, v.Type(), name)
	}
	return nil
}
