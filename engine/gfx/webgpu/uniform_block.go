package webgpu

import (
	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/wgsl"
)

// uniformBlock is the CPU copy of a shader's uniform struct, laid out from reflection.
// Setters write into it, each draw uploads it into the next uniform slot.
type uniformBlock struct {
	params map[string]wgsl.Param
	data   []byte
}

func newUniformBlock(r *wgsl.Reflection) *uniformBlock {
	b := &uniformBlock{params: make(map[string]wgsl.Param, len(r.Params))}
	for _, p := range r.Params {
		b.params[p.Name] = p
	}
	if r.UniformSize > 0 {
		b.data = make([]byte, alignUp(r.UniformSize, 16))
	}
	return b
}

// size returns the byte size of the block as bound, zero if the shader has no uniforms.
func (b *uniformBlock) size() uint64 {
	return uint64(len(b.data))
}

// write copies values into the member called name. Values beyond the member size are
// dropped, so a float4 written to a vec3 member keeps xyz. Unknown names are ignored.
//
// Parameters:
//   - name: the member name
//   - values: the raw 32 bit values
func (b *uniformBlock) write(name string, values []byte) {
	p, ok := b.params[name]
	if !ok {
		return
	}
	n := min(uint64(len(values)), p.Size)
	copy(b.data[p.Offset:p.Offset+n], values[:n])
}

func (b *uniformBlock) setInt(name string, v int) {
	b.write(name, common.SliceToBytes([]int32{int32(v)}))
}

func (b *uniformBlock) setFloat(name string, v float32) {
	b.write(name, common.SliceToBytes([]float32{v}))
}

func (b *uniformBlock) setFloat4(name string, v [4]float32) {
	b.write(name, common.SliceToBytes(v[:]))
}

func (b *uniformBlock) setMatrix(name string, v [16]float32) {
	b.write(name, common.SliceToBytes(v[:]))
}

// setMatrixArray writes consecutive mat4x4 elements, at most the declared element count.
func (b *uniformBlock) setMatrixArray(name string, v [][16]float32) {
	p, ok := b.params[name]
	if !ok {
		return
	}
	n := min(len(v), p.Count)
	b.write(name, common.SliceToBytes(v[:n]))
}
