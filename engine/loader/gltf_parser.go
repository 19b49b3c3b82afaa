package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLB         = errors.New("invalid GLB container")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
)

// gltfFile is a decoded glTF document with its buffers loaded.
type gltfFile struct {
	baseDir string
	doc     *gltfDocument
}

// parseGLTFFile reads a .gltf or .glb file. Relative buffer and image URIs resolve against
// the directory of path.
func parseGLTFFile(path string) (*gltfFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	return parseGLTF(data, filepath.Dir(path), isGLB)
}

// parseGLTF decodes a glTF JSON document or a GLB container.
//
// Parameters:
//   - data: the file contents
//   - baseDir: the directory external URIs resolve against, empty for embedded-only assets
//   - isGLB: whether data is a GLB container
//
// Returns:
//   - *gltfFile: the document with loaded buffers
//   - error: a decode or buffer error
func parseGLTF(data []byte, baseDir string, isGLB bool) (*gltfFile, error) {
	jsonData := data
	var binChunk []byte
	if isGLB {
		var err error
		if jsonData, binChunk, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}
	if len(doc.ExtensionsRequired) > 0 {
		return nil, fmt.Errorf("unsupported required extensions: %s", strings.Join(doc.ExtensionsRequired, ", "))
	}

	f := &gltfFile{baseDir: baseDir, doc: &doc}
	if err := f.loadBuffers(binChunk); err != nil {
		return nil, fmt.Errorf("failed to load buffers: %w", err)
	}
	return f, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
func splitGLB(data []byte) (jsonData, binData []byte, err error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("%w: file too small", errInvalidGLB)
	}
	if binary.LittleEndian.Uint32(data[0:]) != glbMagic {
		return nil, nil, fmt.Errorf("%w: bad magic", errInvalidGLB)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != glbVersion {
		return nil, nil, fmt.Errorf("%w: version %d", errInvalidGLB, v)
	}

	r := bytes.NewReader(data[12:])
	for {
		var header struct {
			Length uint32
			Type   uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("%w: chunk header: %v", errInvalidGLB, err)
		}
		chunk := make([]byte, header.Length)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, fmt.Errorf("%w: chunk data: %v", errInvalidGLB, err)
		}
		switch header.Type {
		case glbChunkJSON:
			jsonData = chunk
		case glbChunkBIN:
			binData = chunk
		}
	}
	if jsonData == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonData, binData, nil
}

// loadBuffers resolves every buffer from a data URI, an external file or the GLB binary
// chunk, which only the first buffer may use.
func (f *gltfFile) loadBuffers(binChunk []byte) error {
	for i := range f.doc.Buffers {
		buf := &f.doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && binChunk != nil:
			buf.data = binChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			data, err := f.readURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = data
		}
		if len(buf.data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}
	return nil
}

// readURI loads a base64 data URI or a file relative to the document.
func (f *gltfFile) readURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		if f.baseDir == "" {
			return nil, fmt.Errorf("external URI %q without a base directory", uri)
		}
		return os.ReadFile(filepath.Join(f.baseDir, filepath.FromSlash(uri)))
	}
	// data:[<mediatype>][;base64],<data>
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, errInvalidBufferURI
	}
	if !strings.Contains(uri[5:comma], "base64") {
		return nil, fmt.Errorf("%w: not base64", errInvalidBufferURI)
	}
	return base64.StdEncoding.DecodeString(uri[comma+1:])
}

// accessorData returns the tightly packed elements of an accessor.
func (f *gltfFile) accessorData(index int) ([]byte, *gltfAccessor, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &f.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(f.doc.BufferViews) {
		return nil, nil, fmt.Errorf("accessor %d has no buffer view", index)
	}
	bv := &f.doc.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, nil, fmt.Errorf("buffer view %d: buffer %d out of range", *acc.BufferView, bv.Buffer)
	}
	buf := f.doc.Buffers[bv.Buffer].data

	elemSize := componentSize(acc.ComponentType) * gltfTypeComponents[acc.Type]
	if elemSize == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported type %s/%d", index, acc.Type, acc.ComponentType)
	}
	stride := elemSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}
	start := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 && start+(acc.Count-1)*stride+elemSize > len(buf) {
		return nil, nil, fmt.Errorf("accessor %d: %w", index, errBufferSizeMismatch)
	}

	out := make([]byte, acc.Count*elemSize)
	for i := 0; i < acc.Count; i++ {
		src := start + i*stride
		copy(out[i*elemSize:(i+1)*elemSize], buf[src:src+elemSize])
	}
	return out, acc, nil
}

// readFloats reads an accessor of the given accessor type as float32 values. Normalized
// integer components are mapped to [0, 1] or [-1, 1].
//
// Parameters:
//   - index: the accessor index
//   - accType: the expected accessor type, e.g. VEC3
//
// Returns:
//   - []float32: count*components values
//   - error: a type mismatch or buffer error
func (f *gltfFile) readFloats(index int, accType string) ([]float32, error) {
	data, acc, err := f.accessorData(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accType {
		return nil, fmt.Errorf("accessor %d is %s, want %s", index, acc.Type, accType)
	}
	if acc.ComponentType != gltfFloat && !acc.Normalized {
		return nil, fmt.Errorf("accessor %d: integer components must be normalized", index)
	}

	n := acc.Count * gltfTypeComponents[acc.Type]
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		switch acc.ComponentType {
		case gltfFloat:
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		case gltfUnsignedByte:
			out[i] = float32(data[i]) / 255
		case gltfUnsignedShort:
			out[i] = float32(binary.LittleEndian.Uint16(data[i*2:])) / 65535
		case gltfByte:
			out[i] = max(float32(int8(data[i]))/127, -1)
		case gltfShort:
			out[i] = max(float32(int16(binary.LittleEndian.Uint16(data[i*2:])))/32767, -1)
		default:
			return nil, fmt.Errorf("accessor %d: component type %d is not a float type", index, acc.ComponentType)
		}
	}
	return out, nil
}

// readIndices reads a SCALAR accessor of unsigned integers.
func (f *gltfFile) readIndices(index int) ([]uint32, error) {
	data, acc, err := f.accessorData(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}

	out := make([]uint32, acc.Count)
	for i := range out {
		switch acc.ComponentType {
		case gltfUnsignedByte:
			out[i] = uint32(data[i])
		case gltfUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(data[i*2:]))
		case gltfUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(data[i*4:])
		default:
			return nil, fmt.Errorf("index accessor %d: unsupported component type %d", index, acc.ComponentType)
		}
	}
	return out, nil
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfByte, gltfUnsignedByte:
		return 1
	case gltfShort, gltfUnsignedShort:
		return 2
	case gltfUnsignedInt, gltfFloat:
		return 4
	}
	return 0
}
