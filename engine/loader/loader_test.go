package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/headless"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

// assetBuilder packs accessors into a single buffer.
type assetBuilder struct {
	bin       bytes.Buffer
	views     []map[string]any
	accessors []map[string]any
}

func (b *assetBuilder) add(data any, count, componentType int, accType string) int {
	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	offset := b.bin.Len()
	if err := binary.Write(&b.bin, binary.LittleEndian, data); err != nil {
		panic(err)
	}
	b.views = append(b.views, map[string]any{"buffer": 0, "byteOffset": offset, "byteLength": b.bin.Len() - offset})
	b.accessors = append(b.accessors, map[string]any{
		"bufferView":    len(b.views) - 1,
		"componentType": componentType,
		"count":         count,
		"type":          accType,
	})
	return len(b.accessors) - 1
}

func (b *assetBuilder) floats(accType string, values ...float32) int {
	return b.add(values, len(values)/gltfTypeComponents[accType], gltfFloat, accType)
}

func (b *assetBuilder) indices(values ...uint16) int {
	return b.add(values, len(values), gltfUnsignedShort, "SCALAR")
}

// document returns the glTF JSON with doc merged in. Without a GLB chunk the buffer is
// embedded as a data URI.
func (b *assetBuilder) document(doc map[string]any, glb bool) []byte {
	buffer := map[string]any{"byteLength": b.bin.Len()}
	if !glb {
		buffer["uri"] = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.bin.Bytes())
	}
	doc["asset"] = map[string]any{"version": "2.0"}
	doc["buffers"] = []any{buffer}
	doc["bufferViews"] = b.views
	doc["accessors"] = b.accessors
	out, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return out
}

func (b *assetBuilder) glb(doc map[string]any) []byte {
	jsonData := b.document(doc, true)
	for len(jsonData)%4 != 0 {
		jsonData = append(jsonData, ' ')
	}
	bin := b.bin.Bytes()
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var out bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&out, le, []uint32{glbMagic, glbVersion, uint32(12 + 8 + len(jsonData) + 8 + len(bin))})
	_ = binary.Write(&out, le, []uint32{uint32(len(jsonData)), glbChunkJSON})
	out.Write(jsonData)
	_ = binary.Write(&out, le, []uint32{uint32(len(bin)), glbChunkBIN})
	out.Write(bin)
	return out.Bytes()
}

// triangleAsset is one triangle in the XY plane placed by a translated and scaled node.
func triangleAsset() (*assetBuilder, map[string]any) {
	b := &assetBuilder{}
	pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := b.indices(0, 1, 2)
	return b, map[string]any{
		"scene":  0,
		"scenes": []any{map[string]any{"name": "tri", "nodes": []int{0}}},
		"nodes": []any{map[string]any{
			"mesh":        0,
			"translation": []float32{0, 0, 5},
			"scale":       []float32{2, 2, 2},
		}},
		"meshes": []any{map[string]any{
			"name": "triangle",
			"primitives": []any{map[string]any{
				"attributes": map[string]int{"POSITION": pos},
				"indices":    idx,
				"material":   0,
			}},
		}},
		"materials": []any{map[string]any{
			"name":                 "red",
			"pbrMetallicRoughness": map[string]any{"baseColorFactor": []float32{1, 0, 0, 1}},
		}},
	}
}

func writeAsset(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoadBakesNodeTransform(t *testing.T) {
	b, doc := triangleAsset()
	path := writeAsset(t, "tri.gltf", b.document(doc, false))
	l := NewLoader(headless.NewServer())

	m, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tri", m.Name)
	require.Len(t, m.Primitives, 1)
	p := m.Primitives[0]
	assert.Equal(t, 3, p.Mesh.NumVertices())
	assert.Equal(t, 3, p.Mesh.NumIndices())
	assert.Equal(t, 0, p.Material)
	assert.InDelta(t, math.Sqrt(29), p.Radius, 1e-5)
	assert.InDelta(t, math.Sqrt(29), m.Radius(), 1e-5)

	// position, generated normal, zero uv
	want := []float32{
		0, 0, 5, 0, 0, 1, 0, 0,
		2, 0, 5, 0, 0, 1, 0, 0,
		0, 2, 5, 0, 0, 1, 0, 0,
	}
	if diff := cmp.Diff(want, p.Mesh.Vertices(), approx); diff != "" {
		t.Errorf("vertices mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, m.Materials, 1)
	assert.Equal(t, "red", m.Materials[0].Name)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, m.Materials[0].BaseColor)
	assert.Nil(t, m.Materials[0].BaseColorTexture)
	assert.Nil(t, m.Skeleton)
}

func TestLoadCaches(t *testing.T) {
	b, doc := triangleAsset()
	path := writeAsset(t, "tri.gltf", b.document(doc, false))
	l := NewLoader(headless.NewServer())

	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(path))
	assert.Len(t, l.Models(), 1)

	l.Release()
	assert.Nil(t, l.Get(path))
	assert.Empty(t, l.Models())
}

func TestLoadErrors(t *testing.T) {
	l := NewLoader(headless.NewServer())

	_, err := l.Load("model.obj")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load(filepath.Join(t.TempDir(), "missing.gltf"))
	assert.Error(t, err)

	bad := writeAsset(t, "old.gltf", []byte(`{"asset":{"version":"1.0"}}`))
	_, err = l.Load(bad)
	assert.ErrorIs(t, err, errInvalidGLTFVersion)

	b, doc := triangleAsset()
	doc["meshes"].([]any)[0].(map[string]any)["primitives"].([]any)[0].(map[string]any)["mode"] = 1
	lines := writeAsset(t, "lines.gltf", b.document(doc, false))
	_, err = l.Load(lines)
	assert.ErrorContains(t, err, "only triangles")
}

func TestLoadReaderGLB(t *testing.T) {
	b, doc := triangleAsset()
	l := NewLoader(headless.NewServer())

	m, err := l.LoadReader("embedded", bytes.NewReader(b.glb(doc)), true)
	require.NoError(t, err)
	require.Len(t, m.Primitives, 1)
	assert.Equal(t, 3, m.Primitives[0].Mesh.NumVertices())
	assert.Same(t, m, l.Get("embedded"))

	_, err = l.LoadReader("broken", bytes.NewReader([]byte("glTF")), true)
	assert.ErrorIs(t, err, errInvalidGLB)
}

func TestLoadAllJoinsErrors(t *testing.T) {
	b, doc := triangleAsset()
	good := writeAsset(t, "tri.gltf", b.document(doc, false))
	missing := filepath.Join(t.TempDir(), "missing.glb")
	l := NewLoader(headless.NewServer(), WithWorkers(2))

	models, err := l.LoadAll(good, missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.glb")
	require.Len(t, models, 2)
	assert.NotNil(t, models[0])
	assert.Nil(t, models[1])
	assert.Same(t, models[0], l.Get(good))
}

func TestGameObjects(t *testing.T) {
	b, doc := triangleAsset()
	l := NewLoader(headless.NewServer())
	m, err := l.LoadReader("tri", bytes.NewReader(b.document(doc, false)), false)
	require.NoError(t, err)

	objects := m.GameObjects()
	require.Len(t, objects, 1)
	assert.Same(t, m.Primitives[0].Mesh, objects[0].Mesh())
	assert.InDelta(t, math.Sqrt(29), objects[0].BoundingRadius(), 1e-5)

	_, err = m.NewCharacter()
	assert.ErrorContains(t, err, "no skeleton")
}

// skinnedAsset has a hip joint with a knee child, listed knee first in the skin, and an
// animation rotating the knee and scaling it halfway through.
func skinnedAsset() []byte {
	b := &assetBuilder{}
	pos := b.floats("VEC3", 0, 0, 0, 1, 0, 0, 0, 1, 0)
	kneeIB := [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, -1, 0, 1}
	var hipIB [16]float32
	common.Identity(hipIB[:])
	ibm := b.floats("MAT4", append(kneeIB[:], hipIB[:]...)...)

	q := common.QuatFromAxisAngle([3]float32{0, 0, 1}, math.Pi/2)
	rotTimes := b.floats("SCALAR", 0, 1)
	rotValues := b.floats("VEC4", 0, 0, 0, 1, q[0], q[1], q[2], q[3])
	scaleTimes := b.floats("SCALAR", 0.5)
	scaleValues := b.floats("VEC3", 2, 2, 2)

	doc := map[string]any{
		"scenes": []any{map[string]any{"nodes": []int{0, 2}}},
		"nodes": []any{
			map[string]any{"name": "hip", "children": []int{1}},
			map[string]any{"name": "knee", "translation": []float32{0, 1, 0}},
			map[string]any{"mesh": 0, "skin": 0, "translation": []float32{10, 0, 0}},
		},
		"meshes": []any{map[string]any{
			"primitives": []any{map[string]any{"attributes": map[string]int{"POSITION": pos}}},
		}},
		"skins": []any{map[string]any{"joints": []int{1, 0}, "inverseBindMatrices": ibm}},
		"animations": []any{map[string]any{
			"name": "kneel",
			"channels": []any{
				map[string]any{"sampler": 0, "target": map[string]any{"node": 1, "path": "rotation"}},
				map[string]any{"sampler": 1, "target": map[string]any{"node": 1, "path": "scale"}},
			},
			"samplers": []any{
				map[string]any{"input": rotTimes, "output": rotValues},
				map[string]any{"input": scaleTimes, "output": scaleValues, "interpolation": "STEP"},
			},
		}},
	}
	return b.document(doc, false)
}

func TestLoadSkeletonAndClips(t *testing.T) {
	l := NewLoader(headless.NewServer())
	m, err := l.LoadReader("kneel", bytes.NewReader(skinnedAsset()), false)
	require.NoError(t, err)

	// skinned vertices stay in bind space
	assert.Equal(t, []float32{0, 0, 0}, m.Primitives[0].Mesh.Vertices()[:3])

	require.NotNil(t, m.Skeleton)
	require.Len(t, m.Skeleton.Joints, 2)
	hip, knee := m.Skeleton.Joints[0], m.Skeleton.Joints[1]
	assert.Equal(t, "hip", hip.Name)
	assert.Equal(t, -1, hip.Parent)
	assert.Equal(t, "knee", knee.Name)
	assert.Equal(t, 0, knee.Parent)
	assert.Equal(t, [3]float32{0, 1, 0}, knee.Translation)
	assert.Equal(t, float32(-1), knee.InverseBind[13])
	assert.Equal(t, float32(0), hip.InverseBind[13])

	require.Len(t, m.Clips, 1)
	clip := m.Clips[0]
	assert.Equal(t, "kneel", clip.Name)
	assert.Equal(t, float32(1), clip.Duration)
	require.Len(t, clip.Channels, 1)
	ch := clip.Channels[0]
	assert.Equal(t, 1, ch.Joint)
	require.Len(t, ch.Keys, 3)
	assert.Equal(t, []float32{0, 0.5, 1}, []float32{ch.Keys[0].Time, ch.Keys[1].Time, ch.Keys[2].Time})

	half := common.QuatFromAxisAngle([3]float32{0, 0, 1}, math.Pi/4)
	if diff := cmp.Diff(half, ch.Keys[1].Rotation, approx); diff != "" {
		t.Errorf("halfway rotation mismatch (-want +got):\n%s", diff)
	}
	// untracked translation holds the bind pose, the single scale key holds everywhere
	assert.Equal(t, [3]float32{0, 1, 0}, ch.Keys[0].Translation)
	assert.Equal(t, [3]float32{2, 2, 2}, ch.Keys[0].Scale)

	c, err := m.NewCharacter()
	require.NoError(t, err)
	assert.Equal(t, 0, c.FindClip("kneel"))
	assert.Equal(t, 2, c.NumJoints())
}

func TestDecomposeMatrix(t *testing.T) {
	tr := [3]float32{1, 2, 3}
	rot := common.QuatFromAxisAngle(common.Normalize3([3]float32{1, 1, 0}), 1.2)
	sc := [3]float32{2, 3, 4}
	var m [16]float32
	common.ComposeTRS(m[:], tr, rot, sc)

	gotT, gotR, gotS := decomposeMatrix(m)
	if diff := cmp.Diff(tr, gotT, approx); diff != "" {
		t.Errorf("translation mismatch (-want +got):\n%s", diff)
	}
	// q and -q are the same rotation
	if gotR[3]*rot[3] < 0 {
		gotR = [4]float32{-gotR[0], -gotR[1], -gotR[2], -gotR[3]}
	}
	if diff := cmp.Diff(rot, gotR, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Errorf("rotation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sc, gotS, approx); diff != "" {
		t.Errorf("scale mismatch (-want +got):\n%s", diff)
	}
}
