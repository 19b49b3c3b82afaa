package loader

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// meshInstance is a glTF mesh placed by a node.
type meshInstance struct {
	mesh  int
	world [16]float32
	// skinned meshes keep their bind-space vertices, the node transform does not apply.
	skinned bool
}

// nodeMatrix returns the local transform of a node.
func nodeMatrix(n *gltfNode) [16]float32 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	t, r, s := nodeTRS(n)
	var m [16]float32
	common.ComposeTRS(m[:], t, r, s)
	return m
}

// nodeTRS returns the translation, rotation and scale of a node. Matrix nodes are
// decomposed.
func nodeTRS(n *gltfNode) ([3]float32, [4]float32, [3]float32) {
	t, r, s := [3]float32{}, common.QuatIdentity(), [3]float32{1, 1, 1}
	if n.Matrix != nil {
		return decomposeMatrix(*n.Matrix)
	}
	if n.Translation != nil {
		t = *n.Translation
	}
	if n.Rotation != nil {
		r = common.QuatNormalize(*n.Rotation)
	}
	if n.Scale != nil {
		s = *n.Scale
	}
	return t, r, s
}

// rootNodes returns the nodes of the default scene, or every node that is no child when the
// document has no scene.
func (f *gltfFile) rootNodes() []int {
	doc := f.doc
	if len(doc.Scenes) > 0 {
		scene := 0
		if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, i)
		}
	}
	return roots
}

// meshInstances walks the node hierarchy and returns every mesh reference with its world
// matrix. A document whose nodes reference no mesh yields each mesh once at the origin.
func (f *gltfFile) meshInstances() ([]meshInstance, error) {
	doc := f.doc
	var out []meshInstance
	visited := make([]bool, len(doc.Nodes))

	var walk func(idx int, parent [16]float32) error
	walk = func(idx int, parent [16]float32) error {
		if idx < 0 || idx >= len(doc.Nodes) {
			return fmt.Errorf("node index %d out of range", idx)
		}
		if visited[idx] {
			return fmt.Errorf("node %d is reachable twice", idx)
		}
		visited[idx] = true

		n := &doc.Nodes[idx]
		local := nodeMatrix(n)
		var world [16]float32
		common.Mul4(world[:], parent[:], local[:])
		if n.Mesh != nil {
			if *n.Mesh < 0 || *n.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("node %d: mesh index %d out of range", idx, *n.Mesh)
			}
			out = append(out, meshInstance{mesh: *n.Mesh, world: world, skinned: n.Skin != nil})
		}
		for _, c := range n.Children {
			if err := walk(c, world); err != nil {
				return err
			}
		}
		return nil
	}

	var identity [16]float32
	common.Identity(identity[:])
	for _, root := range f.rootNodes() {
		if err := walk(root, identity); err != nil {
			return nil, err
		}
	}

	if len(out) == 0 {
		for i := range doc.Meshes {
			out = append(out, meshInstance{mesh: i, world: identity})
		}
	}
	return out, nil
}

// primitiveData is an interleaved Coord|Normal|Uv0 vertex buffer with 16-bit indices.
type primitiveData struct {
	vertices []float32
	indices  []uint16
	radius   float32
}

// readPrimitive reads a triangle primitive and transforms it by world unless skinned.
// Missing normals are generated from the faces, missing UVs are zero.
func (f *gltfFile) readPrimitive(prim *gltfPrimitive, inst meshInstance) (*primitiveData, error) {
	if prim.Mode != nil && *prim.Mode != gltfModeTriangles {
		return nil, fmt.Errorf("unsupported primitive mode %d, only triangles are supported", *prim.Mode)
	}
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION attribute")
	}
	positions, err := f.readFloats(posIdx, "VEC3")
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	count := len(positions) / 3
	if count > math.MaxUint16+1 {
		return nil, fmt.Errorf("%d vertices exceed the 16-bit index range", count)
	}

	var normals, uvs []float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = f.readFloats(idx, "VEC3"); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = f.readFloats(idx, "VEC2"); err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = f.readIndices(*prim.Indices); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	out := &primitiveData{indices: make([]uint16, len(indices))}
	for i, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("index %d out of range of %d vertices", idx, count)
		}
		out.indices[i] = uint16(idx)
	}

	if len(normals) < count*3 {
		normals = faceNormals(positions, indices)
	}

	// normals transform by the inverse transpose of the world matrix
	var normalMatrix [16]float32
	bake := !inst.skinned
	if bake && !common.Invert4(normalMatrix[:], inst.world[:]) {
		return nil, fmt.Errorf("node transform is not invertible")
	}

	stride := MeshComponents.Stride()
	out.vertices = make([]float32, 0, count*stride)
	for i := 0; i < count; i++ {
		p := [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
		n := [3]float32{normals[i*3], normals[i*3+1], normals[i*3+2]}
		if bake {
			p = common.TransformPoint(inst.world[:], p)
			n = common.Normalize3([3]float32{
				normalMatrix[0]*n[0] + normalMatrix[1]*n[1] + normalMatrix[2]*n[2],
				normalMatrix[4]*n[0] + normalMatrix[5]*n[1] + normalMatrix[6]*n[2],
				normalMatrix[8]*n[0] + normalMatrix[9]*n[1] + normalMatrix[10]*n[2],
			})
		}
		var uv [2]float32
		if len(uvs) >= (i+1)*2 {
			uv = [2]float32{uvs[i*2], uvs[i*2+1]}
		}
		out.vertices = append(out.vertices, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
		out.radius = max(out.radius, common.Distance3(p, [3]float32{}))
	}
	return out, nil
}

// faceNormals returns per-vertex normals averaged from the area-weighted normals of the
// triangles sharing each vertex. Unreferenced vertices point up.
func faceNormals(positions []float32, indices []uint32) []float32 {
	count := len(positions) / 3
	acc := make([][3]float32, count)
	at := func(i uint32) [3]float32 {
		return [3]float32{positions[i*3], positions[i*3+1], positions[i*3+2]}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		p0, p1, p2 := at(i0), at(i1), at(i2)
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		face := [3]float32{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, idx := range [3]uint32{i0, i1, i2} {
			acc[idx][0] += face[0]
			acc[idx][1] += face[1]
			acc[idx][2] += face[2]
		}
	}

	out := make([]float32, count*3)
	for i, n := range acc {
		n = common.Normalize3(n)
		if n == ([3]float32{}) {
			n = [3]float32{0, 1, 0}
		}
		copy(out[i*3:], n[:])
	}
	return out
}

// decomposeMatrix splits a column-major affine matrix into translation, rotation and scale.
// Shear is lost.
func decomposeMatrix(m [16]float32) ([3]float32, [4]float32, [3]float32) {
	t := [3]float32{m[12], m[13], m[14]}
	length := func(x, y, z float32) float32 {
		return float32(math.Sqrt(float64(x*x + y*y + z*z)))
	}
	s := [3]float32{length(m[0], m[1], m[2]), length(m[4], m[5], m[6]), length(m[8], m[9], m[10])}

	div := s
	for i := range div {
		if div[i] < 1e-4 {
			div[i] = 1
		}
	}
	// rotation matrix, row r column c at r*3+c
	r00, r10, r20 := m[0]/div[0], m[1]/div[0], m[2]/div[0]
	r01, r11, r21 := m[4]/div[1], m[5]/div[1], m[6]/div[1]
	r02, r12, r22 := m[8]/div[2], m[9]/div[2], m[10]/div[2]

	var x, y, z, w float32
	switch trace := r00 + r11 + r22; {
	case trace > 0:
		k := float32(math.Sqrt(float64(trace+1))) * 2
		w, x, y, z = 0.25*k, (r21-r12)/k, (r02-r20)/k, (r10-r01)/k
	case r00 > r11 && r00 > r22:
		k := float32(math.Sqrt(float64(1+r00-r11-r22))) * 2
		w, x, y, z = (r21-r12)/k, 0.25*k, (r01+r10)/k, (r02+r20)/k
	case r11 > r22:
		k := float32(math.Sqrt(float64(1+r11-r00-r22))) * 2
		w, x, y, z = (r02-r20)/k, (r01+r10)/k, 0.25*k, (r12+r21)/k
	default:
		k := float32(math.Sqrt(float64(1+r22-r00-r11))) * 2
		w, x, y, z = (r10-r01)/k, (r02+r20)/k, (r12+r21)/k, 0.25*k
	}
	return t, common.QuatNormalize([4]float32{x, y, z, w}), s
}
