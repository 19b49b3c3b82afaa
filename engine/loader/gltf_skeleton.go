package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
)

// skinIndex returns the skin of the first skinned node, or -1.
func (f *gltfFile) skinIndex() int {
	for _, n := range f.doc.Nodes {
		if n.Skin != nil && *n.Skin >= 0 && *n.Skin < len(f.doc.Skins) {
			return *n.Skin
		}
	}
	if len(f.doc.Skins) > 0 {
		return 0
	}
	return -1
}

// readSkeleton builds the joint hierarchy of a skin. Joints are reordered breadth first from
// the roots so every parent precedes its children.
//
// Parameters:
//   - skin: the skin index
//
// Returns:
//   - *character.Skeleton: the skeleton in bind pose
//   - map[int]int: glTF node index to joint index
//   - error: an invalid joint or inverse bind accessor
func (f *gltfFile) readSkeleton(skin int) (*character.Skeleton, map[int]int, error) {
	doc := f.doc
	sk := &doc.Skins[skin]

	var inverseBind []float32
	if sk.InverseBindMatrices != nil {
		var err error
		if inverseBind, err = f.readFloats(*sk.InverseBindMatrices, "MAT4"); err != nil {
			return nil, nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
	}

	parentNode := make([]int, len(doc.Nodes))
	for i := range parentNode {
		parentNode[i] = -1
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(parentNode) {
				parentNode[c] = i
			}
		}
	}

	// skin order index of every joint node
	skinOrder := make(map[int]int, len(sk.Joints))
	for i, node := range sk.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: node index %d out of range", i, node)
		}
		skinOrder[node] = i
	}

	// the parent of a joint is its nearest ancestor that is also a joint
	parentJoint := make([]int, len(sk.Joints))
	children := make(map[int][]int)
	var roots []int
	for i, node := range sk.Joints {
		parentJoint[i] = -1
		for p := parentNode[node]; p >= 0; p = parentNode[p] {
			if j, ok := skinOrder[p]; ok {
				parentJoint[i] = j
				break
			}
		}
		if parentJoint[i] < 0 {
			roots = append(roots, i)
		} else {
			children[parentJoint[i]] = append(children[parentJoint[i]], i)
		}
	}

	order := make([]int, 0, len(sk.Joints))
	queue := append([]int(nil), roots...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		order = append(order, j)
		queue = append(queue, children[j]...)
	}
	if len(order) != len(sk.Joints) {
		return nil, nil, fmt.Errorf("skin %d: joint hierarchy has a cycle", skin)
	}

	newIndex := make([]int, len(sk.Joints))
	for n, j := range order {
		newIndex[j] = n
	}

	skeleton := &character.Skeleton{Joints: make([]character.Joint, len(order))}
	nodeToJoint := make(map[int]int, len(order))
	for n, j := range order {
		node := &doc.Nodes[sk.Joints[j]]
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("joint_%d", j)
		}
		parent := -1
		if parentJoint[j] >= 0 {
			parent = newIndex[parentJoint[j]]
		}

		joint := character.NewJoint(name, parent)
		joint.Translation, joint.Rotation, joint.Scale = nodeTRS(node)
		if len(inverseBind) >= (j+1)*16 {
			copy(joint.InverseBind[:], inverseBind[j*16:(j+1)*16])
		} else {
			common.Identity(joint.InverseBind[:])
		}
		skeleton.Joints[n] = joint
		nodeToJoint[sk.Joints[j]] = n
	}

	if err := skeleton.Validate(); err != nil {
		return nil, nil, err
	}
	return skeleton, nodeToJoint, nil
}
