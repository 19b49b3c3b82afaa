package character

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-5)

// armSkeleton is a root joint with a child one unit up.
func armSkeleton() Skeleton {
	root := NewJoint("root", -1)
	hand := NewJoint("hand", 0)
	hand.Translation = [3]float32{0, 1, 0}
	hand.InverseBind[13] = -1
	return Skeleton{Joints: []Joint{root, hand}}
}

func bendClip() Clip {
	return Clip{
		Name:     "bend",
		Duration: 1,
		Channels: []Channel{{
			Joint: 0,
			Keys: []Keyframe{
				{Time: 0, Rotation: common.QuatIdentity(), Scale: [3]float32{1, 1, 1}},
				{Time: 1, Rotation: common.QuatFromAxisAngle([3]float32{0, 0, 1}, math.Pi/2), Scale: [3]float32{1, 1, 1}},
			},
		}},
	}
}

func idleClip() Clip {
	return Clip{
		Name:     "idle",
		Duration: 2,
		Channels: []Channel{{
			Joint: 0,
			Keys:  []Keyframe{{Rotation: common.QuatIdentity(), Scale: [3]float32{1, 1, 1}}},
		}},
	}
}

func handTip(t *testing.T, c Character) [3]float32 {
	t.Helper()
	p := c.Palette()
	require.Len(t, p, 2)
	return common.TransformPoint(p[1][:], [3]float32{0, 1, 0})
}

func TestBindPosePaletteIsIdentity(t *testing.T) {
	c := NewCharacter("arm", armSkeleton())
	assert.Equal(t, 2, c.NumJoints())
	assert.Equal(t, -1, c.CurrentClip())

	c.Evaluate()
	var id [16]float32
	common.Identity(id[:])
	want := [][16]float32{id, id}
	if diff := cmp.Diff(want, c.Palette(), approx); diff != "" {
		t.Errorf("palette mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateSamplesClip(t *testing.T) {
	c := NewCharacter("arm", armSkeleton(), WithClips(bendClip()))
	c.PlayAnimation(0, false)

	c.SetAnimationTime(1)
	c.Evaluate()
	if diff := cmp.Diff([3]float32{-1, 0, 0}, handTip(t, c), approx); diff != "" {
		t.Errorf("tip mismatch (-want +got):\n%s", diff)
	}

	c.SetAnimationTime(0.5)
	c.Evaluate()
	s := float32(math.Sqrt2 / 2)
	if diff := cmp.Diff([3]float32{-s, s, 0}, handTip(t, c), approx); diff != "" {
		t.Errorf("tip mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateLoopsAndClamps(t *testing.T) {
	c := NewCharacter("arm", armSkeleton(), WithClips(bendClip()))

	c.PlayAnimation(0, true)
	c.Update(1.25)
	assert.InDelta(t, 0.25, c.AnimationTime(), 1e-6)

	c.PlayAnimation(0, false)
	c.Update(3)
	assert.Equal(t, float32(1), c.AnimationTime())

	c.PlayAnimation(0, false)
	c.SetAnimationSpeed(0.5)
	c.Update(1)
	assert.InDelta(t, 0.5, c.AnimationTime(), 1e-6)
}

func TestBlendToAnimation(t *testing.T) {
	c := NewCharacter("arm", armSkeleton(), WithClips(idleClip(), bendClip()), WithAutoplay("idle"))
	require.Equal(t, 0, c.CurrentClip())
	assert.Equal(t, 1, c.FindClip("bend"))
	assert.Equal(t, -1, c.FindClip("run"))

	c.BlendToAnimation(1, 1)
	assert.True(t, c.IsBlending())
	c.Update(0.5)
	assert.InDelta(t, 0.5, c.BlendProgress(), 1e-6)

	// halfway between idle and bend at t=0.5 is a 22.5 degree bend
	c.Evaluate()
	tip := handTip(t, c)
	angle := math.Atan2(float64(-tip[0]), float64(tip[1]))
	assert.InDelta(t, math.Pi/8, angle, 1e-4)

	c.Update(0.6)
	assert.False(t, c.IsBlending())
	assert.Equal(t, 1, c.CurrentClip())
	// the target clip inherits the loop flag and wraps
	assert.InDelta(t, 0.1, c.AnimationTime(), 1e-5)
	assert.Zero(t, c.BlendProgress())
}

func TestCancelBlendAndImmediateSwitch(t *testing.T) {
	c := NewCharacter("arm", armSkeleton(), WithClips(idleClip(), bendClip()))
	c.PlayAnimation(0, true)
	c.BlendToAnimation(1, 2)
	c.CancelBlend()
	assert.False(t, c.IsBlending())
	assert.Equal(t, 0, c.CurrentClip())

	c.BlendToAnimation(1, 0)
	assert.False(t, c.IsBlending())
	assert.Equal(t, 1, c.CurrentClip())

	c.PlayAnimation(7, true)
	assert.Equal(t, 1, c.CurrentClip())
}

func TestAddClipErrors(t *testing.T) {
	c := NewCharacter("arm", armSkeleton())
	_, err := c.AddClip(Clip{Name: "bad", Channels: []Channel{{Joint: 5, Keys: []Keyframe{{}}}}})
	assert.ErrorContains(t, err, "joint 5")
	_, err = c.AddClip(Clip{Name: "empty", Channels: []Channel{{Joint: 0}}})
	assert.ErrorContains(t, err, "no keys")
	assert.Zero(t, c.NumClips())
}

func TestInvalidSkeleton(t *testing.T) {
	s := Skeleton{Joints: []Joint{NewJoint("a", 1), NewJoint("b", -1)}}
	assert.ErrorIs(t, s.Validate(), ErrInvalidSkeleton)
	assert.ErrorIs(t, (&Skeleton{}).Validate(), ErrInvalidSkeleton)
	assert.Panics(t, func() { NewCharacter("x", s) })
	arm := armSkeleton()
	assert.Equal(t, 1, arm.FindJoint("hand"))
}

func TestEvaluatorRunsAllCharacters(t *testing.T) {
	reg := variable.NewRegistry()
	e := NewEvaluator(WithWorkers(3), WithRegistry(reg))
	defer e.Stop()
	assert.Equal(t, 3, e.Workers())

	chars := make([]Character, 10)
	for i := range chars {
		chars[i] = NewCharacter("arm", armSkeleton(), WithClips(bendClip()))
		chars[i].PlayAnimation(0, false)
	}
	e.Evaluate(1, chars)

	for _, c := range chars {
		assert.Equal(t, float32(1), c.AnimationTime())
		if diff := cmp.Diff([3]float32{-1, 0, 0}, handTip(t, c), approx); diff != "" {
			t.Errorf("tip mismatch (-want +got):\n%s", diff)
		}
	}

	p := e.Publish(chars[0])
	got, ok := reg.Object(reg.HandleByName(VarJointPalette)).([][16]float32)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestSampleHoldsEnds(t *testing.T) {
	keys := []Keyframe{
		{Time: 1, Translation: [3]float32{1, 0, 0}, Rotation: common.QuatIdentity()},
		{Time: 3, Translation: [3]float32{3, 0, 0}, Rotation: common.QuatIdentity()},
	}
	assert.Equal(t, [3]float32{1, 0, 0}, sample(keys, 0).translation)
	assert.Equal(t, [3]float32{3, 0, 0}, sample(keys, 9).translation)
	assert.Equal(t, [3]float32{2, 0, 0}, sample(keys, 2).translation)
}
