package character

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

// Keyframe is a joint pose at a point in time, in seconds.
type Keyframe struct {
	Time        float32
	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32
}

// Channel animates one joint. Keys are sorted by time.
type Channel struct {
	Joint int
	Keys  []Keyframe
}

// Clip is a named animation.
type Clip struct {
	Name     string
	Duration float32
	Channels []Channel
}

type pose struct {
	translation [3]float32
	rotation    [4]float32
	scale       [3]float32
}

// sample returns the interpolated pose of keys at t. Times before the first or after the
// last key hold that key.
func sample(keys []Keyframe, t float32) pose {
	first, last := keys[0], keys[len(keys)-1]
	if len(keys) == 1 || t <= first.Time {
		return pose{first.Translation, first.Rotation, first.Scale}
	}
	if t >= last.Time {
		return pose{last.Translation, last.Rotation, last.Scale}
	}
	// first key strictly after t
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	a, b := keys[i-1], keys[i]
	f := float32(0)
	if span := b.Time - a.Time; span > 0 {
		f = (t - a.Time) / span
	}
	return blendPose(
		pose{a.Translation, a.Rotation, a.Scale},
		pose{b.Translation, b.Rotation, b.Scale},
		f,
	)
}

func blendPose(a, b pose, f float32) pose {
	return pose{
		translation: common.Lerp3(a.translation, b.translation, f),
		rotation:    common.QuatSlerp(a.rotation, b.rotation, f),
		scale:       common.Lerp3(a.scale, b.scale, f),
	}
}
