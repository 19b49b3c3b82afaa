package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/character"
)

// track is one animated property of a joint: times in seconds and width values per key.
type track struct {
	times  []float32
	values []float32
	width  int
	step   bool
}

// at returns the track value at t, holding the first and last key outside the key range.
func (tr *track) at(t float32) []float32 {
	n := len(tr.times)
	key := func(i int) []float32 { return tr.values[i*tr.width : (i+1)*tr.width] }
	if n == 1 || t <= tr.times[0] {
		return key(0)
	}
	if t >= tr.times[n-1] {
		return key(n - 1)
	}
	i, _ := slices.BinarySearch(tr.times, t)
	// times[i-1] < t <= times[i]
	if tr.times[i] == t {
		return key(i)
	}
	if tr.step {
		return key(i - 1)
	}
	a, b := key(i-1), key(i)
	f := (t - tr.times[i-1]) / (tr.times[i] - tr.times[i-1])
	if tr.width == 4 {
		q := common.QuatSlerp([4]float32(a), [4]float32(b), f)
		return q[:]
	}
	out := make([]float32, tr.width)
	for k := range out {
		out[k] = a[k] + (b[k]-a[k])*f
	}
	return out
}

// jointTracks are the animated properties of one joint, nil when not animated.
type jointTracks struct {
	translation, rotation, scale *track
}

// readTrack reads an animation sampler. Cubic spline outputs store an in-tangent, a value
// and an out-tangent per key; only the values are kept and interpolated linearly.
func (f *gltfFile) readTrack(s *gltfAnimSampler, accType string, width int) (*track, error) {
	times, err := f.readFloats(s.Input, "SCALAR")
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	values, err := f.readFloats(s.Output, accType)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if s.Interpolation == "CUBICSPLINE" {
		kept := make([]float32, 0, len(values)/3)
		for i := 0; i+3*width <= len(values); i += 3 * width {
			kept = append(kept, values[i+width:i+2*width]...)
		}
		values = kept
	}
	if len(times) == 0 || len(values) < len(times)*width {
		return nil, fmt.Errorf("%d keys with %d values", len(times), len(values)/width)
	}
	if !slices.IsSorted(times) {
		return nil, fmt.Errorf("key times are not increasing")
	}
	return &track{times: times, values: values[:len(times)*width], width: width, step: s.Interpolation == "STEP"}, nil
}

// readClips converts the animations that target joints of the skeleton into clips. Each
// joint channel gets a key at every time any of its tracks has a key; properties without a
// track hold the bind pose.
//
// Parameters:
//   - skeleton: the skeleton the clips animate
//   - nodeToJoint: glTF node index to joint index
//
// Returns:
//   - []character.Clip: one clip per animation with at least one joint channel
//   - error: an invalid sampler or accessor
func (f *gltfFile) readClips(skeleton *character.Skeleton, nodeToJoint map[int]int) ([]character.Clip, error) {
	var clips []character.Clip
	for ai := range f.doc.Animations {
		anim := &f.doc.Animations[ai]
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", ai)
		}

		tracks := make(map[int]*jointTracks)
		for ci, ch := range anim.Channels {
			if ch.Target.Node == nil {
				continue
			}
			joint, ok := nodeToJoint[*ch.Target.Node]
			if !ok {
				continue
			}
			if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
				return nil, fmt.Errorf("animation %q channel %d: sampler %d out of range", name, ci, ch.Sampler)
			}
			jt := tracks[joint]
			if jt == nil {
				jt = &jointTracks{}
				tracks[joint] = jt
			}

			var err error
			s := &anim.Samplers[ch.Sampler]
			switch ch.Target.Path {
			case "translation":
				jt.translation, err = f.readTrack(s, "VEC3", 3)
			case "rotation":
				jt.rotation, err = f.readTrack(s, "VEC4", 4)
			case "scale":
				jt.scale, err = f.readTrack(s, "VEC3", 3)
			default:
				// morph target weights
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d (%s): %w", name, ci, ch.Target.Path, err)
			}
		}
		if len(tracks) == 0 {
			continue
		}

		clip := character.Clip{Name: name}
		for joint, jt := range tracks {
			ch := mergeTracks(joint, skeleton.Joints[joint], jt)
			if len(ch.Keys) == 0 {
				continue
			}
			clip.Duration = max(clip.Duration, ch.Keys[len(ch.Keys)-1].Time)
			clip.Channels = append(clip.Channels, ch)
		}
		slices.SortFunc(clip.Channels, func(a, b character.Channel) int { return a.Joint - b.Joint })
		clips = append(clips, clip)
	}
	return clips, nil
}

// mergeTracks samples the tracks of a joint at the union of their key times.
func mergeTracks(joint int, bind character.Joint, jt *jointTracks) character.Channel {
	var times []float32
	for _, tr := range []*track{jt.translation, jt.rotation, jt.scale} {
		if tr != nil {
			times = append(times, tr.times...)
		}
	}
	slices.Sort(times)
	times = slices.Compact(times)

	ch := character.Channel{Joint: joint, Keys: make([]character.Keyframe, len(times))}
	for i, t := range times {
		k := character.Keyframe{
			Time:        t,
			Translation: bind.Translation,
			Rotation:    bind.Rotation,
			Scale:       bind.Scale,
		}
		if jt.translation != nil {
			k.Translation = [3]float32(jt.translation.at(t))
		}
		if jt.rotation != nil {
			k.Rotation = common.QuatNormalize([4]float32(jt.rotation.at(t)))
		}
		if jt.scale != nil {
			k.Scale = [3]float32(jt.scale.at(t))
		}
		ch.Keys[i] = k
	}
	return ch
}
