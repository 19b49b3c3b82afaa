package character

import (
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
)

type playback struct {
	clip  int
	time  float32
	speed float32
	loop  bool

	blending      bool
	blendTo       int
	blendToTime   float32
	blendDuration float32
	blendElapsed  float32
}

type characterImpl struct {
	mu *sync.Mutex

	name     string
	skeleton Skeleton
	clips    []Clip
	// channels[clip][joint] is the channel index animating joint, -1 if none
	channels [][]int

	state playback

	world   [][16]float32
	palette [][16]float32
}

// Character is an animated skeleton instance. Update advances playback, Evaluate turns the
// current pose into a skin palette. Both are safe to call from worker goroutines as long as
// a character is evaluated by one worker at a time.
type Character interface {
	// Name returns the character name.
	Name() string

	// Skeleton returns the skeleton the character was built with.
	Skeleton() *Skeleton

	// NumJoints returns the number of joints, which is also the palette length.
	NumJoints() int

	// AddClip registers an animation clip.
	//
	// Parameters:
	//   - clip: the clip, its channels must reference joints of the skeleton
	//
	// Returns:
	//   - int: the clip index
	//   - error: an error if a channel references a missing joint or has no keys
	AddClip(clip Clip) (int, error)

	// FindClip returns the index of the clip called name, or -1.
	FindClip(name string) int

	// NumClips returns the number of registered clips.
	NumClips() int

	// PlayAnimation starts clip from time zero at normal speed and cancels any blend.
	// An out of range clip index is ignored.
	//
	// Parameters:
	//   - clip: the clip index
	//   - loop: whether playback wraps at the clip duration
	PlayAnimation(clip int, loop bool)

	// BlendToAnimation cross-fades from the playing clip to target over duration seconds.
	//
	// Parameters:
	//   - target: the clip index to blend to
	//   - duration: the blend time in seconds, <= 0 switches immediately
	BlendToAnimation(target int, duration float32)

	// CancelBlend stops a blend in progress and keeps the current clip.
	CancelBlend()

	// IsBlending reports whether a blend is in progress.
	IsBlending() bool

	// BlendProgress returns the blend weight of the target clip in [0, 1].
	BlendProgress() float32

	// SetAnimationTime moves the playhead of the current clip.
	SetAnimationTime(t float32)

	// AnimationTime returns the playhead of the current clip.
	AnimationTime() float32

	// SetAnimationSpeed scales the playback rate.
	SetAnimationSpeed(speed float32)

	// CurrentClip returns the playing clip index, -1 if none.
	CurrentClip() int

	// Update advances playback by deltaTime seconds.
	Update(deltaTime float32)

	// Evaluate computes the skin palette of the current pose.
	Evaluate()

	// Palette returns a copy of the last evaluated skin palette.
	Palette() [][16]float32
}

var _ Character = &characterImpl{}

// NewCharacter creates a character. It panics if the skeleton is invalid.
//
// Parameters:
//   - name: the character name
//   - skeleton: the joint hierarchy
//   - options: functional options
//
// Returns:
//   - Character: the character in bind pose with an identity palette
func NewCharacter(name string, skeleton Skeleton, options ...CharacterBuilderOption) Character {
	if err := skeleton.Validate(); err != nil {
		panic(fmt.Sprintf("character: %s: %v", name, err))
	}
	c := &characterImpl{
		mu:       &sync.Mutex{},
		name:     name,
		skeleton: skeleton,
		state:    playback{clip: -1, speed: 1},
		world:    make([][16]float32, len(skeleton.Joints)),
		palette:  make([][16]float32, len(skeleton.Joints)),
	}
	for i := range c.palette {
		common.Identity(c.palette[i][:])
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *characterImpl) Name() string {
	return c.name
}

func (c *characterImpl) Skeleton() *Skeleton {
	return &c.skeleton
}

func (c *characterImpl) NumJoints() int {
	return len(c.skeleton.Joints)
}

func (c *characterImpl) AddClip(clip Clip) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addClip(clip)
}

func (c *characterImpl) addClip(clip Clip) (int, error) {
	byJoint := make([]int, len(c.skeleton.Joints))
	for i := range byJoint {
		byJoint[i] = -1
	}
	for i, ch := range clip.Channels {
		if ch.Joint < 0 || ch.Joint >= len(byJoint) {
			return -1, fmt.Errorf("character: clip %q: channel %d references joint %d", clip.Name, i, ch.Joint)
		}
		if len(ch.Keys) == 0 {
			return -1, fmt.Errorf("character: clip %q: channel %d has no keys", clip.Name, i)
		}
		byJoint[ch.Joint] = i
	}
	c.clips = append(c.clips, clip)
	c.channels = append(c.channels, byJoint)
	return len(c.clips) - 1, nil
}

func (c *characterImpl) FindClip(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cl := range c.clips {
		if cl.Name == name {
			return i
		}
	}
	return -1
}

func (c *characterImpl) NumClips() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clips)
}

func (c *characterImpl) PlayAnimation(clip int, loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clip < 0 || clip >= len(c.clips) {
		return
	}
	c.state = playback{clip: clip, speed: 1, loop: loop}
}

func (c *characterImpl) BlendToAnimation(target int, duration float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target < 0 || target >= len(c.clips) {
		return
	}
	if duration <= 0 || c.state.clip < 0 {
		c.state.clip = target
		c.state.time = 0
		c.state.blending = false
		return
	}
	c.state.blending = true
	c.state.blendTo = target
	c.state.blendToTime = 0
	c.state.blendDuration = duration
	c.state.blendElapsed = 0
}

func (c *characterImpl) CancelBlend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.blending = false
	c.state.blendElapsed = 0
}

func (c *characterImpl) IsBlending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.blending
}

func (c *characterImpl) BlendProgress() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blendProgress()
}

func (c *characterImpl) blendProgress() float32 {
	if !c.state.blending || c.state.blendDuration <= 0 {
		return 0
	}
	return min(c.state.blendElapsed/c.state.blendDuration, 1)
}

func (c *characterImpl) SetAnimationTime(t float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.time = t
}

func (c *characterImpl) AnimationTime() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.time
}

func (c *characterImpl) SetAnimationSpeed(speed float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.speed = speed
}

func (c *characterImpl) CurrentClip() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clip
}

func (c *characterImpl) Update(deltaTime float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := &c.state
	if st.clip < 0 {
		return
	}

	st.time = c.advance(st.clip, st.time, deltaTime*st.speed, st.loop)
	if !st.blending {
		return
	}
	st.blendElapsed += deltaTime
	st.blendToTime = c.advance(st.blendTo, st.blendToTime, deltaTime*st.speed, st.loop)
	if st.blendElapsed >= st.blendDuration {
		st.clip = st.blendTo
		st.time = st.blendToTime
		st.blending = false
		st.blendElapsed = 0
	}
}

// advance moves t by dt on clip, wrapping when looping and clamping otherwise.
func (c *characterImpl) advance(clip int, t, dt float32, loop bool) float32 {
	t += dt
	d := c.clips[clip].Duration
	if d <= 0 {
		return 0
	}
	if loop {
		t = float32(math.Mod(float64(t), float64(d)))
		if t < 0 {
			t += d
		}
		return t
	}
	return max(0, min(t, d))
}

func (c *characterImpl) Evaluate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	progress := c.blendProgress()
	var local [16]float32
	for j, joint := range c.skeleton.Joints {
		p := pose{joint.Translation, joint.Rotation, joint.Scale}
		if st.clip >= 0 {
			p = c.samplePose(st.clip, j, st.time, p)
			if st.blending {
				p = blendPose(p, c.samplePose(st.blendTo, j, st.blendToTime, p), progress)
			}
		}
		common.ComposeTRS(local[:], p.translation, common.QuatNormalize(p.rotation), p.scale)
		if joint.Parent < 0 {
			c.world[j] = local
		} else {
			common.Mul4(c.world[j][:], c.world[joint.Parent][:], local[:])
		}
		common.Mul4(c.palette[j][:], c.world[j][:], joint.InverseBind[:])
	}
}

// samplePose returns the pose of joint in clip at t, or bind if the clip does not animate it.
func (c *characterImpl) samplePose(clip, joint int, t float32, bind pose) pose {
	ci := c.channels[clip][joint]
	if ci < 0 {
		return bind
	}
	return sample(c.clips[clip].Channels[ci].Keys, t)
}

func (c *characterImpl) Palette() [][16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][16]float32, len(c.palette))
	copy(out, c.palette)
	return out
}
