package character

import "fmt"

// CharacterBuilderOption configures a Character at construction time.
type CharacterBuilderOption func(*characterImpl)

// WithClips registers clips in order, so the first clip has index 0. Invalid clips panic.
//
// Parameters:
//   - clips: the clips to register
//
// Returns:
//   - CharacterBuilderOption: a function that registers the clips
func WithClips(clips ...Clip) CharacterBuilderOption {
	return func(c *characterImpl) {
		for _, cl := range clips {
			if _, err := c.addClip(cl); err != nil {
				panic(err.Error())
			}
		}
	}
}

// WithAutoplay starts the named clip looping.
//
// Parameters:
//   - clip: the clip name, it must be registered by an earlier WithClips
//
// Returns:
//   - CharacterBuilderOption: a function that starts playback
func WithAutoplay(clip string) CharacterBuilderOption {
	return func(c *characterImpl) {
		for i, cl := range c.clips {
			if cl.Name == clip {
				c.state = playback{clip: i, speed: 1, loop: true}
				return
			}
		}
		panic(fmt.Sprintf("character: %s: no clip %q to autoplay", c.name, clip))
	}
}
