// Package config loads the application configuration from TOML files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of the configuration file.
type Config struct {
	Display    Display    `toml:"display"`
	RenderPath RenderPath `toml:"render_path"`
	Log        Log        `toml:"log"`
	Engine     Engine     `toml:"engine"`
}

// Display configures the window and the backbuffer.
type Display struct {
	Title      string `toml:"title"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Resizable  bool   `toml:"resizable"`
	Fullscreen bool   `toml:"fullscreen"`
	VSync      bool   `toml:"vsync"`
}

// RenderPath configures the render path file and its loading.
type RenderPath struct {
	File           string `toml:"file"`
	ShaderRoot     string `toml:"shader_root"`
	HotReload      bool   `toml:"hot_reload"`
	PreloadWorkers int    `toml:"preload_workers"`
	Shadows        bool   `toml:"shadows"`
	// Strict additionally validates every shader with the WGSL front end on open.
	Strict bool `toml:"strict"`
}

// Log configures the slog handler shared by all packages.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Engine configures the frame loop.
type Engine struct {
	TickRate   float64 `toml:"tick_rate"`
	FrameLimit float64 `toml:"frame_limit"`
	Profiling  bool    `toml:"profiling"`
	// ProfileInterval is how often frame statistics are logged, e.g. "1s".
	ProfileInterval string `toml:"profile_interval"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Display: Display{
			Title:     "oxy-renderpath",
			Width:     1280,
			Height:    720,
			Resizable: true,
			VSync:     true,
		},
		RenderPath: RenderPath{
			PreloadWorkers: 4,
			Shadows:        true,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Engine: Engine{
			TickRate:        60,
			ProfileInterval: "1s",
		},
	}
}

// Open reads the configuration from a TOML file on top of Default.
//
// Parameters:
//   - filename: the TOML file
//
// Returns:
//   - Config: the validated configuration
//   - error: a read, decode or validation error
func Open(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Read(bufio.NewReader(f))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", filename, err)
	}
	return cfg, nil
}

// Read decodes a TOML document on top of Default and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the validated configuration
//   - error: a decode or validation error
func Read(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var sme *toml.StrictMissingError
		if errors.As(err, &sme) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(sme.String()))
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as TOML.
//
// Parameters:
//   - w: the destination
//   - cfg: the configuration to write
//
// Returns:
//   - error: an encode or write error
func Save(w io.Writer, cfg Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(cfg)
}

// Validate reports every invalid field joined into one error.
func (c Config) Validate() error {
	var errs []error
	bad := func(key, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, fmt.Sprintf(format, args...)))
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		bad("display", "size %dx%d must be positive", c.Display.Width, c.Display.Height)
	}
	if c.RenderPath.PreloadWorkers < 0 {
		bad("render_path.preload_workers", "%d is negative", c.RenderPath.PreloadWorkers)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		bad("log.level", "%v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		bad("log.format", "%q is not text or json", c.Log.Format)
	}
	if c.Engine.TickRate < 0 {
		bad("engine.tick_rate", "%v is negative", c.Engine.TickRate)
	}
	if c.Engine.FrameLimit < 0 {
		bad("engine.frame_limit", "%v is negative", c.Engine.FrameLimit)
	}
	if _, err := c.Engine.Interval(); err != nil {
		bad("engine.profile_interval", "%v", err)
	}
	return errors.Join(errs...)
}
