package renderpath

import (
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

// ShaderDesc binds a shader alias to a file. The gfx shader is created and loaded on the first
// Validate and kept until Release.
type ShaderDesc struct {
	name        string
	file        string
	bucketIndex int
	shader      gfx.Shader
}

func (d *ShaderDesc) Name() string {
	return d.name
}

func (d *ShaderDesc) File() string {
	return d.file
}

func (d *ShaderDesc) BucketIndex() int {
	return d.bucketIndex
}

func (d *ShaderDesc) Shader() gfx.Shader {
	return d.shader
}

// create makes the gfx shader without loading it. The file is resolved against root unless
// it is absolute.
func (d *ShaderDesc) create(srv gfx.Server, root string) {
	if d.shader != nil {
		return
	}
	path := d.file
	if !filepath.IsAbs(path) && root != "" {
		path = filepath.Join(root, path)
	}
	d.shader = srv.NewShader(d.name, path)
}

// load reads and compiles the shader file. Loading a loaded shader does nothing.
func (d *ShaderDesc) load() error {
	if d.shader.IsLoaded() {
		return nil
	}
	if err := d.shader.Load(); err != nil {
		return contentErr("Shader", d.name, fmt.Errorf("%w: %w", ErrShaderLoad, err))
	}
	return nil
}

// Validate creates and loads the shader.
//
// Parameters:
//   - srv: the graphics server
//   - root: the directory relative shader files are resolved against
//
// Returns:
//   - error: a resource error wrapping ErrShaderLoad
func (d *ShaderDesc) Validate(srv gfx.Server, root string) error {
	d.create(srv, root)
	return d.load()
}

// Release frees the gfx shader.
func (d *ShaderDesc) Release() {
	if d.shader != nil {
		d.shader.Release()
		d.shader = nil
	}
}

// RenderTargetDesc describes a named render target. A positive relSize sizes the target
// relative to the display, otherwise width and height are absolute.
type RenderTargetDesc struct {
	name          string
	format        gfx.PixelFormat
	relSize       float32
	width, height int
	texture       gfx.Texture
}

func (d *RenderTargetDesc) Name() string {
	return d.name
}

func (d *RenderTargetDesc) Format() gfx.PixelFormat {
	return d.format
}

func (d *RenderTargetDesc) RelSize() float32 {
	return d.relSize
}

func (d *RenderTargetDesc) Texture() gfx.Texture {
	return d.texture
}

// IsRelative reports whether the target follows the display size.
func (d *RenderTargetDesc) IsRelative() bool {
	return d.relSize > 0
}

// Size returns the size the target is created with for the given display size. Relative
// targets are at least 1x1, so a minimized display still yields a valid texture.
func (d *RenderTargetDesc) Size(displayWidth, displayHeight int) (int, int) {
	if d.IsRelative() {
		return max(int(float32(displayWidth)*d.relSize), 1), max(int(float32(displayHeight)*d.relSize), 1)
	}
	return d.width, d.height
}

// Validate creates the render target texture on the first call.
//
// Parameters:
//   - srv: the graphics server
//
// Returns:
//   - error: a resource error wrapping ErrRenderTarget
func (d *RenderTargetDesc) Validate(srv gfx.Server) error {
	if d.texture != nil {
		return nil
	}
	w, h := d.Size(srv.DisplaySize())
	tex, err := srv.NewRenderTarget(d.name, w, h, d.format)
	if err != nil {
		return contentErr("RenderTarget", d.name, fmt.Errorf("%w: %w", ErrRenderTarget, err))
	}
	d.texture = tex
	return nil
}

// Release frees the texture. The next Validate creates it again.
func (d *RenderTargetDesc) Release() {
	if d.texture != nil {
		d.texture.Release()
		d.texture = nil
	}
}
