// Package gfx defines the graphics device contract the render path drives. Implementations
// live in sub-packages: headless records calls in memory, webgpu renders through WebGPU.
package gfx

// Server is the immediate-mode graphics device. All methods are called from the render thread.
type Server interface {
	// DisplaySize returns the size of the backbuffer in pixels.
	DisplaySize() (width, height int)

	// NewRenderTarget creates a texture that can be bound with SetRenderTarget.
	//
	// Parameters:
	//   - name: the resource name, used for logging and lookups
	//   - width: the width in pixels
	//   - height: the height in pixels
	//   - format: the pixel format
	//
	// Returns:
	//   - Texture: the render target texture
	//   - error: an error if the target could not be created
	NewRenderTarget(name string, width, height int, format PixelFormat) (Texture, error)

	// LoadTexture loads a texture from an image file.
	//
	// Parameters:
	//   - name: the resource name
	//   - path: the image file path
	//
	// Returns:
	//   - Texture: the loaded texture
	//   - error: an error if the file is missing or cannot be decoded
	LoadTexture(name, path string) (Texture, error)

	// NewShader creates an unloaded shader bound to a file. Call Shader.Load before use.
	//
	// Parameters:
	//   - name: the resource name
	//   - path: the shader source path
	//
	// Returns:
	//   - Shader: the new shader
	NewShader(name, path string) Shader

	// NewMesh creates an empty mesh.
	NewMesh(name string) Mesh

	// SetRenderTarget binds tex to color attachment index. A nil texture on index 0 selects
	// the backbuffer, on other indices it unbinds the attachment.
	SetRenderTarget(index int, tex Texture)

	// RenderTarget returns the texture bound to index, nil for the backbuffer or nothing.
	RenderTarget(index int) Texture

	// BeginScene starts rendering into the bound targets.
	//
	// Returns:
	//   - bool: false if the device refuses to render this frame (lost device, minimized window)
	BeginScene() bool

	// EndScene finishes rendering into the bound targets.
	EndScene()

	// Present shows the backbuffer.
	Present()

	// Clear clears the buffers selected by flags.
	Clear(flags ClearFlags, color [4]float32, depth float32, stencil int)

	// SetShader binds the shader used by subsequent draws.
	SetShader(s Shader)

	// Shader returns the bound shader.
	Shader() Shader

	// SetMesh binds the mesh used by DrawIndexed.
	SetMesh(m Mesh)

	// DrawIndexed draws count indices of the bound mesh starting at first.
	DrawIndexed(first, count int)

	// SetScissorRect restricts rasterization to r. A zero Rect disables the scissor.
	SetScissorRect(r Rect)

	// SetHint toggles a device hint.
	SetHint(h Hint, enabled bool)

	// Hint reports whether a device hint is enabled.
	Hint(h Hint) bool

	// SetTransform replaces the top of a transform stack.
	SetTransform(t TransformType, m [16]float32)

	// Transform returns the top of a transform stack.
	Transform(t TransformType) [16]float32

	// PushTransform pushes m on a transform stack.
	PushTransform(t TransformType, m [16]float32)

	// PopTransform pops a transform stack and returns the removed matrix.
	PopTransform(t TransformType) [16]float32
}

// Shader is a loadable GPU program with techniques, passes and named parameters.
type Shader interface {
	Name() string
	Filename() string

	// Load reads and compiles the shader file.
	//
	// Returns:
	//   - error: an error if the file is missing or does not compile
	Load() error
	IsLoaded() bool

	// SetTechnique selects the active technique.
	//
	// Parameters:
	//   - name: the technique name
	//
	// Returns:
	//   - bool: false if the shader has no such technique, the active technique is unchanged
	SetTechnique(name string) bool
	Technique() string

	// IsParameterUsed reports whether the shader declares a parameter with this name.
	IsParameterUsed(name string) bool

	SetInt(name string, v int)
	SetFloat(name string, v float32)
	SetFloat4(name string, v [4]float32)
	SetVector4(name string, v [4]float32)
	SetMatrix(name string, v [16]float32)
	SetMatrixArray(name string, v [][16]float32)
	SetTexture(name string, t Texture)

	// Begin starts the active technique.
	//
	// Parameters:
	//   - saveState: whether device state touched by the shader is restored on End
	//
	// Returns:
	//   - int: the number of passes of the active technique
	Begin(saveState bool) int
	BeginPass(i int)
	EndPass()
	End()

	// Release frees the GPU program.
	Release()
}

// Texture is a GPU texture or render target.
type Texture interface {
	Name() string
	Width() int
	Height() int
	Format() PixelFormat
	Release()
}

// Mesh is an indexed vertex buffer.
type Mesh interface {
	Name() string

	// SetVertices replaces the vertex data. Components gives the float count per vertex.
	SetVertices(data []float32, components VertexComponents)
	SetIndices(indices []uint16)
	Vertices() []float32
	NumVertices() int
	NumIndices() int
	Release()
}
