// Package webgpu implements gfx.Server on WebGPU. Render passes open lazily on the first
// draw after BeginScene, so clears issued right after BeginScene become load operations of
// the pass instead of separate draws.
package webgpu

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/Carmen-Shannon/oxy-renderpath/common"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/cogentcore/webgpu/wgpu"
)

// MaxRenderTargets is the number of color attachment slots.
const MaxRenderTargets = 4

// Server is a gfx.Server rendering to a window surface.
type Server interface {
	gfx.Server

	// Resize reconfigures the surface after the window framebuffer changed. A zero size
	// marks the window as minimized, BeginScene on the backbuffer refuses until it grows.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	Resize(width, height int)

	// Release frees the device and every resource the server still owns.
	Release()
}

type releaser interface {
	Release()
}

type server struct {
	logger               *slog.Logger
	vsync                bool
	strict               bool
	forceFallbackAdapter bool

	width, height int

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	configured    bool

	depthBuffers      map[[2]int]*texture
	white             *texture
	sampler           *wgpu.Sampler
	comparisonSampler *wgpu.Sampler

	encoder      *wgpu.CommandEncoder
	pass         *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView

	passKey    pipelineKey
	passWidth  int
	passHeight int

	targets      [MaxRenderTargets]gfx.Texture
	inScene      bool
	pendingClear gfx.ClearFlags
	clearColor   [4]float32
	clearDepth   float32
	clearStencil int
	scissor      gfx.Rect

	shader *shader
	mesh   *mesh
	hints  [gfx.NumHints]bool
	stacks [gfx.NumTransformTypes][][16]float32

	frameShaders map[*shader]struct{}
	retired      []releaser
}

var _ Server = &server{}

// NewServer creates a WebGPU device presenting to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, all later calls must come from it.
//
// Parameters:
//   - surfaceDescriptor: the platform surface, usually from window.Window.SurfaceDescriptor
//   - width: the initial framebuffer width in pixels
//   - height: the initial framebuffer height in pixels
//   - options: variadic list of ServerBuilderOption functions
//
// Returns:
//   - Server: the new server
//   - error: an error if no adapter or device is available
func NewServer(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...ServerBuilderOption) (Server, error) {
	if surfaceDescriptor == nil {
		panic("webgpu: NewServer requires a surface descriptor")
	}
	runtime.LockOSThread()

	s := &server{
		logger:       slog.Default(),
		depthBuffers: make(map[[2]int]*texture),
		frameShaders: make(map[*shader]struct{}),
		clearDepth:   1,
	}
	for i := range s.stacks {
		s.stacks[i] = [][16]float32{gfx.Identity()}
	}
	for _, opt := range options {
		opt(s)
	}

	s.instance = wgpu.CreateInstance(nil)
	s.surface = s.instance.CreateSurface(surfaceDescriptor)

	a, err := s.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: s.forceFallbackAdapter,
		CompatibleSurface:    s.surface,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	s.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Render Path Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	s.device = d
	s.queue = d.GetQueue()

	if err := s.createDefaults(); err != nil {
		s.Release()
		return nil, err
	}
	s.Resize(width, height)
	return s, nil
}

// createDefaults creates the fallback texture and the samplers shared by all shaders.
func (s *server) createDefaults() error {
	white, err := s.uploadTexture("White", &common.TextureStagingData{
		Pixels: []byte{255, 255, 255, 255},
		Width:  1,
		Height: 1,
	})
	if err != nil {
		return err
	}
	s.white = white

	if s.sampler, err = s.newSampler("Linear Sampler", samplerStagingData{}, wgpu.CompareFunctionUndefined); err != nil {
		return err
	}
	s.comparisonSampler, err = s.newSampler("Comparison Sampler", samplerStagingData{
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	}, wgpu.CompareFunctionLess)
	return err
}

// samplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero fields are replaced with linear filtering and clamp-to-edge addressing.
type samplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	MaxAnisotropy                            uint16
}

func (s *server) newSampler(label string, staging samplerStagingData, compare wgpu.CompareFunction) (*wgpu.Sampler, error) {
	samp, err := s.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(staging.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
		Compare:       compare,
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: sampler %s: %w", label, err)
	}
	return samp, nil
}

func (s *server) Resize(width, height int) {
	s.width, s.height = width, height
	for k, d := range s.depthBuffers {
		d.Release()
		delete(s.depthBuffers, k)
	}
	if width <= 0 || height <= 0 {
		s.configured = false
		return
	}

	presentMode := wgpu.PresentModeImmediate
	if s.vsync {
		presentMode = wgpu.PresentModeFifo
	}
	capabilities := s.surface.GetCapabilities(s.adapter)
	s.surfaceFormat = capabilities.Formats[0]
	s.surface.Configure(s.adapter, s.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	s.configured = true
	s.logger.Debug("surface configured", "width", width, "height", height, "vsync", s.vsync)
}

func (s *server) Release() {
	s.releaseFrame()
	s.releaseRetired()
	for k, d := range s.depthBuffers {
		d.Release()
		delete(s.depthBuffers, k)
	}
	if s.white != nil {
		s.white.Release()
		s.white = nil
	}
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
	if s.comparisonSampler != nil {
		s.comparisonSampler.Release()
		s.comparisonSampler = nil
	}
	if s.queue != nil {
		s.queue.Release()
		s.queue = nil
	}
	if s.device != nil {
		s.device.Release()
		s.device = nil
	}
	if s.adapter != nil {
		s.adapter.Release()
		s.adapter = nil
	}
	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
	if s.instance != nil {
		s.instance.Release()
		s.instance = nil
	}
}

func (s *server) DisplaySize() (int, int) {
	return s.width, s.height
}

func (s *server) NewRenderTarget(name string, width, height int, format gfx.PixelFormat) (gfx.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("webgpu: render target %s has invalid size %dx%d", name, width, height)
	}
	return s.createTexture(name, width, height, format, textureFormat(format), true)
}

func (s *server) LoadTexture(name, path string) (gfx.Texture, error) {
	staging, err := common.DecodeImageFile(path)
	if err != nil {
		return nil, err
	}
	return s.uploadTexture(name, staging)
}

func (s *server) NewShader(name, path string) gfx.Shader {
	return &shader{server: s, name: name, filename: path, activePass: -1}
}

func (s *server) NewMesh(name string) gfx.Mesh {
	return &mesh{server: s, name: name}
}

func (s *server) SetRenderTarget(index int, tex gfx.Texture) {
	if index < 0 || index >= MaxRenderTargets {
		panic(fmt.Sprintf("webgpu: render target index %d out of range", index))
	}
	if tex != nil {
		if _, ok := tex.(*texture); !ok {
			panic(fmt.Sprintf("webgpu: render target %s was not created by this server", tex.Name()))
		}
	}
	s.targets[index] = tex
}

func (s *server) RenderTarget(index int) gfx.Texture {
	if index < 0 || index >= MaxRenderTargets {
		return nil
	}
	return s.targets[index]
}

func (s *server) BeginScene() bool {
	if s.inScene {
		panic("webgpu: BeginScene inside scene")
	}
	if s.targets[0] == nil {
		if !s.configured {
			return false
		}
		if s.frameSurface == nil {
			if err := s.acquireSurface(); err != nil {
				s.logger.Warn("surface unavailable, skipping scene", "error", err)
				return false
			}
		}
	}
	if s.encoder == nil {
		encoder, err := s.device.CreateCommandEncoder(nil)
		if err != nil {
			s.logger.Error("failed to create command encoder", "error", err)
			return false
		}
		s.encoder = encoder
	}
	s.inScene = true
	s.pendingClear = 0
	return true
}

func (s *server) acquireSurface() error {
	surfaceTexture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	s.frameSurface = surfaceTexture
	s.frameView = view
	return nil
}

func (s *server) EndScene() {
	if !s.inScene {
		panic("webgpu: EndScene outside scene")
	}
	if s.pendingClear != 0 && s.pass == nil {
		if err := s.openPass(); err != nil {
			s.logger.Error("failed to clear render targets", "error", err)
		}
	}
	s.closePass()
	s.inScene = false
}

func (s *server) Present() {
	if s.encoder != nil {
		commandBuffer, err := s.encoder.Finish(nil)
		if err != nil {
			s.logger.Error("failed to finish frame", "error", err)
		} else {
			s.queue.Submit(commandBuffer)
			commandBuffer.Release()
		}
		s.encoder.Release()
		s.encoder = nil
	}
	if s.frameSurface != nil {
		s.surface.Present()
	}
	s.releaseFrame()
	s.releaseRetired()
	for sh := range s.frameShaders {
		sh.nextSlot = 0
		delete(s.frameShaders, sh)
	}
}

func (s *server) releaseFrame() {
	if s.pass != nil {
		s.pass.End()
		s.pass.Release()
		s.pass = nil
	}
	if s.frameView != nil {
		s.frameView.Release()
		s.frameView = nil
	}
	if s.frameSurface != nil {
		s.frameSurface.Release()
		s.frameSurface = nil
	}
}

// retire releases r once the current frame has been submitted.
func (s *server) retire(r releaser) {
	s.retired = append(s.retired, r)
}

func (s *server) releaseRetired() {
	for _, r := range s.retired {
		r.Release()
	}
	s.retired = s.retired[:0]
}

func (s *server) Clear(flags gfx.ClearFlags, color [4]float32, depth float32, stencil int) {
	if !s.inScene || flags == 0 {
		return
	}
	// Clears are load operations, a clear in the middle of a pass starts a new one.
	s.closePass()
	s.pendingClear |= flags
	if flags&gfx.ColorBuffer != 0 {
		s.clearColor = color
	}
	if flags&gfx.DepthBuffer != 0 {
		s.clearDepth = depth
	}
	if flags&gfx.StencilBuffer != 0 {
		s.clearStencil = stencil
	}
}

// openPass begins a render pass on the bound targets. Slot 0 falls back to the backbuffer,
// further slots attach until the first empty one. A depth format target becomes the depth
// attachment, otherwise a shared depth buffer of the attachment size is used.
func (s *server) openPass() error {
	if s.pass != nil {
		return nil
	}

	var colors []wgpu.RenderPassColorAttachment
	var depthTarget *texture
	key := pipelineKey{}
	width, height := s.width, s.height

	colorLoad := wgpu.LoadOpLoad
	if s.pendingClear&gfx.ColorBuffer != 0 {
		colorLoad = wgpu.LoadOpClear
	}
	addColor := func(view *wgpu.TextureView, format wgpu.TextureFormat) {
		key.colors[len(colors)] = format
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  colorLoad,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(s.clearColor[0]),
				G: float64(s.clearColor[1]),
				B: float64(s.clearColor[2]),
				A: float64(s.clearColor[3]),
			},
		})
	}

	for i, t := range s.targets {
		if t == nil {
			if i == 0 {
				if s.frameView == nil {
					return fmt.Errorf("webgpu: no backbuffer acquired")
				}
				addColor(s.frameView, s.surfaceFormat)
				continue
			}
			break
		}
		tex := t.(*texture)
		if i == 0 {
			width, height = tex.width, tex.height
		}
		if isDepthFormat(tex.deviceFormat) {
			depthTarget = tex
			continue
		}
		addColor(tex.view, tex.deviceFormat)
	}

	if depthTarget == nil {
		var err error
		if depthTarget, err = s.depthBuffer(width, height); err != nil {
			return err
		}
	}
	key.depth = depthTarget.deviceFormat

	depthLoad, stencilLoad := wgpu.LoadOpLoad, wgpu.LoadOpLoad
	if s.pendingClear&gfx.DepthBuffer != 0 {
		depthLoad = wgpu.LoadOpClear
	}
	if s.pendingClear&gfx.StencilBuffer != 0 {
		stencilLoad = wgpu.LoadOpClear
	}

	s.pass = s.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: colors,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:              depthTarget.view,
			DepthLoadOp:       depthLoad,
			DepthStoreOp:      wgpu.StoreOpStore,
			DepthClearValue:   s.clearDepth,
			StencilLoadOp:     stencilLoad,
			StencilStoreOp:    wgpu.StoreOpStore,
			StencilClearValue: uint32(s.clearStencil),
		},
	})
	s.passKey = key
	s.passWidth, s.passHeight = width, height
	s.pendingClear = 0
	s.applyScissor()
	return nil
}

func (s *server) closePass() {
	if s.pass == nil {
		return
	}
	s.pass.End()
	s.pass.Release()
	s.pass = nil
}

// depthBuffer returns the shared depth-stencil buffer for an attachment size.
func (s *server) depthBuffer(width, height int) (*texture, error) {
	k := [2]int{width, height}
	if d, ok := s.depthBuffers[k]; ok {
		return d, nil
	}
	d, err := s.createTexture(fmt.Sprintf("Depth %dx%d", width, height), width, height,
		gfx.FormatD24S8, wgpu.TextureFormatDepth24PlusStencil8, true)
	if err != nil {
		return nil, err
	}
	s.depthBuffers[k] = d
	return d, nil
}

func (s *server) SetShader(sh gfx.Shader) {
	if sh == nil {
		s.shader = nil
		return
	}
	ws, ok := sh.(*shader)
	if !ok {
		panic(fmt.Sprintf("webgpu: shader %s was not created by this server", sh.Name()))
	}
	s.shader = ws
}

func (s *server) Shader() gfx.Shader {
	if s.shader == nil {
		return nil
	}
	return s.shader
}

func (s *server) SetMesh(m gfx.Mesh) {
	if m == nil {
		s.mesh = nil
		return
	}
	wm, ok := m.(*mesh)
	if !ok {
		panic(fmt.Sprintf("webgpu: mesh %s was not created by this server", m.Name()))
	}
	s.mesh = wm
}

func (s *server) DrawIndexed(first, count int) {
	if s.mesh == nil {
		panic("webgpu: DrawIndexed without mesh")
	}
	if first < 0 || first+count > s.mesh.NumIndices() {
		panic(fmt.Sprintf("webgpu: DrawIndexed range %d+%d exceeds %d indices", first, count, s.mesh.NumIndices()))
	}
	if err := s.draw(uint32(first), uint32(count)); err != nil {
		s.logger.Error("draw failed", "mesh", s.mesh.name, "error", err)
	}
}

func (s *server) draw(first, count uint32) error {
	sh := s.shader
	if !s.inScene || sh == nil || !sh.IsLoaded() || count == 0 {
		return nil
	}
	if err := s.mesh.upload(); err != nil {
		return err
	}
	if err := s.openPass(); err != nil {
		return err
	}

	key := s.passKey
	key.entry = sh.entryPoint()
	key.components = s.mesh.components
	p, err := sh.pipeline(key)
	if err != nil {
		return err
	}
	offset, err := sh.uploadUniforms()
	if err != nil {
		return err
	}
	s.frameShaders[sh] = struct{}{}

	s.pass.SetPipeline(p)
	if err := sh.bind(s.pass, offset); err != nil {
		return err
	}
	if s.mesh.vertexBuffer != nil {
		s.pass.SetVertexBuffer(0, s.mesh.vertexBuffer, 0, wgpu.WholeSize)
	}
	s.pass.SetIndexBuffer(s.mesh.indexBuffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	s.pass.DrawIndexed(count, 1, first, 0, 0)
	return nil
}

func (s *server) SetScissorRect(r gfx.Rect) {
	s.scissor = r
	s.applyScissor()
}

// applyScissor sets the scissor on the open pass, clamped to the attachment. The zero Rect
// covers the whole attachment.
func (s *server) applyScissor() {
	if s.pass == nil {
		return
	}
	r := s.scissor
	if r == (gfx.Rect{}) {
		r = gfx.Rect{MaxX: s.passWidth, MaxY: s.passHeight}
	}
	r.MinX = max(0, min(r.MinX, s.passWidth))
	r.MinY = max(0, min(r.MinY, s.passHeight))
	r.MaxX = max(r.MinX, min(r.MaxX, s.passWidth))
	r.MaxY = max(r.MinY, min(r.MaxY, s.passHeight))
	s.pass.SetScissorRect(uint32(r.MinX), uint32(r.MinY), uint32(r.Width()), uint32(r.Height()))
}

func (s *server) SetHint(h gfx.Hint, enabled bool) {
	s.hints[h] = enabled
}

func (s *server) Hint(h gfx.Hint) bool {
	return s.hints[h]
}

func (s *server) SetTransform(t gfx.TransformType, m [16]float32) {
	st := s.stacks[t]
	st[len(st)-1] = m
}

func (s *server) Transform(t gfx.TransformType) [16]float32 {
	st := s.stacks[t]
	return st[len(st)-1]
}

func (s *server) PushTransform(t gfx.TransformType, m [16]float32) {
	s.stacks[t] = append(s.stacks[t], m)
}

func (s *server) PopTransform(t gfx.TransformType) [16]float32 {
	st := s.stacks[t]
	if len(st) == 1 {
		panic("webgpu: transform stack underflow")
	}
	top := st[len(st)-1]
	s.stacks[t] = st[:len(st)-1]
	return top
}
