package webgpu

import (
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx/wgsl"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipelineKey identifies a render pipeline of one shader. Pipelines are created the first
// time a draw needs a combination.
type pipelineKey struct {
	entry      string
	colors     [MaxRenderTargets]wgpu.TextureFormat
	depth      wgpu.TextureFormat
	components gfx.VertexComponents
}

type shader struct {
	server   *server
	name     string
	filename string

	reflection *wgsl.Reflection
	module     *wgpu.ShaderModule
	technique  string
	block      *uniformBlock
	textures   map[string]gfx.Texture

	layouts        []*wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipelines      map[pipelineKey]*wgpu.RenderPipeline

	uniformBuffer *wgpu.Buffer
	slotSize      uint64
	slots         int
	nextSlot      int

	bindGroups      []*wgpu.BindGroup
	bindGroupsDirty bool

	begun      bool
	activePass int
}

var _ gfx.Shader = &shader{}

func (s *shader) Name() string {
	return s.name
}

func (s *shader) Filename() string {
	return s.filename
}

func (s *shader) Load() error {
	src, err := os.ReadFile(s.filename)
	if err != nil {
		return fmt.Errorf("webgpu: shader %s: %w", s.name, err)
	}
	r, err := wgsl.Reflect(string(src))
	if err != nil {
		return fmt.Errorf("webgpu: shader %s: %w", s.name, err)
	}
	if s.server.strict {
		if err := wgsl.Validate(string(src)); err != nil {
			return fmt.Errorf("webgpu: shader %s: %w", s.name, err)
		}
	}

	module, err := s.server.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: string(src),
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: shader %s: %w", s.name, err)
	}

	s.Release()
	s.reflection = r
	s.module = module
	s.technique = r.Techniques[0].Name
	s.block = newUniformBlock(r)
	s.textures = make(map[string]gfx.Texture)
	s.pipelines = make(map[pipelineKey]*wgpu.RenderPipeline)
	s.slotSize = alignUp(max(s.block.size(), 16), uniformSlotAlignment)
	s.activePass = -1
	s.bindGroupsDirty = true

	if err := s.createLayouts(); err != nil {
		s.Release()
		return fmt.Errorf("webgpu: shader %s: %w", s.name, err)
	}
	return nil
}

// createLayouts builds one bind group layout per group index referenced by the shader,
// empty groups in between get an empty layout.
func (s *shader) createLayouts() error {
	r := s.reflection
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	maxGroup := -1
	add := func(group int, e wgpu.BindGroupLayoutEntry) {
		entries[group] = append(entries[group], e)
		maxGroup = max(maxGroup, group)
	}
	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

	if r.Uniform.Name != "" {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(r.Uniform.Binding), Visibility: visibility}
		e.Buffer.Type = wgpu.BufferBindingTypeUniform
		e.Buffer.HasDynamicOffset = true
		e.Buffer.MinBindingSize = s.block.size()
		add(r.Uniform.Group, e)
	}
	for _, t := range r.Textures {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(t.Binding), Visibility: visibility}
		e.Texture.ViewDimension = wgpu.TextureViewDimension2D
		e.Texture.SampleType = wgpu.TextureSampleTypeFloat
		if strings.HasPrefix(t.Type, "texture_depth_") {
			e.Texture.SampleType = wgpu.TextureSampleTypeDepth
		}
		add(t.Group, e)
	}
	for _, smp := range r.Samplers {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(smp.Binding), Visibility: visibility}
		e.Sampler.Type = wgpu.SamplerBindingTypeFiltering
		if smp.Type == "sampler_comparison" {
			e.Sampler.Type = wgpu.SamplerBindingTypeComparison
		}
		add(smp.Group, e)
	}

	s.layouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := range s.layouts {
		layout, err := s.server.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", s.name, g),
			Entries: entries[g],
		})
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", g, err)
		}
		s.layouts[g] = layout
	}

	layout, err := s.server.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            s.name,
		BindGroupLayouts: s.layouts,
	})
	if err != nil {
		return err
	}
	s.pipelineLayout = layout
	return nil
}

func (s *shader) IsLoaded() bool {
	return s.reflection != nil
}

func (s *shader) SetTechnique(name string) bool {
	s.mustBeLoaded()
	if _, ok := s.reflection.Technique(name); !ok {
		return false
	}
	s.technique = name
	return true
}

func (s *shader) Technique() string {
	return s.technique
}

func (s *shader) IsParameterUsed(name string) bool {
	s.mustBeLoaded()
	return s.reflection.HasParameter(name)
}

func (s *shader) SetInt(name string, v int) {
	s.mustBeLoaded()
	s.block.setInt(name, v)
}

func (s *shader) SetFloat(name string, v float32) {
	s.mustBeLoaded()
	s.block.setFloat(name, v)
}

func (s *shader) SetFloat4(name string, v [4]float32) {
	s.mustBeLoaded()
	s.block.setFloat4(name, v)
}

func (s *shader) SetVector4(name string, v [4]float32) {
	s.mustBeLoaded()
	s.block.setFloat4(name, v)
}

func (s *shader) SetMatrix(name string, v [16]float32) {
	s.mustBeLoaded()
	s.block.setMatrix(name, v)
}

func (s *shader) SetMatrixArray(name string, v [][16]float32) {
	s.mustBeLoaded()
	s.block.setMatrixArray(name, v)
}

func (s *shader) SetTexture(name string, t gfx.Texture) {
	s.mustBeLoaded()
	if _, ok := s.reflection.Texture(name); !ok {
		return
	}
	if s.textures[name] == t {
		return
	}
	s.textures[name] = t
	s.bindGroupsDirty = true
}

func (s *shader) Begin(saveState bool) int {
	s.mustBeLoaded()
	if s.begun {
		panic(fmt.Sprintf("webgpu: shader %s: Begin inside Begin", s.name))
	}
	s.begun = true
	t, _ := s.reflection.Technique(s.technique)
	return len(t.Passes)
}

func (s *shader) BeginPass(i int) {
	if !s.begun || s.activePass >= 0 {
		panic(fmt.Sprintf("webgpu: shader %s: BeginPass(%d) outside Begin or inside a pass", s.name, i))
	}
	s.activePass = i
}

func (s *shader) EndPass() {
	if s.activePass < 0 {
		panic(fmt.Sprintf("webgpu: shader %s: EndPass without BeginPass", s.name))
	}
	s.activePass = -1
}

func (s *shader) End() {
	if !s.begun {
		panic(fmt.Sprintf("webgpu: shader %s: End without Begin", s.name))
	}
	s.begun = false
}

func (s *shader) Release() {
	for _, p := range s.pipelines {
		p.Release()
	}
	s.pipelines = nil
	s.releaseBindGroups()
	if s.uniformBuffer != nil {
		s.uniformBuffer.Release()
		s.uniformBuffer = nil
	}
	s.slots = 0
	if s.pipelineLayout != nil {
		s.pipelineLayout.Release()
		s.pipelineLayout = nil
	}
	for _, l := range s.layouts {
		l.Release()
	}
	s.layouts = nil
	if s.module != nil {
		s.module.Release()
		s.module = nil
	}
	s.reflection = nil
}

func (s *shader) releaseBindGroups() {
	for _, bg := range s.bindGroups {
		if bg != nil {
			bg.Release()
		}
	}
	s.bindGroups = nil
}

// entryPoint returns the fragment entry point of the active pass, pass 0 when drawing
// outside BeginPass.
func (s *shader) entryPoint() string {
	t, _ := s.reflection.Technique(s.technique)
	i := max(s.activePass, 0)
	if i >= len(t.Passes) {
		i = len(t.Passes) - 1
	}
	return t.Passes[i]
}

// pipeline returns the render pipeline for key, creating it on first use.
func (s *shader) pipeline(key pipelineKey) (*wgpu.RenderPipeline, error) {
	if p, ok := s.pipelines[key]; ok {
		return p, nil
	}

	var targets []wgpu.ColorTargetState
	for _, f := range key.colors {
		if f == wgpu.TextureFormatUndefined {
			break
		}
		targets = append(targets, wgpu.ColorTargetState{
			Format:    f,
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}
	var buffers []wgpu.VertexBufferLayout
	if key.components != 0 {
		buffers = append(buffers, vertexLayout(key.components))
	}

	created, err := s.server.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  s.name + "/" + key.entry,
		Layout: s.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     s.module,
			EntryPoint: s.reflection.VertexEntry,
			Buffers:    buffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     s.module,
			EntryPoint: key.entry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            key.depth,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: shader %s: pipeline %s: %w", s.name, key.entry, err)
	}
	s.server.logger.Debug("created render pipeline", "shader", s.name, "entry", key.entry)
	s.pipelines[key] = created
	return created, nil
}

// uploadUniforms copies the uniform block into the next free slot of the uniform buffer
// and returns the slot's dynamic offset. The buffer doubles when a frame runs out of slots,
// the old one stays alive until the frame is submitted.
func (s *shader) uploadUniforms() (uint32, error) {
	if s.block.size() == 0 {
		return 0, nil
	}
	if s.nextSlot >= s.slots {
		slots := max(16, s.slots*2)
		buf, err := s.server.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: s.name + " Uniform Buffer",
			Size:  uint64(slots) * s.slotSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return 0, fmt.Errorf("webgpu: shader %s: %w", s.name, err)
		}
		if s.uniformBuffer != nil {
			s.server.retire(s.uniformBuffer)
		}
		s.uniformBuffer = buf
		s.slots = slots
		s.bindGroupsDirty = true
	}
	offset := uint64(s.nextSlot) * s.slotSize
	s.server.queue.WriteBuffer(s.uniformBuffer, offset, s.block.data)
	s.nextSlot++
	return uint32(offset), nil
}

// bind sets the shader's bind groups on the open render pass, rebuilding them when a
// texture or the uniform buffer changed.
func (s *shader) bind(pass *wgpu.RenderPassEncoder, uniformOffset uint32) error {
	if s.bindGroupsDirty {
		for _, bg := range s.bindGroups {
			if bg != nil {
				s.server.retire(bg)
			}
		}
		s.bindGroups = nil
		if err := s.createBindGroups(); err != nil {
			return err
		}
		s.bindGroupsDirty = false
	}
	for g, bg := range s.bindGroups {
		var offsets []uint32
		if s.reflection.Uniform.Name != "" && g == s.reflection.Uniform.Group {
			offsets = []uint32{uniformOffset}
		}
		pass.SetBindGroup(uint32(g), bg, offsets)
	}
	return nil
}

func (s *shader) createBindGroups() error {
	r := s.reflection
	entries := make([][]wgpu.BindGroupEntry, len(s.layouts))
	if r.Uniform.Name != "" {
		entries[r.Uniform.Group] = append(entries[r.Uniform.Group], wgpu.BindGroupEntry{
			Binding: uint32(r.Uniform.Binding),
			Buffer:  s.uniformBuffer,
			Offset:  0,
			Size:    s.block.size(),
		})
	}
	for _, t := range r.Textures {
		view, err := s.textureView(t)
		if err != nil {
			return err
		}
		entries[t.Group] = append(entries[t.Group], wgpu.BindGroupEntry{
			Binding:     uint32(t.Binding),
			TextureView: view,
		})
	}
	for _, smp := range r.Samplers {
		sampler := s.server.sampler
		if smp.Type == "sampler_comparison" {
			sampler = s.server.comparisonSampler
		}
		entries[smp.Group] = append(entries[smp.Group], wgpu.BindGroupEntry{
			Binding: uint32(smp.Binding),
			Sampler: sampler,
		})
	}

	s.bindGroups = make([]*wgpu.BindGroup, len(s.layouts))
	for g, layout := range s.layouts {
		bg, err := s.server.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s Bind Group %d", s.name, g),
			Layout:  layout,
			Entries: entries[g],
		})
		if err != nil {
			return fmt.Errorf("webgpu: shader %s: bind group %d: %w", s.name, g, err)
		}
		s.bindGroups[g] = bg
	}
	return nil
}

// textureView resolves the view bound to a texture binding. Unset color textures sample a
// white texel, depth textures have no fallback.
func (s *shader) textureView(b wgsl.Binding) (*wgpu.TextureView, error) {
	if t, ok := s.textures[b.Name].(*texture); ok && t != nil && t.sampleView != nil {
		return t.sampleView, nil
	}
	if strings.HasPrefix(b.Type, "texture_depth_") {
		return nil, fmt.Errorf("webgpu: shader %s: depth texture %s is not set", s.name, b.Name)
	}
	return s.server.white.sampleView, nil
}

func (s *shader) mustBeLoaded() {
	if s.reflection == nil {
		panic(fmt.Sprintf("webgpu: shader %s used before Load", s.name))
	}
}
