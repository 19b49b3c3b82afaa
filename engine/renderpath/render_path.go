// Package renderpath implements data-driven frame rendering. A render path describes a frame as
// sections of passes, each pass binding render targets and owning phases, each phase owning the
// sequences that bind shaders for the scene renderer. The tree is built from an XML file,
// validated once, and then walked with strictly nested Begin/End calls every frame.
package renderpath

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/profiler"
	"github.com/Carmen-Shannon/oxy-renderpath/engine/variable"
)

// RenderPath is the root of a render path tree. It owns sections, the shared render targets,
// the shader table and the global variables declared by the file.
type RenderPath interface {
	// Name returns the name attribute of the root element.
	Name() string

	// Filename returns the XML file the render path is read from.
	Filename() string

	// SetFilename sets the XML file. It has no effect on an opened render path.
	SetFilename(path string)

	// ShaderRoot returns the directory shader files are resolved against.
	ShaderRoot() string

	// Server returns the graphics server the render path renders with.
	Server() gfx.Server

	// Registry returns the variable registry parameters are pulled from.
	Registry() variable.Registry

	// AddShader appends a shader to the shader table.
	//
	// Parameters:
	//   - name: the shader alias sequences, phases and passes refer to
	//   - file: the shader file, relative to the shader root unless absolute
	//
	// Returns:
	//   - int: the bucket index of the shader
	AddShader(name, file string) int

	// AddRenderTarget appends a render target.
	//
	// Parameters:
	//   - name: the render target name passes refer to
	//   - format: the pixel format
	//   - relSize: size relative to the display, 0 for an absolute size
	//   - width: the absolute width, ignored if relSize > 0
	//   - height: the absolute height, ignored if relSize > 0
	//
	// Returns:
	//   - int: the render target index
	AddRenderTarget(name string, format gfx.PixelFormat, relSize float32, width, height int) int

	// AddSection appends a new section.
	//
	// Parameters:
	//   - name: the section name
	//
	// Returns:
	//   - *Section: the new section
	AddSection(name string) *Section

	// AddVariable stores v in the registry's global context and remembers its handle as
	// declared by this render path.
	//
	// Parameters:
	//   - v: the global variable
	AddVariable(v variable.Variable)

	// FindShaderIndex returns the index of the shader with the given alias, -1 if absent.
	FindShaderIndex(name string) int

	// FindRenderTargetIndex returns the index of the render target with the given name, -1 if absent.
	FindRenderTargetIndex(name string) int

	// FindSectionIndex returns the index of the section with the given name, -1 if absent.
	FindSectionIndex(name string) int

	// NumShaders returns the number of shader descriptors.
	NumShaders() int

	// Shader returns a shader descriptor by index, which is also its bucket index.
	//
	// Parameters:
	//   - i: the shader index, 0 <= i < NumShaders()
	//
	// Returns:
	//   - *ShaderDesc: the shader descriptor
	Shader(i int) *ShaderDesc

	// NumRenderTargets returns the number of render target descriptors.
	NumRenderTargets() int

	// RenderTarget returns a render target descriptor by index.
	//
	// Parameters:
	//   - i: the render target index, 0 <= i < NumRenderTargets()
	//
	// Returns:
	//   - *RenderTargetDesc: the render target descriptor
	RenderTarget(i int) *RenderTargetDesc

	// NumSections returns the number of sections.
	NumSections() int

	// Section returns a section by index, in document order.
	//
	// Parameters:
	//   - i: the section index, 0 <= i < NumSections()
	//
	// Returns:
	//   - *Section: the section
	Section(i int) *Section

	// Variables returns the handles of the global variables declared by this render path.
	Variables() []variable.Handle

	// ShadowsEnabled reports whether passes with a shadow condition run.
	ShadowsEnabled() bool

	// SetShadowsEnabled enables or disables every pass with a shadow condition. A disabled
	// pass returns 0 from Begin.
	//
	// Parameters:
	//   - b: true to run shadow passes
	SetShadowsEnabled(b bool)

	// OpenXml reads the file and the root element attributes so the shader root is known before
	// any shader is created. It does not build the tree.
	//
	// Returns:
	//   - error: a resource error if the file cannot be read, a content error for a malformed root
	OpenXml() error

	// Open builds the tree from the file and validates it. OpenXml is called first if needed.
	// On error the render path is closed again.
	//
	// Returns:
	//   - error: the first content or resource error
	Open() error

	// IsOpen reports whether Open succeeded and Close was not called since.
	IsOpen() bool

	// Validate creates and loads all shaders and render targets and validates all sections.
	// It can be called any number of times, work is only done for unresolved parts.
	//
	// Returns:
	//   - error: the first content or resource error
	Validate() error

	// Begin begins the frame.
	//
	// Returns:
	//   - int: the number of sections
	Begin() int

	// End ends the frame.
	End()

	// InBegin reports whether the render path is between Begin and End.
	InBegin() bool

	// DisplayResized releases all render targets sized relative to the display. The next
	// Validate, or the next frame drawing into them, recreates them at the new size.
	DisplayResized()

	// Close releases all resources and clears the tree. The render path can be opened again.
	Close()
}

type renderPath struct {
	server         gfx.Server
	registry       variable.Registry
	logger         *slog.Logger
	profiler       *profiler.Profiler
	guiHook        func()
	preloadWorkers int
	shadowsEnabled bool

	filename      string
	name          string
	shaderPath    string
	shaderRootOpt string
	dialect       string
	xmlOpened     bool
	opened        bool
	source        []byte

	shaders       []*ShaderDesc
	renderTargets []*RenderTargetDesc
	textures      []gfx.Texture
	variables     []variable.Handle

	sections  []*Section
	passes    []*Pass
	phases    []*Phase
	sequences []*Sequence

	quad    gfx.Mesh
	inBegin bool
}

var _ RenderPath = &renderPath{}

// New creates an empty render path. A graphics server is required.
//
// Parameters:
//   - options: variadic list of RenderPathBuilderOption functions
//
// Returns:
//   - RenderPath: the new render path
func New(options ...RenderPathBuilderOption) RenderPath {
	rp := &renderPath{
		shadowsEnabled: true,
	}
	for _, opt := range options {
		opt(rp)
	}
	if rp.server == nil {
		panic("renderpath: a gfx server is required")
	}
	if rp.registry == nil {
		rp.registry = variable.NewRegistry()
	}
	if rp.logger == nil {
		rp.logger = Logger()
	}
	return rp
}

func (rp *renderPath) Name() string {
	return rp.name
}

func (rp *renderPath) Filename() string {
	return rp.filename
}

func (rp *renderPath) SetFilename(path string) {
	if rp.opened {
		return
	}
	rp.filename = path
	rp.xmlOpened = false
}

func (rp *renderPath) ShaderRoot() string {
	if rp.shaderRootOpt != "" {
		return rp.shaderRootOpt
	}
	if rp.shaderPath == "" || filepath.IsAbs(rp.shaderPath) || rp.filename == "" {
		return rp.shaderPath
	}
	return filepath.Join(filepath.Dir(rp.filename), rp.shaderPath)
}

func (rp *renderPath) Server() gfx.Server {
	return rp.server
}

func (rp *renderPath) Registry() variable.Registry {
	return rp.registry
}

func (rp *renderPath) AddShader(name, file string) int {
	idx := len(rp.shaders)
	rp.shaders = append(rp.shaders, &ShaderDesc{name: name, file: file, bucketIndex: idx})
	return idx
}

func (rp *renderPath) AddRenderTarget(name string, format gfx.PixelFormat, relSize float32, width, height int) int {
	rp.renderTargets = append(rp.renderTargets, &RenderTargetDesc{
		name:    name,
		format:  format,
		relSize: relSize,
		width:   width,
		height:  height,
	})
	return len(rp.renderTargets) - 1
}

func (rp *renderPath) AddSection(name string) *Section {
	s := &Section{rp: rp, id: len(rp.sections), name: name}
	rp.sections = append(rp.sections, s)
	return s
}

func (rp *renderPath) AddVariable(v variable.Variable) {
	rp.registry.SetGlobalVariable(v)
	for _, h := range rp.variables {
		if h == v.Handle() {
			return
		}
	}
	rp.variables = append(rp.variables, v.Handle())
}

func (rp *renderPath) addPass(p *Pass) int {
	p.id = len(rp.passes)
	rp.passes = append(rp.passes, p)
	return p.id
}

func (rp *renderPath) addPhase(p *Phase) int {
	p.id = len(rp.phases)
	rp.phases = append(rp.phases, p)
	return p.id
}

func (rp *renderPath) addSequence(s *Sequence) int {
	s.id = len(rp.sequences)
	rp.sequences = append(rp.sequences, s)
	return s.id
}

func (rp *renderPath) FindShaderIndex(name string) int {
	for i, s := range rp.shaders {
		if s.name == name {
			return i
		}
	}
	return -1
}

func (rp *renderPath) FindRenderTargetIndex(name string) int {
	for i, rt := range rp.renderTargets {
		if rt.name == name {
			return i
		}
	}
	return -1
}

func (rp *renderPath) FindSectionIndex(name string) int {
	for i, s := range rp.sections {
		if s.name == name {
			return i
		}
	}
	return -1
}

func (rp *renderPath) NumShaders() int {
	return len(rp.shaders)
}

func (rp *renderPath) Shader(i int) *ShaderDesc {
	return rp.shaders[i]
}

func (rp *renderPath) NumRenderTargets() int {
	return len(rp.renderTargets)
}

func (rp *renderPath) RenderTarget(i int) *RenderTargetDesc {
	return rp.renderTargets[i]
}

func (rp *renderPath) NumSections() int {
	return len(rp.sections)
}

func (rp *renderPath) Section(i int) *Section {
	return rp.sections[i]
}

func (rp *renderPath) Variables() []variable.Handle {
	return rp.variables
}

func (rp *renderPath) ShadowsEnabled() bool {
	return rp.shadowsEnabled
}

func (rp *renderPath) SetShadowsEnabled(b bool) {
	rp.shadowsEnabled = b
}

func (rp *renderPath) IsOpen() bool {
	return rp.opened
}

func (rp *renderPath) Open() error {
	if rp.opened {
		return nil
	}
	if !rp.xmlOpened {
		if err := rp.OpenXml(); err != nil {
			return err
		}
	}
	start := time.Now()
	if err := rp.parse(); err != nil {
		rp.Close()
		return err
	}
	if err := rp.Validate(); err != nil {
		rp.Close()
		return err
	}
	rp.opened = true
	rp.logger.Info("render path opened",
		"name", rp.name,
		"file", rp.filename,
		"sections", len(rp.sections),
		"passes", len(rp.passes),
		"shaders", len(rp.shaders),
		"renderTargets", len(rp.renderTargets),
		"elapsed", time.Since(start))
	return nil
}

func (rp *renderPath) Validate() error {
	if err := rp.validateShaders(); err != nil {
		return err
	}
	for _, rt := range rp.renderTargets {
		if err := rt.Validate(rp.server); err != nil {
			return err
		}
	}
	for _, s := range rp.sections {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateShaders creates all shaders on the calling thread and loads them, in parallel when
// preload workers are configured.
func (rp *renderPath) validateShaders() error {
	var pending []*ShaderDesc
	for _, d := range rp.shaders {
		d.create(rp.server, rp.ShaderRoot())
		if !d.shader.IsLoaded() {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if rp.preloadWorkers <= 1 || len(pending) == 1 {
		for _, d := range pending {
			if err := d.load(); err != nil {
				return err
			}
		}
		return nil
	}

	pool := worker.NewDynamicWorkerPool(min(rp.preloadWorkers, len(pending)), len(pending), time.Second)
	defer pool.Stop()

	errs := make([]error, len(pending))
	var wg sync.WaitGroup
	for i, d := range pending {
		wg.Add(1)
		idx, desc := i, d
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				errs[idx] = desc.load()
				return nil, errs[idx]
			},
		})
	}
	wg.Wait()
	rp.logger.Debug("shaders preloaded", "count", len(pending), "workers", rp.preloadWorkers)
	return errors.Join(errs...)
}

func (rp *renderPath) Begin() int {
	if rp.inBegin {
		panic("renderpath: Begin inside Begin")
	}
	rp.inBegin = true
	return len(rp.sections)
}

func (rp *renderPath) End() {
	if !rp.inBegin {
		panic("renderpath: End without Begin")
	}
	rp.inBegin = false
}

func (rp *renderPath) InBegin() bool {
	return rp.inBegin
}

func (rp *renderPath) DisplayResized() {
	for _, rt := range rp.renderTargets {
		if rt.IsRelative() {
			rt.Release()
		}
	}
}

func (rp *renderPath) Close() {
	if rp.inBegin {
		panic("renderpath: Close inside Begin")
	}
	for _, s := range rp.shaders {
		s.Release()
	}
	for _, rt := range rp.renderTargets {
		rt.Release()
	}
	for _, t := range rp.textures {
		t.Release()
	}
	if rp.quad != nil {
		rp.quad.Release()
		rp.quad = nil
	}
	rp.shaders = nil
	rp.renderTargets = nil
	rp.textures = nil
	rp.variables = nil
	rp.sections = nil
	rp.passes = nil
	rp.phases = nil
	rp.sequences = nil
	rp.source = nil
	rp.name = ""
	rp.shaderPath = ""
	rp.dialect = ""
	rp.xmlOpened = false
	rp.opened = false
}

// pushParams pulls the bound globals of b and writes all its arguments to sh.
func (rp *renderPath) pushParams(b *paramBlock, sh gfx.Shader) error {
	if err := b.pull(rp.registry); err != nil {
		return err
	}
	return b.apply(sh)
}

// ensureQuadMesh creates the full screen quad shared by all passes on first use.
func (rp *renderPath) ensureQuadMesh() {
	if rp.quad != nil {
		return
	}
	rp.quad = rp.server.NewMesh(fmt.Sprintf("%s.quad", rp.name))
	rp.quad.SetIndices(quadIndices)
	w, h := rp.server.DisplaySize()
	rp.quad.SetVertices(quadVertices(w, h), quadComponents)
}
