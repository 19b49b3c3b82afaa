// Package loader imports glTF 2.0 assets (.gltf and .glb) into meshes of a graphics server,
// a character skeleton and animation clips, and caches them by name.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-renderpath/engine/gfx"
)

// ErrUnsupportedFormat is returned for files that are neither .gltf nor .glb.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	server  gfx.Server
	logger  *slog.Logger
	workers int

	modelCache map[string]*Model
}

// Loader imports and caches models.
type Loader interface {
	// Load imports a model file, or returns the cached model of the same path.
	//
	// Parameters:
	//   - path: a .gltf or .glb file
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: ErrUnsupportedFormat, or a read, decode or mesh error
	Load(path string) (*Model, error)

	// LoadAll decodes files in parallel and creates their meshes in order on the calling
	// goroutine. Every file is attempted.
	//
	// Parameters:
	//   - paths: the files to load
	//
	// Returns:
	//   - []*Model: the models in path order, nil entries for failures
	//   - error: the joined errors of every failed file
	LoadAll(paths ...string) ([]*Model, error)

	// LoadReader imports a model from a stream and caches it by name. External buffer and
	// image URIs cannot be resolved.
	//
	// Parameters:
	//   - name: the cache key and fallback model name
	//   - r: the glTF JSON or GLB data
	//   - isGLB: true for GLB data
	//
	// Returns:
	//   - *Model: the loaded model
	//   - error: a decode or mesh error
	LoadReader(name string, r io.Reader, isGLB bool) (*Model, error)

	// Get returns a cached model, or nil.
	Get(name string) *Model

	// Models returns a copy of the cache.
	Models() map[string]*Model

	// Release frees every cached model and empties the cache.
	Release()
}

var _ Loader = &loader{}

// NewLoader creates a loader that creates meshes and textures on srv.
//
// Parameters:
//   - srv: the graphics server
//   - options: functional options
//
// Returns:
//   - Loader: the loader
func NewLoader(srv gfx.Server, options ...LoaderBuilderOption) Loader {
	if srv == nil {
		panic("loader: NewLoader requires a gfx.Server")
	}
	l := &loader{
		server:     srv,
		logger:     slog.Default(),
		workers:    4,
		modelCache: make(map[string]*Model),
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*Model, error) {
	if m := l.Get(path); m != nil {
		return m, nil
	}
	f, err := l.parse(path)
	if err != nil {
		return nil, err
	}
	return l.store(path, f)
}

func (l *loader) LoadAll(paths ...string) ([]*Model, error) {
	files := make([]*gltfFile, len(paths))
	errs := make([]error, len(paths))

	sem := make(chan struct{}, max(l.workers, 1))
	var wg sync.WaitGroup
	for i, path := range paths {
		if l.Get(path) != nil {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			files[i], errs[i] = l.parse(path)
		}()
	}
	wg.Wait()

	models := make([]*Model, len(paths))
	for i, path := range paths {
		if m := l.Get(path); m != nil {
			models[i] = m
			continue
		}
		if errs[i] != nil {
			continue
		}
		models[i], errs[i] = l.store(path, files[i])
	}
	return models, errors.Join(errs...)
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (*Model, error) {
	if m := l.Get(name); m != nil {
		return m, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", name, err)
	}
	f, err := parseGLTF(data, "", isGLB)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", name, err)
	}
	return l.store(name, f)
}

func (l *loader) Get(name string) *Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]*Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.modelCache {
		m.Release()
	}
	clear(l.modelCache)
}

// parse decodes a model file without touching the graphics server.
func (l *loader) parse(path string) (*gltfFile, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
	default:
		return nil, fmt.Errorf("loader: %s: %w %q", path, ErrUnsupportedFormat, ext)
	}
	f, err := parseGLTFFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return f, nil
}

// store builds the model of a parsed file and caches it by key.
func (l *loader) store(key string, f *gltfFile) (*Model, error) {
	m, err := l.build(modelName(f.doc, key), f)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", key, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// a concurrent load of the same key may have won
	if cached, ok := l.modelCache[key]; ok {
		m.Release()
		return cached, nil
	}
	l.modelCache[key] = m
	l.logger.Debug("model loaded", "name", m.Name, "primitives", len(m.Primitives), "clips", len(m.Clips))
	return m, nil
}

// build creates the meshes and textures of a parsed file and reads its skeleton and clips.
func (l *loader) build(name string, f *gltfFile) (*Model, error) {
	m := &Model{Name: name}

	materials, err := l.materials(name, f)
	if err != nil {
		return nil, err
	}
	m.Materials = materials

	instances, err := f.meshInstances()
	if err != nil {
		return nil, err
	}
	for ii, inst := range instances {
		mesh := &f.doc.Meshes[inst.mesh]
		for pi := range mesh.Primitives {
			prim := &mesh.Primitives[pi]
			data, err := f.readPrimitive(prim, inst)
			if err != nil {
				m.Release()
				return nil, fmt.Errorf("mesh %d primitive %d: %w", inst.mesh, pi, err)
			}

			gm := l.server.NewMesh(fmt.Sprintf("%s/%s", name, primitiveName(mesh, inst.mesh, ii, pi)))
			gm.SetVertices(data.vertices, MeshComponents)
			gm.SetIndices(data.indices)

			material := -1
			if prim.Material != nil && *prim.Material >= 0 && *prim.Material < len(m.Materials) {
				material = *prim.Material
			}
			m.Primitives = append(m.Primitives, Primitive{Mesh: gm, Material: material, Radius: data.radius})
		}
	}

	if skin := f.skinIndex(); skin >= 0 {
		skeleton, nodeToJoint, err := f.readSkeleton(skin)
		if err != nil {
			m.Release()
			return nil, fmt.Errorf("skin %d: %w", skin, err)
		}
		clips, err := f.readClips(skeleton, nodeToJoint)
		if err != nil {
			m.Release()
			return nil, err
		}
		m.Skeleton, m.Clips = skeleton, clips
	}
	return m, nil
}

// materials reads base colors and loads external base color images once per image.
func (l *loader) materials(name string, f *gltfFile) ([]Material, error) {
	doc := f.doc
	images := make(map[int]gfx.Texture)
	out := make([]Material, 0, len(doc.Materials))
	for i, gm := range doc.Materials {
		mat := Material{Name: gm.Name, BaseColor: [4]float32{1, 1, 1, 1}}
		if mat.Name == "" {
			mat.Name = fmt.Sprintf("material_%d", i)
		}
		if gm.Pbr != nil && gm.Pbr.BaseColorFactor != nil {
			mat.BaseColor = *gm.Pbr.BaseColorFactor
		}
		if gm.Pbr != nil && gm.Pbr.BaseColorTexture != nil {
			tex, err := l.image(name, f, gm.Pbr.BaseColorTexture.Index, images)
			if err != nil {
				for _, t := range images {
					t.Release()
				}
				return nil, fmt.Errorf("material %d: %w", i, err)
			}
			mat.BaseColorTexture = tex
		}
		out = append(out, mat)
	}
	return out, nil
}

// image loads the image of a texture through the graphics server. Images embedded in buffer
// views or data URIs are skipped, the server only loads files.
func (l *loader) image(name string, f *gltfFile, texture int, cache map[int]gfx.Texture) (gfx.Texture, error) {
	doc := f.doc
	if texture < 0 || texture >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", texture)
	}
	src := doc.Textures[texture].Source
	if src == nil || *src < 0 || *src >= len(doc.Images) {
		return nil, nil
	}
	if tex, ok := cache[*src]; ok {
		return tex, nil
	}

	img := doc.Images[*src]
	if img.URI == "" || strings.HasPrefix(img.URI, "data:") || f.baseDir == "" {
		l.logger.Debug("skipping embedded image", "model", name, "image", *src)
		return nil, nil
	}
	imgName := img.Name
	if imgName == "" {
		imgName = strings.TrimSuffix(filepath.Base(img.URI), filepath.Ext(img.URI))
	}
	tex, err := l.server.LoadTexture(name+"/"+imgName, filepath.Join(f.baseDir, filepath.FromSlash(img.URI)))
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", *src, err)
	}
	cache[*src] = tex
	return tex, nil
}

// modelName returns the default scene name, or the file name without extension.
func modelName(doc *gltfDocument, key string) string {
	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		if name := doc.Scenes[*doc.Scene].Name; name != "" {
			return name
		}
	}
	return strings.TrimSuffix(filepath.Base(key), filepath.Ext(key))
}

func primitiveName(mesh *gltfMesh, meshIndex, instance, primitive int) string {
	name := mesh.Name
	if name == "" {
		name = fmt.Sprintf("mesh_%d", meshIndex)
	}
	return fmt.Sprintf("%s.%d.%d", name, instance, primitive)
}
