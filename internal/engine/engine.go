// Package engine is the simulation side of the mailbox: it applies received commands
// to a render state that the engine's frame loop reads.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/panjf2000/ants/v2"

	"github.com/srediag/editor-mailbox/api"
	"github.com/srediag/editor-mailbox/internal/logging"
	"github.com/srediag/editor-mailbox/pkg/mailbox"
)

// TextureID and MaterialID identify registered assets. Zero means none.
type (
	TextureID  uint32
	MaterialID uint32
)

// Texture is a loaded texture file.
type Texture struct {
	ID   TextureID
	Path string
	Size int
	Hash uint64
}

// Material is a compiled material.
type Material struct {
	ID              MaterialID
	Uniforms        map[string]string
	Textures        map[string]string
	WorldOffsetExpr string
	FragColorExpr   string
}

// State is a copy of the render state.
type State struct {
	Textures   []Texture
	Materials  []Material
	Active     MaterialID
	Uniforms   map[string][4]float32
	LoadErrors int
}

// Options configures an Engine.
type Options struct {
	// BaseDir resolves relative asset paths. Empty means the working directory.
	BaseDir string
	// Workers bounds concurrent texture loads.
	Workers int
	Logger  *logging.Logger
}

// Engine applies mailbox commands. Handle runs on the tick goroutine; texture files
// are read by a worker pool and registered by Tick.
type Engine struct {
	opts   Options
	router *mailbox.Router
	pool   *ants.Pool
	done   *loadQueue
	logger *logging.Logger

	mu       sync.Mutex
	textures map[string]Texture
	mats     []Material
	active   MaterialID
	uniforms map[string][4]float32
	loadErrs int
	nextTex  TextureID
	nextMat  MaterialID
}

// New returns an engine with its worker pool started.
func New(opts Options) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New("engine", os.Stdout)
	}
	pool, err := ants.NewPool(opts.Workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			logger.Errorf("texture worker panic: %v", p)
		}))
	if err != nil {
		return nil, fmt.Errorf("engine: worker pool: %w", err)
	}
	e := &Engine{
		opts:     opts,
		router:   mailbox.NewRouter(),
		pool:     pool,
		done:     newLoadQueue(int64(opts.Workers)),
		logger:   logger,
		textures: make(map[string]Texture),
		uniforms: make(map[string][4]float32),
	}
	e.router.RegisterFunc(api.NameLoadTexture, e.handleLoadTexture)
	e.router.RegisterFunc(api.NameCompile, e.handleCompile)
	e.router.RegisterFunc(api.NameUpdateUniform, e.handleUpdateUniform)
	e.router.RegisterFunc(api.NameLoadMaterialFile, e.handleLoadMaterialFile)
	return e, nil
}

// Handle implements api.Handler.
func (e *Engine) Handle(ctx context.Context, cmd api.Command) (api.Command, error) {
	return e.router.Handle(ctx, cmd)
}

// Router exposes the command routes so a host can add its own.
func (e *Engine) Router() *mailbox.Router { return e.router }

func (e *Engine) resolve(path string) string {
	if e.opts.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.opts.BaseDir, path)
}

func (e *Engine) handleLoadTexture(_ context.Context, cmd api.Command) (api.Command, error) {
	return nil, e.loadTexture(cmd.(api.LoadTexture).Path)
}

func (e *Engine) loadTexture(path string) error {
	if path == "" {
		return errors.New("engine: empty texture path")
	}
	full := e.resolve(path)
	err := e.pool.Submit(func() {
		data, err := os.ReadFile(full)
		r := loadResult{path: path, err: err}
		if err == nil {
			r.size = len(data)
			r.hash = xxhash.Sum64(data)
		}
		if err := e.done.put(r); err != nil {
			e.logger.Warnf("texture %s finished after shutdown", path)
		}
	})
	if err != nil {
		return fmt.Errorf("engine: load texture %s: %w", path, err)
	}
	e.logger.Debugf("loading texture %s", path)
	return nil
}

func (e *Engine) handleCompile(_ context.Context, cmd api.Command) (api.Command, error) {
	c := cmd.(api.Compile)
	uniforms, err := decodeTable(c.UniformTypes)
	if err != nil {
		return nil, fmt.Errorf("engine: uniform types: %w", err)
	}
	textures, err := decodeTable(c.TextureDescs)
	if err != nil {
		return nil, fmt.Errorf("engine: texture descriptions: %w", err)
	}

	e.mu.Lock()
	e.nextMat++
	m := Material{
		ID:              e.nextMat,
		Uniforms:        uniforms,
		Textures:        textures,
		WorldOffsetExpr: c.WorldOffsetExpr,
		FragColorExpr:   c.FragColorExpr,
	}
	e.mats = append(e.mats, m)
	e.active = m.ID
	var missing []string
	for _, path := range textures {
		if _, ok := e.textures[path]; !ok {
			missing = append(missing, path)
		}
	}
	e.mu.Unlock()

	sort.Strings(missing)
	for _, path := range slices.Compact(missing) {
		if err := e.loadTexture(path); err != nil {
			e.logger.Warnf("material %d: %v", m.ID, err)
		}
	}
	e.logger.Infof("compiled material %d with %d uniforms and %d textures", m.ID, len(uniforms), len(textures))
	return nil, nil
}

func (e *Engine) handleUpdateUniform(_ context.Context, cmd api.Command) (api.Command, error) {
	u := cmd.(api.UpdateUniform)
	e.mu.Lock()
	e.uniforms[u.Uniform] = u.Value
	e.mu.Unlock()
	return nil, nil
}

func (e *Engine) handleLoadMaterialFile(_ context.Context, cmd api.Command) (api.Command, error) {
	path := cmd.(api.LoadMaterialFile).Path
	mf, err := readMaterialFile(e.resolve(path))
	if err != nil {
		return nil, err
	}
	e.logger.Infof("opened material %s", path)
	return api.MaterialSource{WorldOffsetExpr: mf.WorldOffset, FragColorExpr: mf.FragColor}, nil
}

// Tick registers texture loads finished since the previous tick. It never blocks.
func (e *Engine) Tick(context.Context) error {
	results, err := e.done.drain()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range results {
		if r.err != nil {
			e.loadErrs++
			e.logger.Warnf("texture %s: %v", r.path, r.err)
			continue
		}
		t, ok := e.textures[r.path]
		if !ok {
			e.nextTex++
			t.ID = e.nextTex
		}
		t.Path, t.Size, t.Hash = r.path, r.size, r.hash
		e.textures[r.path] = t
		e.logger.Debugf("texture %d ready: %s (%d bytes, %016x)", t.ID, t.Path, t.Size, t.Hash)
	}
	return nil
}

// Snapshot returns a copy of the render state. Textures are ordered by ID.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Textures:   slices.Collect(maps.Values(e.textures)),
		Materials:  slices.Clone(e.mats),
		Active:     e.active,
		Uniforms:   maps.Clone(e.uniforms),
		LoadErrors: e.loadErrs,
	}
	sort.Slice(s.Textures, func(i, j int) bool { return s.Textures[i].ID < s.Textures[j].ID })
	return s
}

// Close stops the worker pool, waiting up to timeout for loads in flight.
func (e *Engine) Close(timeout time.Duration) error {
	err := e.pool.ReleaseTimeout(timeout)
	e.done.dispose()
	return err
}
