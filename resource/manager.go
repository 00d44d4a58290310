// Package resource caches shaders and programs for materials.
//
// A material's define prefix (material.Assemble) is prepended to its base
// vertex and fragment sources. Shaders are deduplicated by stage and full
// source text; programs by their shader pair. Everything is reference
// counted per identity: a material holds one reference however many
// objects draw with it, a program counts the materials bound to it and a
// shader counts the bound materials whose program uses it.
//
// When a program is first created the manager reads its variables from the
// device and builds the renderer bundle that keeps them up to date
// (binding.Catalog). The bundle is torn down with the program.
//
// Manager is not safe for concurrent use; it is driven by the render loop.
package resource

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/material"
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/scene"
)

// ErrUnknownSource is returned when a material names a base source that
// was never registered.
var ErrUnknownSource = errors.New("resource: unknown base source")

// Stats contains manager statistics.
type Stats struct {
	// Shaders is the number of live cached shaders.
	Shaders int
	// Programs is the number of live cached programs.
	Programs int
	// Materials is the number of bound materials.
	Materials int
	// Hits is the number of program lookups served from the cache.
	Hits uint64
	// Misses is the number of programs compiled.
	Misses uint64
	// DoubleReleases is the number of releases of unbound materials.
	DoubleReleases uint64
}

// attachment is the side-table entry of a bound material.
type attachment struct {
	material *material.Material
	program  *Program
	refs     int
}

// Manager is the shader, program and material cache.
type Manager struct {
	dev      device.Device
	catalog  *binding.Catalog
	vertex   map[string]string
	fragment map[string]string

	shaderPool  *pool.Pool[*Shader, shaderArgs]
	programPool *pool.Pool[*Program, programArgs]

	shaders   []*Shader
	programs  map[programKey]*Program
	materials map[pool.ID]*attachment

	hits           uint64
	misses         uint64
	doubleReleases uint64
}

// New creates a manager compiling on dev, with renderer bundles reading
// from s.
func New(dev device.Device, s scene.State, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ids := o.ids
	if ids == nil {
		ids = pool.NewIDSource()
	}

	return &Manager{
		dev:      dev,
		catalog:  binding.NewCatalog(s),
		vertex:   o.vertex,
		fragment: o.fragment,
		shaderPool: pool.New[*Shader, shaderArgs]("resource.shaders", func() *Shader {
			return &Shader{id: ids.Next()}
		}, o.poolOpts...),
		programPool: pool.New[*Program, programArgs]("resource.programs", func() *Program {
			return &Program{id: ids.Next()}
		}, o.poolOpts...),
		programs:  make(map[programKey]*Program),
		materials: make(map[pool.ID]*attachment),
	}
}

// Catalog returns the catalog owning the scene globals.
func (mgr *Manager) Catalog() *binding.Catalog { return mgr.catalog }

// AcquireProgram returns the program of m under the light summary s and
// takes one material reference. A material that is already bound only
// gains a reference; its program is not looked up again.
//
// Compile failures are returned wrapped in device.ErrCompile and leave no
// references behind.
func (mgr *Manager) AcquireProgram(m *material.Material, s scene.LightSummary) (*Program, error) {
	if a, ok := mgr.materials[m.ID()]; ok {
		a.refs++
		return a.program, nil
	}
	p, err := mgr.attach(m, s)
	if err != nil {
		return nil, err
	}
	mgr.materials[m.ID()] = &attachment{material: m, program: p, refs: 1}
	return p, nil
}

// ReleaseMaterial drops one reference of m. When the last reference goes
// the material is unbound, and its program and shaders are released in
// turn. It reports whether the material was unbound.
//
// Releasing a material that is not bound is a programming error: it is
// logged, counted in Stats and reported as false.
func (mgr *Manager) ReleaseMaterial(m *material.Material) bool {
	a, ok := mgr.materials[m.ID()]
	if !ok {
		mgr.doubleReleases++
		g3d.Logger().Error("resource: release of unbound material", "material", m.String())
		return false
	}
	a.refs--
	if a.refs > 0 {
		return false
	}
	delete(mgr.materials, m.ID())
	mgr.detach(a.program)
	return true
}

// RefreshLitMaterials rebinds every lit material to the program matching
// the light summary s. All lit programs are released before any is
// reacquired. Materials whose new program fails are left unbound and
// their errors are joined.
func (mgr *Manager) RefreshLitMaterials(s scene.LightSummary) error {
	var lit []*attachment
	for _, a := range mgr.materials {
		if a.material.Lit() {
			lit = append(lit, a)
		}
	}
	if len(lit) == 0 {
		return nil
	}
	sort.Slice(lit, func(i, j int) bool { return lit[i].material.ID() < lit[j].material.ID() })

	for _, a := range lit {
		delete(mgr.materials, a.material.ID())
		mgr.detach(a.program)
		a.program = nil
	}

	var errs []error
	for _, a := range lit {
		p, err := mgr.attach(a.material, s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.program = p
		mgr.materials[a.material.ID()] = a
	}
	g3d.Logger().Info("resource: refreshed lit materials",
		"materials", len(lit), "failed", len(errs), "programs", len(mgr.programs))
	return errors.Join(errs...)
}

// Program returns the program m is bound to.
func (mgr *Manager) Program(m *material.Material) (*Program, bool) {
	a, ok := mgr.materials[m.ID()]
	if !ok {
		return nil, false
	}
	return a.program, true
}

// MaterialRefs returns the reference count of m, zero when unbound.
func (mgr *Manager) MaterialRefs(m *material.Material) int {
	if a, ok := mgr.materials[m.ID()]; ok {
		return a.refs
	}
	return 0
}

// Shaders returns the live cached shaders.
func (mgr *Manager) Shaders() []*Shader {
	out := make([]*Shader, len(mgr.shaders))
	copy(out, mgr.shaders)
	return out
}

// Stats returns manager statistics.
func (mgr *Manager) Stats() Stats {
	return Stats{
		Shaders:        len(mgr.shaders),
		Programs:       len(mgr.programs),
		Materials:      len(mgr.materials),
		Hits:           mgr.hits,
		Misses:         mgr.misses,
		DoubleReleases: mgr.doubleReleases,
	}
}

// Close unbinds every material, destroys all programs, drops the pools
// and cancels the catalog subscriptions.
func (mgr *Manager) Close() {
	for id, a := range mgr.materials {
		delete(mgr.materials, id)
		mgr.detach(a.program)
	}
	mgr.shaderPool.Destroy()
	mgr.programPool.Destroy()
	mgr.catalog.Close()
}

// attach resolves the program of m under s and takes one reference on the
// program and on each of its shaders.
func (mgr *Manager) attach(m *material.Material, s scene.LightSummary) (*Program, error) {
	vsBase, ok := mgr.vertex[m.VertexSource()]
	if !ok {
		return nil, fmt.Errorf("%w: vertex %q of %s", ErrUnknownSource, m.VertexSource(), m)
	}
	fsBase, ok := mgr.fragment[m.FragmentSource()]
	if !ok {
		return nil, fmt.Errorf("%w: fragment %q of %s", ErrUnknownSource, m.FragmentSource(), m)
	}

	defines := material.Assemble(m, s)
	vs := mgr.acquireShader(Vertex, defines+vsBase)
	fs := mgr.acquireShader(Fragment, defines+fsBase)

	key := programKey{vertex: vs.id, fragment: fs.id}
	p, ok := mgr.programs[key]
	if ok {
		mgr.hits++
		g3d.Logger().Debug("resource: program cache hit", "program", p.id, "material", m.String())
	} else {
		var err error
		p, err = mgr.createProgram(vs, fs)
		if err != nil {
			mgr.releaseShader(vs)
			mgr.releaseShader(fs)
			return nil, fmt.Errorf("resource: %s: %w", m, err)
		}
	}
	p.refs++
	return p, nil
}

// detach drops the references attach took.
func (mgr *Manager) detach(p *Program) {
	vs, fs := p.vertex, p.fragment
	p.refs--
	if p.refs == 0 {
		mgr.destroyProgram(p)
	}
	mgr.releaseShader(vs)
	mgr.releaseShader(fs)
}

// acquireShader returns the cached shader for (stage, source) with one
// more reference. Shader counts are small, so lookup is a linear scan.
func (mgr *Manager) acquireShader(stage Stage, source string) *Shader {
	hash := sourceHash(source)
	for _, s := range mgr.shaders {
		if s.matches(stage, hash, source) {
			s.refs++
			return s
		}
	}
	s := mgr.shaderPool.Lease(shaderArgs{stage: stage, source: source})
	s.refs = 1
	mgr.shaders = append(mgr.shaders, s)
	g3d.Logger().Debug("resource: shader created", "shader", s.id, "stage", stage.String())
	return s
}

func (mgr *Manager) releaseShader(s *Shader) {
	s.refs--
	if s.refs > 0 {
		return
	}
	for i, live := range mgr.shaders {
		if live == s {
			mgr.shaders = append(mgr.shaders[:i], mgr.shaders[i+1:]...)
			break
		}
	}
	g3d.Logger().Debug("resource: shader freed", "shader", s.id, "stage", s.stage.String())
	mgr.shaderPool.Release(s)
}

func (mgr *Manager) createProgram(vs, fs *Shader) (*Program, error) {
	mgr.misses++
	h, err := mgr.dev.CompileProgram(vs.source, fs.source)
	if err != nil {
		if !errors.Is(err, device.ErrCompile) {
			err = fmt.Errorf("%w: %w", device.ErrCompile, err)
		}
		return nil, err
	}
	descs, err := mgr.dev.ProgramVariables(h)
	if err != nil {
		mgr.dev.DestroyProgram(h)
		return nil, fmt.Errorf("program variables: %w", err)
	}

	vars := binding.NewVariableSet(descs)
	bundle, err := mgr.catalog.Build(vars)
	if err != nil {
		mgr.dev.DestroyProgram(h)
		return nil, err
	}

	p := mgr.programPool.Lease(programArgs{vertex: vs, fragment: fs, handle: h})
	p.vars = vars
	p.bundle = bundle
	mgr.programs[p.key()] = p
	g3d.Logger().Info("resource: program created",
		"program", p.id, "vertex", vs.id, "fragment", fs.id, "variables", vars.Len(), "renderers", bundle.Len())
	return p, nil
}

func (mgr *Manager) destroyProgram(p *Program) {
	delete(mgr.programs, p.key())
	p.bundle.Release()
	mgr.dev.DestroyProgram(p.handle)
	g3d.Logger().Info("resource: program destroyed", "program", p.id)
	mgr.programPool.Release(p)
}
