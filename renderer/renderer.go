// Package renderer drives the resource cache and the binding graph once
// per frame.
//
// BeginFrame sweeps idle pools and rebinds lit materials when the light
// composition of the scene changed. Draw brings the program variables of
// one item up to date and uploads the ones that changed.
package renderer

import (
	"time"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/binding"
	"github.com/gogpu/g3d/device"
	"github.com/gogpu/g3d/material"
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/resource"
	"github.com/gogpu/g3d/scene"
)

// Item is one draw: a material applied to an object, optionally skinned.
type Item struct {
	Material    *material.Material
	Object      scene.Transform
	Skeleton    scene.Skeleton
	BoneIndices []int
}

// Stats contains renderer statistics.
type Stats struct {
	Frames  uint64
	Draws   uint64
	Uploads uint64
	// Evicted is the number of idle pooled objects dropped by frame sweeps.
	Evicted uint64
	// Refreshes is the number of light composition changes handled.
	Refreshes uint64
	Summary   scene.LightSummary
}

// Option configures a Renderer during creation.
type Option func(*options)

type options struct {
	registry   *pool.Registry
	managerOps []resource.Option
}

// WithRegistry sets the pool registry swept by BeginFrame.
// The default is pool.DefaultRegistry; nil disables sweeping.
func WithRegistry(r *pool.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithManagerOptions configures the resource manager.
func WithManagerOptions(opts ...resource.Option) Option {
	return func(o *options) {
		o.managerOps = append(o.managerOps, opts...)
	}
}

// Renderer is the per-frame driver.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	dev      device.Device
	scene    scene.State
	mgr      *resource.Manager
	registry *pool.Registry
	summary  scene.LightSummary
	frame    binding.FrameState
	stats    Stats
}

// New creates a renderer for s drawing on dev.
func New(dev device.Device, s scene.State, opts ...Option) *Renderer {
	o := options{registry: pool.DefaultRegistry}
	for _, opt := range opts {
		opt(&o)
	}
	return &Renderer{
		dev:      dev,
		scene:    s,
		mgr:      resource.New(dev, s, o.managerOps...),
		registry: o.registry,
		summary:  s.Summary(),
	}
}

// Manager returns the resource manager.
func (r *Renderer) Manager() *resource.Manager { return r.mgr }

// AddMaterial binds m to its program under the current light summary.
// Each call takes one material reference.
func (r *Renderer) AddMaterial(m *material.Material) error {
	_, err := r.mgr.AcquireProgram(m, r.summary)
	return err
}

// RemoveMaterial drops one reference of m. It reports whether the material
// was unbound.
func (r *Renderer) RemoveMaterial(m *material.Material) bool {
	return r.mgr.ReleaseMaterial(m)
}

// BeginFrame starts a frame at now. It sweeps the pool registry and, when
// the scene light summary differs from the one materials were bound with,
// refreshes every lit material.
func (r *Renderer) BeginFrame(now time.Time) error {
	r.stats.Frames++
	if r.registry != nil {
		r.stats.Evicted += uint64(r.registry.SweepAll(now))
	}

	s := r.scene.Summary()
	if s == r.summary {
		return nil
	}
	g3d.Logger().Info("renderer: light composition changed",
		"directional", s.Directional, "spot", s.Spot, "point", s.Point)
	r.summary = s
	r.stats.Refreshes++
	return r.mgr.RefreshLitMaterials(s)
}

// Draw updates the program variables of item and uploads the changed
// ones. A material that was not added is bound on first draw and keeps
// that reference until RemoveMaterial.
func (r *Renderer) Draw(item Item) error {
	p, ok := r.mgr.Program(item.Material)
	if !ok {
		var err error
		p, err = r.mgr.AcquireProgram(item.Material, r.summary)
		if err != nil {
			return err
		}
	}

	r.frame = binding.FrameState{
		Scene:       r.scene,
		Object:      item.Object,
		Skeleton:    item.Skeleton,
		BoneIndices: item.BoneIndices,
		Material:    item.Material,
	}
	p.Bundle().Update(&r.frame)
	r.stats.Draws++

	h := p.Handle()
	return p.Variables().Flush(func(path string, value any) error {
		r.stats.Uploads++
		return r.dev.SetUniform(h, path, value)
	})
}

// Summary returns the light summary materials are currently bound with.
func (r *Renderer) Summary() scene.LightSummary { return r.summary }

// Stats returns renderer statistics.
func (r *Renderer) Stats() Stats {
	st := r.stats
	st.Summary = r.summary
	return st
}

// Close releases every cached resource.
func (r *Renderer) Close() {
	r.mgr.Close()
}
