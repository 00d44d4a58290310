package binding

import (
	"github.com/gogpu/g3d/pool"
	"github.com/gogpu/g3d/scene"
)

// FrameState is what renderer variables read from during one draw.
type FrameState struct {
	Scene       scene.State
	Object      scene.Transform
	Skeleton    scene.Skeleton
	BoneIndices []int
	Material    MaterialSource
}

// Custom maps one material property onto a program variable.
type Custom struct {
	// Name is the program variable name.
	Name string
	// Dirty reports whether the property changed since the last Write.
	// A nil Dirty means "always write".
	Dirty func() bool
	// Write assigns the property to pv.
	Write func(pv *ProgramVariable)
}

// MaterialSource is the material side of a draw: its identity and its
// custom bindings.
type MaterialSource interface {
	ID() pool.ID
	Binding(name string) (Custom, bool)
}

// Bundle is the set of renderer variables of one program.
type Bundle struct {
	names     []string
	renderers []Renderer
}

// Add appends a renderer for the variable called name.
func (b *Bundle) Add(name string, r Renderer) {
	b.names = append(b.names, name)
	b.renderers = append(b.renderers, r)
}

// Update runs every renderer for one draw.
func (b *Bundle) Update(fs *FrameState) {
	for _, r := range b.renderers {
		r.Update(fs)
	}
}

// Renderer returns the renderer bound to the variable called name.
func (b *Bundle) Renderer(name string) (Renderer, bool) {
	for i, n := range b.names {
		if n == name {
			return b.renderers[i], true
		}
	}
	return nil, false
}

// Len returns the number of renderers.
func (b *Bundle) Len() int { return len(b.renderers) }

// Release unbinds every renderer from its global. The bundle is empty afterwards.
func (b *Bundle) Release() {
	for _, r := range b.renderers {
		Unbind(r)
	}
	b.names = nil
	b.renderers = nil
}

// NewCustomRenderer creates a renderer for a material property. It writes
// when the drawn material differs from the one last written, or when the
// material reports the property dirty.
func NewCustomRenderer(pv *ProgramVariable, name string) *ScalarRenderer {
	var last pool.ID
	lookup := func(fs *FrameState) (Custom, pool.ID, bool) {
		if fs == nil || fs.Material == nil {
			return Custom{}, pool.InvalidID, false
		}
		c, ok := fs.Material.Binding(name)
		if !ok || c.Write == nil {
			return Custom{}, pool.InvalidID, false
		}
		return c, fs.Material.ID(), true
	}
	gate := func(fs *FrameState) bool {
		c, id, ok := lookup(fs)
		if !ok {
			return false
		}
		return id != last || c.Dirty == nil || c.Dirty()
	}
	write := func(fs *FrameState, pv *ProgramVariable) {
		c, id, ok := lookup(fs)
		if !ok {
			return
		}
		last = id
		c.Write(pv)
	}
	return NewGatedRenderer(pv, gate, write)
}
