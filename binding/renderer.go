package binding

import (
	"errors"
	"fmt"
)

// ErrShape is returned when a renderer variable and a global, or a program
// variable and its source, have different structural kinds.
var ErrShape = errors.New("binding: shape mismatch")

// Renderer is a per-program binding that resolves external state into one
// program variable. Update recomputes the value when needed.
//
// Renderer is closed: its only implementations are *ScalarRenderer,
// *ArrayRenderer and *StructRenderer.
type Renderer interface {
	// Update writes the program variable if the renderer is dirty, or
	// unconditionally for ungated renderers.
	Update(fs *FrameState)
	// Variable returns the bound program variable.
	Variable() *ProgramVariable
	// Global returns the global the renderer is registered with, or nil.
	Global() Global

	isRenderer()
}

// WriteFunc resolves a value from fs and assigns it to pv.
type WriteFunc func(fs *FrameState, pv *ProgramVariable)

// ScalarRenderer is a leaf renderer variable.
type ScalarRenderer struct {
	pv      *ProgramVariable
	write   WriteFunc
	dirty   bool
	ungated bool
	gate    func(fs *FrameState) bool
	global  *ScalarGlobal
	updates int
}

// NewScalarRenderer creates a renderer that writes only while dirty.
// It starts dirty.
func NewScalarRenderer(pv *ProgramVariable, write WriteFunc) *ScalarRenderer {
	return &ScalarRenderer{pv: pv, write: write, dirty: true}
}

// NewUngatedRenderer creates a renderer that writes on every update.
func NewUngatedRenderer(pv *ProgramVariable, write WriteFunc) *ScalarRenderer {
	return &ScalarRenderer{pv: pv, write: write, dirty: true, ungated: true}
}

// NewGatedRenderer creates a renderer that writes while dirty or while
// gate reports the source changed.
func NewGatedRenderer(pv *ProgramVariable, gate func(fs *FrameState) bool, write WriteFunc) *ScalarRenderer {
	return &ScalarRenderer{pv: pv, write: write, dirty: true, gate: gate}
}

func (*ScalarRenderer) isRenderer() {}

// Update writes the variable if needed and clears the dirty flag.
func (r *ScalarRenderer) Update(fs *FrameState) {
	switch {
	case r.ungated:
	case r.gate != nil:
		if !r.dirty && !r.gate(fs) {
			return
		}
	case !r.dirty:
		return
	}
	r.write(fs, r.pv)
	r.dirty = false
	r.updates++
}

// Variable returns the bound program variable.
func (r *ScalarRenderer) Variable() *ProgramVariable { return r.pv }

// Global returns the registered global, or nil.
func (r *ScalarRenderer) Global() Global {
	if r.global == nil {
		return nil
	}
	return r.global
}

// Dirty reports whether the next Update will recompute.
func (r *ScalarRenderer) Dirty() bool { return r.dirty }

// Ungated reports whether the renderer recomputes on every update.
func (r *ScalarRenderer) Ungated() bool { return r.ungated }

// Updates returns how many times the value was recomputed.
func (r *ScalarRenderer) Updates() int { return r.updates }

// ArrayRenderer updates element renderers in ascending order, bounded by
// the number of live sources.
type ArrayRenderer struct {
	pv     *ProgramVariable
	elems  []Renderer
	live   func(fs *FrameState) int
	global *ArrayGlobal
}

// NewArrayRenderer creates an array renderer over elems. live returns the
// current number of sources; nil means every element is live.
func NewArrayRenderer(pv *ProgramVariable, elems []Renderer, live func(fs *FrameState) int) *ArrayRenderer {
	return &ArrayRenderer{pv: pv, elems: elems, live: live}
}

func (*ArrayRenderer) isRenderer() {}

// Update updates elements 0..min(len, live)-1.
func (r *ArrayRenderer) Update(fs *FrameState) {
	n := len(r.elems)
	if r.live != nil {
		n = min(n, r.live(fs))
	}
	for i := 0; i < n; i++ {
		r.elems[i].Update(fs)
	}
}

// Variable returns the bound program variable.
func (r *ArrayRenderer) Variable() *ProgramVariable { return r.pv }

// Global returns the registered global, or nil.
func (r *ArrayRenderer) Global() Global {
	if r.global == nil {
		return nil
	}
	return r.global
}

// Elem returns element renderer i.
func (r *ArrayRenderer) Elem(i int) Renderer { return r.elems[i] }

// Len returns the number of element renderers.
func (r *ArrayRenderer) Len() int { return len(r.elems) }

// StructRenderer updates field renderers in declaration order.
type StructRenderer struct {
	pv     *ProgramVariable
	names  []string
	fields []Renderer
	global *StructGlobal
}

// NewStructRenderer creates a struct renderer. Fields must be added in
// declaration order.
func NewStructRenderer(pv *ProgramVariable) *StructRenderer {
	return &StructRenderer{pv: pv}
}

func (*StructRenderer) isRenderer() {}

// Add appends a field renderer and returns r.
func (r *StructRenderer) Add(name string, field Renderer) *StructRenderer {
	r.names = append(r.names, name)
	r.fields = append(r.fields, field)
	return r
}

// Update updates every field in order.
func (r *StructRenderer) Update(fs *FrameState) {
	for _, f := range r.fields {
		f.Update(fs)
	}
}

// Variable returns the bound program variable.
func (r *StructRenderer) Variable() *ProgramVariable { return r.pv }

// Global returns the registered global, or nil.
func (r *StructRenderer) Global() Global {
	if r.global == nil {
		return nil
	}
	return r.global
}

// Field returns the renderer of field name.
func (r *StructRenderer) Field(name string) (Renderer, bool) {
	for i, n := range r.names {
		if n == name {
			return r.fields[i], true
		}
	}
	return nil, false
}

// Bind registers r with g, recursing into array elements and struct
// fields. A renderer already bound elsewhere is unbound first. Struct
// fields without a matching global field stay unbound. Newly bound
// scalar renderers are marked dirty.
func Bind(r Renderer, g Global) error {
	Unbind(r)
	switch r := r.(type) {
	case *ScalarRenderer:
		sg, ok := g.(*ScalarGlobal)
		if !ok {
			return fmt.Errorf("%s: scalar renderer with %T: %w", r.pv.Path(), g, ErrShape)
		}
		r.global = sg
		r.dirty = true
		sg.deps = append(sg.deps, r)
	case *ArrayRenderer:
		ag, ok := g.(*ArrayGlobal)
		if !ok {
			return fmt.Errorf("%s: array renderer with %T: %w", r.pv.Path(), g, ErrShape)
		}
		r.global = ag
		ag.deps = append(ag.deps, r)
		for i, e := range r.elems {
			if err := Bind(e, ag.Elem(i)); err != nil {
				return err
			}
		}
	case *StructRenderer:
		stg, ok := g.(*StructGlobal)
		if !ok {
			return fmt.Errorf("%s: struct renderer with %T: %w", r.pv.Path(), g, ErrShape)
		}
		r.global = stg
		stg.deps = append(stg.deps, r)
		for i, f := range r.fields {
			fg, ok := stg.Field(r.names[i])
			if !ok {
				continue
			}
			if err := Bind(f, fg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Unbind removes r and its children from their globals.
func Unbind(r Renderer) {
	switch r := r.(type) {
	case *ScalarRenderer:
		if r.global != nil {
			r.global.remove(r)
			r.global = nil
		}
	case *ArrayRenderer:
		if r.global != nil {
			r.global.remove(r)
			r.global = nil
		}
		for _, e := range r.elems {
			Unbind(e)
		}
	case *StructRenderer:
		if r.global != nil {
			r.global.remove(r)
			r.global = nil
		}
		for _, f := range r.fields {
			Unbind(f)
		}
	}
}
