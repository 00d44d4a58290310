package binding

import "github.com/gogpu/g3d/event"

// Global is one distinct piece of external state that renderer variables
// mirror. Invalidate marks every dependent renderer variable dirty.
//
// Global is closed: its only implementations are *ScalarGlobal,
// *ArrayGlobal and *StructGlobal.
type Global interface {
	// Invalidate marks all registered dependents dirty.
	Invalidate()
	// Dependents returns the number of renderer variables registered directly.
	Dependents() int
	// Close cancels event subscriptions, recursively.
	Close()

	isGlobal()
}

// ScalarGlobal is a leaf global. It is invalidated by the signals it watches.
type ScalarGlobal struct {
	deps []*ScalarRenderer
	subs []event.Subscription
}

// NewScalarGlobal creates a scalar global watching sigs.
func NewScalarGlobal(sigs ...*event.Signal) *ScalarGlobal {
	g := &ScalarGlobal{}
	for _, s := range sigs {
		g.Watch(s)
	}
	return g
}

func (*ScalarGlobal) isGlobal() {}

// Watch invalidates g whenever sig fires.
func (g *ScalarGlobal) Watch(sig *event.Signal) {
	g.subs = append(g.subs, sig.Connect(g.Invalidate))
}

// Unwatch cancels every subscription, leaving dependents registered.
func (g *ScalarGlobal) Unwatch() {
	for i := range g.subs {
		g.subs[i].Cancel()
	}
	g.subs = g.subs[:0]
}

// Watching returns the number of watched signals.
func (g *ScalarGlobal) Watching() int { return len(g.subs) }

// Invalidate marks every dependent dirty.
func (g *ScalarGlobal) Invalidate() {
	for _, r := range g.deps {
		r.dirty = true
	}
}

// Dependents returns the number of registered renderers.
func (g *ScalarGlobal) Dependents() int { return len(g.deps) }

// Close cancels subscriptions.
func (g *ScalarGlobal) Close() { g.Unwatch() }

func (g *ScalarGlobal) remove(r *ScalarRenderer) {
	for i, d := range g.deps {
		if d == r {
			g.deps = append(g.deps[:i], g.deps[i+1:]...)
			return
		}
	}
}

// ArrayGlobal is an array of child globals created on demand.
type ArrayGlobal struct {
	elems   []Global
	newElem func(i int) Global
	deps    []*ArrayRenderer
}

// NewArrayGlobal creates an array global whose element i is built by
// newElem the first time it is needed.
func NewArrayGlobal(newElem func(i int) Global) *ArrayGlobal {
	return &ArrayGlobal{newElem: newElem}
}

func (*ArrayGlobal) isGlobal() {}

// Elem returns child i, creating children up to i.
func (g *ArrayGlobal) Elem(i int) Global {
	for len(g.elems) <= i {
		g.elems = append(g.elems, g.newElem(len(g.elems)))
	}
	return g.elems[i]
}

// Len returns the number of created children.
func (g *ArrayGlobal) Len() int { return len(g.elems) }

// Invalidate invalidates every child.
func (g *ArrayGlobal) Invalidate() {
	for _, e := range g.elems {
		e.Invalidate()
	}
}

// Dependents returns the number of registered array renderers.
func (g *ArrayGlobal) Dependents() int { return len(g.deps) }

// Close closes every child.
func (g *ArrayGlobal) Close() {
	for _, e := range g.elems {
		e.Close()
	}
}

func (g *ArrayGlobal) remove(r *ArrayRenderer) {
	for i, d := range g.deps {
		if d == r {
			g.deps = append(g.deps[:i], g.deps[i+1:]...)
			return
		}
	}
}

// StructGlobal is a named set of child globals.
type StructGlobal struct {
	names  []string
	fields map[string]Global
	deps   []*StructRenderer
}

// NewStructGlobal creates an empty struct global.
func NewStructGlobal() *StructGlobal {
	return &StructGlobal{fields: make(map[string]Global)}
}

func (*StructGlobal) isGlobal() {}

// Add adds or replaces field name and returns g.
func (g *StructGlobal) Add(name string, field Global) *StructGlobal {
	if _, ok := g.fields[name]; !ok {
		g.names = append(g.names, name)
	}
	g.fields[name] = field
	return g
}

// Field returns the child called name.
func (g *StructGlobal) Field(name string) (Global, bool) {
	f, ok := g.fields[name]
	return f, ok
}

// Invalidate invalidates every field.
func (g *StructGlobal) Invalidate() {
	for _, name := range g.names {
		g.fields[name].Invalidate()
	}
}

// Dependents returns the number of registered struct renderers.
func (g *StructGlobal) Dependents() int { return len(g.deps) }

// Close closes every field.
func (g *StructGlobal) Close() {
	for _, name := range g.names {
		g.fields[name].Close()
	}
}

func (g *StructGlobal) remove(r *StructRenderer) {
	for i, d := range g.deps {
		if d == r {
			g.deps = append(g.deps[:i], g.deps[i+1:]...)
			return
		}
	}
}
