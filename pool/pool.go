package pool

import (
	"sync/atomic"
	"time"

	"github.com/gogpu/g3d"
)

// Poolable is implemented by objects managed by a Pool.
//
// Init re-initializes the object from constructor arguments. It must
// overwrite every state field but never the object's identifier.
// Clean clears every externally observable field so that a released
// object holds no references into the rest of the engine.
type Poolable[A any] interface {
	Init(args A)
	Clean()
}

// Stats contains pool statistics for monitoring.
type Stats struct {
	// Idle is the number of objects currently in the idle list.
	Idle int
	// Leases is the total number of Lease calls.
	Leases uint64
	// Reused is the number of leases served from the idle list.
	Reused uint64
	// Constructed is the number of objects created by the pool.
	Constructed uint64
	// Evicted is the number of idle objects permanently dropped.
	Evicted uint64
	// Sweeps is the number of real eviction passes performed.
	Sweeps uint64
}

// Pool reuses objects of type T constructed from arguments of type A.
//
// Idle objects are kept in FIFO order together with the time they were
// released. The two slices always have the same length and the stamps
// are non-decreasing.
//
// Pool must not be copied after creation.
type Pool[T Poolable[A], A any] struct {
	name    string
	newFunc func() T
	opts    options

	idle   []T
	stamps []time.Time

	lastSweep time.Time
	onEvict   func(T)

	leases      atomic.Uint64
	reused      atomic.Uint64
	constructed atomic.Uint64
	evicted     atomic.Uint64
	sweeps      atomic.Uint64
}

// New creates a pool named name whose objects are allocated by newFunc.
// newFunc only allocates; the pool calls Init on every object it hands out.
// The pool registers itself with the configured Registry.
func New[T Poolable[A], A any](name string, newFunc func() T, opts ...Option) *Pool[T, A] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pool[T, A]{
		name:    name,
		newFunc: newFunc,
		opts:    o,
	}
	if o.registry != nil {
		o.registry.Register(p)
	}
	return p
}

// Name returns the pool name.
func (p *Pool[T, A]) Name() string { return p.name }

// OnEvict sets a hook called for every object dropped by Sweep, by the
// high-water mark or by Destroy.
func (p *Pool[T, A]) OnEvict(fn func(T)) { p.onEvict = fn }

// Lease returns the oldest idle object re-initialized with args, or a new
// object when the idle list is empty. Lease never fails.
func (p *Pool[T, A]) Lease(args A) T {
	p.leases.Add(1)

	var obj T
	if len(p.idle) > 0 {
		obj = p.idle[0]
		p.dropHead(1, false)
		p.reused.Add(1)
	} else {
		obj = p.newFunc()
		p.constructed.Add(1)
	}
	obj.Init(args)
	return obj
}

// Release cleans obj and appends it to the idle list.
//
// The pool does not track leased objects: releasing the same object twice
// corrupts the idle list and must be prevented by the caller.
func (p *Pool[T, A]) Release(obj T) {
	if !p.opts.noClean {
		obj.Clean()
	}
	p.idle = append(p.idle, obj)
	p.stamps = append(p.stamps, p.opts.clock())

	if hw := p.opts.highWater; hw > 0 && len(p.idle) > hw {
		n := len(p.idle) - hw
		p.dropHead(n, true)
		g3d.Logger().Debug("pool: high-water eviction", "pool", p.name, "evicted", n)
	}
}

// Sweep evicts objects that have been idle for longer than the configured
// max lifetime. It is a no-op when called less than the update interval
// after the previous pass. It returns the number of evicted objects.
func (p *Pool[T, A]) Sweep(now time.Time) int {
	if !p.lastSweep.IsZero() && now.Sub(p.lastSweep) < p.opts.updateInterval {
		return 0
	}
	p.lastSweep = now
	p.sweeps.Add(1)

	cutoff := now.Add(-p.opts.maxLifetime)
	n := 0
	for n < len(p.stamps) && p.stamps[n].Before(cutoff) {
		n++
	}
	if n > 0 {
		p.dropHead(n, true)
		g3d.Logger().Debug("pool: swept idle objects", "pool", p.name, "evicted", n, "idle", len(p.idle))
	}
	return n
}

// Len returns the number of idle objects.
func (p *Pool[T, A]) Len() int { return len(p.idle) }

// Stats returns pool statistics.
func (p *Pool[T, A]) Stats() Stats {
	return Stats{
		Idle:        len(p.idle),
		Leases:      p.leases.Load(),
		Reused:      p.reused.Load(),
		Constructed: p.constructed.Load(),
		Evicted:     p.evicted.Load(),
		Sweeps:      p.sweeps.Load(),
	}
}

// Destroy drops every idle object and unregisters the pool.
// The pool may still be used afterwards but is no longer swept.
func (p *Pool[T, A]) Destroy() {
	p.dropHead(len(p.idle), true)
	if p.opts.registry != nil {
		p.opts.registry.Unregister(p)
	}
}

// dropHead removes the first n idle entries, keeping both slices in step.
// When evict is true the removed objects are reported as evicted.
func (p *Pool[T, A]) dropHead(n int, evict bool) {
	if n <= 0 {
		return
	}
	if evict {
		for _, obj := range p.idle[:n] {
			if p.onEvict != nil {
				p.onEvict(obj)
			}
		}
		p.evicted.Add(uint64(n))
	}

	var zero T
	rest := copy(p.idle, p.idle[n:])
	for i := rest; i < len(p.idle); i++ {
		p.idle[i] = zero
	}
	p.idle = p.idle[:rest]

	copy(p.stamps, p.stamps[n:])
	p.stamps = p.stamps[:rest]
}
