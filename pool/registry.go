package pool

import (
	"sync"
	"time"

	"github.com/gogpu/g3d"
)

// Sweeper is implemented by every Pool instantiation.
type Sweeper interface {
	Name() string
	Sweep(now time.Time) int
}

// Registry tracks pools so they can all be swept by one periodic call.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	pools []Sweeper
}

// DefaultRegistry is the process-wide registry pools join by default.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds s to the registry. Registering twice is a no-op.
func (r *Registry) Register(s Sweeper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pools {
		if p == s {
			return
		}
	}
	r.pools = append(r.pools, s)
}

// Unregister removes s from the registry.
// It returns false if s was not registered.
func (r *Registry) Unregister(s Sweeper) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pools {
		if p == s {
			r.pools = append(r.pools[:i], r.pools[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered pools.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

// SweepAll sweeps every registered pool in registration order and returns
// the total number of evicted objects.
func (r *Registry) SweepAll(now time.Time) int {
	r.mu.Lock()
	pools := make([]Sweeper, len(r.pools))
	copy(pools, r.pools)
	r.mu.Unlock()

	total := 0
	for _, p := range pools {
		total += p.Sweep(now)
	}
	if total > 0 {
		g3d.Logger().Debug("pool: registry sweep", "pools", len(pools), "evicted", total)
	}
	return total
}
