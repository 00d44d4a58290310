package pool

import "time"

// Default pool configuration.
const (
	// DefaultMaxLifetime is how long an object may stay idle before it
	// becomes eligible for eviction.
	DefaultMaxLifetime = 10 * time.Second

	// DefaultUpdateInterval is the minimum spacing between two eviction passes.
	DefaultUpdateInterval = 1 * time.Second
)

// Option configures a Pool during creation.
type Option func(*options)

// options holds optional configuration for Pool creation.
type options struct {
	maxLifetime    time.Duration
	updateInterval time.Duration
	highWater      int
	noClean        bool
	clock          func() time.Time
	registry       *Registry
}

// defaultOptions returns the default pool options.
func defaultOptions() options {
	return options{
		maxLifetime:    DefaultMaxLifetime,
		updateInterval: DefaultUpdateInterval,
		clock:          time.Now,
		registry:       DefaultRegistry,
	}
}

// WithMaxLifetime sets the idle duration after which an object is evicted.
// Non-positive values are ignored.
func WithMaxLifetime(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxLifetime = d
		}
	}
}

// WithUpdateInterval sets the minimum spacing between eviction passes.
// Zero makes every Sweep call a real pass.
func WithUpdateInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.updateInterval = d
		}
	}
}

// WithHighWater caps the idle list. When a release pushes the idle list
// past n objects, the oldest idle objects are evicted regardless of age.
// Zero (the default) means unbounded.
func WithHighWater(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.highWater = n
		}
	}
}

// WithNoClean skips the Clean call on release. Use it for pooled types
// that have no externally observable mutable state worth clearing.
func WithNoClean() Option {
	return func(o *options) {
		o.noClean = true
	}
}

// WithClock sets the time source used to stamp released objects.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRegistry registers the pool with r instead of DefaultRegistry.
// A nil registry leaves the pool unregistered.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}
