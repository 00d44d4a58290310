package resource

import (
	_ "embed"

	"github.com/gogpu/g3d/material"
	"github.com/gogpu/g3d/pool"
)

//go:embed shaders/standard.wgsl
var standardSource string

// StandardSource returns the built-in source registered for both stages
// under material.DefaultSource.
func StandardSource() string { return standardSource }

// Option configures a Manager during creation.
type Option func(*options)

type options struct {
	ids      *pool.IDSource
	vertex   map[string]string
	fragment map[string]string
	poolOpts []pool.Option
}

func defaultOptions() options {
	return options{
		vertex:   map[string]string{material.DefaultSource: standardSource},
		fragment: map[string]string{material.DefaultSource: standardSource},
	}
}

// WithSources registers base sources by identifier. Entries replace
// earlier registrations with the same identifier, the built-in standard
// source included. Either map may be nil.
func WithSources(vertex, fragment map[string]string) Option {
	return func(o *options) {
		for name, src := range vertex {
			o.vertex[name] = src
		}
		for name, src := range fragment {
			o.fragment[name] = src
		}
	}
}

// WithIDSource sets the identifier source of cached shaders and programs.
// By default the manager owns a fresh source.
func WithIDSource(ids *pool.IDSource) Option {
	return func(o *options) {
		if ids != nil {
			o.ids = ids
		}
	}
}

// WithPoolOptions configures the shader and program pools.
func WithPoolOptions(opts ...pool.Option) Option {
	return func(o *options) {
		o.poolOpts = append(o.poolOpts, opts...)
	}
}
