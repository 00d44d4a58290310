// Package g3d is the render-resource cache and uniform binding layer of a
// 3D engine.
//
// # Overview
//
// g3d sits between an engine's scene state and an abstract GPU device. It
// deduplicates and reference-counts compiled shader programs derived from
// material permutations, and it binds frequently mutating engine state
// (camera, lights, transforms, bone matrices) to program inputs through a
// dirty-flag propagation graph so that each value is recomputed and uploaded
// only when it changed.
//
// # Architecture
//
// The module is organized into:
//   - pool: generic object pool with FIFO reuse and lazy time-based eviction
//   - event: re-entrancy safe signal tables used for change notification
//   - scene: collaborator interfaces (camera, lights, transforms, skeletons)
//   - material: materials, feature flags and the define assembler
//   - binding: program variables, global/renderer variables and the factory catalog
//   - device: the abstract device, a WGSL preprocessor and a HAL-backed device
//   - resource: the shader/program/material cache
//   - renderer: the per-frame driver tying everything together
//   - config: engine configuration files (TOML or YAML)
//
// # Logging
//
// g3d is silent by default. Call [SetLogger] to route diagnostics to a
// [log/slog] logger.
//
// # Concurrency
//
// All cache and binding mutation is synchronous and expected to happen on
// the goroutine that drives the render loop.
package g3d

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"
)
