// Package pool provides a generic object pool with FIFO reuse and lazy,
// time-based eviction of idle objects.
//
// # Pool[T, A]
//
// A Pool hands out objects of type T that are re-initialized in place from
// constructor arguments of type A. Released objects are cleaned and appended
// to an idle list together with their release time. Because objects are
// appended at the tail and leased from the head, idle timestamps are always
// non-decreasing, which lets [Pool.Sweep] stop at the first entry that is
// still young enough.
//
//	p := pool.New[*Shader, ShaderArgs]("shader", newShader,
//	    pool.WithMaxLifetime(30*time.Second))
//	s := p.Lease(ShaderArgs{Stage: stage, Source: src})
//	// use s...
//	p.Release(s)
//
// Pools grow without bound by default; [WithHighWater] caps the idle list.
//
// # Registry
//
// Every pool registers with a [Registry] ([DefaultRegistry] unless
// configured otherwise) so a single periodic call to [Registry.SweepAll]
// can evict idle objects from all pools.
//
// # Identity
//
// [IDSource] is an explicit monotonic identifier allocator. Construction
// contexts own one and stamp every object they create with [IDSource.Next].
//
// # Thread Safety
//
// Pool is not safe for concurrent use; it is driven from the render loop.
// Registry is safe for concurrent use.
package pool
