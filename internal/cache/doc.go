// Package cache provides a small generic LRU cache with a soft limit.
//
//	c := cache.New[key, string](256)
//	defines := c.GetOrCreate(k, func() string { return assemble(k) })
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
