// Package cmap provides a concurrent-safe sharded map.
//
// Keys are spread over a power-of-two number of shards, each guarded by
// its own RWMutex, so lookups for unrelated keys do not contend. It backs
// the per-client tables on the UDP and HTTP request paths.
//
// Usage:
//
//	m := cmap.New[netip.Addr, *rate.Limiter]()
//	l, _ := m.GetOrCompute(ip, newLimiter)
//
// Count and Range visit shards one at a time, so they see a consistent
// view of each shard but not of the whole map.
package cmap
