// Package cache provides the memoizing primitives that back schemalens' metadata caches.
//
// None of the primitives evict or expire entries. Everything stored lives as long as the
// value that owns it, which for metadata caches is the database view that created them.
//
// # Primitives
//
//   - Mutex: a single-holder lock usable from blocking callers (Acquire), context-aware
//     callers (AcquireContext) and non-blocking callers (TryAcquire). With runs a function
//     under the lock and always releases it.
//   - Map: a typed concurrent map with insert-if-absent, atomic remove and compare-and-swap.
//   - LazyMap: a synchronous memoizing dictionary over a pure factory.
//   - Lookup: an identifier-keyed memo over an asynchronous fetch with negative caching.
//
// # LazyMap races
//
// LazyMap runs its factory outside of any lock. Two callers that miss on the same key at
// the same time may both run the factory, but only the first value to be inserted is kept
// and BOTH callers receive that stored value. Factories should still be pure; a non-pure
// factory wastes work but cannot make callers observe different values.
//
// # Lookup
//
// Lookup qualifies every identifier with its default schema before it becomes a key, so
// "Users" and "dbo.Users" share an entry when the default schema is "dbo". Each key moves
// through three states:
//
//	Unresolved -> Present | Absent
//
// Present and Absent are terminal. A failed fetch leaves the key Unresolved so the next
// caller retries it. Concurrent callers for the same key share a single in-flight fetch:
//
//	users := cache.NewLookup(fetchTable, cache.WithDefaultSchema("dbo"))
//
//	tbl, ok, err := users.Get(ctx, identifier.Local("Users"))      // blocking
//	fut, err := users.GetAsync(ctx, identifier.Local("Users"))     // non-blocking
//	tbl, state := users.TryGet(identifier.Local("Users"))          // never fetches
//
// Fetches are not cancellable once started. A caller whose context ends stops waiting,
// but the fetch runs to completion and its result is still memoized.
package cache
