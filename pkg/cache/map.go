package cache

import (
	"iter"
	"sync"
)

// Map is a typed concurrent map. Values must be comparable so TryUpdate can compare
// against the expected old value; store pointers for anything larger than a scalar.
//
// The zero value is an empty map ready for use.
type Map[K comparable, V comparable] struct {
	m sync.Map
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}

	return v.(V), true
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.m.Load(key)
	return ok
}

// TryAdd stores value under key unless key is already present. It reports whether the
// value was stored.
func (m *Map[K, V]) TryAdd(key K, value V) bool {
	_, loaded := m.m.LoadOrStore(key, value)
	return !loaded
}

// GetOrAdd returns the existing value for key, or stores and returns value. The boolean
// reports whether value was stored.
func (m *Map[K, V]) GetOrAdd(key K, value V) (V, bool) {
	actual, loaded := m.m.LoadOrStore(key, value)
	return actual.(V), !loaded
}

// TryRemove deletes key and returns the value it held.
func (m *Map[K, V]) TryRemove(key K) (V, bool) {
	v, ok := m.m.LoadAndDelete(key)
	if !ok {
		var zero V
		return zero, false
	}

	return v.(V), true
}

// TryUpdate replaces the value of key with newValue only if it currently equals expected.
func (m *Map[K, V]) TryUpdate(key K, newValue, expected V) bool {
	return m.m.CompareAndSwap(key, expected, newValue)
}

// Clear removes every entry.
func (m *Map[K, V]) Clear() {
	m.m.Clear()
}

// Len counts the entries. Concurrent writers may make the result stale immediately.
func (m *Map[K, V]) Len() int {
	n := 0
	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// All iterates over the entries. Mutating the map during iteration is allowed; such
// changes may or may not be observed by the iteration.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		m.m.Range(func(k, v any) bool {
			return yield(k.(K), v.(V))
		})
	}
}
