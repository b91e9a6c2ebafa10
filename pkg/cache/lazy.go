package cache

import "sync"

// LazyMap memoizes a pure factory. The first value stored for a key is the value every
// caller receives for it from then on.
type LazyMap[K comparable, V any] struct {
	mu      sync.RWMutex
	values  map[K]V
	factory func(K) V
}

// NewLazyMap returns a LazyMap backed by factory.
func NewLazyMap[K comparable, V any](factory func(K) V) *LazyMap[K, V] {
	return &LazyMap[K, V]{
		values:  make(map[K]V),
		factory: factory,
	}
}

// Get returns the memoized value for key, invoking the factory on a miss.
//
// The factory runs without holding the lock, so keys are computed in parallel and a
// factory may itself call Get. When two callers race on the same key both may run the
// factory; the value inserted first wins and is returned to both.
func (l *LazyMap[K, V]) Get(key K) V {
	l.mu.RLock()
	v, ok := l.values[key]
	l.mu.RUnlock()
	if ok {
		return v
	}

	computed := l.factory(key)

	l.mu.Lock()
	defer l.mu.Unlock()

	if winner, ok := l.values[key]; ok {
		return winner
	}

	l.values[key] = computed
	return computed
}

// Len returns the number of memoized keys.
func (l *LazyMap[K, V]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.values)
}
