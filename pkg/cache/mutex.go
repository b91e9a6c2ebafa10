package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type (
	// Mutex allows a single holder at a time, shared between blocking and context-aware
	// callers. Use NewMutex to create one.
	Mutex struct {
		sem *semaphore.Weighted
	}

	// Handle represents a held Mutex. Release is idempotent, so it is safe to both defer
	// it and call it early.
	Handle struct {
		once sync.Once
		sem  *semaphore.Weighted
	}
)

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is held.
func (m *Mutex) Acquire() *Handle {
	// Acquire only fails when the context is done, which Background never is.
	_ = m.sem.Acquire(context.Background(), 1)
	return &Handle{sem: m.sem}
}

// AcquireContext waits for the lock until ctx is done, in which case ctx's error is
// returned and the lock is not held.
func (m *Mutex) AcquireContext(ctx context.Context) (*Handle, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	return &Handle{sem: m.sem}, nil
}

// TryAcquire takes the lock only if it is free.
func (m *Mutex) TryAcquire() (*Handle, bool) {
	if !m.sem.TryAcquire(1) {
		return nil, false
	}

	return &Handle{sem: m.sem}, true
}

// With runs fn while holding the lock. The lock is released when fn returns, errors or
// panics.
//
// Example:
//
//	err := mu.With(ctx, func() error {
//		return registry.add(name)
//	})
func (m *Mutex) With(ctx context.Context, fn func() error) error {
	h, err := m.AcquireContext(ctx)
	if err != nil {
		return err
	}
	defer h.Release()

	return fn()
}

// Release unlocks the Mutex. Calls after the first are no-ops.
func (h *Handle) Release() {
	h.once.Do(func() { h.sem.Release(1) })
}
