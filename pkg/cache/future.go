package cache

import "context"

// State describes how far a key has been resolved.
type State int

const (
	// Unresolved means no fetch for the key has succeeded yet.
	Unresolved State = iota

	// Present means the key was fetched and the object exists.
	Present

	// Absent means the key was fetched and the object does not exist.
	Absent
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Present:
		return "present"
	case Absent:
		return "absent"
	default:
		return "unresolved"
	}
}

// Future is the pending result of a Lookup fetch.
type Future[V any] struct {
	done    chan struct{}
	value   V
	present bool
	err     error
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Resolved returns a Future that has already completed with value.
func Resolved[V any](value V, present bool) *Future[V] {
	f := newFuture[V]()
	f.complete(value, present, nil)
	return f
}

// Then returns a Future completed with fn applied to the result of f. fn runs once, on
// the goroutine that observes f completing.
func Then[V, W any](f *Future[V], fn func(V, bool, error) (W, bool, error)) *Future[W] {
	out := newFuture[W]()

	select {
	case <-f.done:
		out.complete(fn(f.value, f.present, f.err))
	default:
		go func() {
			<-f.done
			out.complete(fn(f.value, f.present, f.err))
		}()
	}

	return out
}

func (f *Future[V]) complete(value V, present bool, err error) {
	f.value, f.present, f.err = value, present, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Abandoning the wait does not
// stop the fetch.
func (f *Future[V]) Wait(ctx context.Context) (V, bool, error) {
	// A completed result wins over a done context.
	select {
	case <-f.done:
		return f.value, f.present, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.present, f.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

// Result blocks until the result is available.
func (f *Future[V]) Result() (V, bool, error) {
	<-f.done
	return f.value, f.present, f.err
}
