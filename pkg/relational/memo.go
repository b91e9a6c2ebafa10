package relational

import (
	"context"

	"github.com/pseudomuto/schemalens/pkg/cache"
	"github.com/pseudomuto/schemalens/pkg/identifier"
)

// memo holds the existence and object lookups of one kind. They are memoized separately
// so Exists never has to fetch a whole object, but the existence lookup decides: the
// first answer recorded for a name is kept for the life of the memo, whichever operation
// produced it.
type memo[T Object] struct {
	exists  *cache.Lookup[bool]
	objects *cache.Lookup[T]
}

func newMemo[T Object](kind Kind, exists cache.Fetcher[bool], get cache.Fetcher[T], opts []cache.LookupOption) memo[T] {
	return memo[T]{
		exists:  cache.NewLookup(exists, append(opts, cache.WithName(kind.String()+" exists"))...),
		objects: cache.NewLookup(get, append(opts, cache.WithName(kind.String()))...),
	}
}

func (m *memo[T]) Exists(ctx context.Context, name identifier.Identifier) (bool, error) {
	if err := name.Validate(); err != nil {
		return false, err
	}

	if ok, resolved := m.known(name); resolved {
		return m.settle(name, ok)
	}

	ok, _, err := m.exists.Get(ctx, name)
	return ok, err
}

func (m *memo[T]) ExistsAsync(ctx context.Context, name identifier.Identifier) (*cache.Future[bool], error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	if ok, resolved := m.known(name); resolved {
		ok, err := m.settle(name, ok)
		if err != nil {
			return nil, err
		}
		return cache.Resolved(ok, ok), nil
	}

	return m.exists.GetAsync(ctx, name)
}

func (m *memo[T]) Get(ctx context.Context, name identifier.Identifier) (T, bool, error) {
	f, err := m.GetAsync(ctx, name)
	if err != nil {
		var zero T
		return zero, false, err
	}

	return f.Wait(ctx)
}

// GetAsync resolves name to its object. A name already known to be absent is answered
// without a fetch.
func (m *memo[T]) GetAsync(ctx context.Context, name identifier.Identifier) (*cache.Future[T], error) {
	if err := name.Validate(); err != nil {
		return nil, err
	}

	var zero T
	if _, state := m.exists.TryGet(name); state == cache.Absent {
		return cache.Resolved(zero, false), nil
	}

	f, err := m.objects.GetAsync(ctx, name)
	if err != nil {
		return nil, err
	}

	return cache.Then(f, func(obj T, ok bool, err error) (T, bool, error) {
		if err != nil {
			return zero, false, err
		}

		exists, err := m.settle(name, ok)
		if err != nil || !ok || !exists {
			return zero, false, err
		}

		return obj, true, nil
	}), nil
}

// share routes an enumerated object through the object lookup so later calls return the
// same instance. A name memoized as absent stays absent and obj is returned as is.
func (m *memo[T]) share(obj T) (T, error) {
	name := obj.ObjectName()
	if err := name.Validate(); err != nil {
		return obj, err
	}

	if _, state := m.exists.TryGet(name); state == cache.Absent {
		return obj, nil
	}

	shared, present, err := m.objects.Resolve(name, obj, true)
	if err != nil || !present {
		return obj, err
	}

	if _, err := m.settle(name, true); err != nil {
		return obj, err
	}

	return shared, nil
}

// known reports the existence answer implied by either lookup without fetching.
func (m *memo[T]) known(name identifier.Identifier) (ok bool, resolved bool) {
	if ok, state := m.exists.TryGet(name); state != cache.Unresolved {
		return ok, true
	}

	_, state := m.objects.TryGet(name)
	return state == cache.Present, state != cache.Unresolved
}

// settle records whether name exists unless an answer is already memoized, and returns
// the memoized answer.
func (m *memo[T]) settle(name identifier.Identifier, ok bool) (bool, error) {
	exists, _, err := m.exists.Resolve(name, ok, ok)
	return exists, err
}
