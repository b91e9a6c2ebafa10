package source

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

type (
	// Store holds the objects of one kind and implements relational.Objects.
	Store[T relational.Object] struct {
		comparer identifier.Comparer
		schema   string

		mu        sync.RWMutex
		objects   map[identifier.Key]T
		order     []identifier.Key
		err       error
		enumErr   error
		enumAfter int
		hold      chan struct{}

		exists atomic.Int64
		get    atomic.Int64
		all    atomic.Int64
	}

	// Calls counts the calls a Store has received.
	Calls struct {
		Exists int
		Get    int
		All    int
	}
)

// NewStore returns an empty store. Names without a schema are qualified with
// defaultSchema when objects are added.
func NewStore[T relational.Object](cmp identifier.Comparer, defaultSchema string) *Store[T] {
	if cmp == nil {
		cmp = identifier.Ordinal
	}

	return &Store[T]{
		comparer: cmp,
		schema:   defaultSchema,
		objects:  make(map[identifier.Key]T),
	}
}

// Put adds or replaces objects. A replaced object keeps its enumeration position.
func (s *Store[T]) Put(objs ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range objs {
		k := s.key(obj.ObjectName())
		if _, ok := s.objects[k]; !ok {
			s.order = append(s.order, k)
		}
		s.objects[k] = obj
	}
}

// Remove deletes the named object and reports whether it was present.
func (s *Store[T]) Remove(name identifier.Identifier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(name)
	if _, ok := s.objects[k]; !ok {
		return false
	}

	delete(s.objects, k)
	for i, o := range s.order {
		if o == k {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return true
}

// Len returns the number of stored objects.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

// Fail makes every subsequent call return err. A nil err clears the failure.
func (s *Store[T]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

// FailEnumerationAfter makes All yield err after n objects. A nil err clears it.
func (s *Store[T]) FailEnumerationAfter(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enumErr, s.enumAfter = err, n
}

// Hold blocks ExistsExact and GetExact until the returned function is called.
func (s *Store[T]) Hold() (release func()) {
	ch := make(chan struct{})

	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.hold == ch {
				s.hold = nil
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns the number of calls received so far.
func (s *Store[T]) Calls() Calls {
	return Calls{
		Exists: int(s.exists.Load()),
		Get:    int(s.get.Load()),
		All:    int(s.all.Load()),
	}
}

func (s *Store[T]) ExistsExact(ctx context.Context, id identifier.Identifier) (bool, error) {
	s.exists.Add(1)
	if err := s.wait(ctx); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return false, s.err
	}

	_, ok := s.objects[s.key(id)]
	return ok, nil
}

func (s *Store[T]) GetExact(ctx context.Context, id identifier.Identifier) (T, bool, error) {
	s.get.Add(1)

	var zero T
	if err := s.wait(ctx); err != nil {
		return zero, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.err != nil {
		return zero, false, s.err
	}

	obj, ok := s.objects[s.key(id)]
	return obj, ok, nil
}

// All yields a snapshot of the store taken when iteration starts.
func (s *Store[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		s.all.Add(1)

		s.mu.RLock()
		err, enumErr, enumAfter := s.err, s.enumErr, s.enumAfter
		snapshot := make([]T, 0, len(s.order))
		for _, k := range s.order {
			snapshot = append(snapshot, s.objects[k])
		}
		s.mu.RUnlock()

		var zero T
		if err != nil {
			yield(zero, err)
			return
		}

		for i, obj := range snapshot {
			if enumErr != nil && i == enumAfter {
				yield(zero, enumErr)
				return
			}

			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			if !yield(obj, nil) {
				return
			}
		}

		if enumErr != nil && enumAfter >= len(snapshot) {
			yield(zero, enumErr)
		}
	}
}

func (s *Store[T]) key(id identifier.Identifier) identifier.Key {
	return s.comparer.Key(identifier.Qualify(id, s.schema))
}

func (s *Store[T]) wait(ctx context.Context) error {
	s.mu.RLock()
	hold := s.hold
	s.mu.RUnlock()

	if hold == nil {
		return nil
	}

	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
