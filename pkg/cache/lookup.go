package cache

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"go.uber.org/zap"
)

type (
	// Fetcher resolves a qualified identifier. It returns false with a nil error when the
	// object does not exist.
	Fetcher[V any] func(ctx context.Context, id identifier.Identifier) (V, bool, error)

	// Lookup memoizes a Fetcher per qualified identifier, including negative results.
	Lookup[V any] struct {
		fetch    Fetcher[V]
		comparer identifier.Comparer
		schema   string
		log      *zap.Logger

		keys     *LazyMap[identifier.Identifier, identifier.Key]
		memo     Map[identifier.Key, *entry[V]]
		mu       *Mutex
		inflight map[identifier.Key]*Future[V]
	}

	// LookupOption configures a Lookup.
	LookupOption func(*lookupOptions)

	lookupOptions struct {
		comparer      identifier.Comparer
		defaultSchema string
		name          string
		log           *zap.Logger
	}

	entry[V any] struct {
		value   V
		present bool
	}
)

// WithComparer sets the comparer used to build keys. Defaults to identifier.Ordinal.
func WithComparer(c identifier.Comparer) LookupOption {
	return func(o *lookupOptions) { o.comparer = c }
}

// WithDefaultSchema sets the schema used to qualify identifiers that have none.
func WithDefaultSchema(schema string) LookupOption {
	return func(o *lookupOptions) { o.defaultSchema = schema }
}

// WithName names the lookup in log entries, e.g. "tables".
func WithName(name string) LookupOption {
	return func(o *lookupOptions) { o.name = name }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) LookupOption {
	return func(o *lookupOptions) { o.log = log }
}

// NewLookup returns an empty Lookup over fetch.
func NewLookup[V any](fetch Fetcher[V], opts ...LookupOption) *Lookup[V] {
	o := lookupOptions{
		comparer: identifier.Ordinal,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Lookup[V]{
		fetch:    fetch,
		comparer: o.comparer,
		schema:   o.defaultSchema,
		log:      o.log.With(zap.String("lookup", o.name)),
		mu:       NewMutex(),
		inflight: make(map[identifier.Key]*Future[V]),
	}

	l.keys = NewLazyMap(func(id identifier.Identifier) identifier.Key {
		return l.comparer.Key(l.Qualify(id))
	})

	return l
}

// Comparer returns the comparer used to build keys.
func (l *Lookup[V]) Comparer() identifier.Comparer { return l.comparer }

// DefaultSchema returns the schema used for qualification.
func (l *Lookup[V]) DefaultSchema() string { return l.schema }

// Qualify fills in the default schema of id when it has none.
func (l *Lookup[V]) Qualify(id identifier.Identifier) identifier.Identifier {
	return identifier.Qualify(id, l.schema)
}

// Key returns the cache key for id after qualification.
func (l *Lookup[V]) Key(id identifier.Identifier) identifier.Key {
	return l.keys.Get(id)
}

// Get resolves id, fetching it if no result is memoized yet. The boolean reports whether
// the object exists. Errors from the fetcher are returned but not memoized.
func (l *Lookup[V]) Get(ctx context.Context, id identifier.Identifier) (V, bool, error) {
	f, err := l.start(ctx, id, func() (*Handle, error) {
		return l.mu.Acquire(), nil
	})
	if err != nil {
		var zero V
		return zero, false, err
	}

	return f.Wait(ctx)
}

// GetAsync starts resolving id and returns without waiting for the fetch. Invalid
// identifiers are rejected immediately.
func (l *Lookup[V]) GetAsync(ctx context.Context, id identifier.Identifier) (*Future[V], error) {
	return l.start(ctx, id, func() (*Handle, error) {
		return l.mu.AcquireContext(ctx)
	})
}

// TryGet reports the memoized result for id without fetching.
func (l *Lookup[V]) TryGet(id identifier.Identifier) (V, State) {
	var zero V
	if id.IsZero() {
		return zero, Unresolved
	}

	e, ok := l.memo.Get(l.Key(id))
	switch {
	case !ok:
		return zero, Unresolved
	case e.present:
		return e.value, Present
	default:
		return zero, Absent
	}
}

// GetOrAdd records value as the present object for id unless id is already resolved, and
// returns the memoized object. When id is memoized as absent the entry is left alone and
// value is returned as is.
func (l *Lookup[V]) GetOrAdd(id identifier.Identifier, value V) (V, error) {
	stored, present, err := l.Resolve(id, value, true)
	if err != nil || !present {
		return value, err
	}

	return stored, nil
}

// Resolve records a result for id obtained outside of the fetcher, unless id is already
// resolved. It returns the memoized result, so the first resolution of a key always wins.
func (l *Lookup[V]) Resolve(id identifier.Identifier, value V, present bool) (V, bool, error) {
	if err := id.Validate(); err != nil {
		var zero V
		return zero, false, err
	}

	if !present {
		var zero V
		value = zero
	}

	e, _ := l.memo.GetOrAdd(l.Key(id), &entry[V]{value: value, present: present})
	return e.value, e.present, nil
}

// Len returns the number of resolved keys.
func (l *Lookup[V]) Len() int {
	return l.memo.Len()
}

func (l *Lookup[V]) start(ctx context.Context, id identifier.Identifier, acquire func() (*Handle, error)) (*Future[V], error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	k := l.Key(id)
	if e, ok := l.memo.Get(k); ok {
		return Resolved(e.value, e.present), nil
	}

	h, err := acquire()
	if err != nil {
		return nil, err
	}
	defer h.Release()

	// A fetch may have completed between the first check and acquiring the lock.
	if e, ok := l.memo.Get(k); ok {
		return Resolved(e.value, e.present), nil
	}

	if f, ok := l.inflight[k]; ok {
		return f, nil
	}

	f := newFuture[V]()
	l.inflight[k] = f

	go l.run(context.WithoutCancel(ctx), l.Qualify(id), k, f)
	return f, nil
}

func (l *Lookup[V]) run(ctx context.Context, id identifier.Identifier, k identifier.Key, f *Future[V]) {
	l.log.Debug("fetching", zap.Stringer("name", id))
	value, present, err := l.invoke(ctx, id)

	h := l.mu.Acquire()
	delete(l.inflight, k)

	if err != nil {
		h.Release()
		l.log.Debug("fetch failed", zap.Stringer("name", id), zap.Error(err))

		var zero V
		f.complete(zero, false, err)
		return
	}

	if !present {
		var zero V
		value = zero
	}

	// GetOrAdd may have stored an enumerated object while this fetch was running.
	e, _ := l.memo.GetOrAdd(k, &entry[V]{value: value, present: present})
	h.Release()

	f.complete(e.value, e.present, nil)
}

func (l *Lookup[V]) invoke(ctx context.Context, id identifier.Identifier) (value V, present bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("fetch of %s panicked: %v", id, r)
		}
	}()

	return l.fetch(ctx, id)
}
