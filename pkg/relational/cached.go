package relational

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/cache"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"go.uber.org/zap"
)

// ErrNilSource is returned by NewCached when no source is given.
var ErrNilSource = errors.New("source must not be nil")

type (
	// Cached memoizes a single Source. Every name is qualified with the source's default
	// schema before it is used as a key or forwarded to the source.
	//
	// Lookups are never evicted: once a name resolves as present or absent, that answer is
	// kept for the lifetime of the Cached value even if the source changes. Failed lookups
	// are not remembered and are retried on the next call.
	Cached struct {
		parentRef

		src      Source
		identity Identity
		log      *zap.Logger

		tables    *cachedCollection[*Table]
		views     *cachedCollection[*View]
		sequences *cachedCollection[*Sequence]
		synonyms  *cachedCollection[*Synonym]
		triggers  *cachedCollection[*Trigger]
	}

	// cachedCollection memoizes one kind of a Source.
	cachedCollection[T Object] struct {
		memo[T]

		kind Kind
		src  Objects[T]
	}
)

// NewCached wraps src in a memoizing Database.
//
// Example:
//
//	db, err := relational.NewCached(pgSource, relational.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	ok, err := db.Tables().Exists(ctx, identifier.Local("users"))
func NewCached(src Source, opts ...Option) (*Cached, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	o := newOptions(opts)
	identity := src.Identity()
	if o.comparer != nil {
		identity.Comparer = o.comparer
	}
	identity.Comparer = identity.comparer()

	log := o.log.With(zap.String("database", identity.Name), zap.String("dialect", identity.Dialect))

	return &Cached{
		src:       src,
		identity:  identity,
		log:       log,
		tables:    newCachedCollection(KindTable, src.Tables(), identity, log),
		views:     newCachedCollection(KindView, src.Views(), identity, log),
		sequences: newCachedCollection(KindSequence, src.Sequences(), identity, log),
		synonyms:  newCachedCollection(KindSynonym, src.Synonyms(), identity, log),
		triggers:  newCachedCollection(KindTrigger, src.Triggers(), identity, log),
	}, nil
}

func (c *Cached) Identity() Identity               { return c.identity }
func (c *Cached) Tables() Collection[*Table]       { return c.tables }
func (c *Cached) Views() Collection[*View]         { return c.views }
func (c *Cached) Sequences() Collection[*Sequence] { return c.sequences }
func (c *Cached) Synonyms() Collection[*Synonym]   { return c.synonyms }
func (c *Cached) Triggers() Collection[*Trigger]   { return c.triggers }
func (c *Cached) Source() Source                   { return c.src }

// Root returns the outermost overlay this cache is a layer of, or the cache itself.
func (c *Cached) Root() Database {
	return c.root(c)
}

// ResolveSynonym follows synonym chains starting at name. Targets are resolved against
// Root, so a synonym in one layer may point at an object defined in another.
func (c *Cached) ResolveSynonym(ctx context.Context, name identifier.Identifier) (identifier.Identifier, error) {
	return ResolveSynonym(ctx, c.Root(), name)
}

func newCachedCollection[T Object](kind Kind, src Objects[T], identity Identity, log *zap.Logger) *cachedCollection[T] {
	opts := []cache.LookupOption{
		cache.WithComparer(identity.Comparer),
		cache.WithDefaultSchema(identity.DefaultSchema),
		cache.WithLogger(log.With(zap.Stringer("kind", kind))),
	}

	exists := func(ctx context.Context, id identifier.Identifier) (bool, bool, error) {
		ok, err := src.ExistsExact(ctx, id)
		return ok, ok, err
	}

	return &cachedCollection[T]{
		memo: newMemo(kind, exists, src.GetExact, opts),
		kind: kind,
		src:  src,
	}
}

// All enumerates the source again on every call. Each object is routed through the
// object memo, so repeated enumerations and later Gets share instances. Enumeration never
// overrides a name already memoized as absent.
func (c *cachedCollection[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for obj, err := range c.src.All(ctx) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}

			shared, err := c.share(obj)
			if err != nil {
				var zero T
				yield(zero, errors.Wrapf(err, "source enumerated an invalid %s name", c.kind))
				return
			}

			if !yield(shared, nil) {
				return
			}
		}
	}
}
