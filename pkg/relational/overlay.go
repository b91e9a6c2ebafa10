package relational

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/cache"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoLayers is returned by NewOverlay when no layers are given.
var ErrNoLayers = errors.New("overlay requires at least one layer")

type (
	// Overlay composes an ordered stack of databases into one. Index 0 has the highest
	// priority; the last layer is the base and supplies the overlay's Identity.
	//
	//   - Exists is true when any layer has the object.
	//   - Get asks every layer concurrently and returns the highest-priority result.
	//   - All concatenates layers in priority order and keeps the first object per name.
	//
	// Exists and Get results are memoized per overlay with the same rules as Cached, so a
	// repeated call never asks the layers again. Enumeration is never memoized.
	Overlay struct {
		parentRef

		layers   []Database
		identity Identity
		log      *zap.Logger

		tables    *overlayCollection[*Table]
		views     *overlayCollection[*View]
		sequences *overlayCollection[*Sequence]
		synonyms  *overlayCollection[*Synonym]
		triggers  *overlayCollection[*Trigger]
	}

	overlayCollection[T Object] struct {
		memo[T]

		kind        Kind
		layers      []Collection[T]
		concurrency int
		log         *zap.Logger
	}

	layerResult[T any] struct {
		value   T
		present bool
		err     error
	}
)

// NewOverlay composes layers, highest priority first. Layers that support it are given a
// back-reference to the overlay, which they use only to dispatch lookups such as synonym
// resolution.
//
// Example:
//
//	planned, _ := relational.NewCached(ddlSource)
//	live, _ := relational.NewCached(pgSource)
//
//	db, err := relational.NewOverlay([]relational.Database{planned, live})
//	if err != nil {
//		return err
//	}
//
//	users, ok, err := db.Tables().Get(ctx, identifier.Local("users"))
func NewOverlay(layers []Database, opts ...Option) (*Overlay, error) {
	if len(layers) == 0 {
		return nil, ErrNoLayers
	}

	for i, layer := range layers {
		if layer == nil {
			return nil, errors.Errorf("overlay layer %d is nil", i)
		}
	}

	o := newOptions(opts)
	identity := layers[len(layers)-1].Identity()
	if o.comparer != nil {
		identity.Comparer = o.comparer
	}
	identity.Comparer = identity.comparer()

	ov := &Overlay{
		layers:   append([]Database(nil), layers...),
		identity: identity,
		log:      o.log.With(zap.String("overlay", identity.Name), zap.Int("layers", len(layers))),
	}

	ov.tables = newOverlayCollection(ov, KindTable, o, func(db Database) Collection[*Table] { return db.Tables() })
	ov.views = newOverlayCollection(ov, KindView, o, func(db Database) Collection[*View] { return db.Views() })
	ov.sequences = newOverlayCollection(ov, KindSequence, o, func(db Database) Collection[*Sequence] { return db.Sequences() })
	ov.synonyms = newOverlayCollection(ov, KindSynonym, o, func(db Database) Collection[*Synonym] { return db.Synonyms() })
	ov.triggers = newOverlayCollection(ov, KindTrigger, o, func(db Database) Collection[*Trigger] { return db.Triggers() })

	for _, layer := range ov.layers {
		if dep, ok := layer.(interface{ SetParent(Database) }); ok {
			dep.SetParent(ov)
		}
	}

	return ov, nil
}

func (o *Overlay) Identity() Identity               { return o.identity }
func (o *Overlay) Tables() Collection[*Table]       { return o.tables }
func (o *Overlay) Views() Collection[*View]         { return o.views }
func (o *Overlay) Sequences() Collection[*Sequence] { return o.sequences }
func (o *Overlay) Synonyms() Collection[*Synonym]   { return o.synonyms }
func (o *Overlay) Triggers() Collection[*Trigger]   { return o.triggers }

// Layers returns a copy of the layer stack, highest priority first.
func (o *Overlay) Layers() []Database {
	return append([]Database(nil), o.layers...)
}

// Root returns the outermost overlay this overlay is nested in, or the overlay itself.
func (o *Overlay) Root() Database {
	return o.root(o)
}

func newOverlayCollection[T Object](ov *Overlay, kind Kind, o options, pick func(Database) Collection[T]) *overlayCollection[T] {
	layers := make([]Collection[T], len(ov.layers))
	for i, db := range ov.layers {
		layers[i] = pick(db)
	}

	c := &overlayCollection[T]{
		kind:        kind,
		layers:      layers,
		concurrency: o.concurrency,
		log:         ov.log.With(zap.Stringer("kind", kind)),
	}

	opts := []cache.LookupOption{
		cache.WithComparer(ov.identity.Comparer),
		cache.WithDefaultSchema(ov.identity.DefaultSchema),
		cache.WithLogger(c.log),
	}

	c.memo = newMemo(kind, c.fetchExists, c.fetchObject, opts)
	return c
}

// All yields each layer's objects in priority order, skipping names already yielded by a
// higher-priority layer. Every call re-enumerates every layer.
func (c *overlayCollection[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		seen := make(map[identifier.Key]struct{})

		for _, layer := range c.layers {
			for obj, err := range layer.All(ctx) {
				if err != nil {
					var zero T
					yield(zero, err)
					return
				}

				k := c.objects.Key(obj.ObjectName())
				if _, dup := seen[k]; dup {
					continue
				}
				seen[k] = struct{}{}

				shared, err := c.share(obj)
				if err != nil {
					var zero T
					yield(zero, err)
					return
				}

				if !yield(shared, nil) {
					return
				}
			}
		}
	}
}

// fetchExists is true when any layer reports the object. A layer error only surfaces when
// no layer reports the object.
func (c *overlayCollection[T]) fetchExists(ctx context.Context, name identifier.Identifier) (bool, bool, error) {
	var firstErr error

	for i, layer := range c.layers {
		ok, err := layer.Exists(ctx, name)
		if err != nil {
			c.log.Debug("layer exists failed", zap.Int("layer", i), zap.Stringer("name", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if ok {
			return true, true, nil
		}
	}

	if firstErr != nil {
		return false, false, firstErr
	}

	return false, false, nil
}

// fetchObject asks every layer, waits for all of them, and returns the first present
// object in priority order. An error surfaces only when it comes from a layer ranked above
// the first present result; errors from lower layers are logged and dropped.
func (c *overlayCollection[T]) fetchObject(ctx context.Context, name identifier.Identifier) (T, bool, error) {
	results := make([]layerResult[T], len(c.layers))

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for i, layer := range c.layers {
		g.Go(func() error {
			v, ok, err := layer.Get(ctx, name)
			results[i] = layerResult[T]{value: v, present: ok, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var zero T
	for i, r := range results {
		if r.err != nil {
			return zero, false, r.err
		}

		if !r.present {
			continue
		}

		for j, rest := range results[i+1:] {
			if rest.err != nil {
				c.log.Warn("ignoring lower-priority layer error",
					zap.Int("layer", i+1+j),
					zap.Stringer("name", name),
					zap.Error(rest.err),
				)
			}
		}

		return r.value, true, nil
	}

	return zero, false, nil
}
