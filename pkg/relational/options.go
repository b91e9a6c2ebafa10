package relational

import (
	"sync/atomic"

	"github.com/pseudomuto/schemalens/pkg/identifier"
	"go.uber.org/zap"
)

type (
	// Option configures a Cached or Overlay database.
	Option func(*options)

	options struct {
		log         *zap.Logger
		comparer    identifier.Comparer
		concurrency int
	}

	// parentRef is a non-owning back-reference from a dependent database to the overlay
	// that composes it. The overlay owns its layers, never the other way around.
	parentRef struct {
		p atomic.Pointer[Database]
	}
)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithComparer overrides the comparer reported by the source or base layer.
func WithComparer(c identifier.Comparer) Option {
	return func(o *options) { o.comparer = c }
}

// WithConcurrency bounds how many layers an Overlay queries at once during Get. Zero or
// less means no bound.
func WithConcurrency(n int) Option {
	return func(o *options) { o.concurrency = n }
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Parent returns the overlay this database has been attached to, or nil.
func (r *parentRef) Parent() Database {
	if p := r.p.Load(); p != nil {
		return *p
	}

	return nil
}

// SetParent attaches the database to an overlay. Overlays call this for each layer; a
// database attached to several overlays dispatches to the most recent one.
func (r *parentRef) SetParent(db Database) {
	r.p.Store(&db)
}

// root walks parent references up to the outermost overlay, or returns self when the
// database is not attached.
func (r *parentRef) root(self Database) Database {
	p := r.Parent()
	if p == nil {
		return self
	}

	if rooted, ok := p.(interface{ Root() Database }); ok {
		return rooted.Root()
	}

	return p
}
