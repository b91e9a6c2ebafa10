package relational

import (
	"context"
	"iter"

	"github.com/pseudomuto/schemalens/pkg/cache"
	"github.com/pseudomuto/schemalens/pkg/identifier"
)

type (
	// Identity describes a database as a whole rather than any object inside it.
	Identity struct {
		// Dialect names the database product, e.g. "postgres" or "clickhouse".
		Dialect string

		// DefaultSchema qualifies names that do not specify a schema.
		DefaultSchema string

		// Name is a display name for the database.
		Name string

		// Comparer decides when two names refer to the same object. Nil means
		// identifier.Ordinal.
		Comparer identifier.Comparer
	}

	// Objects is the per-kind contract implemented by metadata sources. Methods receive
	// qualified identifiers and may perform I/O. Nothing is cached by the source itself.
	Objects[T Object] interface {
		// ExistsExact reports whether an object with exactly this name exists.
		ExistsExact(ctx context.Context, id identifier.Identifier) (bool, error)

		// GetExact fetches the named object. The boolean is false when it does not exist.
		GetExact(ctx context.Context, id identifier.Identifier) (T, bool, error)

		// All enumerates every object of the kind. Each call performs a fresh pass.
		All(ctx context.Context) iter.Seq2[T, error]
	}

	// Source provides uncached metadata for every object kind.
	Source interface {
		Identity() Identity
		Tables() Objects[*Table]
		Views() Objects[*View]
		Sequences() Objects[*Sequence]
		Synonyms() Objects[*Synonym]
		Triggers() Objects[*Trigger]
	}

	// Collection is the read-only, per-kind view that consumers (linters, diff generators,
	// renderers) use. Every operation has a blocking and an asynchronous form; All is
	// lazy and restartable.
	Collection[T Object] interface {
		Exists(ctx context.Context, id identifier.Identifier) (bool, error)
		ExistsAsync(ctx context.Context, id identifier.Identifier) (*cache.Future[bool], error)
		Get(ctx context.Context, id identifier.Identifier) (T, bool, error)
		GetAsync(ctx context.Context, id identifier.Identifier) (*cache.Future[T], error)
		All(ctx context.Context) iter.Seq2[T, error]
	}

	// Database is a memoized, read-only view over one or more sources.
	Database interface {
		Identity() Identity
		Tables() Collection[*Table]
		Views() Collection[*View]
		Sequences() Collection[*Sequence]
		Synonyms() Collection[*Synonym]
		Triggers() Collection[*Trigger]
	}
)

// comparer returns the identity's comparer, defaulting to identifier.Ordinal.
func (i Identity) comparer() identifier.Comparer {
	if i.Comparer == nil {
		return identifier.Ordinal
	}

	return i.Comparer
}

// Collect drains seq into a slice. Objects yielded before an error are returned alongside
// it.
//
// Example:
//
//	tables, err := relational.Collect(db.Tables().All(ctx))
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}

	return out, nil
}

// Unsupported returns Objects for a kind the dialect does not have. Nothing exists and
// enumeration is empty.
func Unsupported[T Object]() Objects[T] {
	return unsupported[T]{}
}

type unsupported[T Object] struct{}

func (unsupported[T]) ExistsExact(context.Context, identifier.Identifier) (bool, error) {
	return false, nil
}

func (unsupported[T]) GetExact(context.Context, identifier.Identifier) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (unsupported[T]) All(context.Context) iter.Seq2[T, error] {
	return func(func(T, error) bool) {}
}
