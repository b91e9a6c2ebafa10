package sqlsource

import (
	"context"
	"database/sql"
	"iter"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"go.uber.org/zap"
)

const orderByName = " ORDER BY object_schema, object_name"

type (
	scanFunc[T relational.Object]     func(*sql.Rows) (T, error)
	decorateFunc[T relational.Object] func(T, *details)

	// objects implements relational.Objects for one kind using a Dialect list query.
	objects[T relational.Object] struct {
		src      *Source
		query    string
		scan     scanFunc[T]
		decorate decorateFunc[T]
	}
)

func (o *objects[T]) ExistsExact(ctx context.Context, id identifier.Identifier) (bool, error) {
	query := "SELECT COUNT(*) FROM (" + o.src.dialect.filter(o.query) + ") e"

	var n int
	if err := o.src.db.QueryRowContext(ctx, query, o.src.args(id)...).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "failed to check existence of %s", id)
	}

	return n > 0, nil
}

func (o *objects[T]) GetExact(ctx context.Context, id identifier.Identifier) (T, bool, error) {
	var zero T
	args := o.src.args(id)

	found, ok := zero, false
	for obj, err := range o.rows(ctx, o.src.dialect.filter(o.query)+orderByName, args...) {
		if err != nil {
			return zero, false, err
		}
		found, ok = obj, true
		break
	}

	if !ok || o.decorate == nil {
		return found, ok, nil
	}

	d, err := o.src.loadDetails(ctx, args...)
	if err != nil {
		return zero, false, err
	}

	o.decorate(found, d)
	return found, true, nil
}

func (o *objects[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		var d *details
		if o.decorate != nil {
			var err error
			if d, err = o.src.loadDetails(ctx); err != nil {
				yield(zero, err)
				return
			}
		}

		for obj, err := range o.rows(ctx, "SELECT * FROM ("+o.query+") q"+orderByName) {
			if err != nil {
				yield(zero, err)
				return
			}

			if d != nil {
				o.decorate(obj, d)
			}

			if !yield(obj, nil) {
				return
			}
		}
	}
}

func (o *objects[T]) rows(ctx context.Context, query string, args ...any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		o.src.log.Debug("querying catalog", zap.String("query", query), zap.Any("args", args))
		rows, err := o.src.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(zero, errors.Wrap(err, "failed to query catalog"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			obj, err := o.scan(rows)
			if err != nil {
				yield(zero, err)
				return
			}

			if !yield(obj, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, errors.Wrap(err, "error iterating catalog rows"))
		}
	}
}

// args binds the schema and name of id, qualifying it with the source's default schema.
func (s *Source) args(id identifier.Identifier) []any {
	id = identifier.Qualify(id, s.schema)
	return []any{id.Schema(), id.LocalName()}
}

func objectName(schema, name string) (identifier.Identifier, error) {
	id, err := identifier.New("", "", schema, name)
	if err != nil {
		return identifier.Identifier{}, errors.Wrapf(err, "invalid object name %q.%q", schema, name)
	}

	return id, nil
}
