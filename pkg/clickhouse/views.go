package clickhouse

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

const viewFilter = `
	  AND engine IN ('View', 'MaterializedView')`

const selectViews = `
	SELECT
		database,
		name,
		engine,
		create_table_query
	FROM system.tables
	WHERE `

type views struct {
	c *Client
}

func (v *views) ExistsExact(ctx context.Context, id identifier.Identifier) (bool, error) {
	query := `SELECT count() FROM system.tables WHERE database = ? AND name = ?` + viewFilter
	return v.c.exists(ctx, query, v.c.databaseOf(id), id.LocalName())
}

func (v *views) GetExact(ctx context.Context, id identifier.Identifier) (*relational.View, bool, error) {
	database := v.c.databaseOf(id)

	var found *relational.View
	for view, err := range v.c.scanViews(ctx, selectViews+`database = ? AND name = ?`+viewFilter, database, id.LocalName()) {
		if err != nil {
			return nil, false, err
		}
		found = view
	}

	if found == nil {
		return nil, false, nil
	}

	cols, err := v.c.columns(ctx, "database = ? AND table = ?", database, id.LocalName())
	if err != nil {
		return nil, false, err
	}

	found.Columns = cols[columnKey{database, id.LocalName()}]
	return found, true, nil
}

func (v *views) All(ctx context.Context) iter.Seq2[*relational.View, error] {
	return func(yield func(*relational.View, error) bool) {
		cond, params := buildSystemDatabaseExclusion("database")

		cols, err := v.c.columns(ctx, cond, params...)
		if err != nil {
			yield(nil, err)
			return
		}

		query := selectViews + cond + viewFilter + `
	ORDER BY database, name`

		for view, err := range v.c.scanViews(ctx, query, params...) {
			if err != nil {
				yield(nil, err)
				return
			}

			view.Columns = cols[columnKey{view.Name.Schema(), view.Name.LocalName()}]
			if !yield(view, nil) {
				return
			}
		}
	}
}

func (c *Client) scanViews(ctx context.Context, query string, args ...any) iter.Seq2[*relational.View, error] {
	return func(yield func(*relational.View, error) bool) {
		rows, err := c.conn.Query(ctx, query, args...)
		if err != nil {
			yield(nil, errors.Wrap(err, "failed to query views"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var database, name, engine, createQuery string
			if err := rows.Scan(&database, &name, &engine, &createQuery); err != nil {
				yield(nil, errors.Wrap(err, "failed to scan view row"))
				return
			}

			id, err := identifier.New("", "", database, name)
			if err != nil {
				yield(nil, errors.Wrapf(err, "invalid view name %s.%s", database, name))
				return
			}

			view := &relational.View{
				Name:         id,
				Definition:   viewDefinition(createQuery),
				Materialized: engine == "MaterializedView",
			}
			if !yield(view, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, errors.Wrap(err, "error iterating view rows"))
		}
	}
}
