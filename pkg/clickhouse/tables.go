package clickhouse

import (
	"context"
	"iter"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

// tableFilter excludes views, temporary tables and the inner tables of materialized views.
const tableFilter = `
	  AND engine NOT IN ('View', 'MaterializedView')
	  AND is_temporary = 0
	  AND name NOT LIKE '.inner_id.%'
	  AND name NOT LIKE '.inner.%'`

const selectTables = `
	SELECT
		database,
		name,
		engine,
		comment,
		primary_key
	FROM system.tables
	WHERE `

type tables struct {
	c *Client
}

func (t *tables) ExistsExact(ctx context.Context, id identifier.Identifier) (bool, error) {
	query := `SELECT count() FROM system.tables WHERE database = ? AND name = ?` + tableFilter
	return t.c.exists(ctx, query, t.c.databaseOf(id), id.LocalName())
}

func (t *tables) GetExact(ctx context.Context, id identifier.Identifier) (*relational.Table, bool, error) {
	database := t.c.databaseOf(id)
	query := selectTables + `database = ? AND name = ?` + tableFilter

	var found *relational.Table
	for tbl, err := range t.c.scanTables(ctx, query, database, id.LocalName()) {
		if err != nil {
			return nil, false, err
		}
		found = tbl
	}

	if found == nil {
		return nil, false, nil
	}

	cols, err := t.c.columns(ctx, "database = ? AND table = ?", database, id.LocalName())
	if err != nil {
		return nil, false, err
	}

	found.Columns = cols[columnKey{database, id.LocalName()}]
	return found, true, nil
}

// All loads every column up front so tables can be streamed without a query per table.
func (t *tables) All(ctx context.Context) iter.Seq2[*relational.Table, error] {
	return func(yield func(*relational.Table, error) bool) {
		cond, params := buildSystemDatabaseExclusion("database")

		cols, err := t.c.columns(ctx, cond, params...)
		if err != nil {
			yield(nil, err)
			return
		}

		query := selectTables + cond + tableFilter + `
	ORDER BY database, name`

		for tbl, err := range t.c.scanTables(ctx, query, params...) {
			if err != nil {
				yield(nil, err)
				return
			}

			tbl.Columns = cols[columnKey{tbl.Name.Schema(), tbl.Name.LocalName()}]
			if !yield(tbl, nil) {
				return
			}
		}
	}
}

func (c *Client) scanTables(ctx context.Context, query string, args ...any) iter.Seq2[*relational.Table, error] {
	return func(yield func(*relational.Table, error) bool) {
		rows, err := c.conn.Query(ctx, query, args...)
		if err != nil {
			yield(nil, errors.Wrap(err, "failed to query tables"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			tbl, err := scanTable(rows)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(tbl, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, errors.Wrap(err, "error iterating table rows"))
		}
	}
}

func scanTable(rows driver.Rows) (*relational.Table, error) {
	var database, name, engine, comment, primaryKey string
	if err := rows.Scan(&database, &name, &engine, &comment, &primaryKey); err != nil {
		return nil, errors.Wrap(err, "failed to scan table row")
	}

	id, err := identifier.New("", "", database, name)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid table name %s.%s", database, name)
	}

	return &relational.Table{
		Name:       id,
		Engine:     engine,
		Comment:    comment,
		PrimaryKey: splitKey(primaryKey),
	}, nil
}

func splitKey(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}

	parts := strings.Split(expr, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	return parts
}

// exists runs a count() query and reports whether it found anything.
func (c *Client) exists(ctx context.Context, query string, args ...any) (bool, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, "failed to query object existence")
	}
	defer rows.Close()

	var n uint64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, errors.Wrap(err, "failed to scan count")
		}
	}

	if err := rows.Err(); err != nil {
		return false, errors.Wrap(err, "failed to query object existence")
	}

	return n > 0, nil
}
