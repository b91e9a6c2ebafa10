package clickhouse

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

type columnKey struct {
	database string
	table    string
}

// columns loads the columns of every table and view matching where, in declaration order.
func (c *Client) columns(ctx context.Context, where string, args ...any) (map[columnKey][]relational.Column, error) {
	query := `
	SELECT
		database,
		table,
		name,
		type,
		default_expression,
		comment
	FROM system.columns
	WHERE ` + where + `
	ORDER BY database, table, position`

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query columns")
	}
	defer rows.Close()

	out := make(map[columnKey][]relational.Column)
	for rows.Next() {
		var database, table, name, typ, def, comment string
		if err := rows.Scan(&database, &table, &name, &typ, &def, &comment); err != nil {
			return nil, errors.Wrap(err, "failed to scan column row")
		}

		col := relational.Column{
			Name:     name,
			Type:     normalizeType(typ),
			Nullable: strings.HasPrefix(typ, "Nullable("),
			Comment:  comment,
		}
		if def != "" {
			col.Default = &def
		}

		k := columnKey{database, table}
		out[k] = append(out[k], col)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating column rows")
	}

	return out, nil
}
