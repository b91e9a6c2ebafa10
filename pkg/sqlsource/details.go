package sqlsource

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

const orderByPosition = orderByName + ", position"

type (
	objectKey struct {
		schema string
		name   string
	}

	// details holds the columns and primary keys of tables and views.
	details struct {
		columns map[objectKey][]relational.Column
		keys    map[objectKey][]string
	}
)

func decorateTable(t *relational.Table, d *details) {
	k := objectKey{t.Name.Schema(), t.Name.LocalName()}
	t.Columns = d.columns[k]
	t.PrimaryKey = d.keys[k]
}

func decorateView(v *relational.View, d *details) {
	v.Columns = d.columns[objectKey{v.Name.Schema(), v.Name.LocalName()}]
}

// loadDetails loads columns and primary keys of every object, or of the single object
// bound by args.
func (s *Source) loadDetails(ctx context.Context, args ...any) (*details, error) {
	d := &details{
		columns: make(map[objectKey][]relational.Column),
		keys:    make(map[objectKey][]string),
	}

	if s.dialect.Columns != "" {
		rows, err := s.db.QueryContext(ctx, s.detailQuery(s.dialect.Columns, len(args) > 0), args...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query columns")
		}
		defer rows.Close()

		for rows.Next() {
			var (
				k        objectKey
				col      relational.Column
				def      sql.NullString
				position int
			)
			if err := rows.Scan(&k.schema, &k.name, &col.Name, &col.Type, &col.Nullable, &def, &position); err != nil {
				return nil, errors.Wrap(err, "failed to scan column row")
			}

			if def.Valid {
				col.Default = &def.String
			}
			d.columns[k] = append(d.columns[k], col)
		}

		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "error iterating column rows")
		}
	}

	if s.dialect.PrimaryKeys != "" {
		rows, err := s.db.QueryContext(ctx, s.detailQuery(s.dialect.PrimaryKeys, len(args) > 0), args...)
		if err != nil {
			return nil, errors.Wrap(err, "failed to query primary keys")
		}
		defer rows.Close()

		for rows.Next() {
			var (
				k        objectKey
				column   string
				position int
			)
			if err := rows.Scan(&k.schema, &k.name, &column, &position); err != nil {
				return nil, errors.Wrap(err, "failed to scan primary key row")
			}

			d.keys[k] = append(d.keys[k], column)
		}

		if err := rows.Err(); err != nil {
			return nil, errors.Wrap(err, "error iterating primary key rows")
		}
	}

	return d, nil
}

func (s *Source) detailQuery(query string, single bool) string {
	if single {
		return s.dialect.filter(query) + orderByPosition
	}

	return "SELECT * FROM (" + query + ") q" + orderByPosition
}
