package sqlsource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

// ErrUnknownDriver is returned by DialectForDriver for drivers without a dialect.
var ErrUnknownDriver = errors.New("unknown database driver")

// Dialect holds the catalog queries of one database product.
//
// Each list query selects every object of its kind. The first two result columns must be
// named object_schema and object_name; single objects are fetched by filtering the list
// query on them. An empty query means the product has no such kind.
type Dialect struct {
	// Name is reported as the dialect of the source identity.
	Name string

	// DefaultSchema qualifies names without a schema.
	DefaultSchema string

	// Comparer matches the product's identifier rules.
	Comparer identifier.Comparer

	// Placeholder renders the nth (1-based) bind parameter.
	Placeholder func(n int) string

	// NameCollation is appended to the schema and name comparisons, e.g. " COLLATE NOCASE".
	NameCollation string

	// Tables selects object_schema, object_name, comment.
	Tables string

	// Views selects object_schema, object_name, definition, materialized.
	Views string

	// Sequences selects object_schema, object_name, data_type, start_value, increment,
	// min_value, max_value, cycle.
	Sequences string

	// Triggers selects object_schema, object_name, table_schema, table_name, timing,
	// events, definition. Events are comma separated.
	Triggers string

	// Columns selects object_schema, object_name, column_name, data_type, nullable,
	// column_default, position for tables and views.
	Columns string

	// PrimaryKeys selects object_schema, object_name, column_name, position.
	PrimaryKeys string

	// ParseTrigger fills in trigger details the catalog does not expose. Optional.
	ParseTrigger func(*relational.Trigger)
}

const systemSchemas = "('pg_catalog', 'information_schema')"

// Postgres reads information_schema and pg_catalog.
var Postgres = Dialect{
	Name:          "postgres",
	DefaultSchema: "public",
	Comparer:      identifier.Ordinal,
	Placeholder:   func(n int) string { return fmt.Sprintf("$%d", n) },
	Tables: `
		SELECT
			t.table_schema AS object_schema,
			t.table_name AS object_name,
			COALESCE(obj_description(c.oid, 'pg_class'), '') AS comment
		FROM information_schema.tables t
		JOIN pg_catalog.pg_namespace n ON n.nspname = t.table_schema
		JOIN pg_catalog.pg_class c ON c.relnamespace = n.oid AND c.relname = t.table_name
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema NOT IN ` + systemSchemas,
	Views: `
		SELECT
			table_schema AS object_schema,
			table_name AS object_name,
			COALESCE(view_definition, '') AS definition,
			false AS materialized
		FROM information_schema.views
		WHERE table_schema NOT IN ` + systemSchemas + `
		UNION ALL
		SELECT schemaname, matviewname, definition, true
		FROM pg_catalog.pg_matviews`,
	Sequences: `
		SELECT
			sequence_schema AS object_schema,
			sequence_name AS object_name,
			data_type,
			start_value::bigint AS start_value,
			increment::bigint AS increment,
			minimum_value::bigint AS min_value,
			maximum_value::bigint AS max_value,
			cycle_option = 'YES' AS cycle
		FROM information_schema.sequences`,
	Triggers: `
		SELECT
			trigger_schema AS object_schema,
			trigger_name AS object_name,
			event_object_schema AS table_schema,
			event_object_table AS table_name,
			action_timing AS timing,
			string_agg(event_manipulation, ',' ORDER BY event_manipulation) AS events,
			action_statement AS definition
		FROM information_schema.triggers
		GROUP BY trigger_schema, trigger_name, event_object_schema, event_object_table, action_timing, action_statement`,
	Columns: `
		SELECT
			table_schema AS object_schema,
			table_name AS object_name,
			column_name,
			data_type,
			is_nullable = 'YES' AS nullable,
			column_default,
			ordinal_position AS position
		FROM information_schema.columns
		WHERE table_schema NOT IN ` + systemSchemas,
	PrimaryKeys: `
		SELECT
			kcu.table_schema AS object_schema,
			kcu.table_name AS object_name,
			kcu.column_name,
			kcu.ordinal_position AS position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_schema = tc.constraint_schema
		 AND kcu.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'PRIMARY KEY'`,
}

// SQLite reads sqlite_master and pragma_table_info. Only the main schema is reported and
// identifiers are case insensitive.
var SQLite = Dialect{
	Name:          "sqlite",
	DefaultSchema: "main",
	Comparer:      identifier.OrdinalIgnoreCase,
	Placeholder:   func(int) string { return "?" },
	NameCollation: " COLLATE NOCASE",
	Tables: `
		SELECT 'main' AS object_schema, name AS object_name, '' AS comment
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`,
	Views: `
		SELECT 'main' AS object_schema, name AS object_name, sql AS definition, 0 AS materialized
		FROM sqlite_master
		WHERE type = 'view'`,
	Triggers: `
		SELECT
			'main' AS object_schema,
			name AS object_name,
			'main' AS table_schema,
			tbl_name AS table_name,
			'' AS timing,
			'' AS events,
			sql AS definition
		FROM sqlite_master
		WHERE type = 'trigger'`,
	Columns: `
		SELECT
			'main' AS object_schema,
			m.name AS object_name,
			p.name AS column_name,
			p.type AS data_type,
			p."notnull" = 0 AS nullable,
			p.dflt_value AS column_default,
			p.cid AS position
		FROM sqlite_master m, pragma_table_info(m.name) p
		WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'`,
	PrimaryKeys: `
		SELECT 'main' AS object_schema, m.name AS object_name, p.name AS column_name, p.pk AS position
		FROM sqlite_master m, pragma_table_info(m.name) p
		WHERE m.type = 'table' AND p.pk > 0`,
	ParseTrigger: parseSQLiteTrigger,
}

var sqliteTriggerPattern = regexp.MustCompile(
	`(?is)^CREATE\s+(?:TEMP(?:ORARY)?\s+)?TRIGGER\s+(?:IF\s+NOT\s+EXISTS\s+)?\S+\s+(BEFORE\s+|AFTER\s+|INSTEAD\s+OF\s+)?(INSERT|UPDATE|DELETE)`,
)

// parseSQLiteTrigger reads timing and event from the CREATE TRIGGER statement. SQLite
// triggers fire BEFORE when no timing is given.
func parseSQLiteTrigger(t *relational.Trigger) {
	m := sqliteTriggerPattern.FindStringSubmatch(t.Definition)
	if m == nil {
		return
	}

	t.Timing = "BEFORE"
	if timing := strings.Join(strings.Fields(m[1]), " "); timing != "" {
		t.Timing = strings.ToUpper(timing)
	}
	t.Events = []string{strings.ToUpper(m[2])}
}

// DialectForDriver returns the dialect for a database/sql driver name.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite3":
		return SQLite, nil
	default:
		return Dialect{}, errors.Wrapf(ErrUnknownDriver, "%q", driver)
	}
}

// filter wraps a list query so it returns only the object bound to the first two
// parameters.
func (d Dialect) filter(query string) string {
	return "SELECT * FROM (" + query + ") q WHERE q.object_schema = " + d.Placeholder(1) + d.NameCollation +
		" AND q.object_name = " + d.Placeholder(2) + d.NameCollation
}
