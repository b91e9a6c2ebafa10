package ddl_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pseudomuto/schemalens/pkg/ddl"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func loadPlanned(t *testing.T) relational.Source {
	t.Helper()

	src, err := ddl.LoadFile(filepath.Join("testdata", "planned.sql"), ddl.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return src
}

func TestLoadFileIdentity(t *testing.T) {
	src := loadPlanned(t)

	id := src.Identity()
	require.Equal(t, ddl.Dialect, id.Dialect)
	require.Equal(t, ddl.DefaultSchema, id.DefaultSchema)
	require.Equal(t, "planned.sql", id.Name)
	require.Equal(t, identifier.OrdinalIgnoreCase, id.Comparer)
}

func TestLoadFileTables(t *testing.T) {
	ctx := context.Background()
	src := loadPlanned(t)

	users, ok, err := src.Tables().GetExact(ctx, identifier.Qualified("public", "USERS"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "public.users", users.Name.String())
	require.Equal(t, "Registered users", users.Comment)
	require.Equal(t, []string{"id"}, users.PrimaryKey)
	require.Len(t, users.Columns, 4)

	tests := []struct {
		name     string
		typ      string
		nullable bool
		def      string
		comment  string
	}{
		{name: "id", typ: "bigint"},
		{name: "email", typ: "varchar(255)", comment: "Login address"},
		{name: "created_at", typ: "timestamp with time zone", nullable: true, def: "now()"},
		{name: "nickname", typ: "text", nullable: true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col := users.Columns[i]
			require.Equal(t, tt.name, col.Name)
			require.Equal(t, tt.typ, col.Type)
			require.Equal(t, tt.nullable, col.Nullable)
			require.Equal(t, tt.comment, col.Comment)

			if tt.def == "" {
				require.Nil(t, col.Default)
				return
			}
			require.NotNil(t, col.Default)
			require.Equal(t, tt.def, *col.Default)
		})
	}

	invoices, ok, err := src.Tables().GetExact(ctx, identifier.Qualified("billing", "invoices"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Invoices", invoices.Name.LocalName())
	require.Equal(t, []string{"id", "user_id"}, invoices.PrimaryKey)

	total, ok := invoices.Column("total")
	require.True(t, ok)
	require.Equal(t, "numeric(12, 2)", total.Type)
	require.False(t, total.Nullable)
	require.Equal(t, "0", *total.Default)
}

func TestLoadFileViews(t *testing.T) {
	ctx := context.Background()
	src := loadPlanned(t)

	active, ok, err := src.Views().GetExact(ctx, identifier.Qualified("public", "active_users"))
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, active.Materialized)
	require.Equal(t, "SELECT id, email FROM users WHERE nickname IS NOT NULL", active.Definition)
	require.Len(t, active.Columns, 2)

	totals, ok, err := src.Views().GetExact(ctx, identifier.Qualified("billing", "totals"))
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, totals.Materialized)
	require.Contains(t, totals.Definition, "CASE WHEN sum(total) > 0 THEN sum(total) ELSE 0 END AS total")
	require.True(t, strings.HasSuffix(totals.Definition, "GROUP BY user_id"))
}

func TestLoadFileSequences(t *testing.T) {
	ctx := context.Background()
	src := loadPlanned(t)

	seq, ok, err := src.Sequences().GetExact(ctx, identifier.Qualified("public", "invoice_numbers"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "integer", seq.DataType)
	require.EqualValues(t, 1000, seq.Start)
	require.EqualValues(t, 10, seq.Increment)
	require.Nil(t, seq.Min)
	require.EqualValues(t, 99999, *seq.Max)
	require.True(t, seq.Cycle)

	down, ok, err := src.Sequences().GetExact(ctx, identifier.Qualified("public", "countdown"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bigint", down.DataType)
	require.EqualValues(t, -1, down.Increment)
	require.EqualValues(t, 10, down.Start)
	require.False(t, down.Cycle)
}

func TestLoadFileSynonyms(t *testing.T) {
	ctx := context.Background()
	src := loadPlanned(t)

	people, ok, err := src.Synonyms().GetExact(ctx, identifier.Qualified("public", "people"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "users", people.Target.String())

	invoices, ok, err := src.Synonyms().GetExact(ctx, identifier.Qualified("public", "invoices"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "billing.Invoices", invoices.Target.String())
}

func TestLoadFileTriggers(t *testing.T) {
	ctx := context.Background()
	src := loadPlanned(t)

	audit, ok, err := src.Triggers().GetExact(ctx, identifier.Qualified("public", "users_audit"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "public.users", audit.Table.String())
	require.Equal(t, "AFTER", audit.Timing)
	require.Equal(t, []string{"INSERT", "UPDATE"}, audit.Events)
	require.True(t, strings.HasPrefix(audit.Definition, "CREATE TRIGGER users_audit"))

	guard, ok, err := src.Triggers().GetExact(ctx, identifier.Qualified("public", "invoices_guard"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "billing.Invoices", guard.Table.String())
	require.Equal(t, "BEFORE", guard.Timing)
	require.Equal(t, []string{"DELETE"}, guard.Events)
	require.True(t, strings.HasSuffix(guard.Definition, "END"))
}

func TestLoadFileSkipsOtherStatements(t *testing.T) {
	src := loadPlanned(t)

	tables, err := relational.Collect(src.Tables().All(context.Background()))
	require.NoError(t, err)
	require.Len(t, tables, 2)
}

func TestLoadDuplicates(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		comment string
		err     error
	}{
		{
			name: "duplicate",
			sql:  "CREATE TABLE t (a int COMMENT 'first'); CREATE TABLE T (a int COMMENT 'second');",
			err:  ddl.ErrDuplicateObject,
		},
		{
			name:    "if not exists keeps first",
			sql:     "CREATE TABLE t (a int COMMENT 'first'); CREATE TABLE IF NOT EXISTS t (a int COMMENT 'second');",
			comment: "first",
		},
		{
			name:    "or replace",
			sql:     "CREATE TABLE t (a int COMMENT 'first'); CREATE OR REPLACE TABLE t (a int COMMENT 'second');",
			comment: "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ddl.Load(strings.NewReader(tt.sql))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			tbl, ok, err := src.Tables().GetExact(context.Background(), identifier.Qualified("public", "t"))
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, tt.comment, tbl.Columns[0].Comment)
		})
	}
}

func TestLoadClickHouseTable(t *testing.T) {
	src, err := ddl.Load(strings.NewReader(`
		CREATE TABLE analytics.events ON CLUSTER main (
			id UInt64,
			ts DateTime64(3) CODEC(Delta, ZSTD),
			payload Nullable(String) COMMENT 'raw body'
		)
		ENGINE = MergeTree()
		ORDER BY (id, ts)
		PRIMARY KEY id
		SETTINGS index_granularity = 8192
		COMMENT 'event stream';
	`), ddl.WithDefaultSchema("default"), ddl.WithComparer(identifier.Ordinal))
	require.NoError(t, err)

	tbl, ok, err := src.Tables().GetExact(context.Background(), identifier.Qualified("analytics", "events"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "MergeTree", tbl.Engine)
	require.Equal(t, "event stream", tbl.Comment)
	require.Equal(t, []string{"id"}, tbl.PrimaryKey)
	require.Equal(t, "DateTime64(3)", tbl.Columns[1].Type)
	require.Equal(t, "Nullable(String)", tbl.Columns[2].Type)
	require.Equal(t, "raw body", tbl.Columns[2].Comment)
}

func TestLoadSQLiteTrigger(t *testing.T) {
	src, err := ddl.Load(strings.NewReader(`
		BEGIN TRANSACTION;
		CREATE TABLE items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);
		CREATE TRIGGER items_touch UPDATE ON items BEGIN UPDATE items SET name = name; END;
		COMMIT;
	`), ddl.WithDefaultSchema("main"))
	require.NoError(t, err)

	trg, ok, err := src.Triggers().GetExact(context.Background(), identifier.Qualified("main", "items_touch"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, trg.Timing)
	require.Equal(t, []string{"UPDATE"}, trg.Events)
	require.Equal(t, "main.items", trg.Table.String())

	tbl, ok, err := src.Tables().GetExact(context.Background(), identifier.Qualified("main", "items"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"id"}, tbl.PrimaryKey)
	require.Equal(t, "INTEGER", tbl.Columns[0].Type)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		msg  string
	}{
		{name: "unbalanced", sql: "CREATE TABLE users (id int, email text", msg: "failed to parse DDL"},
		{name: "zero increment", sql: "CREATE SEQUENCE s INCREMENT BY 0;", msg: "increment must not be zero"},
		{name: "too many parts", sql: "CREATE SYNONYM s FOR a.b.c.d.e;", msg: "too many parts"},
		{name: "empty name", sql: `CREATE TABLE "" (id int);`, msg: "invalid name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ddl.Load(strings.NewReader(tt.sql))
			require.ErrorContains(t, err, tt.msg)
		})
	}
}

func TestLoadFileDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002_views.sql"), []byte("CREATE VIEW v AS SELECT * FROM t;"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_tables.sql"), []byte("CREATE TABLE t (id int);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not sql"), 0o600))

	src, err := ddl.LoadFile(dir)
	require.NoError(t, err)
	require.Equal(t, 2, src.Len())
	require.Equal(t, filepath.Base(dir), src.Identity().Name)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := ddl.LoadFile(filepath.Join(t.TempDir(), "missing.sql"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadIntoOverlay(t *testing.T) {
	ctx := context.Background()

	planned, err := ddl.Load(strings.NewReader("CREATE TABLE users (id bigint, email text); CREATE SYNONYM people FOR users;"))
	require.NoError(t, err)

	live, err := ddl.Load(strings.NewReader("CREATE TABLE users (id bigint); CREATE TABLE orders (id bigint);"))
	require.NoError(t, err)

	plannedDB, err := relational.NewCached(planned)
	require.NoError(t, err)
	liveDB, err := relational.NewCached(live)
	require.NoError(t, err)

	db, err := relational.NewOverlay([]relational.Database{plannedDB, liveDB})
	require.NoError(t, err)

	users, ok, err := db.Tables().Get(ctx, identifier.Local("users"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, users.Columns, 2)

	target, err := plannedDB.ResolveSynonym(ctx, identifier.Local("people"))
	require.NoError(t, err)
	require.Equal(t, "public.users", target.String())

	tables, err := relational.Collect(db.Tables().All(ctx))
	require.NoError(t, err)
	require.Len(t, tables, 2)
}
