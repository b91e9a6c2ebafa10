package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pseudomuto/schemalens/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"
)

const (
	baseSQL = `
CREATE TABLE users (
    id    bigint PRIMARY KEY,
    email text NOT NULL
);

CREATE TABLE orders (
    id      bigint PRIMARY KEY,
    user_id bigint NOT NULL,
    total   numeric(10, 2) DEFAULT 0
);

CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100;

CREATE SEQUENCE order_numbers START WITH 1000;
`

	plannedSQL = `
CREATE TABLE users (
    id       bigint PRIMARY KEY,
    email    text NOT NULL,
    nickname text
);

CREATE SYNONYM people FOR users;

CREATE TRIGGER users_touch BEFORE UPDATE ON users
    FOR EACH ROW EXECUTE FUNCTION touch();
`

	ddlConfig = `
comparer: ordinal-ignore-case
layers:
  - name: planned
    kind: ddl
    path: planned.sql
  - name: base
    kind: ddl
    path: base.sql
`
)

// writeProject writes files into a temp dir and returns the path of schemalens.yaml.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return filepath.Join(dir, "schemalens.yaml")
}

func testSession(t *testing.T, cfgPath string) *session {
	t.Helper()

	s := &session{log: zaptest.NewLogger(t), noColor: true}
	if cfgPath != "" {
		cfg, err := config.LoadConfigFile(cfgPath)
		require.NoError(t, err)
		s.cfg = cfg
	}

	return s
}

func ddlSession(t *testing.T) *session {
	t.Helper()

	return testSession(t, writeProject(t, map[string]string{
		"schemalens.yaml": ddlConfig,
		"base.sql":        baseSQL,
		"planned.sql":     plannedSQL,
	}))
}

func run(t *testing.T, s *session, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	app := newApp(s, "test", []*cli.Command{existsCmd(s), lsCmd(s), showCmd(s)})
	app.Writer = &buf
	app.ErrWriter = io.Discard

	err := app.Run(context.Background(), append([]string{"schemalens"}, args...))
	return buf.String(), err
}

func TestLs(t *testing.T) {
	out, err := run(t, ddlSession(t), "ls")
	require.NoError(t, err)

	require.Regexp(t, `(?m)^KIND\s+NAME\s+DETAIL$`, out)
	require.Regexp(t, `(?m)^table\s+public\.orders\s+3 columns$`, out)
	require.Regexp(t, `(?m)^table\s+public\.users\s+3 columns$`, out)
	require.Regexp(t, `(?m)^view\s+public\.big_orders$`, out)
	require.Regexp(t, `(?m)^sequence\s+public\.order_numbers\s+bigint start 1000 increment 1$`, out)
	require.Regexp(t, `(?m)^synonym\s+public\.people\s+-> users$`, out)
	require.Regexp(t, `(?m)^trigger\s+public\.users_touch\s+BEFORE UPDATE ON public\.users$`, out)

	// users is defined by both layers but listed once
	require.Equal(t, 1, bytes.Count([]byte(out), []byte("public.users ")))

	// kinds are grouped in display order and sorted by name within a kind
	require.Less(t, bytes.Index([]byte(out), []byte("public.orders")), bytes.Index([]byte(out), []byte("public.users ")))
	require.Less(t, bytes.Index([]byte(out), []byte("public.users ")), bytes.Index([]byte(out), []byte("public.big_orders")))
}

func TestLsKind(t *testing.T) {
	out, err := run(t, ddlSession(t), "ls", "--kind", "views")
	require.NoError(t, err)
	require.Contains(t, out, "public.big_orders")
	require.NotContains(t, out, "public.users")

	_, err = run(t, ddlSession(t), "ls", "-k", "index")
	require.ErrorContains(t, err, "unknown object kind")
}

func TestShow(t *testing.T) {
	s := ddlSession(t)

	out, err := run(t, s, "show", "users")
	require.NoError(t, err)
	require.Contains(t, out, "table public.users\n")
	require.Contains(t, out, "primary key: id\n")
	require.Regexp(t, `(?m)^nickname\s+text\s+yes$`, out)

	out, err = run(t, s, "show", "PUBLIC.Orders")
	require.NoError(t, err)
	require.Contains(t, out, "table public.orders\n")
	require.Regexp(t, `(?m)^total\s+numeric\(10, 2\)\s+yes\s+0$`, out)

	out, err = run(t, s, "show", "--kind", "view", "public.big_orders")
	require.NoError(t, err)
	require.Contains(t, out, "definition:\n  SELECT id, total FROM orders WHERE total > 100\n")
}

func TestShowSynonym(t *testing.T) {
	s := ddlSession(t)

	out, err := run(t, s, "show", "people")
	require.NoError(t, err)
	require.Contains(t, out, "synonym public.people\n")
	require.Contains(t, out, "target: users\n")

	out, err = run(t, s, "show", "--resolve", "people")
	require.NoError(t, err)
	require.Contains(t, out, "table public.users\n")
	require.Contains(t, out, "nickname")
}

func TestShowErrors(t *testing.T) {
	s := ddlSession(t)

	_, err := run(t, s, "show", "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "public.missing")

	_, err = run(t, s, "show", "--kind", "view", "users")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = run(t, s, "show")
	require.ErrorContains(t, err, "exactly one object name is required")

	_, err = run(t, s, "show", "a.b.c.d.e")
	require.ErrorContains(t, err, "too many parts")
}

func TestExists(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{[]string{"exists", "users"}, "true\n"},
		{[]string{"exists", "USERS"}, "true\n"},
		{[]string{"exists", "--kind", "table", "orders"}, "true\n"},
		{[]string{"exists", "--kind", "view", "orders"}, "false\n"},
		{[]string{"exists", "people"}, "true\n"},
		{[]string{"exists", "other.users"}, "false\n"},
		{[]string{"exists", "nope"}, "false\n"},
	}

	s := ddlSession(t)
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[1:], " "), func(t *testing.T) {
			out, err := run(t, s, tt.args...)
			require.NoError(t, err)
			require.Equal(t, tt.expected, out)
		})
	}
}

func TestRequireConfig(t *testing.T) {
	s := testSession(t, "")

	for _, name := range []string{"ls", "show", "exists"} {
		_, err := run(t, s, name, "users")
		require.ErrorContains(t, err, "schemalens.yaml not found")
	}
}

func TestConfigFlag(t *testing.T) {
	path := writeProject(t, map[string]string{
		"schemalens.yaml": ddlConfig,
		"base.sql":        baseSQL,
		"planned.sql":     plannedSQL,
	})

	s := testSession(t, "")
	out, err := run(t, s, "--config", path, "exists", "people")
	require.NoError(t, err)
	require.Equal(t, "true\n", out)

	_, err = run(t, testSession(t, ""), "-c", filepath.Join(t.TempDir(), "nope.yaml"), "ls")
	require.ErrorContains(t, err, "failed to open file")
}

func TestLayerErrors(t *testing.T) {
	path := writeProject(t, map[string]string{
		"schemalens.yaml": "layers:\n  - name: planned\n    kind: ddl\n    path: missing.sql\n",
	})

	_, err := run(t, testSession(t, path), "ls")
	require.ErrorContains(t, err, "failed to open layer planned")
	require.ErrorIs(t, err, os.ErrNotExist)

	path = writeProject(t, map[string]string{
		"schemalens.yaml": "layers:\n  - name: broken\n    kind: ddl\n    path: broken.sql\n",
		"broken.sql":      "CREATE TABLE a (id int);\nCREATE TABLE a (id int);\n",
	})

	_, err = run(t, testSession(t, path), "ls")
	require.ErrorContains(t, err, "failed to open layer broken")
}

func TestClickHouseTLS(t *testing.T) {
	// the CA is read before dialing, so a missing file fails without a server
	path := writeProject(t, map[string]string{
		"schemalens.yaml": `
layers:
  - name: analytics
    kind: clickhouse
    dsn: localhost:9440
    tls:
      ca_file: certs/ca.pem
`,
	})

	_, err := run(t, testSession(t, path), "ls")
	require.ErrorContains(t, err, "failed to open layer analytics")
	require.ErrorContains(t, err, "failed to read CA file "+filepath.Join(filepath.Dir(path), "certs", "ca.pem"))
}

func TestSQLiteLayer(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "live.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL);
CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL);
`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	path := writeProject(t, map[string]string{
		"schemalens.yaml": `
comparer: ordinal-ignore-case
layers:
  - name: planned
    kind: ddl
    path: planned.sql
    default_schema: main
  - name: live
    kind: sqlite
    dsn: ` + dbPath + `
`,
		"planned.sql": plannedSQL,
	})

	s := testSession(t, path)

	out, err := run(t, s, "ls", "--kind", "table")
	require.NoError(t, err)
	require.Regexp(t, `(?m)^table\s+main\.orders\s+2 columns$`, out)
	require.Regexp(t, `(?m)^table\s+main\.users\s+3 columns$`, out)

	out, err = run(t, s, "show", "orders")
	require.NoError(t, err)
	require.Contains(t, out, "table main.orders\n")
	require.Regexp(t, `(?m)^user_id\s+INTEGER\s+no$`, out)

	// the connection is released once the command finishes
	require.Empty(t, s.closers)
	require.Nil(t, s.db)
}

func TestModule(t *testing.T) {
	t.Setenv("SCHEMALENS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, fx.ValidateApp(
		fx.Supply([]string{"schemalens"}, &Version{Version: "test"}),
		fx.Provide(context.Background),
		config.Module,
		Module,
	))
}
