// Package sqlsource reads relational metadata through database/sql.
//
// A Dialect describes how to list each kind of object in a product's catalog. Postgres
// and SQLite dialects are provided; Open picks one from the driver name:
//
//	src, err := sqlsource.Open(ctx, "pgx", "postgres://localhost/app?sslmode=disable")
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	db, err := relational.NewCached(src)
//
// The drivers registered by this package are "postgres" (lib/pq), "pgx" (pgx stdlib) and
// "sqlite3" (mattn/go-sqlite3).
package sqlsource
