// Package ddl loads CREATE statements into an in-memory relational source.
//
// The accepted language is a dialect-neutral subset of SQL DDL: CREATE TABLE, VIEW,
// SEQUENCE, SYNONYM and TRIGGER plus COMMENT ON. Anything the object model does not
// describe (indexes, grants, storage clauses) is parsed loosely and ignored, so schema
// files written for Postgres, SQLite or ClickHouse usually load unchanged.
//
// A typical use is an overlay layer holding planned changes on top of a live database:
//
//	planned, err := ddl.LoadFile("db/planned.sql", ddl.WithDefaultSchema("public"))
//	if err != nil {
//		return err
//	}
package ddl
