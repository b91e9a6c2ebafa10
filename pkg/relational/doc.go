// Package relational models database objects and the memoized, read-only views over them.
//
// A Source is an uncached provider of metadata, usually backed by a live connection or a
// parsed DDL file. A Database is what consumers read from. Two Database implementations
// are provided:
//
//   - Cached wraps one Source and memoizes every lookup, including "does not exist".
//   - Overlay stacks several databases. Index 0 wins on conflicts, existence is the union
//     of every layer and enumeration keeps the first object seen for each name.
//
// Names are qualified with the default schema of the database before they are used, so
// identifier.Local("users") and identifier.Qualified("public", "users") resolve to the
// same object when the default schema is "public".
//
//	planned, _ := relational.NewCached(ddlSource)
//	live, _ := relational.NewCached(pgSource)
//	db, _ := relational.NewOverlay([]relational.Database{planned, live})
//
//	for tbl, err := range db.Tables().All(ctx) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(tbl.Name)
//	}
//
// Memoized answers never expire. Build a new Database to observe changes in the sources.
package relational
