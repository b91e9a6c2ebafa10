// Package identifier provides hierarchical names for relational database objects and the
// comparison strategies used to key, order, and deduplicate them.
//
// An Identifier has four components: server, database, schema, and local name. Only the
// local name is required; the others are optional and an empty or whitespace-only value is
// treated as absent. Identifiers are immutable values.
//
// # Equality
//
// Identifiers have no structural identity of their own. Whether two names refer to the same
// object is decided by a Comparer, which also defines a deterministic ordering and a hash:
//
//	a := identifier.MustNew("", "", "dbo", "Users")
//	b := identifier.MustNew("", "", "DBO", "users")
//
//	identifier.Ordinal.Equal(a, b)           // false
//	identifier.OrdinalIgnoreCase.Equal(a, b) // true
//
// Four shared comparers are provided: Ordinal, OrdinalIgnoreCase, Culture and
// CultureIgnoreCase. They hold no mutable state and can be shared freely.
//
// Caches never key maps by Identifier directly. They use Comparer.Key, which returns a
// comparable value that is equal for two identifiers exactly when the comparer says they
// are equal:
//
//	seen := map[identifier.Key]bool{}
//	seen[identifier.OrdinalIgnoreCase.Key(a)] = true
//	seen[identifier.OrdinalIgnoreCase.Key(b)] // true
//
// # Qualification
//
// A qualified key is an identifier whose schema has been filled in from a default schema.
// Qualify is idempotent and leaves identifiers that already carry a schema untouched:
//
//	id := identifier.Local("Users")
//	identifier.Qualify(id, "dbo").String() // dbo.Users
//
// # Parsing
//
// Parse accepts dotted names with optional backtick, double-quote or bracket quoting. Parts
// are right-aligned, so "Users" is a local name, "dbo.Users" is schema-qualified, and so on
// up to "server.database.schema.name".
package identifier
