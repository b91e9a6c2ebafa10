package identifier

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyLocalName is returned when an identifier is built without a local name.
	ErrEmptyLocalName = errors.New("identifier local name must not be empty")

	// ErrInvalidName is returned by Parse for names that cannot be split into parts.
	ErrInvalidName = errors.New("invalid identifier")
)

// Identifier is an immutable, partially qualified name for a database object.
//
// The zero value is not a valid identifier; use New, Local, Qualified or Parse.
type Identifier struct {
	server   string
	database string
	schema   string
	name     string
}

// New builds an Identifier from its four components. Each component is trimmed and an empty
// result is treated as absent. The local name is required.
//
// Example:
//
//	id, err := identifier.New("", "sales", "dbo", "Orders")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(id) // sales.dbo.Orders
func New(server, database, schema, localName string) (Identifier, error) {
	id := Identifier{
		server:   normalize(server),
		database: normalize(database),
		schema:   normalize(schema),
		name:     normalize(localName),
	}

	if id.name == "" {
		return Identifier{}, ErrEmptyLocalName
	}

	return id, nil
}

// MustNew is like New but panics when the identifier is invalid. It is intended for
// literals in tests and package-level variables.
func MustNew(server, database, schema, localName string) Identifier {
	id, err := New(server, database, schema, localName)
	if err != nil {
		panic(err)
	}

	return id
}

// Local returns an identifier with only a local name. It panics if name is empty.
func Local(name string) Identifier {
	return MustNew("", "", "", name)
}

// Qualified returns an identifier with a schema and local name. It panics if name is empty.
func Qualified(schema, name string) Identifier {
	return MustNew("", "", schema, name)
}

// Server returns the server component, or "" when absent.
func (id Identifier) Server() string { return id.server }

// Database returns the database component, or "" when absent.
func (id Identifier) Database() string { return id.database }

// Schema returns the schema component, or "" when absent.
func (id Identifier) Schema() string { return id.schema }

// LocalName returns the object's own name.
func (id Identifier) LocalName() string { return id.name }

// HasSchema reports whether the schema component is present.
func (id Identifier) HasSchema() bool { return id.schema != "" }

// IsZero reports whether id is the zero value, i.e. was never constructed.
func (id Identifier) IsZero() bool { return id.name == "" }

// Validate returns ErrEmptyLocalName for the zero value.
func (id Identifier) Validate() error {
	if id.IsZero() {
		return ErrEmptyLocalName
	}

	return nil
}

// WithSchema returns a copy of id using schema as its schema component.
func (id Identifier) WithSchema(schema string) Identifier {
	id.schema = normalize(schema)
	return id
}

// String renders the present components joined by dots.
func (id Identifier) String() string {
	return strings.Join(id.parts(), ".")
}

// Quoted renders the present components with each part wrapped in backticks, e.g.
// `sales`.`dbo`.`Orders`.
func (id Identifier) Quoted() string {
	parts := id.parts()
	for i, part := range parts {
		parts[i] = "`" + strings.ReplaceAll(part, "`", "``") + "`"
	}

	return strings.Join(parts, ".")
}

func (id Identifier) parts() []string {
	parts := make([]string, 0, 4)
	for _, p := range []string{id.server, id.database, id.schema, id.name} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return parts
}

// Qualify fills in the schema of id from defaultSchema when id has none. Identifiers that
// already carry a schema are returned unchanged, so Qualify is idempotent.
//
// Example:
//
//	a := identifier.Qualify(identifier.Local("Foo"), "dbo")
//	b := identifier.Qualify(identifier.Qualified("dbo", "Foo"), "dbo")
//	identifier.Ordinal.Equal(a, b) // true
func Qualify(id Identifier, defaultSchema string) Identifier {
	if id.HasSchema() {
		return id
	}

	return id.WithSchema(defaultSchema)
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}
