package identifier

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparer names accepted by ComparerByName.
const (
	NameOrdinal           = "ordinal"
	NameOrdinalIgnoreCase = "ordinal-ignore-case"
	NameCulture           = "culture"
	NameCultureIgnoreCase = "culture-ignore-case"
)

// ErrUnknownComparer is returned by ComparerByName for unsupported names.
var ErrUnknownComparer = errors.New("unknown comparer")

// Shared comparers. They are immutable and safe for concurrent use.
var (
	Ordinal           Comparer = newStringComparer(NameOrdinal, ordinalStrings{})
	OrdinalIgnoreCase Comparer = newStringComparer(NameOrdinalIgnoreCase, foldStrings{})
	Culture           Comparer = NewCultureComparer(language.Und, false)
	CultureIgnoreCase Comparer = NewCultureComparer(language.Und, true)
)

type (
	// Comparer decides equality, ordering and hashing of identifiers.
	//
	// Equal, Compare, Hash and Key are mutually consistent: Equal(a, b) holds exactly when
	// Compare(a, b) == 0, which is exactly when Key(a) == Key(b), and equal identifiers have
	// equal hashes. Two identifiers whose local names differ under the comparer are never equal.
	Comparer interface {
		// Name returns the configuration name of the comparer.
		Name() string

		// Equal reports whether a and b name the same object.
		Equal(a, b Identifier) bool

		// Compare orders a and b lexicographically over server, database, schema and local
		// name. Absent components sort before present ones.
		Compare(a, b Identifier) int

		// Hash returns a hash consistent with Equal.
		Hash(id Identifier) uint64

		// Key returns a comparable canonical form of id, suitable as a map key.
		Key(id Identifier) Key
	}

	// Key is the canonical form of an Identifier under a particular Comparer. Keys produced
	// by different comparers must not be mixed in the same map.
	Key struct {
		Server   string
		Database string
		Schema   string
		Name     string
	}

	// strategy compares and canonicalizes single identifier components.
	strategy interface {
		compare(a, b string) int
		canonical(s string) string
	}

	stringComparer struct {
		name string
		s    strategy
	}
)

// ComparerByName returns the shared comparer registered under name.
func ComparerByName(name string) (Comparer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameOrdinal, "":
		return Ordinal, nil
	case NameOrdinalIgnoreCase:
		return OrdinalIgnoreCase, nil
	case NameCulture:
		return Culture, nil
	case NameCultureIgnoreCase:
		return CultureIgnoreCase, nil
	}

	return nil, errors.Wrapf(ErrUnknownComparer, "%q", name)
}

// NewCultureComparer returns a comparer that orders names with the collation rules of tag.
func NewCultureComparer(tag language.Tag, ignoreCase bool) Comparer {
	name := NameCulture
	opts := []collate.Option{}
	if ignoreCase {
		name = NameCultureIgnoreCase
		opts = append(opts, collate.IgnoreCase)
	}

	c := &collateStrings{}
	c.pool.New = func() any {
		return &collator{c: collate.New(tag, opts...)}
	}

	return newStringComparer(name, c)
}

// Sort orders ids in place using c.
func Sort(ids []Identifier, c Comparer) {
	slices.SortStableFunc(ids, c.Compare)
}

func newStringComparer(name string, s strategy) *stringComparer {
	return &stringComparer{name: name, s: s}
}

func (c *stringComparer) Name() string { return c.name }

func (c *stringComparer) Equal(a, b Identifier) bool {
	return c.Key(a) == c.Key(b)
}

func (c *stringComparer) Compare(a, b Identifier) int {
	if r := c.s.compare(a.server, b.server); r != 0 {
		return r
	}
	if r := c.s.compare(a.database, b.database); r != 0 {
		return r
	}
	if r := c.s.compare(a.schema, b.schema); r != 0 {
		return r
	}
	return c.s.compare(a.name, b.name)
}

func (c *stringComparer) Hash(id Identifier) uint64 {
	k := c.Key(id)

	var h uint64
	for _, part := range []string{k.Server, k.Database, k.Schema, k.Name} {
		h = h*31 + hashPart(part)
	}

	return h
}

func (c *stringComparer) Key(id Identifier) Key {
	return Key{
		Server:   c.s.canonical(id.server),
		Database: c.s.canonical(id.database),
		Schema:   c.s.canonical(id.schema),
		Name:     c.s.canonical(id.name),
	}
}

func hashPart(s string) uint64 {
	if s == "" {
		return 0
	}

	return xxhash.Sum64String(s)
}

type ordinalStrings struct{}

func (ordinalStrings) compare(a, b string) int   { return cmp.Compare(a, b) }
func (ordinalStrings) canonical(s string) string { return s }

type foldStrings struct{}

func (f foldStrings) compare(a, b string) int {
	return cmp.Compare(f.canonical(a), f.canonical(b))
}

// canonical applies Unicode case folding. A Caser is stateful, so each call gets its own.
func (foldStrings) canonical(s string) string {
	if s == "" {
		return ""
	}

	return cases.Fold().String(s)
}

// collateStrings compares with a collator. Collators are not safe for concurrent use, so
// they are pooled.
type collateStrings struct {
	pool sync.Pool
}

type collator struct {
	c   *collate.Collator
	buf collate.Buffer
}

// compare orders by sort key so that ordering and Key equality never disagree.
func (s *collateStrings) compare(a, b string) int {
	if a == "" || b == "" {
		return cmp.Compare(a, b)
	}

	return cmp.Compare(s.canonical(a), s.canonical(b))
}

func (s *collateStrings) canonical(str string) string {
	if str == "" {
		return ""
	}

	col := s.pool.Get().(*collator)
	defer s.pool.Put(col)

	col.buf.Reset()
	return string(col.c.KeyFromString(&col.buf, str))
}
