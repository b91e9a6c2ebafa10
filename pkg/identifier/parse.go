package identifier

import (
	"strings"

	"github.com/pkg/errors"
)

// closers maps each supported opening quote to its closing quote.
var closers = map[rune]rune{
	'`': '`',
	'"': '"',
	'[': ']',
}

// Parse splits a dotted name into an Identifier. Parts may be quoted with backticks, double
// quotes or brackets, in which case they can contain dots. Parts are right-aligned:
//
//   - "Users" -> local name only
//   - "dbo.Users" -> schema and local name
//   - "sales.dbo.Users" -> database, schema and local name
//   - "srv.sales.dbo.Users" -> all four components
//   - "`my.schema`.Users" -> schema "my.schema", local name "Users"
//
// Empty parts are treated as absent, so "sales..Users" has no schema.
func Parse(s string) (Identifier, error) {
	parts, err := split(s)
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "failed to parse %q", s)
	}

	if len(parts) > 4 {
		return Identifier{}, errors.Wrapf(ErrInvalidName, "too many parts in %q", s)
	}

	var full [4]string
	copy(full[4-len(parts):], parts)

	id, err := New(full[0], full[1], full[2], full[3])
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "failed to parse %q", s)
	}

	return id, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return id
}

func split(s string) ([]string, error) {
	var (
		parts   []string
		cur     strings.Builder
		closing rune
	)

	runes := []rune(strings.TrimSpace(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if closing != 0 {
			if r != closing {
				cur.WriteRune(r)
				continue
			}

			// A doubled closing quote is an escaped quote character.
			if i+1 < len(runes) && runes[i+1] == closing {
				cur.WriteRune(r)
				i++
				continue
			}

			closing = 0
			continue
		}

		if c, ok := closers[r]; ok {
			closing = c
			continue
		}

		if r == '.' {
			parts = append(parts, cur.String())
			cur.Reset()
			continue
		}

		cur.WriteRune(r)
	}

	if closing != 0 {
		return nil, errors.Wrap(ErrInvalidName, "unterminated quoted part")
	}

	return append(parts, cur.String()), nil
}
