package relational

import (
	"context"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
)

// maxSynonymDepth bounds synonym chains that are not cycles but are implausibly long.
const maxSynonymDepth = 32

// ErrSynonymCycle is returned when a synonym chain leads back to itself.
var ErrSynonymCycle = errors.New("synonym cycle")

// ResolveSynonym follows synonyms starting at name until it reaches a name that is not a
// synonym in db, and returns that name. A name that is not a synonym resolves to itself,
// qualified with db's default schema.
//
// Example:
//
//	// CREATE SYNONYM app.people FOR hr.employees
//	target, err := relational.ResolveSynonym(ctx, db, identifier.MustParse("app.people"))
//	// target == hr.employees
func ResolveSynonym(ctx context.Context, db Database, name identifier.Identifier) (identifier.Identifier, error) {
	if err := name.Validate(); err != nil {
		return identifier.Identifier{}, err
	}

	identity := db.Identity()
	cmp := identity.comparer()
	seen := make(map[identifier.Key]struct{})

	current := identifier.Qualify(name, identity.DefaultSchema)
	for range maxSynonymDepth {
		k := cmp.Key(current)
		if _, ok := seen[k]; ok {
			return identifier.Identifier{}, errors.Wrapf(ErrSynonymCycle, "at %s", current)
		}
		seen[k] = struct{}{}

		syn, ok, err := db.Synonyms().Get(ctx, current)
		if err != nil {
			return identifier.Identifier{}, errors.Wrapf(err, "failed to resolve synonym %s", current)
		}

		if !ok {
			return current, nil
		}

		current = identifier.Qualify(syn.Target, identity.DefaultSchema)
	}

	return identifier.Identifier{}, errors.Errorf("synonym chain from %s exceeds %d links", name, maxSynonymDepth)
}
