package source

import (
	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/relational"
)

// Static is an in-memory relational.Source. The stores are exported so callers can
// populate them directly and inspect call counts.
type Static struct {
	identity relational.Identity

	TableStore    *Store[*relational.Table]
	ViewStore     *Store[*relational.View]
	SequenceStore *Store[*relational.Sequence]
	SynonymStore  *Store[*relational.Synonym]
	TriggerStore  *Store[*relational.Trigger]
}

// New returns an empty Static source described by identity.
//
// Example:
//
//	src := source.New(relational.Identity{Dialect: "postgres", DefaultSchema: "public", Name: "app"})
//	src.TableStore.Put(&relational.Table{Name: identifier.Local("users")})
//
//	db, err := relational.NewCached(src)
func New(identity relational.Identity) *Static {
	cmp, schema := identity.Comparer, identity.DefaultSchema

	return &Static{
		identity:      identity,
		TableStore:    NewStore[*relational.Table](cmp, schema),
		ViewStore:     NewStore[*relational.View](cmp, schema),
		SequenceStore: NewStore[*relational.Sequence](cmp, schema),
		SynonymStore:  NewStore[*relational.Synonym](cmp, schema),
		TriggerStore:  NewStore[*relational.Trigger](cmp, schema),
	}
}

func (s *Static) Identity() relational.Identity                       { return s.identity }
func (s *Static) Tables() relational.Objects[*relational.Table]       { return s.TableStore }
func (s *Static) Views() relational.Objects[*relational.View]         { return s.ViewStore }
func (s *Static) Sequences() relational.Objects[*relational.Sequence] { return s.SequenceStore }
func (s *Static) Synonyms() relational.Objects[*relational.Synonym]   { return s.SynonymStore }
func (s *Static) Triggers() relational.Objects[*relational.Trigger]   { return s.TriggerStore }

// Add stores objects in the store matching their kind.
func (s *Static) Add(objs ...relational.Object) error {
	for _, obj := range objs {
		switch o := obj.(type) {
		case *relational.Table:
			s.TableStore.Put(o)
		case *relational.View:
			s.ViewStore.Put(o)
		case *relational.Sequence:
			s.SequenceStore.Put(o)
		case *relational.Synonym:
			s.SynonymStore.Put(o)
		case *relational.Trigger:
			s.TriggerStore.Put(o)
		default:
			return errors.Errorf("unsupported object type %T", obj)
		}
	}

	return nil
}

// Len returns the number of objects across every kind.
func (s *Static) Len() int {
	return s.TableStore.Len() +
		s.ViewStore.Len() +
		s.SequenceStore.Len() +
		s.SynonymStore.Len() +
		s.TriggerStore.Len()
}
