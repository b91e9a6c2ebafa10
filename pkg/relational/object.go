package relational

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
)

// Kind identifies a category of database object.
type Kind int

const (
	KindTable Kind = iota
	KindView
	KindSequence
	KindSynonym
	KindTrigger
)

// Kinds lists every object kind in display order.
var Kinds = []Kind{KindTable, KindView, KindSequence, KindSynonym, KindTrigger}

// ErrUnknownKind is returned by ParseKind.
var ErrUnknownKind = errors.New("unknown object kind")

// String returns the lowercase singular name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindSequence:
		return "sequence"
	case KindSynonym:
		return "synonym"
	case KindTrigger:
		return "trigger"
	default:
		return "unknown"
	}
}

// ParseKind accepts singular or plural kind names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for _, k := range Kinds {
		if k.String() == name {
			return k, nil
		}
	}

	return 0, errors.Wrapf(ErrUnknownKind, "%q", s)
}

type (
	// Object is implemented by every database object in the model.
	Object interface {
		ObjectName() identifier.Identifier
		Kind() Kind
	}

	// Column describes a table or view column.
	Column struct {
		Name     string
		Type     string
		Nullable bool
		Default  *string
		Comment  string
	}

	// Table is a base table.
	Table struct {
		Name       identifier.Identifier
		Columns    []Column
		PrimaryKey []string
		Engine     string
		Comment    string
	}

	// View is a regular or materialized view.
	View struct {
		Name         identifier.Identifier
		Columns      []Column
		Definition   string
		Materialized bool
	}

	// Sequence is a number generator.
	Sequence struct {
		Name      identifier.Identifier
		DataType  string
		Start     int64
		Increment int64
		Min       *int64
		Max       *int64
		Cycle     bool
	}

	// Synonym is an alias for another object.
	Synonym struct {
		Name   identifier.Identifier
		Target identifier.Identifier
	}

	// Trigger runs Definition when Events occur on Table.
	Trigger struct {
		Name       identifier.Identifier
		Table      identifier.Identifier
		Timing     string
		Events     []string
		Definition string
	}
)

func (t *Table) ObjectName() identifier.Identifier    { return t.Name }
func (t *Table) Kind() Kind                           { return KindTable }
func (v *View) ObjectName() identifier.Identifier     { return v.Name }
func (v *View) Kind() Kind                            { return KindView }
func (s *Sequence) ObjectName() identifier.Identifier { return s.Name }
func (s *Sequence) Kind() Kind                        { return KindSequence }
func (s *Synonym) ObjectName() identifier.Identifier  { return s.Name }
func (s *Synonym) Kind() Kind                         { return KindSynonym }
func (t *Trigger) ObjectName() identifier.Identifier  { return t.Name }
func (t *Trigger) Kind() Kind                         { return KindTrigger }

// Column returns the column called name, compared case-sensitively.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}

	return Column{}, false
}
