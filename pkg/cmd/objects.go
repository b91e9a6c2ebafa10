package cmd

import (
	"context"
	"slices"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/cache"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/urfave/cli/v3"
)

// ErrNotFound is returned by show when no object has the requested name.
var ErrNotFound = errors.New("object not found")

// collection erases the object type of a relational.Collection so commands can treat every
// kind alike.
type collection interface {
	all(ctx context.Context) ([]relational.Object, error)
	getAsync(ctx context.Context, name identifier.Identifier) (func(context.Context) (relational.Object, bool, error), error)
	existsAsync(ctx context.Context, name identifier.Identifier) (*cache.Future[bool], error)
}

type typed[T relational.Object] struct {
	c relational.Collection[T]
}

func collectionOf(db relational.Database, k relational.Kind) collection {
	switch k {
	case relational.KindTable:
		return typed[*relational.Table]{db.Tables()}
	case relational.KindView:
		return typed[*relational.View]{db.Views()}
	case relational.KindSequence:
		return typed[*relational.Sequence]{db.Sequences()}
	case relational.KindSynonym:
		return typed[*relational.Synonym]{db.Synonyms()}
	default:
		return typed[*relational.Trigger]{db.Triggers()}
	}
}

func (t typed[T]) all(ctx context.Context) ([]relational.Object, error) {
	var objs []relational.Object
	for obj, err := range t.c.All(ctx) {
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}

	return objs, nil
}

func (t typed[T]) getAsync(ctx context.Context, name identifier.Identifier) (func(context.Context) (relational.Object, bool, error), error) {
	f, err := t.c.GetAsync(ctx, name)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) (relational.Object, bool, error) {
		obj, ok, err := f.Wait(ctx)
		if err != nil || !ok {
			return nil, false, err
		}

		return obj, true, nil
	}, nil
}

func (t typed[T]) existsAsync(ctx context.Context, name identifier.Identifier) (*cache.Future[bool], error) {
	return t.c.ExistsAsync(ctx, name)
}

// listObjects enumerates kinds in order. Objects of one kind are sorted by name.
func listObjects(ctx context.Context, db relational.Database, kinds []relational.Kind) ([]relational.Object, error) {
	cmp := db.Identity().Comparer

	var objs []relational.Object
	for _, k := range kinds {
		found, err := collectionOf(db, k).all(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %ss", k)
		}

		slices.SortStableFunc(found, func(a, b relational.Object) int {
			return cmp.Compare(a.ObjectName(), b.ObjectName())
		})
		objs = append(objs, found...)
	}

	return objs, nil
}

// findObject looks name up in every kind at once and returns the match of the earliest
// kind.
func findObject(ctx context.Context, db relational.Database, kinds []relational.Kind, name identifier.Identifier) (relational.Object, error) {
	waits := make([]func(context.Context) (relational.Object, bool, error), len(kinds))
	for i, k := range kinds {
		wait, err := collectionOf(db, k).getAsync(ctx, name)
		if err != nil {
			return nil, err
		}
		waits[i] = wait
	}

	for i, wait := range waits {
		obj, ok, err := wait(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get %s %s", kinds[i], name)
		}

		if ok {
			return obj, nil
		}
	}

	return nil, errors.Wrapf(ErrNotFound, "%s", identifier.Qualify(name, db.Identity().DefaultSchema))
}

// objectExists reports whether any of kinds has an object called name.
func objectExists(ctx context.Context, db relational.Database, kinds []relational.Kind, name identifier.Identifier) (bool, error) {
	futures := make([]*cache.Future[bool], len(kinds))
	for i, k := range kinds {
		f, err := collectionOf(db, k).existsAsync(ctx, name)
		if err != nil {
			return false, err
		}
		futures[i] = f
	}

	for i, f := range futures {
		ok, _, err := f.Wait(ctx)
		if err != nil {
			return false, errors.Wrapf(err, "failed to check %s %s", kinds[i], name)
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

func kindFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "restrict to one kind: table, view, sequence, synonym or trigger",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
}

// kindsOf returns the kind selected by --kind, or every kind.
func kindsOf(cmd *cli.Command) ([]relational.Kind, error) {
	s := cmd.String("kind")
	if s == "" {
		return relational.Kinds, nil
	}

	k, err := relational.ParseKind(s)
	if err != nil {
		return nil, err
	}

	return []relational.Kind{k}, nil
}

func nameArg(cmd *cli.Command) (identifier.Identifier, error) {
	if cmd.Args().Len() != 1 {
		return identifier.Identifier{}, errors.New("exactly one object name is required")
	}

	return identifier.Parse(cmd.Args().First())
}
