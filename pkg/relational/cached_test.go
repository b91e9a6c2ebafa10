package relational_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/schemalens/pkg/identifier"
	. "github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/pseudomuto/schemalens/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newSource(t *testing.T, name string, objs ...Object) *source.Static {
	t.Helper()

	src := source.New(Identity{Dialect: "test", DefaultSchema: "dbo", Name: name})
	require.NoError(t, src.Add(objs...))
	return src
}

func table(name, comment string) *Table {
	return &Table{Name: identifier.MustParse(name), Comment: comment}
}

func newCached(t *testing.T, src Source) *Cached {
	t.Helper()

	db, err := NewCached(src, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return db
}

func TestNewCached(t *testing.T) {
	_, err := NewCached(nil)
	require.ErrorIs(t, err, ErrNilSource)

	src := newSource(t, "app")
	db := newCached(t, src)
	require.Equal(t, "app", db.Identity().Name)
	require.Equal(t, "dbo", db.Identity().DefaultSchema)
	require.Equal(t, identifier.Ordinal, db.Identity().Comparer)
	require.Same(t, src, db.Source())

	db, err = NewCached(src, WithComparer(identifier.OrdinalIgnoreCase))
	require.NoError(t, err)
	require.Equal(t, identifier.OrdinalIgnoreCase, db.Identity().Comparer)
}

func TestCached_NegativeCaching(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)

	for range 2 {
		ok, err := db.Tables().Exists(ctx, identifier.Local("Ghost"))
		require.NoError(t, err)
		require.False(t, ok)
	}
	require.Equal(t, 1, src.TableStore.Calls().Exists)

	// Absence is remembered even after the source changes.
	src.TableStore.Put(table("Ghost", ""))

	ok, err := db.Tables().Exists(ctx, identifier.Local("Ghost"))
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, src.TableStore.Calls().Exists)
}

func TestCached_AbsenceSurvivesGet(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)
	ghost := identifier.Local("Ghost")

	ok, err := db.Tables().Exists(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	src.TableStore.Put(table("Ghost", ""))

	_, ok, err = db.Tables().Get(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	fut, err := db.Tables().GetAsync(ctx, identifier.Qualified("dbo", "Ghost"))
	require.NoError(t, err)
	_, ok, err = fut.Wait(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = db.Tables().Exists(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, source.Calls{Exists: 1}, src.TableStore.Calls())
}

func TestCached_AbsenceSurvivesAll(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)
	ghost := identifier.Local("Ghost")

	ok, err := db.Tables().Exists(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	late := table("Ghost", "")
	src.TableStore.Put(late)

	// the enumerated object is still yielded
	all, err := Collect(db.Tables().All(ctx))
	require.NoError(t, err)
	require.Equal(t, []*Table{late}, all)

	ok, err = db.Tables().Exists(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	fut, err := db.Tables().ExistsAsync(ctx, ghost)
	require.NoError(t, err)
	ok, _, err = fut.Wait(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = db.Tables().Get(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, source.Calls{Exists: 1, All: 1}, src.TableStore.Calls())
}

func TestCached_AbsentGetKeepsExistsAbsent(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)
	ghost := identifier.Local("Ghost")

	_, ok, err := db.Tables().Get(ctx, ghost)
	require.NoError(t, err)
	require.False(t, ok)

	src.TableStore.Put(table("Ghost", ""))

	for range 2 {
		ok, err = db.Tables().Exists(ctx, ghost)
		require.NoError(t, err)
		require.False(t, ok)
	}

	require.Equal(t, source.Calls{Get: 1}, src.TableStore.Calls())
}

func TestCached_AllReportsUnnamedObjects(t *testing.T) {
	ctx := context.Background()
	users := table("dbo.Users", "")
	src := newSource(t, "app", users)
	src.TableStore.Put(&Table{Comment: "unnamed"})
	db := newCached(t, src)

	all, err := Collect(db.Tables().All(ctx))
	require.ErrorIs(t, err, identifier.ErrEmptyLocalName)
	require.ErrorContains(t, err, "source enumerated an invalid table name")
	require.Equal(t, []*Table{users}, all)
}

func TestCached_QualifiesNames(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app", table("dbo.Users", ""))
	db := newCached(t, src)

	tests := []struct {
		name string
		id   identifier.Identifier
	}{
		{name: "local", id: identifier.Local("Users")},
		{name: "qualified", id: identifier.Qualified("dbo", "Users")},
		{name: "parsed", id: identifier.MustParse("[dbo].[Users]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, ok, err := db.Tables().Get(ctx, tt.id)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "dbo.Users", tbl.Name.String())
		})
	}

	require.Equal(t, 1, src.TableStore.Calls().Get)
}

func TestCached_ExistsUsesResolvedObjects(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app", table("Users", ""))
	db := newCached(t, src)

	_, ok, err := db.Tables().Get(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = db.Tables().Get(ctx, identifier.Local("Orders"))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = db.Tables().Exists(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.Tables().Exists(ctx, identifier.Local("Orders"))
	require.NoError(t, err)
	require.False(t, ok)

	fut, err := db.Tables().ExistsAsync(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	ok, _, err = fut.Wait(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.Zero(t, src.TableStore.Calls().Exists)
}

func TestCached_IdentitySharing(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app", table("Users", "v1"), table("Orders", ""))
	db := newCached(t, src)

	first, err := Collect(db.Tables().All(ctx))
	require.NoError(t, err)
	require.Len(t, first, 2)

	users, ok, err := db.Tables().Get(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Same(t, first[0], users)
	require.Zero(t, src.TableStore.Calls().Get)

	// A later enumeration re-queries the source but yields the memoized instances.
	src.TableStore.Put(table("Users", "v2"))

	second, err := Collect(db.Tables().All(ctx))
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Same(t, users, second[0])
	require.Equal(t, "v1", second[0].Comment)
	require.Equal(t, 2, src.TableStore.Calls().All)
}

func TestCached_AllMarksExistence(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app", table("Users", ""))
	db := newCached(t, src)

	_, err := Collect(db.Tables().All(ctx))
	require.NoError(t, err)

	ok, err := db.Tables().Exists(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, src.TableStore.Calls().Exists)
}

func TestCached_AllKeepsNegativeEntries(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)

	_, ok, err := db.Tables().Get(ctx, identifier.Local("Late"))
	require.NoError(t, err)
	require.False(t, ok)

	late := table("Late", "")
	src.TableStore.Put(late)

	all, err := Collect(db.Tables().All(ctx))
	require.NoError(t, err)
	require.Equal(t, []*Table{late}, all)

	_, ok, err = db.Tables().Get(ctx, identifier.Local("Late"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCached_ErrorsAreNotMemoized(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	src := newSource(t, "app", table("Users", ""))
	src.TableStore.Fail(boom)
	db := newCached(t, src)

	_, _, err := db.Tables().Get(ctx, identifier.Local("Users"))
	require.ErrorIs(t, err, boom)

	_, err = db.Tables().Exists(ctx, identifier.Local("Users"))
	require.ErrorIs(t, err, boom)

	src.TableStore.Fail(nil)

	_, ok, err := db.Tables().Get(ctx, identifier.Local("Users"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, src.TableStore.Calls().Get)
}

func TestCached_PartialEnumeration(t *testing.T) {
	boom := errors.New("connection reset")
	src := newSource(t, "app", table("a", ""), table("b", ""), table("c", ""))
	src.TableStore.FailEnumerationAfter(2, boom)
	db := newCached(t, src)

	var names []string
	var failure error
	for tbl, err := range db.Tables().All(context.Background()) {
		if err != nil {
			failure = err
			break
		}
		names = append(names, tbl.Name.LocalName())
	}

	require.ErrorIs(t, failure, boom)
	require.Equal(t, []string{"a", "b"}, names)
}

func TestCached_AllStopsEarly(t *testing.T) {
	src := newSource(t, "app", table("a", ""), table("b", ""))
	db := newCached(t, src)

	for range db.Tables().All(context.Background()) {
		break
	}

	require.Equal(t, 1, src.TableStore.Calls().All)
}

func TestCached_ValidatesBeforeFetching(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app")
	db := newCached(t, src)

	var empty identifier.Identifier

	_, err := db.Tables().Exists(ctx, empty)
	require.ErrorIs(t, err, identifier.ErrEmptyLocalName)

	_, err = db.Tables().ExistsAsync(ctx, empty)
	require.ErrorIs(t, err, identifier.ErrEmptyLocalName)

	_, _, err = db.Tables().Get(ctx, empty)
	require.ErrorIs(t, err, identifier.ErrEmptyLocalName)

	_, err = db.Tables().GetAsync(ctx, empty)
	require.ErrorIs(t, err, identifier.ErrEmptyLocalName)

	require.Equal(t, source.Calls{}, src.TableStore.Calls())
}

func TestCached_GetAsync(t *testing.T) {
	ctx := context.Background()
	users := table("Users", "")
	src := newSource(t, "app", users)
	db := newCached(t, src)

	fut, err := db.Tables().GetAsync(ctx, identifier.Local("Users"))
	require.NoError(t, err)

	<-fut.Done()
	got, ok, err := fut.Result()
	require.NoError(t, err)
	require.True(t, ok)
	require.Same(t, users, got)
}

func TestCached_CollapsesConcurrentLookups(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app", table("Users", ""))
	db := newCached(t, src)
	release := src.TableStore.Hold()

	var wg sync.WaitGroup
	results := make([]*Table, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tbl, ok, err := db.Tables().Get(ctx, identifier.Local("Users"))
			assert.NoError(t, err)
			assert.True(t, ok)
			results[i] = tbl
		}()
	}

	release()
	wg.Wait()

	require.Equal(t, 1, src.TableStore.Calls().Get)
	for _, tbl := range results {
		require.Same(t, results[0], tbl)
	}
}

func TestCached_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	src := newSource(t, "app",
		table("Users", ""),
		&View{Name: identifier.Local("Users")},
		&Sequence{Name: identifier.Local("user_ids"), Start: 1, Increment: 1},
		&Trigger{Name: identifier.Local("audit_users"), Table: identifier.Local("Users")},
	)
	db := newCached(t, src)

	tests := []struct {
		name   string
		exists func() (bool, error)
		want   bool
	}{
		{name: "table", exists: func() (bool, error) { return db.Tables().Exists(ctx, identifier.Local("Users")) }, want: true},
		{name: "view", exists: func() (bool, error) { return db.Views().Exists(ctx, identifier.Local("Users")) }, want: true},
		{name: "sequence", exists: func() (bool, error) { return db.Sequences().Exists(ctx, identifier.Local("user_ids")) }, want: true},
		{name: "synonym", exists: func() (bool, error) { return db.Synonyms().Exists(ctx, identifier.Local("Users")) }, want: false},
		{name: "trigger", exists: func() (bool, error) { return db.Triggers().Exists(ctx, identifier.Local("audit_users")) }, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.exists()
			require.NoError(t, err)
			require.Equal(t, tt.want, ok)
		})
	}
}

func TestCached_UnsupportedKind(t *testing.T) {
	ctx := context.Background()
	db := newCached(t, unsupportedSynonyms{newSource(t, "app")})

	ok, err := db.Synonyms().Exists(ctx, identifier.Local("anything"))
	require.NoError(t, err)
	require.False(t, ok)

	all, err := Collect(db.Synonyms().All(ctx))
	require.NoError(t, err)
	require.Empty(t, all)
}

type unsupportedSynonyms struct {
	*source.Static
}

func (unsupportedSynonyms) Synonyms() Objects[*Synonym] { return Unsupported[*Synonym]() }
