package source_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pseudomuto/schemalens/pkg/identifier"
	"github.com/pseudomuto/schemalens/pkg/relational"
	"github.com/pseudomuto/schemalens/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStatic() *source.Static {
	return source.New(relational.Identity{
		Dialect:       "test",
		DefaultSchema: "dbo",
		Name:          "fixture",
		Comparer:      identifier.OrdinalIgnoreCase,
	})
}

func TestStatic_Add(t *testing.T) {
	src := newStatic()

	require.NoError(t, src.Add(
		&relational.Table{Name: identifier.Local("users")},
		&relational.View{Name: identifier.Local("active_users")},
		&relational.Sequence{Name: identifier.Local("user_ids")},
		&relational.Synonym{Name: identifier.Local("people"), Target: identifier.Local("users")},
		&relational.Trigger{Name: identifier.Local("audit"), Table: identifier.Local("users")},
	))

	require.Equal(t, 5, src.Len())
	require.Equal(t, 1, src.TableStore.Len())
	require.Equal(t, 1, src.TriggerStore.Len())
	require.Equal(t, "fixture", src.Identity().Name)
}

func TestStore_Lookup(t *testing.T) {
	ctx := context.Background()
	src := newStatic()
	users := &relational.Table{Name: identifier.Local("Users")}
	src.TableStore.Put(users)

	tests := []struct {
		name   string
		id     identifier.Identifier
		exists bool
	}{
		{name: "qualified", id: identifier.Qualified("dbo", "Users"), exists: true},
		{name: "case insensitive", id: identifier.Qualified("DBO", "USERS"), exists: true},
		{name: "other schema", id: identifier.Qualified("sales", "Users"), exists: false},
		{name: "missing", id: identifier.Qualified("dbo", "Orders"), exists: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := src.Tables().ExistsExact(ctx, tt.id)
			require.NoError(t, err)
			require.Equal(t, tt.exists, ok)

			got, ok, err := src.Tables().GetExact(ctx, tt.id)
			require.NoError(t, err)
			require.Equal(t, tt.exists, ok)
			if tt.exists {
				require.Same(t, users, got)
			}
		})
	}

	calls := src.TableStore.Calls()
	require.Equal(t, len(tests), calls.Exists)
	require.Equal(t, len(tests), calls.Get)
	require.Zero(t, calls.All)
}

func TestStore_PutReplacesInPlace(t *testing.T) {
	src := newStatic()
	src.TableStore.Put(
		&relational.Table{Name: identifier.Local("a")},
		&relational.Table{Name: identifier.Local("b")},
	)
	src.TableStore.Put(&relational.Table{Name: identifier.Local("A"), Comment: "v2"})

	tables, err := relational.Collect(src.Tables().All(context.Background()))
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.Equal(t, "v2", tables[0].Comment)
	require.Equal(t, "b", tables[1].Name.LocalName())
}

func TestStore_Remove(t *testing.T) {
	src := newStatic()
	src.TableStore.Put(&relational.Table{Name: identifier.Local("a")})

	require.True(t, src.TableStore.Remove(identifier.Qualified("dbo", "a")))
	require.False(t, src.TableStore.Remove(identifier.Local("a")))
	require.Zero(t, src.TableStore.Len())
}

func TestStore_Fail(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	src := newStatic()
	src.TableStore.Put(&relational.Table{Name: identifier.Local("a")})
	src.TableStore.Fail(boom)

	_, err := src.Tables().ExistsExact(ctx, identifier.Local("a"))
	require.ErrorIs(t, err, boom)

	_, _, err = src.Tables().GetExact(ctx, identifier.Local("a"))
	require.ErrorIs(t, err, boom)

	_, err = relational.Collect(src.Tables().All(ctx))
	require.ErrorIs(t, err, boom)

	src.TableStore.Fail(nil)
	ok, err := src.Tables().ExistsExact(ctx, identifier.Local("a"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_FailEnumerationAfter(t *testing.T) {
	boom := errors.New("connection reset")
	src := newStatic()
	src.TableStore.Put(
		&relational.Table{Name: identifier.Local("a")},
		&relational.Table{Name: identifier.Local("b")},
		&relational.Table{Name: identifier.Local("c")},
	)
	src.TableStore.FailEnumerationAfter(2, boom)

	tables, err := relational.Collect(src.Tables().All(context.Background()))
	require.ErrorIs(t, err, boom)
	require.Len(t, tables, 2)
}

func TestStore_Hold(t *testing.T) {
	src := newStatic()
	src.TableStore.Put(&relational.Table{Name: identifier.Local("a")})
	release := src.TableStore.Hold()

	done := make(chan bool)
	go func() {
		ok, err := src.Tables().ExistsExact(context.Background(), identifier.Local("a"))
		assert.NoError(t, err)
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("ExistsExact returned while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release()
	require.True(t, <-done)
}

func TestStore_HoldHonorsContext(t *testing.T) {
	src := newStatic()
	defer src.TableStore.Hold()()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := src.Tables().GetExact(ctx, identifier.Local("a"))
	require.ErrorIs(t, err, context.Canceled)
}
