package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planmesh/core"
)

// storeContract exercises the core.Store behavior shared by every
// implementation.
func storeContract(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get absent", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "plans", "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "plans", "p1", []byte(`{"id":"p1"}`)))

		value, ok, err := s.Get(ctx, "plans", "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(`{"id":"p1"}`), value)
	})

	t.Run("set replaces", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "plans", "p1", []byte(`{"id":"p1","v":2}`)))

		value, ok, err := s.Get(ctx, "plans", "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(`{"id":"p1","v":2}`), value)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "states", "p1", []byte(`state`)))

		value, ok, err := s.Get(ctx, "plans", "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte(`{"id":"p1","v":2}`), value)
	})

	t.Run("list all ordered by key", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "escalations", "b", []byte(`2`)))
		require.NoError(t, s.Set(ctx, "escalations", "a", []byte(`1`)))
		require.NoError(t, s.Set(ctx, "escalations", "c", []byte(`3`)))

		values, err := s.ListAll(ctx, "escalations")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte(`1`), []byte(`2`), []byte(`3`)}, values)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "plans", "p1"))
		_, ok, err := s.Get(ctx, "plans", "p1")
		require.NoError(t, err)
		assert.False(t, ok)

		// Deleting an absent key is not an error.
		require.NoError(t, s.Delete(ctx, "plans", "p1"))
	})
}

func TestInMemoryStore(t *testing.T) {
	storeContract(t, NewInMemoryStore())
}

func TestInMemoryStoreCopiesValues(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	original := []byte(`original`)
	require.NoError(t, s.Set(ctx, "plans", "p1", original))
	original[0] = 'X'

	value, ok, err := s.Get(ctx, "plans", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`original`), value)

	// Mutating the read copy does not leak back either.
	value[0] = 'Y'
	again, _, err := s.Get(ctx, "plans", "p1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`original`), again)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "planmesh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storeContract(t, s)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planmesh.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "plans", "p1", []byte(`persisted`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	value, ok, err := s.Get(ctx, "plans", "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`persisted`), value)
}
