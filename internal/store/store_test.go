package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Counter int
	Names   []string
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen(t *testing.T) {
	t.Run("creates the database file", func(t *testing.T) {
		_, path := openTemp(t)

		_, err := os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("is idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		for range 3 {
			s, err := Open(path)
			require.NoError(t, err)
			require.NoError(t, s.Close())
		}
	})
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("missing slot", func(t *testing.T) {
		s, _ := openTemp(t)

		var r record
		assert.ErrorIs(t, s.Get(ctx, "todo", &r), ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		s, _ := openTemp(t)

		require.NoError(t, s.Set(ctx, "todo", record{Counter: 2, Names: []string{"a", "b"}}))

		var r record
		require.NoError(t, s.Get(ctx, "todo", &r))
		assert.Equal(t, record{Counter: 2, Names: []string{"a", "b"}}, r)
	})

	t.Run("last write wins", func(t *testing.T) {
		s, _ := openTemp(t)

		require.NoError(t, s.Set(ctx, "todo", record{Counter: 1}))
		require.NoError(t, s.Set(ctx, "todo", record{Counter: 5}))

		var r record
		require.NoError(t, s.Get(ctx, "todo", &r))
		assert.Equal(t, 5, r.Counter)
	})

	t.Run("survives reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")

		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, "todo", record{Counter: 7}))
		require.NoError(t, s.Close())

		s, err = Open(path)
		require.NoError(t, err)
		defer s.Close()

		var r record
		require.NoError(t, s.Get(ctx, "todo", &r))
		assert.Equal(t, 7, r.Counter)
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := openTemp(t)

		require.NoError(t, s.Set(ctx, "todo", record{Counter: 1}))
		require.NoError(t, s.Delete(ctx, "todo"))
		require.NoError(t, s.Delete(ctx, "todo"))

		var r record
		assert.ErrorIs(t, s.Get(ctx, "todo", &r), ErrNotFound)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	def := record{Counter: 0, Names: []string{"default"}}

	t.Run("writes the default when empty", func(t *testing.T) {
		s, _ := openTemp(t)

		r, err := Load(ctx, s, "todo", def, false)
		require.NoError(t, err)
		assert.Equal(t, def, r)

		var stored record
		require.NoError(t, s.Get(ctx, "todo", &stored))
		assert.Equal(t, def, stored)
	})

	t.Run("returns the stored record", func(t *testing.T) {
		s, _ := openTemp(t)
		require.NoError(t, s.Set(ctx, "todo", record{Counter: 3}))

		r, err := Load(ctx, s, "todo", def, false)
		require.NoError(t, err)
		assert.Equal(t, 3, r.Counter)
	})

	t.Run("reset overwrites the stored record", func(t *testing.T) {
		s, _ := openTemp(t)
		require.NoError(t, s.Set(ctx, "todo", record{Counter: 3}))

		r, err := Load(ctx, s, "todo", def, true)
		require.NoError(t, err)
		assert.Equal(t, def, r)

		var stored record
		require.NoError(t, s.Get(ctx, "todo", &stored))
		assert.Equal(t, def, stored)
	})
}
