package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clientdesk/portal/internal/core/ports"
)

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStores_Contract(t *testing.T) {
	stores := map[string]ports.KVStore{
		"memory": NewMemoryStore(),
		"sqlite": openSQLite(t),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			v, err := s.Get(ctx, "absent")
			require.NoError(t, err)
			assert.Nil(t, v)

			require.NoError(t, s.Set(ctx, "k", []byte(`"old"`)))
			require.NoError(t, s.Set(ctx, "k", []byte(`"new"`)))
			v, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, []byte(`"new"`), v)

			require.NoError(t, s.Remove(ctx, "k"))
			require.NoError(t, s.Remove(ctx, "k"))
			v, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, v)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")

	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	v, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), v)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "token", []byte("abc")))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), v)
}

func TestSQLiteStore_ErrorsWrapped(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	ctx := context.Background()

	_, err = s.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get kv[k]")

	err = s.Set(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set kv[k]")

	err = s.Remove(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete kv[k]")
}
