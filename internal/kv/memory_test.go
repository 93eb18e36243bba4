package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, "a", "1"))
	value, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	require.NoError(t, store.Set(ctx, "a", "2"))
	value, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", value)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting absent keys is a no-op.
	assert.NoError(t, store.Delete(ctx, "a", "never-there"))
}

func TestMemoryStore_Keys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "tenant:acme", "{}"))
	require.NoError(t, store.Set(ctx, "tenant:beta", "{}"))
	require.NoError(t, store.Set(ctx, "component:acme:button", "{}"))

	keys, err := store.Keys(ctx, "tenant:")
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant:acme", "tenant:beta"}, keys)

	keys, err = store.Keys(ctx, "nothing:")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryStore_MGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "c", "3"))

	values, err := store.MGet(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", "3"}, values)
}
