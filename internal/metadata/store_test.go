package metadata

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorePutAndResolve(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "Account", CollectionName: "accounts"}))

	md, err := store.Resolve(ctx, "account")
	require.NoError(t, err)
	assert.Equal(t, EntityMetadata{LogicalName: "account", CollectionName: "accounts"}, md)

	md, err = store.Resolve(ctx, " ACCOUNT ")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName)
}

func TestStoreResolveMiss(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Resolve(context.Background(), "contact")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorePutUpserts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "account", CollectionName: "wrong"}))
	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "account", CollectionName: "accounts"}))

	md, err := store.Resolve(ctx, "account")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName)

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStorePutValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, EntityMetadata{CollectionName: "accounts"}))
	assert.Error(t, store.Put(ctx, EntityMetadata{LogicalName: "account"}))
}

func TestStoreListOrdered(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "contact", CollectionName: "contacts"}))
	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "account", CollectionName: "accounts"}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "account", entries[0].LogicalName)
	assert.Equal(t, "contact", entries[1].LogicalName)
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	ctx := context.Background()

	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, EntityMetadata{LogicalName: "account", CollectionName: "accounts"}))
	require.NoError(t, store.Close())

	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	md, err := store.Resolve(ctx, "account")
	require.NoError(t, err)
	assert.Equal(t, "accounts", md.CollectionName, "entries survive reopen")
}
