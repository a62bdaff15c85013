package vectordb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())

	coll, err := store.OpenCollection(ctx, "document_collection")
	require.NoError(t, err)
	require.NoError(t, coll.Add(ctx, []entities.Record{record("c1", 0, 0.1, 0.2, 0.3)}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	coll, err = reopened.OpenCollection(ctx, "document_collection")
	require.NoError(t, err)

	count, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	dim, err := coll.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)

	records, err := coll.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, records[0].Embedding.Vector)
}

func TestSQLiteStore_CollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	a, err := store.OpenCollection(ctx, "a")
	require.NoError(t, err)
	b, err := store.OpenCollection(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Add(ctx, []entities.Record{record("c1", 0, 1, 0)}))
	require.NoError(t, b.Add(ctx, []entities.Record{record("c1", 0, 1, 0, 0)}))

	infos, err := store.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, 2, infos[0].Dimension)
	assert.Equal(t, 1, infos[0].Count)
	assert.Equal(t, 3, infos[1].Dimension)

	require.NoError(t, store.DeleteCollection(ctx, "a"))
	infos, err = store.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "b", infos[0].Name)

	count, err := a.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "a deleted collection reads as empty")
}

func TestSQLiteStore_OpenCollectionRequiresName(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.OpenCollection(context.Background(), "")
	assert.ErrorIs(t, err, entities.ErrInvalidConfiguration)
}

func TestFloat32Encoding(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
