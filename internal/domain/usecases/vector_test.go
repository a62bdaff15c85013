package usecases

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

func TestVectorIndex_SearchRanksByCosineDistance(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("sky", "blue", "grass", "green")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{})

	chunks := textChunks("The sky is blue. Gra", ". Grass is green.", "n.")
	require.NoError(t, idx.Build(ctx, chunks))

	results, err := idx.Search(ctx, "what color is grass", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, ". Grass is green.", results[0].Chunk.Text)
	assert.Equal(t, 1, results[0].Rank)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		assert.Equal(t, i+1, results[i].Rank)
	}
	for _, r := range results {
		assert.InDelta(t, 1-r.Distance, r.Score, 1e-9)
	}
}

func TestVectorIndex_EmptyIndex(t *testing.T) {
	embedder := newVocabEmbedder("x")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{})

	_, err := idx.Search(context.Background(), "anything", 3)
	assert.True(t, errors.Is(err, entities.ErrIndexEmpty))
	assert.Zero(t, embedder.Calls(), "no query embedding for an empty index")
}

func TestVectorIndex_BuildSkipsIndexedChunks(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a")
	store := &memStore{}
	idx := NewVectorIndex(embedder, store, VectorIndexOptions{Concurrency: 2})

	chunks := textChunks("a one", "a two", "a three")
	require.NoError(t, idx.Build(ctx, chunks))
	require.Equal(t, 3, embedder.Calls())

	require.NoError(t, idx.Build(ctx, chunks))
	assert.Equal(t, 3, embedder.Calls(), "rebuilding the same corpus embeds nothing")
	assert.Equal(t, 1, store.adds)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestVectorIndex_FailedBuildWritesNothing(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a")
	embedder.failOn = "broken"
	store := &memStore{}
	idx := NewVectorIndex(embedder, store, VectorIndexOptions{})

	err := idx.Build(ctx, textChunks("a fine", "a broken", "a fine too"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrEmbeddingFailure))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestVectorIndex_ResetThenBuild(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{})
	chunks := textChunks("a b", "a c")

	require.NoError(t, idx.Build(ctx, chunks))
	require.NoError(t, idx.Reset(ctx))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, idx.Build(ctx, chunks))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 4, embedder.Calls())
}

func TestVectorIndex_QueryEmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{})
	require.NoError(t, idx.Build(ctx, textChunks("a b")))

	embedder.failOn = "boom"
	_, err := idx.Search(ctx, "boom", 3)
	assert.True(t, errors.Is(err, entities.ErrEmbeddingFailure))
}

func TestVectorIndex_RateLimitedBuild(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{EmbedRate: 1000})

	require.NoError(t, idx.Build(ctx, textChunks("a 1", "a 2", "a 3", "a 4")))
	assert.Equal(t, 4, embedder.Calls())
}

func TestVectorIndex_BuildEmbedsInBatches(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder("a", "b")
	store := &memStore{}
	idx := NewVectorIndex(embedder, store, VectorIndexOptions{BatchSize: 2, Concurrency: 3})

	chunks := textChunks("a", "b", "a a", "b b", "a b")
	require.NoError(t, idx.Build(ctx, chunks))

	assert.Equal(t, 3, embedder.Batches())
	assert.Equal(t, 5, embedder.Calls())
	assert.Equal(t, 1, store.adds)

	require.Len(t, store.records, len(chunks))
	for i, rec := range store.records {
		want, err := newVocabEmbedder("a", "b").Embed(ctx, chunks[i].Text)
		require.NoError(t, err)
		assert.Equal(t, chunks[i].ID, rec.Chunk.ID)
		assert.Equal(t, want, rec.Embedding.Vector, "vector of %q", chunks[i].Text)
	}
}

func TestVectorIndex_BuildIsInvisibleUntilComplete(t *testing.T) {
	ctx := context.Background()
	embedder := newGatedEmbedder("a")
	idx := NewVectorIndex(embedder, &memStore{}, VectorIndexOptions{BatchSize: 1, Concurrency: 2})
	chunks := textChunks("a 1", "a 2", "a 3", "a 4")

	buildErr := make(chan error, 1)
	go func() { buildErr <- idx.Build(ctx, chunks) }()
	<-embedder.entered

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "nothing visible while embedding")
	_, err = idx.Search(ctx, "a", 10)
	assert.True(t, errors.Is(err, entities.ErrIndexEmpty))

	var (
		mu       sync.Mutex
		observed []int
		wg       sync.WaitGroup
	)
	stop := make(chan struct{})
	observe := func(n int) {
		mu.Lock()
		observed = append(observed, n)
		mu.Unlock()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if n, err := idx.Count(ctx); err == nil {
					observe(n)
				}
				results, err := idx.Search(ctx, "a", 10)
				switch {
				case errors.Is(err, entities.ErrIndexEmpty):
					observe(0)
				case err == nil:
					observe(len(results))
				}
			}
		}()
	}

	close(embedder.release)
	require.NoError(t, <-buildErr)
	close(stop)
	wg.Wait()

	for _, n := range observed {
		assert.True(t, n == 0 || n == len(chunks), "readers saw a partial index of %d records", n)
	}
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)
}

func TestVectorIndex_Stale(t *testing.T) {
	ctx := context.Background()
	idx := NewVectorIndex(newVocabEmbedder("a"), &memStore{}, VectorIndexOptions{})

	original := textChunks("a one", "a two")
	require.NoError(t, idx.Build(ctx, original))

	stale, err := idx.Stale(ctx, original)
	require.NoError(t, err)
	assert.Empty(t, stale)

	edited := textChunks("a one", "a 2", "a three")
	stale, err = idx.Stale(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.txt"}, stale)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1-1/math.Sqrt2, cosineDistance([]float32{1, 1}, []float32{1, 0}), 1e-6)
	assert.Equal(t, 1.0, cosineDistance([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 1.0, cosineDistance([]float32{1}, []float32{1, 0}))
}
