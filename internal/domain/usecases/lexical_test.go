package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalSearch_RanksByTokenOverlap(t *testing.T) {
	chunks := textChunks("deep learning is great", "cats are cute", "learning happens deeply")

	results := LexicalSearch(chunks, "deep learning", 2)

	require.Len(t, results, 2)
	assert.Equal(t, "deep learning is great", results[0].Chunk.Text)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "learning happens deeply", results[1].Chunk.Text)
	assert.Equal(t, 1.0, results[1].Score)
	assert.Equal(t, 2, results[1].Rank)
}

func TestLexicalSearch_DuplicateTokensCollapse(t *testing.T) {
	chunks := textChunks("go go go go", "go rust")

	results := LexicalSearch(chunks, "GO go rust", 5)

	require.Len(t, results, 2)
	assert.Equal(t, "go rust", results[0].Chunk.Text)
	assert.Equal(t, 2.0, results[0].Score)
	assert.Equal(t, 1.0, results[1].Score)
}

func TestLexicalSearch_TiesKeepEncounterOrder(t *testing.T) {
	chunks := textChunks("alpha one", "alpha two", "alpha three")

	results := LexicalSearch(chunks, "alpha", 3)

	require.Len(t, results, 3)
	assert.Equal(t, "alpha one", results[0].Chunk.Text)
	assert.Equal(t, "alpha two", results[1].Chunk.Text)
	assert.Equal(t, "alpha three", results[2].Chunk.Text)
}

func TestLexicalSearch_TopKLargerThanRelevantSet(t *testing.T) {
	chunks := textChunks("red apple", "green pear", "blue sky")

	results := LexicalSearch(chunks, "apple", 10)

	require.Len(t, results, 1, "no padding with irrelevant chunks")
	assert.Equal(t, "red apple", results[0].Chunk.Text)
}

func TestLexicalSearch_EmptyInputs(t *testing.T) {
	chunks := textChunks("something here")

	assert.Empty(t, LexicalSearch(chunks, "", 3))
	assert.Empty(t, LexicalSearch(chunks, "   ", 3))
	assert.Empty(t, LexicalSearch(nil, "something", 3))
}

func TestLexicalSearch_DefaultTopK(t *testing.T) {
	chunks := textChunks("x a", "x b", "x c", "x d", "x e")

	results := LexicalSearch(chunks, "x", 0)

	assert.Len(t, results, DefaultTopK)
}

func TestLexicalIndex_BuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewLexicalIndex()
	chunks := textChunks("one", "two")

	require.NoError(t, idx.Build(ctx, chunks))
	require.NoError(t, idx.Build(ctx, chunks))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := idx.Search(ctx, "two", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "two", results[0].Chunk.Text)

	require.NoError(t, idx.Reset(ctx))
	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, idx.Chunks())
}
