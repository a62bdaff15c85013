package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls   int
	batches [][]string
	err     error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func TestCachedEmbedder_EmbedsOnce(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)

	ctx := context.Background()
	for range 3 {
		vec, err := c.Embed(ctx, "what color is grass")
		require.NoError(t, err)
		assert.Equal(t, []float32{19}, vec)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_Evicts(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 1)
	require.NoError(t, err)

	ctx := context.Background()
	_, _ = c.Embed(ctx, "a")
	_, _ = c.Embed(ctx, "b")
	_, _ = c.Embed(ctx, "a")
	assert.Equal(t, 3, inner.calls)
}

func TestCachedEmbedder_DoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c, err := NewCachedEmbedder(inner, 0)
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "a")
	require.Error(t, err)
	assert.Zero(t, c.Len())
}

func TestCachedEmbedder_BatchOnlyMissing(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Embed(ctx, "aa")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(ctx, []string{"aa", "bbb", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}, {3}, {1}}, vecs)
	require.Len(t, inner.batches, 1)
	assert.Equal(t, []string{"bbb", "c"}, inner.batches[0])
}
