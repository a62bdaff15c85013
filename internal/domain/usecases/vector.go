package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// DefaultEmbedConcurrency bounds parallel embedding calls during Build.
const DefaultEmbedConcurrency = 4

// DefaultEmbedBatchSize is the number of chunks sent per embedding request.
// Build reports progress once per batch.
const DefaultEmbedBatchSize = 10

var _ ports.Index = (*VectorIndex)(nil)

// VectorIndexOptions tunes the build phase.
type VectorIndexOptions struct {
	// Concurrency is the number of embedding calls in flight (default 4).
	Concurrency int

	// BatchSize is the number of chunks per EmbedBatch request (default 10).
	BatchSize int

	// EmbedRate limits embedding requests per second. Zero means unlimited.
	EmbedRate float64

	Logger *slog.Logger
}

// VectorIndex ranks chunks by cosine distance between embeddings.
// Records live in a VectorStore; the index only embeds and scores.
type VectorIndex struct {
	embedder    ports.EmbeddingService
	store       ports.VectorStore
	concurrency int
	batchSize   int
	limiter     *rate.Limiter
	log         *slog.Logger

	// mu hides a build's write from concurrent searches until it is complete.
	mu sync.RWMutex
	// buildMu serializes Build and Reset.
	buildMu sync.Mutex
}

// NewVectorIndex creates a vector index over store.
func NewVectorIndex(embedder ports.EmbeddingService, store ports.VectorStore, opts VectorIndexOptions) *VectorIndex {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultEmbedConcurrency
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultEmbedBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	var limiter *rate.Limiter
	if opts.EmbedRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.EmbedRate), 1)
	}
	return &VectorIndex{
		embedder:    embedder,
		store:       store,
		concurrency: opts.Concurrency,
		batchSize:   opts.BatchSize,
		limiter:     limiter,
		log:         opts.Logger,
	}
}

// Build embeds every chunk that is not stored yet, in batches, and writes them in one call.
// If any embedding fails nothing is written.
func (idx *VectorIndex) Build(ctx context.Context, chunks []entities.Chunk) error {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	existing, err := idx.store.IDs(ctx)
	if err != nil {
		return fmt.Errorf("reading indexed ids: %w", err)
	}

	pending := make([]entities.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if _, ok := existing[chunk.ID]; ok {
			continue
		}
		existing[chunk.ID] = struct{}{}
		pending = append(pending, chunk)
	}
	if len(pending) == 0 {
		idx.log.Debug("vector index up to date", slog.Int("chunks", len(chunks)))
		return nil
	}

	idx.log.Info("creating embeddings", slog.Int("chunks", len(pending)), slog.Int("batch_size", idx.batchSize))

	vectors := make([][]float32, len(pending))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for start := 0; start < len(pending); start += idx.batchSize {
		batch := pending[start:min(start+idx.batchSize, len(pending))]
		g.Go(func() error {
			if idx.limiter != nil {
				if err := idx.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}
			vecs, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d (first %s of %s): %w",
					start, start+len(batch)-1, batch[0].ID, batch[0].Source, asEmbeddingFailure(err))
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", entities.ErrEmbeddingFailure, len(vecs), len(batch))
			}
			copy(vectors[start:], vecs)

			idx.log.Info("embedding progress", slog.Int64("done", done.Add(int64(len(batch)))), slog.Int("total", len(pending)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	records := make([]entities.Record, len(pending))
	for i, chunk := range pending {
		if len(vectors[i]) == 0 || len(vectors[i]) != len(vectors[0]) {
			return fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
				entities.ErrDimensionMismatch, chunk.ID, len(vectors[i]), len(vectors[0]))
		}
		records[i] = entities.Record{
			Chunk:     chunk,
			Embedding: entities.Embedding{ChunkID: chunk.ID, Vector: vectors[i]},
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.store.Add(ctx, records); err != nil {
		return fmt.Errorf("storing records: %w", err)
	}

	idx.log.Info("indexed chunks", slog.Int("chunks", len(records)))
	return nil
}

// Reset drops every stored record.
func (idx *VectorIndex) Reset(ctx context.Context) error {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting vector store: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (idx *VectorIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.store.Count(ctx)
}

// Stale returns the sources whose stored chunk text no longer matches chunks.
// Ids absent from the store are not stale; Build will add them.
func (idx *VectorIndex) Stale(ctx context.Context, chunks []entities.Chunk) ([]string, error) {
	idx.mu.RLock()
	records, err := idx.store.Records(ctx)
	idx.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	stored := make(map[string]string, len(records))
	for _, rec := range records {
		stored[rec.Chunk.ID] = rec.Chunk.Text
	}

	var sources []string
	seen := make(map[string]struct{})
	for _, chunk := range chunks {
		text, ok := stored[chunk.ID]
		if !ok || text == chunk.Text {
			continue
		}
		if _, dup := seen[chunk.Source]; dup {
			continue
		}
		seen[chunk.Source] = struct{}{}
		sources = append(sources, chunk.Source)
	}
	return sources, nil
}

// Search embeds query once and returns the topK nearest chunks.
// Score is the similarity 1 - distance.
func (idx *VectorIndex) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	records, err := idx.store.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	if len(records) == 0 {
		return nil, entities.ErrIndexEmpty
	}

	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", asEmbeddingFailure(err))
	}
	if len(queryVec) != records[0].Embedding.Dimension() {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			entities.ErrDimensionMismatch, len(queryVec), records[0].Embedding.Dimension())
	}

	results := make([]entities.RetrievalResult, len(records))
	for i, rec := range records {
		distance := cosineDistance(queryVec, rec.Embedding.Vector)
		results[i] = entities.RetrievalResult{
			Chunk:    rec.Chunk,
			Distance: distance,
			Score:    1 - distance,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// cosineDistance is 1 - cosine similarity, in [0, 2].
// Zero or mismatched vectors are maximally dissimilar among non-opposed vectors (distance 1).
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

func asEmbeddingFailure(err error) error {
	if errors.Is(err, entities.ErrEmbeddingFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", entities.ErrEmbeddingFailure, err)
}
