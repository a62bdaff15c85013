package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// Retriever fetches ranked context for a question from whichever index is active.
type Retriever struct {
	searcher ports.Searcher
	topK     int
}

// NewRetriever creates a Retriever. A non-positive topK falls back to DefaultTopK.
func NewRetriever(searcher ports.Searcher, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{searcher: searcher, topK: topK}
}

// TopK returns the default number of results.
func (r *Retriever) TopK() int { return r.topK }

// Retrieve returns up to topK results ranked from 1.
// An empty index is not an error: it simply has nothing relevant.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	if topK <= 0 {
		topK = r.topK
	}

	results, err := r.searcher.Search(ctx, query, topK)
	if errors.Is(err, entities.ErrIndexEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// FallbackSearcher answers from a secondary searcher when the primary
// cannot embed the query. Every other error is returned as is.
type FallbackSearcher struct {
	primary   ports.Searcher
	secondary ports.Searcher
	log       *slog.Logger
}

// NewFallbackSearcher wraps primary with secondary.
func NewFallbackSearcher(primary, secondary ports.Searcher, logger *slog.Logger) *FallbackSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackSearcher{primary: primary, secondary: secondary, log: logger}
}

// Search implements ports.Searcher.
func (s *FallbackSearcher) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	results, err := s.primary.Search(ctx, query, topK)
	if err == nil || !errors.Is(err, entities.ErrEmbeddingFailure) {
		return results, err
	}

	s.log.Warn("vector search unavailable, using lexical fallback", slog.String("error", err.Error()))
	return s.secondary.Search(ctx, query, topK)
}
