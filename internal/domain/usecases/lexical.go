package usecases

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// DefaultTopK is used when a caller passes a non-positive topK.
const DefaultTopK = 3

var _ ports.Index = (*LexicalIndex)(nil)

// LexicalIndex scores chunks by token-set overlap with the query.
// It keeps no derived state: scores are computed per query.
type LexicalIndex struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
	ids    map[string]struct{}
}

// NewLexicalIndex creates an empty lexical index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{ids: make(map[string]struct{})}
}

// Build adds chunks that are not indexed yet, keeping encounter order.
func (idx *LexicalIndex) Build(ctx context.Context, chunks []entities.Chunk) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, chunk := range chunks {
		if _, ok := idx.ids[chunk.ID]; ok {
			continue
		}
		idx.ids[chunk.ID] = struct{}{}
		idx.chunks = append(idx.chunks, chunk)
	}
	return nil
}

// Reset drops every chunk.
func (idx *LexicalIndex) Reset(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.chunks = nil
	idx.ids = make(map[string]struct{})
	return nil
}

// Count returns the number of indexed chunks.
func (idx *LexicalIndex) Count(ctx context.Context) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks), nil
}

// Chunks returns a copy of the indexed chunks.
func (idx *LexicalIndex) Chunks() []entities.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]entities.Chunk, len(idx.chunks))
	copy(out, idx.chunks)
	return out
}

// Search scores the indexed chunks against query.
func (idx *LexicalIndex) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return LexicalSearch(idx.chunks, query, topK), nil
}

// LexicalSearch returns the topK chunks sharing the most distinct tokens with query.
// Chunks with no shared token are dropped; ties keep encounter order.
func LexicalSearch(chunks []entities.Chunk, query string, topK int) []entities.RetrievalResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 || len(chunks) == 0 {
		return nil
	}

	var results []entities.RetrievalResult
	for _, chunk := range chunks {
		score := overlapScore(queryTokens, chunk.Text)
		if score == 0 {
			continue
		}
		results = append(results, entities.RetrievalResult{Chunk: chunk, Score: float64(score)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// tokenSet lower-cases and splits on whitespace; duplicates collapse.
func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func overlapScore(queryTokens map[string]struct{}, text string) int {
	score := 0
	for token := range tokenSet(text) {
		if _, ok := queryTokens[token]; ok {
			score++
		}
	}
	return score
}
