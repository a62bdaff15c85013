package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

var _ ports.VectorStore = (*InMemoryStore)(nil)

// InMemoryStore keeps records for the life of the process.
// It backs transient vector mode and enforces the same dimension rule as Collection.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   []entities.Record
	positions map[string]int // chunkID -> index into records
	dimension int
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{positions: make(map[string]int)}
}

// Add stores records. Validation happens before any write, so a failed Add stores nothing.
func (s *InMemoryStore) Add(ctx context.Context, records []entities.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	for _, rec := range records {
		if dim == 0 {
			dim = rec.Embedding.Dimension()
		}
		if rec.Embedding.Dimension() != dim || dim == 0 {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				entities.ErrDimensionMismatch, rec.Chunk.ID, rec.Embedding.Dimension(), dim)
		}
	}

	s.dimension = dim
	for _, rec := range records {
		if i, ok := s.positions[rec.Chunk.ID]; ok {
			s.records[i] = rec
			continue
		}
		s.positions[rec.Chunk.ID] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

// Records returns every record in insertion order.
func (s *InMemoryStore) Records(ctx context.Context) ([]entities.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// IDs returns the set of stored chunk ids.
func (s *InMemoryStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.positions))
	for id := range s.positions {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Count returns the number of stored records.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Reset removes all data from the store.
func (s *InMemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.positions = make(map[string]int)
	s.dimension = 0
	return nil
}
