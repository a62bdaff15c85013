// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, transport or models.
package entities

import (
	"fmt"
	"strings"
)

// Document is one source text file. Its ID is the file name.
// Documents are discarded after chunking; only chunks are indexed.
type Document struct {
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded, overlapping slice of a document.
// Start and End are rune offsets of the untrimmed window [Start, End).
type Chunk struct {
	ID       string
	Source   string
	Sequence int
	Text     string
	Start    int
	End      int
}

// NewChunk builds a validated chunk. Text is trimmed and must not be empty.
func NewChunk(id, source string, sequence int, text string, start, end int) (Chunk, error) {
	text = strings.TrimSpace(text)
	switch {
	case id == "":
		return Chunk{}, fmt.Errorf("%w: chunk id is empty", ErrInvalidInput)
	case source == "":
		return Chunk{}, fmt.Errorf("%w: chunk source is empty", ErrInvalidInput)
	case sequence < 0:
		return Chunk{}, fmt.Errorf("%w: negative chunk sequence %d", ErrInvalidInput, sequence)
	case text == "":
		return Chunk{}, fmt.Errorf("%w: chunk text is empty", ErrInvalidInput)
	case start < 0 || end <= start:
		return Chunk{}, fmt.Errorf("%w: invalid chunk span [%d, %d)", ErrInvalidInput, start, end)
	}
	return Chunk{
		ID:       id,
		Source:   source,
		Sequence: sequence,
		Text:     text,
		Start:    start,
		End:      end,
	}, nil
}

// Embedding is the vector representation of one chunk.
type Embedding struct {
	ChunkID string
	Vector  []float32
}

// Dimension returns the vector length.
func (e Embedding) Dimension() int { return len(e.Vector) }

// Record is the stored unit of a vector index: a chunk and its embedding.
type Record struct {
	Chunk     Chunk
	Embedding Embedding
}

// RetrievalResult is a ranked search hit. Rank is 1-based.
// Distance is only meaningful for vector search.
type RetrievalResult struct {
	Chunk    Chunk
	Score    float64
	Rank     int
	Distance float64
}

// Answer is a generated reply together with the context it was grounded on.
type Answer struct {
	Question string
	Text     string
	Sources  []RetrievalResult
}
