// Package usecases contains application business rules: chunking, indexing,
// retrieval, prompt assembly and session orchestration.
// Usecases depend on port interfaces only, never on concrete adapters.
package usecases

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// chunkNamespace scopes chunk ids so the same source and sequence always map to the same id.
var chunkNamespace = uuid.MustParse("6f1c2a4e-8b0d-5c3e-9a7f-2d4b6e8f0a13")

// Chunker splits text into fixed-size overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the parameters up front; an overlap that is not
// smaller than the size would never advance the cursor.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", entities.ErrInvalidConfiguration, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: chunk overlap must not be negative, got %d", entities.ErrInvalidConfiguration, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", entities.ErrInvalidConfiguration, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive windows in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into chunks tagged with sourceID.
// Windows that trim to nothing are skipped without consuming a sequence number.
func (c *Chunker) Chunk(text, sourceID string) ([]entities.Chunk, error) {
	runes := []rune(text)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	step := c.size - c.overlap
	chunks := make([]entities.Chunk, 0, len(runes)/step+1)
	sequence := 0

	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		window := string(runes[start:end])
		if strings.TrimSpace(window) == "" {
			continue
		}

		chunk, err := entities.NewChunk(ChunkID(sourceID, sequence), sourceID, sequence, window, start, end)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
		sequence++
	}

	return chunks, nil
}

// ChunkDocuments chunks every document in order.
func (c *Chunker) ChunkDocuments(docs []entities.Document) ([]entities.Chunk, error) {
	var all []entities.Chunk
	for _, doc := range docs {
		chunks, err := c.Chunk(doc.Content, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", doc.ID, err)
		}
		all = append(all, chunks...)
	}
	return all, nil
}

// ChunkID derives a deterministic id from the source and sequence number.
func ChunkID(source string, sequence int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(source+"#"+strconv.Itoa(sequence))).String()
}
