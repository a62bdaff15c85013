// Package ports defines interfaces for external dependencies.
// Usecases depend on these abstractions; adapters implement them.
package ports

import (
	"context"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// GenerateRequest is a single grounded completion request.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// LLMService generates text responses from a language model.
type LLMService interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// VectorStore persists chunk records for one named collection.
// It is single-writer, multi-reader.
type VectorStore interface {
	// Add stores records atomically: either all become visible or none do.
	Add(ctx context.Context, records []entities.Record) error

	// Records returns every stored record in insertion order.
	Records(ctx context.Context) ([]entities.Record, error)

	// IDs returns the set of stored chunk ids.
	IDs(ctx context.Context) (map[string]struct{}, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Reset drops every record. The collection stays usable.
	Reset(ctx context.Context) error
}

// Searcher is the retrieval seam. Callers never know which index is active.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error)
}

// Index is a Searcher with the build/reset/count primitives a reindex is composed of.
// An Index never decides to reindex by itself.
type Index interface {
	Searcher

	// Build indexes chunks that are not indexed yet.
	Build(ctx context.Context, chunks []entities.Chunk) error

	// Reset drops every indexed chunk.
	Reset(ctx context.Context) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)
}

// ReindexConfirmer decides whether an already populated index is rebuilt.
// It lives in the driving layer (terminal prompt, flag, policy).
type ReindexConfirmer interface {
	ConfirmReindex(ctx context.Context, indexed int) (bool, error)
}

// DocumentLoader reads the corpus.
type DocumentLoader interface {
	// LoadAll returns every document in the corpus, ordered by id.
	LoadAll(ctx context.Context) ([]entities.Document, error)

	// Load reads a single document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
