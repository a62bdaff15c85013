package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// Corpus is the chunked form of the loaded documents.
type Corpus struct {
	Documents []string
	Chunks    []entities.Chunk
}

// IngestUseCase loads the corpus and splits it into chunks.
// It never touches an index.
type IngestUseCase struct {
	loader  ports.DocumentLoader
	chunker *Chunker
	log     *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase with injected dependencies.
func NewIngestUseCase(loader ports.DocumentLoader, chunker *Chunker, logger *slog.Logger) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{loader: loader, chunker: chunker, log: logger}
}

// Ingest loads every document and chunks it.
// An empty corpus returns an empty Corpus together with ErrCorpusEmpty.
func (uc *IngestUseCase) Ingest(ctx context.Context) (*Corpus, error) {
	docs, err := uc.loader.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if len(docs) == 0 {
		return &Corpus{}, entities.ErrCorpusEmpty
	}

	chunks, err := uc.chunker.ChunkDocuments(docs)
	if err != nil {
		return nil, err
	}

	corpus := &Corpus{Documents: make([]string, len(docs)), Chunks: chunks}
	for i, doc := range docs {
		corpus.Documents[i] = doc.ID
	}

	uc.log.Info("chunked corpus",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Int("chunk_size", uc.chunker.Size()),
		slog.Int("chunk_overlap", uc.chunker.Overlap()),
	)
	return corpus, nil
}
