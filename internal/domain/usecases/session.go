package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// Mode names the active retrieval strategy.
type Mode string

const (
	ModeLexical Mode = "lexical"
	ModeVector  Mode = "vector"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLexical, ModeVector:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown retrieval mode %q", entities.ErrInvalidConfiguration, s)
	}
}

// Stats status values.
const (
	StatusOperational = "operational"
	StatusNoDocuments = "no_documents"
)

// Stats describes the loaded corpus and the active index.
type Stats struct {
	Documents     int
	TotalChunks   int
	IndexedChunks int
	Mode          Mode
	Status        string
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Mode      Mode
	Ingest    *IngestUseCase
	Index     ports.Index
	Query     *QueryUseCase
	Confirmer ports.ReindexConfirmer

	// Secondary indexes are rebuilt from scratch on every Prepare, without asking.
	// The lexical fallback index is one.
	Secondary []ports.Index

	Logger *slog.Logger
}

// staleChecker is implemented by indexes whose records outlive the corpus they were built from.
type staleChecker interface {
	Stale(ctx context.Context, chunks []entities.Chunk) ([]string, error)
}

// Session owns the corpus and index lifecycle for one process.
// Prepare and Reload are serialized; Ask may run concurrently with other Asks.
type Session struct {
	mode      Mode
	ingest    *IngestUseCase
	index     ports.Index
	secondary []ports.Index
	query     *QueryUseCase
	confirmer ports.ReindexConfirmer
	log       *slog.Logger

	mu     sync.RWMutex
	corpus *Corpus
}

// NewSession creates a Session. Nothing is loaded until Prepare.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLexical
	}
	return &Session{
		mode:      cfg.Mode,
		ingest:    cfg.Ingest,
		index:     cfg.Index,
		secondary: cfg.Secondary,
		query:     cfg.Query,
		confirmer: cfg.Confirmer,
		log:       cfg.Logger,
		corpus:    &Corpus{},
	}
}

// Mode returns the active retrieval mode.
func (s *Session) Mode() Mode { return s.mode }

// Prepare loads the corpus and makes sure the index covers it.
// A populated index is kept unless the confirmer asks for a rebuild.
func (s *Session) Prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	corpus, err := s.load(ctx)
	if err != nil {
		return err
	}

	indexed, err := s.index.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting indexed chunks: %w", err)
	}

	if indexed > 0 {
		rebuild := false
		if s.confirmer != nil {
			rebuild, err = s.confirmer.ConfirmReindex(ctx, indexed)
			if err != nil {
				return fmt.Errorf("confirming reindex: %w", err)
			}
		}
		if rebuild {
			s.log.Info("reindexing", slog.Int("indexed", indexed))
			if err := s.index.Reset(ctx); err != nil {
				return err
			}
		} else {
			s.log.Info("using existing index", slog.Int("indexed", indexed))
			s.warnIfStale(ctx, corpus)
		}
	}

	return s.build(ctx, corpus)
}

// Reload re-reads the corpus and rebuilds every index from scratch.
// It is used when the corpus changed on disk, so nothing is confirmed.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	corpus, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := s.index.Reset(ctx); err != nil {
		return err
	}
	return s.build(ctx, corpus)
}

// Load re-reads the corpus without touching any index.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load(ctx)
	return err
}

// Ask answers question from the active index.
func (s *Session) Ask(ctx context.Context, question string, topK int) (*entities.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query.Answer(ctx, question, topK)
}

// Search returns ranked context for query without generation.
func (s *Session) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query.Search(ctx, query, topK)
}

// Stats reports the loaded corpus and the active index.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indexed, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting indexed chunks: %w", err)
	}

	stats := Stats{
		Documents:     len(s.corpus.Documents),
		TotalChunks:   len(s.corpus.Chunks),
		IndexedChunks: indexed,
		Mode:          s.mode,
		Status:        StatusNoDocuments,
	}
	if stats.TotalChunks > 0 || stats.IndexedChunks > 0 {
		stats.Status = StatusOperational
	}
	return stats, nil
}

// Documents returns the ids of the loaded documents.
func (s *Session) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.corpus.Documents))
	copy(out, s.corpus.Documents)
	return out
}

// load ingests the corpus and records it. An empty corpus is only a warning.
func (s *Session) load(ctx context.Context) (*Corpus, error) {
	corpus, err := s.ingest.Ingest(ctx)
	switch {
	case errors.Is(err, entities.ErrCorpusEmpty):
		s.log.Warn("no documents found, questions will get the no-information answer")
	case err != nil:
		return nil, err
	}
	s.corpus = corpus
	return corpus, nil
}

// warnIfStale logs documents edited since the kept index was built.
func (s *Session) warnIfStale(ctx context.Context, corpus *Corpus) {
	checker, ok := s.index.(staleChecker)
	if !ok {
		return
	}
	sources, err := checker.Stale(ctx, corpus.Chunks)
	if err != nil {
		s.log.Warn("could not compare index with documents", slog.String("error", err.Error()))
		return
	}
	if len(sources) > 0 {
		s.log.Warn("indexed text differs from documents, reindex to pick up edits",
			slog.Any("documents", sources))
	}
}

func (s *Session) build(ctx context.Context, corpus *Corpus) error {
	if err := s.index.Build(ctx, corpus.Chunks); err != nil {
		return fmt.Errorf("building %s index: %w", s.mode, err)
	}
	for _, idx := range s.secondary {
		if err := idx.Reset(ctx); err != nil {
			return err
		}
		if err := idx.Build(ctx, corpus.Chunks); err != nil {
			return err
		}
	}
	return nil
}
