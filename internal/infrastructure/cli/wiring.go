package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xcro3dile/ragqa/internal/adapters/embedding"
	"github.com/0xcro3dile/ragqa/internal/adapters/llm"
	"github.com/0xcro3dile/ragqa/internal/adapters/loader"
	"github.com/0xcro3dile/ragqa/internal/adapters/vectordb"
	"github.com/0xcro3dile/ragqa/internal/config"
	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
	"github.com/0xcro3dile/ragqa/internal/domain/usecases"
)

// Seams for tests.
var (
	newEmbedder = buildEmbedder
	newLLM      = buildLLM
)

// app holds everything a command needs. Close releases the vector store.
type app struct {
	cfg      *config.AppConfig
	session  *usecases.Session
	loader   *loader.DirectoryLoader
	embedder ports.EmbeddingService
	store    *vectordb.SQLiteStore
	log      *slog.Logger
}

type appOptions struct {
	// withLLM builds the generation adapter; commands that never answer skip it.
	withLLM   bool
	confirmer ports.ReindexConfirmer
}

func newApp(ctx context.Context, cfg *config.AppConfig, opts appOptions, log *slog.Logger) (*app, error) {
	mode, err := usecases.ParseMode(cfg.Index.Mode)
	if err != nil {
		return nil, err
	}

	chunker, err := usecases.NewChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		loader: loader.NewDirectoryLoader(cfg.Corpus.Dir, cfg.Corpus.Extensions, log),
		log:    log,
	}

	var (
		index     ports.Index
		searcher  ports.Searcher
		secondary []ports.Index
	)
	switch mode {
	case usecases.ModeVector:
		vectors, err := a.vectorIndex(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		index, searcher = vectors, vectors
		if cfg.Index.FallbackLexical {
			lexical := usecases.NewLexicalIndex()
			secondary = append(secondary, lexical)
			searcher = usecases.NewFallbackSearcher(vectors, lexical, log)
		}
	default:
		lexical := usecases.NewLexicalIndex()
		index, searcher = lexical, lexical
	}

	var generator ports.LLMService
	if opts.withLLM {
		generator, err = newLLM(cfg.LLM, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	query := usecases.NewQueryUseCase(
		usecases.NewRetriever(searcher, cfg.Retrieval.TopK),
		generator,
		usecases.QueryOptions{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens},
	)

	a.session = usecases.NewSession(usecases.SessionConfig{
		Mode:      mode,
		Ingest:    usecases.NewIngestUseCase(a.loader, chunker, log),
		Index:     index,
		Query:     query,
		Confirmer: opts.confirmer,
		Secondary: secondary,
		Logger:    log,
	})
	return a, nil
}

// vectorIndex builds the embedder and opens the configured collection.
// An empty index.path keeps the records in memory for this run only.
func (a *app) vectorIndex(ctx context.Context) (*usecases.VectorIndex, error) {
	emb, err := newEmbedder(a.cfg.Embedder, a.log)
	if err != nil {
		return nil, err
	}
	if a.cfg.Index.CacheSize >= 0 {
		emb, err = embedding.NewCachedEmbedder(emb, a.cfg.Index.CacheSize)
		if err != nil {
			return nil, err
		}
	}
	a.embedder = emb

	var store ports.VectorStore
	if a.cfg.Index.Path == "" {
		store = vectordb.NewInMemoryStore()
	} else {
		a.store, err = vectordb.NewSQLiteStore(a.cfg.Index.Path)
		if err != nil {
			return nil, err
		}
		collection, err := a.store.OpenCollection(ctx, a.cfg.Index.Collection)
		if err != nil {
			return nil, err
		}
		a.log.Debug("opened collection", slog.String("collection", collection.Name()), slog.String("path", a.store.Path()))
		store = collection
	}

	return usecases.NewVectorIndex(emb, store, usecases.VectorIndexOptions{
		Concurrency: a.cfg.Index.Concurrency,
		BatchSize:   a.cfg.Index.BatchSize,
		EmbedRate:   a.cfg.Index.EmbedRate,
		Logger:      a.log,
	}), nil
}

// Close releases the persisted store, if any.
func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func buildEmbedder(p config.ProviderConfig, log *slog.Logger) (ports.EmbeddingService, error) {
	switch p.Provider {
	case config.ProviderOllama:
		return embedding.NewOllamaAdapter(p.BaseURL, p.Model, log), nil
	case config.ProviderOpenAI:
		key, err := p.RequireAPIKey()
		if err != nil {
			return nil, err
		}
		adapter, err := embedding.NewOpenAIAdapter(embedding.OpenAIConfig{
			APIKey:  key,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSecs) * time.Second,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", entities.ErrInvalidConfiguration, p.Provider)
	}
}

func buildLLM(c config.LLMConfig, log *slog.Logger) (ports.LLMService, error) {
	p := c.Endpoint()
	switch p.Provider {
	case config.ProviderOllama:
		return llm.NewOllamaLLMAdapter(p.BaseURL, p.Model, log), nil
	case config.ProviderOpenAI:
		key, err := p.RequireAPIKey()
		if err != nil {
			return nil, err
		}
		adapter, err := llm.NewOpenAIAdapter(llm.OpenAIConfig{
			APIKey:  key,
			BaseURL: p.BaseURL,
			Model:   p.Model,
			Timeout: time.Duration(p.TimeoutSecs) * time.Second,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", entities.ErrInvalidConfiguration, p.Provider)
	}
}
