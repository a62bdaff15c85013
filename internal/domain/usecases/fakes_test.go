package usecases

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// vocabEmbedder counts vocabulary words in the text. The last dimension is a
// constant bias so no vector is ever zero.
type vocabEmbedder struct {
	vocab  []string
	failOn string

	mu      sync.Mutex
	calls   int
	batches int
}

func newVocabEmbedder(vocab ...string) *vocabEmbedder {
	return &vocabEmbedder{vocab: vocab}
}

func (e *vocabEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("model unavailable")
	}

	lower := strings.ToLower(text)
	vec := make([]float32, len(e.vocab)+1)
	for i, word := range e.vocab {
		vec[i] = float32(strings.Count(lower, word))
	}
	vec[len(e.vocab)] = 1
	return vec, nil
}

func (e *vocabEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *vocabEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *vocabEmbedder) Batches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches
}

// gatedEmbedder holds every EmbedBatch call until release is closed.
// entered is closed when the first call arrives.
type gatedEmbedder struct {
	*vocabEmbedder
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder(vocab ...string) *gatedEmbedder {
	return &gatedEmbedder{
		vocabEmbedder: newVocabEmbedder(vocab...),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (e *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.once.Do(func() { close(e.entered) })
	select {
	case <-e.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return e.vocabEmbedder.EmbedBatch(ctx, texts)
}

// memStore is a minimal ports.VectorStore.
type memStore struct {
	mu      sync.Mutex
	records []entities.Record
	addErr  error
	adds    int
}

var _ ports.VectorStore = (*memStore)(nil)

func (s *memStore) Add(ctx context.Context, records []entities.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.adds++
	s.records = append(s.records, records...)
	return nil
}

func (s *memStore) Records(ctx context.Context) ([]entities.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *memStore) IDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		ids[r.Chunk.ID] = struct{}{}
	}
	return ids, nil
}

func (s *memStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *memStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// recordingLLM returns a fixed response and keeps every request.
type recordingLLM struct {
	response string
	err      error

	mu       sync.Mutex
	requests []ports.GenerateRequest
}

func (l *recordingLLM) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	l.mu.Lock()
	l.requests = append(l.requests, req)
	l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func (l *recordingLLM) Requests() []ports.GenerateRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.GenerateRequest(nil), l.requests...)
}

// staticLoader serves an in-memory corpus.
type staticLoader struct {
	docs []entities.Document
	err  error
}

func (l *staticLoader) LoadAll(ctx context.Context) ([]entities.Document, error) {
	if l.err != nil {
		return nil, l.err
	}
	return append([]entities.Document(nil), l.docs...), nil
}

func (l *staticLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	for _, doc := range l.docs {
		if doc.Path == path || doc.ID == path {
			d := doc
			return &d, nil
		}
	}
	return nil, errors.New("not found")
}

func (l *staticLoader) SupportedExtensions() []string { return []string{".txt"} }

// answerConfirmer always gives the same answer and counts prompts.
type answerConfirmer struct {
	answer  bool
	prompts int
	indexed int
}

func (c *answerConfirmer) ConfirmReindex(ctx context.Context, indexed int) (bool, error) {
	c.prompts++
	c.indexed = indexed
	return c.answer, nil
}

// stubSearcher returns canned results or an error.
type stubSearcher struct {
	results []entities.RetrievalResult
	err     error
	calls   int
}

func (s *stubSearcher) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := append([]entities.RetrievalResult(nil), s.results...)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func textChunks(texts ...string) []entities.Chunk {
	chunks := make([]entities.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = entities.Chunk{
			ID:       ChunkID("doc.txt", i),
			Source:   "doc.txt",
			Sequence: i,
			Text:     text,
			Start:    i * 10,
			End:      i*10 + len([]rune(text)),
		}
	}
	return chunks
}
