package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/ragqa/internal/adapters/vectordb"
	"github.com/0xcro3dile/ragqa/internal/config"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

type stubLLM struct {
	mu      sync.Mutex
	answer  string
	prompts []string
}

func (s *stubLLM) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	return s.answer, nil
}

// wordEmbedder counts vocabulary words plus a constant bias dimension.
type wordEmbedder struct {
	mu    sync.Mutex
	vocab []string
	calls int
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	vec := make([]float32, len(e.vocab)+1)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!")
		for i, v := range e.vocab {
			if word == v {
				vec[i]++
			}
		}
	}
	vec[len(e.vocab)] = 1
	return vec, nil
}

func (e *wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *wordEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fixture struct {
	dir       string
	corpusDir string
	cfgPath   string
	llm       *stubLLM
	embedder  *wordEmbedder
}

func newFixture(t *testing.T, docs map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		dir:      t.TempDir(),
		llm:      &stubLLM{answer: "Grass is green."},
		embedder: &wordEmbedder{vocab: []string{"sky", "blue", "grass", "green"}},
	}
	f.corpusDir = filepath.Join(f.dir, "documents")
	require.NoError(t, os.MkdirAll(f.corpusDir, 0o755))
	for name, content := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(f.corpusDir, name), []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Corpus.Dir = f.corpusDir
	cfg.Chunker = config.ChunkerConfig{Size: 20, Overlap: 5}
	cfg.Index.Path = filepath.Join(f.dir, "index")
	cfg.Embedder.Provider = config.ProviderOllama
	cfg.LLM.Provider = config.ProviderOllama
	f.cfgPath = filepath.Join(f.dir, "ragqa.yaml")
	require.NoError(t, config.Save(f.cfgPath, cfg))

	origEmbedder, origLLM := newEmbedder, newLLM
	newEmbedder = func(config.ProviderConfig, *slog.Logger) (ports.EmbeddingService, error) { return f.embedder, nil }
	newLLM = func(config.LLMConfig, *slog.Logger) (ports.LLMService, error) { return f.llm, nil }
	t.Cleanup(func() { newEmbedder, newLLM = origEmbedder, origLLM })

	return f
}

func colorsFixture(t *testing.T) *fixture {
	return newFixture(t, map[string]string{"colors.txt": "The sky is blue. Grass is green."})
}

func resetFlags() {
	cfgFile, verbose, modeFlag, assumeYes = "", false, "", false
	askTopK, chatTopK = 0, 0
	statsJSON = false
	inspectLimit, inspectQuery, inspectCollection = 3, "", ""
	initForce = false
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestAsk_Lexical(t *testing.T) {
	f := colorsFixture(t)

	out, err := execute(t, "", "--config", f.cfgPath, "ask", "what", "color", "is", "grass")
	require.NoError(t, err)

	assert.Contains(t, out, "Question: what color is grass")
	assert.Contains(t, out, "Answer: Grass is green.")
	assert.Contains(t, out, "1. colors.txt (chunk 1)")

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "[Source 1: colors.txt]")
	assert.Contains(t, f.llm.prompts[0], "Grass is green.")
}

func TestAsk_EmptyCorpusSkipsModel(t *testing.T) {
	f := newFixture(t, nil)

	out, err := execute(t, "", "--config", f.cfgPath, "ask", "anything")
	require.NoError(t, err)

	assert.Contains(t, out, "I don't have enough information to answer that.")
	assert.Empty(t, f.llm.prompts)
}

func TestAsk_Vector(t *testing.T) {
	f := colorsFixture(t)

	out, err := execute(t, "", "--config", f.cfgPath, "--mode", "vector", "ask", "--top-k", "1", "what color is grass")
	require.NoError(t, err)

	assert.Contains(t, out, "1. colors.txt (chunk 1)")
	assert.NotContains(t, out, "2. colors.txt")
	assert.Equal(t, 4, f.embedder.Calls(), "three chunks and one query")
}

func TestIndex_ReusesPersistedIndex(t *testing.T) {
	f := colorsFixture(t)

	out, err := execute(t, "", "--config", f.cfgPath, "--mode", "vector", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 of 3 chunks from 1 documents (vector mode)")
	assert.Equal(t, 3, f.embedder.Calls())

	_, err = execute(t, "", "--config", f.cfgPath, "--mode", "vector", "index")
	require.NoError(t, err)
	assert.Equal(t, 3, f.embedder.Calls(), "declined reindex embeds nothing")

	out, err = execute(t, "", "--config", f.cfgPath, "--mode", "vector", "--yes", "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 of 3 chunks")
	assert.Equal(t, 6, f.embedder.Calls(), "confirmed reindex embeds every chunk again")
}

func TestStats_JSON(t *testing.T) {
	f := colorsFixture(t)

	out, err := execute(t, "", "--config", f.cfgPath, "stats", "--json")
	require.NoError(t, err)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, float64(1), stats["documents"])
	assert.Equal(t, float64(3), stats["total_chunks"])
	assert.Equal(t, "lexical", stats["mode"])
	assert.Equal(t, "operational", stats["status"])
}

func TestStats_NoDocuments(t *testing.T) {
	f := newFixture(t, nil)

	out, err := execute(t, "", "--config", f.cfgPath, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "no_documents")
}

func TestChat_PlainLoop(t *testing.T) {
	f := colorsFixture(t)

	out, err := execute(t, "what color is grass\n\nquit\n", "--config", f.cfgPath, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "1 documents, 3 chunks, lexical mode")
	assert.Contains(t, out, "Answer: Grass is green.")
	assert.Contains(t, out, "Goodbye!")
	assert.Len(t, f.llm.prompts, 1)
}

func TestInspect(t *testing.T) {
	f := colorsFixture(t)

	_, err := execute(t, "", "--config", f.cfgPath, "--mode", "vector", "index")
	require.NoError(t, err)

	out, err := execute(t, "", "--config", f.cfgPath, "inspect", "--limit", "1", "--query", "grass")
	require.NoError(t, err)

	assert.Contains(t, out, "Available collections: 1")
	assert.Contains(t, out, "Collection: document_collection")
	assert.Contains(t, out, "Total chunks in collection: 3")
	assert.Contains(t, out, "--- Chunk 1 ---")
	assert.NotContains(t, out, "--- Chunk 2 ---")
	assert.Contains(t, out, "Similarity Score:")
	assert.Contains(t, out, "Source: colors.txt (chunk 1)")
}

func TestInspect_EmptyCollection(t *testing.T) {
	f := colorsFixture(t)
	store, err := vectordb.NewSQLiteStore(filepath.Join(f.dir, "index"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, err := execute(t, "", "--config", f.cfgPath, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Collection is empty.")
}

func TestInspect_MissingDatabase(t *testing.T) {
	f := colorsFixture(t)
	indexDir := filepath.Join(f.dir, "index")

	_, err := execute(t, "", "--config", f.cfgPath, "inspect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")

	_, statErr := os.Stat(filepath.Join(indexDir, vectordb.DatabaseFile))
	assert.True(t, os.IsNotExist(statErr), "inspect must not create the database")
}

func TestRoot_InvalidMode(t *testing.T) {
	f := colorsFixture(t)

	_, err := execute(t, "", "--config", f.cfgPath, "--mode", "hybrid", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown retrieval mode")
}

func TestAsk_MissingAPIKeyNamesVariable(t *testing.T) {
	f := colorsFixture(t)
	newLLM = buildLLM
	t.Setenv("RAGQA_TEST_TOKEN", "")

	cfg, err := config.Load(f.cfgPath)
	require.NoError(t, err)
	cfg.LLM.Provider = config.ProviderOpenAI
	cfg.LLM.APIKeyEnv = "RAGQA_TEST_TOKEN"
	require.NoError(t, config.Save(f.cfgPath, cfg))

	_, err = execute(t, "", "--config", f.cfgPath, "ask", "what color is grass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAGQA_TEST_TOKEN")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "ragqa version dev\n", out)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragqa.toml")

	out, err := execute(t, "", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Chunker, cfg.Chunker)

	_, err = execute(t, "", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "", "init", "--force", path)
	require.NoError(t, err)
}
