package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

var _ ports.EmbeddingService = (*OpenAIAdapter)(nil)

// OpenAI-compatible defaults. The base URL points at GitHub Models.
const (
	DefaultOpenAIURL   = "https://models.inference.ai.azure.com"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultTimeout     = 60 * time.Second
)

// maxErrorBody caps how much of an error response ends up in an error message.
const maxErrorBody = 512

// OpenAIConfig holds configuration for an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	// APIKey is sent as a bearer token (required).
	APIKey string

	// BaseURL is the API base URL; /embeddings is appended.
	BaseURL string

	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// OpenAIAdapter implements ports.EmbeddingService against /embeddings.
type OpenAIAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	log     *slog.Logger
}

type openAIEmbeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIAdapter creates an OpenAI-compatible embedding adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: embedding API key is required", entities.ErrInvalidConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &OpenAIAdapter{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		log:     cfg.Logger,
	}, nil
}

// Model returns the embedding model name.
func (a *OpenAIAdapter) Model() string { return a.model }

// Embed generates a vector embedding for the given text.
func (a *OpenAIAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in a single request and returns them in input order.
func (a *OpenAIAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(openAIEmbeddingRequest{Model: a.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", entities.ErrEmbeddingFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %w", entities.ErrEmbeddingFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", entities.ErrEmbeddingFailure, err)
	}

	a.log.Debug("embedding request",
		slog.String("model", a.model),
		slog.Int("inputs", len(texts)),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d: %s",
			entities.ErrEmbeddingFailure, a.model, resp.StatusCode, truncate(body, maxErrorBody))
	}

	var embedResp openAIEmbeddingResponse
	if err := json.Unmarshal(body, &embedResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", entities.ErrEmbeddingFailure, err)
	}
	if embedResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrEmbeddingFailure, embedResp.Error.Message)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("%w: response index %d out of range", entities.ErrEmbeddingFailure, data.Index)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		embeddings[data.Index] = vec
	}
	for i, vec := range embeddings {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%w: no embedding returned for input %d", entities.ErrEmbeddingFailure, i)
		}
	}

	return embeddings, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
