package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

var _ ports.LLMService = (*OpenAIAdapter)(nil)

// OpenAI-compatible defaults. The base URL points at GitHub Models.
const (
	DefaultOpenAIURL   = "https://models.inference.ai.azure.com"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTimeout     = 120 * time.Second
)

const maxErrorBody = 512

// OpenAIConfig holds configuration for an OpenAI-compatible chat endpoint.
type OpenAIConfig struct {
	// APIKey is sent as a bearer token (required).
	APIKey string

	// BaseURL is the API base URL; /chat/completions is appended.
	BaseURL string

	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// OpenAIAdapter implements ports.LLMService against /chat/completions.
type OpenAIAdapter struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	log     *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIAdapter creates an OpenAI-compatible chat adapter.
func NewOpenAIAdapter(cfg OpenAIConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: llm API key is required", entities.ErrInvalidConfiguration)
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

// Model returns the chat model name.
func (a *OpenAIAdapter) Model() string { return a.model }

// Generate sends the system and user messages and returns the first choice.
func (a *OpenAIAdapter) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d: %s", a.model, resp.StatusCode, truncate(body, maxErrorBody))
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", errors.New(chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", a.model)
	}

	a.log.Debug("chat completion",
		slog.String("model", a.model),
		slog.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		slog.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		slog.String("finish_reason", chatResp.Choices[0].FinishReason),
	)
	return chatResp.Choices[0].Message.Content, nil
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
