package usecases

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// Generation defaults.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// SystemPrompt frames the model as a context-bound assistant.
const SystemPrompt = "You are a helpful assistant that answers questions based on provided context."

// Prompt is the composed model input.
type Prompt struct {
	System string
	User   string
}

// QueryOptions tunes generation.
type QueryOptions struct {
	Temperature float64
	MaxTokens   int
}

// QueryUseCase retrieves context for a question and asks the model to answer from it.
type QueryUseCase struct {
	retriever   *Retriever
	llm         ports.LLMService
	temperature float64
	maxTokens   int
}

// NewQueryUseCase creates a QueryUseCase with injected dependencies.
func NewQueryUseCase(retriever *Retriever, llm ports.LLMService, opts QueryOptions) *QueryUseCase {
	if opts.Temperature < 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &QueryUseCase{
		retriever:   retriever,
		llm:         llm,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}
}

// Answer retrieves up to topK chunks and generates a grounded answer.
// With no retrieved context the model is not called.
func (uc *QueryUseCase) Answer(ctx context.Context, question string, topK int) (*entities.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", entities.ErrInvalidInput)
	}

	results, err := uc.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	answer := &entities.Answer{Question: question, Sources: results}
	if len(results) == 0 {
		answer.Text = entities.NoInformationAnswer
		return answer, nil
	}

	prompt := Compose(question, results)
	text, err := uc.llm.Generate(ctx, ports.GenerateRequest{
		System:      prompt.System,
		Prompt:      prompt.User,
		Temperature: uc.temperature,
		MaxTokens:   uc.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrGenerationFailure, err)
	}

	answer.Text = strings.TrimSpace(text)
	return answer, nil
}

// Search retrieves context without generation.
func (uc *QueryUseCase) Search(ctx context.Context, query string, topK int) ([]entities.RetrievalResult, error) {
	return uc.retriever.Retrieve(ctx, query, topK)
}

// Compose builds the grounded prompt. Context blocks keep rank order and are
// labelled [Source i: <source>] starting from 1.
func Compose(question string, results []entities.RetrievalResult) Prompt {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = "[Source " + strconv.Itoa(i+1) + ": " + r.Chunk.Source + "]\n" + r.Chunk.Text
	}

	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. Answer the question based only on the context provided below.\n")
	sb.WriteString("If the answer is not in the context, say \"" + entities.NoInformationAnswer + "\"\n")
	sb.WriteString("When possible, mention which source the information comes from.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return Prompt{System: SystemPrompt, User: sb.String()}
}
