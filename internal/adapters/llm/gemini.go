package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"ig-comment-bot/internal/domain"
	"ig-comment-bot/internal/infra/metrics"
)

// Gemini генерирует ответы через Google Gemini.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ domain.TextBackend = (*Gemini)(nil)

// NewGemini создаёт клиента Gemini.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is empty", domain.ErrConfig)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Complete отправляет промпт и возвращает текст первого кандидата.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	metrics.ObserveNetworkRequest("gemini", "generate_content", g.model, start, err)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if result != nil && result.UsageMetadata != nil {
		u := result.UsageMetadata
		metrics.ObserveLLMGeneration(g.model, time.Since(start), int(u.PromptTokenCount), int(u.CandidatesTokenCount), int(u.TotalTokenCount))
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("gemini: %w: %v", domain.ErrQuota, err)
	}
	if looksLikeQuota(err) {
		return fmt.Errorf("gemini: %w: %v", domain.ErrQuota, err)
	}
	return fmt.Errorf("gemini: %w", err)
}

// looksLikeQuota распознаёт превышение квоты по тексту ошибки.
func looksLikeQuota(err error) bool {
	return domain.IsQuotaMessage(err)
}
