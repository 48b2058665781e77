package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ig-comment-bot/internal/domain"
	openai "ig-comment-bot/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI генерирует ответы через Chat Completions.
type OpenAI struct {
	client chatClient
	model  string
}

var _ domain.TextBackend = (*OpenAI)(nil)

// NewOpenAI создаёт бэкенд на OpenAI-совместимом API.
func NewOpenAI(client chatClient, model string) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	return &OpenAI{client: client, model: model}
}

// Complete отправляет собранный промпт одним сообщением пользователя.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.7,
		MaxTokens:   500,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleUser, Content: prompt},
		},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrQuota) && looksLikeQuota(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrQuota, err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
