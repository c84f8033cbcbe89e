package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/nsxbet/pg-nl2sql/pkg/prompt"
)

// OpenAIGenerator generates SQL payloads using the OpenAI Chat
// Completions API with JSON response format.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates an OpenAI-backed generator. An empty
// baseURL uses the default API endpoint.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateSQL implements Generator.
func (g *OpenAIGenerator) GenerateSQL(ctx context.Context, bundle *prompt.Bundle) (*GenerationResult, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: bundle.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: bundle.UserPrompt},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "OpenAI request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI response is missing choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("OpenAI message content is empty")
	}
	return ParsePayload(content)
}
