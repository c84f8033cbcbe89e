package llm

import (
	"context"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/pkg/errors"

	"github.com/nsxbet/pg-nl2sql/pkg/prompt"
)

const anthropicMaxTokens = 2048

// AnthropicGenerator generates SQL payloads using the Anthropic Messages
// API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicGenerator creates an Anthropic-backed generator.
func NewAnthropicGenerator(apiKey, model string) *AnthropicGenerator {
	return &AnthropicGenerator{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

// GenerateSQL implements Generator.
func (g *AnthropicGenerator) GenerateSQL(ctx context.Context, bundle *prompt.Bundle) (*GenerationResult, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		System:    bundle.SystemPrompt,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(bundle.UserPrompt),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "Anthropic request failed")
	}
	content := strings.TrimSpace(resp.GetFirstContentText())
	if content == "" {
		return nil, errors.New("Anthropic message content is empty")
	}
	return ParsePayload(content)
}
