package llm

import (
	"github.com/pkg/errors"

	"github.com/nsxbet/pg-nl2sql/pkg/config"
)

// NewGenerator builds the generator for the configured provider.
func NewGenerator(settings *config.Settings) (Generator, error) {
	switch settings.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(settings.OpenAIAPIKey, settings.OpenAIModel, ""), nil
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(settings.AnthropicAPIKey, settings.AnthropicModel), nil
	default:
		return nil, errors.Errorf("unsupported LLM provider: %s", settings.LLMProvider)
	}
}
