// Package llm contains the provider-independent SQL generation interface
// and its OpenAI and Anthropic implementations. Adapters return a
// structured payload that is contract-checked before anyone trusts it;
// the generated SQL itself is validated separately by pkg/validator.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsxbet/pg-nl2sql/pkg/prompt"
)

// GenerationResult is the structured NL-to-SQL output contract.
type GenerationResult struct {
	SQL         string   `json:"sql"`
	Assumptions []string `json:"assumptions"`
	TablesUsed  []string `json:"tables_used"`
	Confidence  float64  `json:"confidence"`
}

// Generator produces a structured SQL payload for a prompt bundle.
type Generator interface {
	GenerateSQL(ctx context.Context, bundle *prompt.Bundle) (*GenerationResult, error)
}

// ParsePayload decodes and contract-checks the JSON content returned by a
// provider. Unknown fields, empty SQL, and out-of-range confidence are
// all contract violations.
func ParsePayload(content string) (*GenerationResult, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.DisallowUnknownFields()

	var result GenerationResult
	if err := decoder.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "LLM response content was not valid JSON matching the contract")
	}
	if strings.TrimSpace(result.SQL) == "" {
		return nil, errors.New("LLM response violated output contract: sql must be non-empty")
	}
	if result.Confidence < 0.0 || result.Confidence > 1.0 {
		return nil, errors.Errorf(
			"LLM response violated output contract: confidence %v outside [0, 1]", result.Confidence)
	}
	if result.Assumptions == nil {
		result.Assumptions = []string{}
	}
	if result.TablesUsed == nil {
		result.TablesUsed = []string{}
	}
	return &result, nil
}
