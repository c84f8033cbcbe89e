// Package prompt builds the deterministic SQL-generation prompts sent to
// an LLM provider. The prompts embed only the retrieved schema subset,
// never the full snapshot, and every embedded JSON document has sorted
// keys so identical inputs produce byte-identical prompts.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

// Bundle is an inspectable prompt pair plus the artifacts it was built
// from, so callers can log or display exactly what the model saw.
type Bundle struct {
	Question           string
	RetrievedTables    []string
	SchemaSubsetJSON   string
	OutputContractJSON string
	SystemPrompt       string
	UserPrompt         string
}

// Option customizes prompt building.
type Option func(*buildOptions)

type buildOptions struct {
	topK      int
	retrieval *schema.RetrievalResult
}

// WithTopK caps the number of retrieved tables embedded in the prompt.
func WithTopK(topK int) Option {
	return func(o *buildOptions) { o.topK = topK }
}

// WithRetrievalResult reuses an existing retrieval result instead of
// running retrieval again.
func WithRetrievalResult(result *schema.RetrievalResult) Option {
	return func(o *buildOptions) { o.retrieval = result }
}

var outputContract = map[string]any{
	"type":     "object",
	"required": []string{"sql", "assumptions", "tables_used", "confidence"},
	"properties": map[string]any{
		"sql": map[string]any{
			"type":        "string",
			"description": "A single PostgreSQL SELECT query. No markdown.",
		},
		"assumptions": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Short assumptions used to map NL to schema.",
		},
		"tables_used": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Fully-qualified tables referenced by the SQL.",
		},
		"confidence": map[string]any{
			"type":        "number",
			"minimum":     0.0,
			"maximum":     1.0,
			"description": "Estimated confidence in the SQL interpretation.",
		},
	},
}

const systemPrompt = "You are a PostgreSQL SQL generation assistant. " +
	"Output JSON only and follow the response contract exactly. " +
	"Generate one safe SELECT query for human review."

func schemaSubset(snapshot *schema.SchemaSnapshot, retrieved []string) (map[string]any, error) {
	schemas := map[string]any{}
	for _, fqn := range retrieved {
		schemaName, tableName, ok := strings.Cut(fqn, ".")
		if !ok {
			return nil, errors.Errorf("invalid retrieved table identifier: %q", fqn)
		}
		table, found := snapshot.Table(schemaName, tableName)
		if !found {
			return nil, errors.Errorf("retrieved table is not present in schema snapshot: %s", fqn)
		}

		columns := map[string]any{}
		for columnName, column := range table.Columns {
			columns[columnName] = map[string]any{
				"type":        column.DataType,
				"nullable":    column.Nullable,
				"description": column.Description,
			}
		}

		foreignKeys := make([]*schema.ForeignKeyInfo, len(table.ForeignKeys))
		copy(foreignKeys, table.ForeignKeys)
		sort.Slice(foreignKeys, func(i, j int) bool {
			return foreignKeys[i].Name < foreignKeys[j].Name
		})
		fks := make([]any, 0, len(foreignKeys))
		for _, fk := range foreignKeys {
			fks = append(fks, map[string]any{
				"name":    fk.Name,
				"columns": fk.Columns,
				"references": map[string]any{
					"schema":  fk.References.Schema,
					"table":   fk.References.Table,
					"columns": fk.References.Columns,
				},
			})
		}

		primaryKey := append([]string{}, table.PrimaryKey...)
		sort.Strings(primaryKey)

		schemaEntry, ok := schemas[schemaName].(map[string]any)
		if !ok {
			schemaEntry = map[string]any{"tables": map[string]any{}}
			schemas[schemaName] = schemaEntry
		}
		schemaEntry["tables"].(map[string]any)[tableName] = map[string]any{
			"type":         table.TableType,
			"description":  table.Description,
			"columns":      columns,
			"primary_key":  primaryKey,
			"foreign_keys": fks,
		}
	}
	return map[string]any{
		"database": snapshot.Database,
		"schemas":  schemas,
	}, nil
}

// Build constructs the prompt bundle for a question, retrieving relevant
// tables from the snapshot unless a retrieval result is supplied.
func Build(question string, snapshot *schema.SchemaSnapshot, opts ...Option) (*Bundle, error) {
	o := &buildOptions{topK: 6}
	for _, opt := range opts {
		opt(o)
	}

	normalized := strings.TrimSpace(question)
	if normalized == "" {
		return nil, errors.New("question cannot be empty")
	}

	retrieval := o.retrieval
	if retrieval == nil {
		var err error
		retrieval, err = schema.RetrieveTables(normalized, snapshot, schema.WithTopK(o.topK))
		if err != nil {
			return nil, errors.Wrap(err, "table retrieval failed")
		}
	}
	if len(retrieval.SelectedTables) == 0 {
		return nil, errors.New("no relevant tables were selected for prompt generation")
	}

	retrieved := retrieval.TablesUsed()
	sort.Strings(retrieved)

	subset, err := schemaSubset(snapshot, retrieved)
	if err != nil {
		return nil, err
	}
	subsetJSON, err := json.MarshalIndent(subset, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode schema subset")
	}
	contractJSON, err := json.MarshalIndent(outputContract, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode output contract")
	}
	tableListJSON, err := json.MarshalIndent(retrieved, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode table list")
	}

	userPrompt := fmt.Sprintf(
		"Task: Convert the natural language question into a PostgreSQL SELECT query.\n"+
			"Constraints:\n"+
			"- Use only tables and columns from the provided schema subset.\n"+
			"- SELECT-only. Do not emit INSERT/UPDATE/DELETE/DDL.\n"+
			"- Prefer explicit column lists and table aliases.\n"+
			"- Avoid SELECT *.\n"+
			"- Add LIMIT 100 for non-aggregate queries when no natural bound exists.\n\n"+
			"Question:\n%s\n\n"+
			"Relevant tables:\n%s\n\n"+
			"Schema subset:\n%s\n\n"+
			"Response contract (JSON Schema-like):\n%s\n\n"+
			"Return only a JSON object matching the contract.",
		normalized, tableListJSON, subsetJSON, contractJSON,
	)

	return &Bundle{
		Question:           normalized,
		RetrievedTables:    retrieved,
		SchemaSubsetJSON:   string(subsetJSON),
		OutputContractJSON: string(contractJSON),
		SystemPrompt:       systemPrompt,
		UserPrompt:         userPrompt,
	}, nil
}
