package validator

import "strings"

// Result is the structured outcome of validating one SQL statement.
// It is constructed fresh per call and not mutated afterwards.
type Result struct {
	// IsValid is true iff Violations is empty.
	IsValid bool `json:"is_valid"`

	// SQL is the original statement text as supplied by the caller.
	SQL string `json:"sql"`

	// NormalizedSQL is the canonical deparse of the (possibly
	// limit-augmented) tree. Populated for invalid statements too, as
	// long as they parsed.
	NormalizedSQL string `json:"normalized_sql"`

	// TablesUsed holds the sorted, distinct fully-qualified tables the
	// statement resolved to.
	TablesUsed []string `json:"tables_used"`

	// ColumnsUsed holds the sorted, distinct fully-qualified columns
	// (schema.table.column) the statement resolved to.
	ColumnsUsed []string `json:"columns_used"`

	// Violations lists every failed rule, deduplicated by exact text.
	Violations []string `json:"violations"`

	// LimitAdded is true when a default LIMIT was injected into
	// NormalizedSQL.
	LimitAdded bool `json:"limit_added"`
}

// ValidationError aggregates all violations of an invalid statement into
// a single error, for callers that prefer fail-fast over inspecting a
// Result.
type ValidationError struct {
	Violations []string
}

// Error implements the error interface with one "- " bullet per violation.
func (e *ValidationError) Error() string {
	lines := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		lines = append(lines, "- "+violation)
	}
	return strings.Join(lines, "\n")
}
