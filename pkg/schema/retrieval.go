package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9_]+`)

// RetrievedTable is a single retrieval hit with its score and the match
// categories that produced it.
type RetrievedTable struct {
	Schema       string   `json:"schema"`
	Table        string   `json:"table"`
	Score        float64  `json:"score"`
	Reasons      []string `json:"reasons"`
	ExpandedByFK bool     `json:"expanded_by_fk"`
}

// FQN returns the fully-qualified "schema.table" name.
func (t RetrievedTable) FQN() string {
	return fmt.Sprintf("%s.%s", t.Schema, t.Table)
}

// RetrievalResult is the ranked table selection for one question.
type RetrievalResult struct {
	Question       string           `json:"question"`
	SelectedTables []RetrievedTable `json:"selected_tables"`
}

// TablesUsed returns the fully-qualified names of the selected tables, in
// ranking order.
func (r *RetrievalResult) TablesUsed() []string {
	names := make([]string, 0, len(r.SelectedTables))
	for _, item := range r.SelectedTables {
		names = append(names, item.FQN())
	}
	return names
}

// RetrievalOption customizes table retrieval.
type RetrievalOption func(*retrievalOptions)

type retrievalOptions struct {
	topK     int
	minScore float64
	fkExpand bool
}

// WithTopK caps the number of returned tables.
func WithTopK(topK int) RetrievalOption {
	return func(o *retrievalOptions) { o.topK = topK }
}

// WithMinScore sets the minimum lexical score a table needs to qualify.
func WithMinScore(minScore float64) RetrievalOption {
	return func(o *retrievalOptions) { o.minScore = minScore }
}

// WithFKExpansion toggles one-hop foreign-key neighbor expansion.
func WithFKExpansion(enabled bool) RetrievalOption {
	return func(o *retrievalOptions) { o.fkExpand = enabled }
}

func tokenize(value string) map[string]struct{} {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	tokens := map[string]struct{}{}
	if cleaned == "" {
		return tokens
	}
	for _, token := range tokenSplit.Split(cleaned, -1) {
		if token != "" {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

func union(dst, src map[string]struct{}) {
	for token := range src {
		dst[token] = struct{}{}
	}
}

func intersect(a, b map[string]struct{}) []string {
	var hits []string
	for token := range a {
		if _, ok := b[token]; ok {
			hits = append(hits, token)
		}
	}
	sort.Strings(hits)
	return hits
}

func round3(value float64) float64 {
	return math.Round(value*1000) / 1000
}

// fkAdjacency builds an undirected table graph from foreign keys.
func fkAdjacency(snapshot *SchemaSnapshot) map[string]map[string]struct{} {
	graph := map[string]map[string]struct{}{}
	link := func(a, b string) {
		if graph[a] == nil {
			graph[a] = map[string]struct{}{}
		}
		graph[a][b] = struct{}{}
	}
	for schemaName, schemaInfo := range snapshot.Schemas {
		for tableName, table := range schemaInfo.Tables {
			src := schemaName + "." + tableName
			if graph[src] == nil {
				graph[src] = map[string]struct{}{}
			}
			for _, fk := range table.ForeignKeys {
				dst := fk.References.Schema + "." + fk.References.Table
				link(src, dst)
				link(dst, src)
			}
		}
	}
	return graph
}

type candidate struct {
	fqn     string
	score   float64
	reasons []string
}

func scoreTable(questionTokens map[string]struct{}, schemaName string, table *TableInfo) candidate {
	tableNameTokens := tokenize(table.Name)
	schemaTokens := tokenize(schemaName)
	descriptionTokens := tokenize(table.Description)
	columnNameTokens := map[string]struct{}{}
	columnDescTokens := map[string]struct{}{}
	for columnName, column := range table.Columns {
		union(columnNameTokens, tokenize(columnName))
		union(columnDescTokens, tokenize(column.Description))
	}

	c := candidate{fqn: schemaName + "." + table.Name}
	if hits := intersect(questionTokens, tableNameTokens); len(hits) > 0 {
		c.score += 4.0 + 0.5*float64(len(hits))
		c.reasons = append(c.reasons, "table_name_match="+strings.Join(hits, ","))
	}
	if hits := intersect(questionTokens, schemaTokens); len(hits) > 0 {
		c.score += 1.5 + 0.25*float64(len(hits))
		c.reasons = append(c.reasons, "schema_match="+strings.Join(hits, ","))
	}
	if hits := intersect(questionTokens, columnNameTokens); len(hits) > 0 {
		c.score += 2.5 + 0.2*float64(len(hits))
		c.reasons = append(c.reasons, "column_match="+strings.Join(hits, ","))
	}
	if hits := intersect(questionTokens, descriptionTokens); len(hits) > 0 {
		c.score += 1.0 + 0.1*float64(len(hits))
		c.reasons = append(c.reasons, "table_description_match="+strings.Join(hits, ","))
	}
	if hits := intersect(questionTokens, columnDescTokens); len(hits) > 0 {
		c.score += 0.8 + 0.1*float64(len(hits))
		c.reasons = append(c.reasons, "column_description_match="+strings.Join(hits, ","))
	}

	// Small coverage bonus for broad overlap across all table text.
	allTokens := map[string]struct{}{}
	union(allTokens, tableNameTokens)
	union(allTokens, schemaTokens)
	union(allTokens, descriptionTokens)
	union(allTokens, columnNameTokens)
	union(allTokens, columnDescTokens)
	if overlap := len(intersect(questionTokens, allTokens)); overlap > 0 {
		c.score += math.Min(1.5, float64(overlap)*0.15)
	}
	return c
}

// RetrieveTables ranks tables relevant to a natural-language question by
// weighted lexical overlap against names and descriptions, then optionally
// pads the selection with one-hop foreign-key neighbors of the hits.
// Ordering is deterministic: score descending, then fully-qualified name.
func RetrieveTables(question string, snapshot *SchemaSnapshot, opts ...RetrievalOption) (*RetrievalResult, error) {
	options := &retrievalOptions{topK: 6, minScore: 1.0, fkExpand: true}
	for _, opt := range opts {
		opt(options)
	}

	normalized := strings.TrimSpace(question)
	if normalized == "" {
		return nil, errors.New("question cannot be empty")
	}
	if options.topK < 1 {
		return nil, errors.New("top_k must be >= 1")
	}
	questionTokens := tokenize(normalized)
	if len(questionTokens) == 0 {
		return nil, errors.New("question does not contain searchable tokens")
	}

	tableLookup := map[string]*TableInfo{}
	var candidates []candidate
	for _, schemaName := range snapshot.SchemaNames() {
		schemaInfo := snapshot.Schemas[schemaName]
		tableNames := make([]string, 0, len(schemaInfo.Tables))
		for name := range schemaInfo.Tables {
			tableNames = append(tableNames, name)
		}
		sort.Strings(tableNames)
		for _, tableName := range tableNames {
			table := schemaInfo.Tables[tableName]
			tableLookup[schemaName+"."+tableName] = table
			if c := scoreTable(questionTokens, schemaName, table); c.score >= options.minScore {
				candidates = append(candidates, c)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].fqn < candidates[j].fqn
	})

	var selected []RetrievedTable
	seen := map[string]struct{}{}
	for _, c := range candidates {
		if len(selected) >= options.topK {
			break
		}
		table := tableLookup[c.fqn]
		selected = append(selected, RetrievedTable{
			Schema:  table.Schema,
			Table:   table.Name,
			Score:   round3(c.score),
			Reasons: c.reasons,
		})
		seen[c.fqn] = struct{}{}
	}

	if options.fkExpand && len(selected) > 0 {
		graph := fkAdjacency(snapshot)
		base := make([]RetrievedTable, len(selected))
		copy(base, selected)
	expansion:
		for _, hit := range base {
			if len(selected) >= options.topK {
				break
			}
			neighbors := make([]string, 0, len(graph[hit.FQN()]))
			for neighbor := range graph[hit.FQN()] {
				neighbors = append(neighbors, neighbor)
			}
			sort.Strings(neighbors)
			for _, neighbor := range neighbors {
				if _, dup := seen[neighbor]; dup {
					continue
				}
				table, ok := tableLookup[neighbor]
				if !ok {
					continue
				}
				selected = append(selected, RetrievedTable{
					Schema:       table.Schema,
					Table:        table.Name,
					Score:        round3(math.Max(0.5, hit.Score-1.0)),
					Reasons:      []string{"fk_neighbor_of=" + hit.FQN()},
					ExpandedByFK: true,
				})
				seen[neighbor] = struct{}{}
				if len(selected) >= options.topK {
					break expansion
				}
			}
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Score != selected[j].Score {
			return selected[i].Score > selected[j].Score
		}
		return selected[i].FQN() < selected[j].FQN()
	})
	if len(selected) > options.topK {
		selected = selected[:options.topK]
	}

	return &RetrievalResult{Question: normalized, SelectedTables: selected}, nil
}
