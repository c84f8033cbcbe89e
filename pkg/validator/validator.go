// Package validator decides whether a SQL statement is safe to execute
// read-only against a known schema, and produces a canonicalized,
// limit-bounded rewrite when it is.
//
// Validation is a pure function of (sql, snapshot, options): it performs
// no I/O, holds no state across calls, and never mutates the snapshot,
// so concurrent calls against one snapshot are safe.
package validator

import (
	"fmt"
	"sort"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/proto"

	"github.com/nsxbet/pg-nl2sql/pkg/pgparser"
	"github.com/nsxbet/pg-nl2sql/pkg/rules"
	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

// treeFacts is everything a single traversal extracts from the parse
// tree. Reference order is the traversal order, which is stable for a
// given statement.
type treeFacts struct {
	cteNames       map[string]struct{}
	forbiddenKinds map[string]struct{}
	selectCount    int
	tableRefs      []*pg_query.RangeVar
	columnRefs     []*pg_query.ColumnRef
	hasWildcard    bool
	hasAggregate   bool
}

func collectFacts(tree *pg_query.ParseResult) *treeFacts {
	facts := &treeFacts{
		cteNames:       map[string]struct{}{},
		forbiddenKinds: map[string]struct{}{},
	}
	pgparser.Walk(tree, func(msg proto.Message) {
		if label, forbidden := rules.ClassifyForbidden(msg); forbidden {
			facts.forbiddenKinds[label] = struct{}{}
		}
		switch n := msg.(type) {
		case *pg_query.SelectStmt:
			facts.selectCount++
		case *pg_query.CommonTableExpr:
			if n.Ctename != "" {
				facts.cteNames[n.Ctename] = struct{}{}
			}
		case *pg_query.RangeVar:
			facts.tableRefs = append(facts.tableRefs, n)
		case *pg_query.ColumnRef:
			facts.columnRefs = append(facts.columnRefs, n)
			if _, star := pgparser.ColumnRefParts(n); star {
				facts.hasWildcard = true
			}
		case *pg_query.FuncCall:
			if rules.IsAggregateCall(n, pgparser.FuncCallName(n)) {
				facts.hasAggregate = true
			}
		}
	})
	return facts
}

// Validate checks one SQL statement against the safety rules and the
// schema snapshot. Violations accumulate rather than short-circuit, so
// the result reports every problem at once; only a parse failure returns
// immediately. The snapshot is read-only for the duration of the call.
func Validate(sql string, snapshot *schema.SchemaSnapshot, opts ...Option) *Result {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	tree, err := pgparser.Parse(sql)
	if err != nil {
		return &Result{
			IsValid:       false,
			SQL:           sql,
			NormalizedSQL: sql,
			TablesUsed:    []string{},
			ColumnsUsed:   []string{},
			Violations:    []string{err.Error()},
		}
	}

	facts := collectFacts(tree)
	var violations []string

	root := pgparser.RootSelect(tree)
	if root == nil {
		violations = append(violations, "Only SELECT query forms are allowed.")
	}

	if len(facts.forbiddenKinds) > 0 {
		kinds := make([]string, 0, len(facts.forbiddenKinds))
		for kind := range facts.forbiddenKinds {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		violations = append(violations,
			"Forbidden SQL statement(s) detected: "+strings.Join(kinds, ", "))
	}

	if facts.selectCount == 0 {
		violations = append(violations, "SQL must contain a SELECT statement.")
	}

	tablesUsed, aliases, tableViolations := resolveTables(facts, snapshot, o.defaultSchema)
	violations = append(violations, tableViolations...)

	if len(o.allowedTables) > 0 {
		allowed := map[string]struct{}{}
		for _, fqn := range o.allowedTables {
			allowed[fqn] = struct{}{}
		}
		for _, fqn := range tablesUsed {
			if _, ok := allowed[fqn]; !ok {
				violations = append(violations,
					fmt.Sprintf("Table '%s' is outside the allowed retrieval scope.", fqn))
			}
		}
	}

	columnsUsed, columnViolations := resolveColumns(facts, snapshot, tablesUsed, aliases)
	violations = append(violations, columnViolations...)

	if facts.hasWildcard {
		violations = append(violations, "SELECT * is not allowed; select explicit columns.")
	}

	violations = dedupe(violations)

	limitAdded := false
	workTree := tree
	if len(violations) == 0 && o.enforceLimit && !facts.hasAggregate &&
		root != nil && !pgparser.HasLimit(root) {
		workTree = pgparser.InjectLimit(tree, o.defaultLimit)
		limitAdded = true
	}

	// Canonicalize even when invalid, so callers can display the
	// normalized form of rejected SQL.
	normalized, err := pgparser.Deparse(workTree)
	if err != nil {
		normalized = sql
	}

	return &Result{
		IsValid:       len(violations) == 0,
		SQL:           sql,
		NormalizedSQL: normalized,
		TablesUsed:    sortedDistinct(tablesUsed),
		ColumnsUsed:   sortedDistinct(columnsUsed),
		Violations:    violations,
		LimitAdded:    limitAdded,
	}
}

// EnsureValid validates and converts an invalid result into a single
// aggregated error carrying all violation messages.
func EnsureValid(sql string, snapshot *schema.SchemaSnapshot, opts ...Option) (*Result, error) {
	result := Validate(sql, snapshot, opts...)
	if !result.IsValid {
		return result, &ValidationError{Violations: result.Violations}
	}
	return result, nil
}

// resolveTables resolves every table reference to a fully-qualified name,
// returning the distinct resolved tables in reference order and the
// alias-to-table mapping used for column resolution. References matching
// a CTE name without an explicit schema qualifier are local and skipped.
func resolveTables(
	facts *treeFacts,
	snapshot *schema.SchemaSnapshot,
	defaultSchema string,
) (tablesUsed []string, aliases map[string]string, violations []string) {
	aliases = map[string]string{}
	seen := map[string]struct{}{}

	for _, ref := range facts.tableRefs {
		tableName := ref.Relname
		schemaName := ref.Schemaname
		if tableName == "" {
			continue
		}
		if schemaName == "" {
			if _, isCTE := facts.cteNames[tableName]; isCTE {
				continue
			}
		}

		var fqn string
		if schemaName != "" {
			if _, ok := snapshot.Table(schemaName, tableName); !ok {
				violations = append(violations,
					fmt.Sprintf("Table '%s.%s' is not present in schema cache.", schemaName, tableName))
				continue
			}
			fqn = schemaName + "." + tableName
		} else {
			candidates := snapshot.SchemasWithTable(tableName)
			switch {
			case len(candidates) == 0:
				violations = append(violations,
					fmt.Sprintf("Table '%s' is not present in schema cache.", tableName))
				continue
			case len(candidates) == 1:
				fqn = candidates[0] + "." + tableName
			default:
				resolved := ""
				for _, candidate := range candidates {
					if candidate == defaultSchema {
						resolved = candidate
						break
					}
				}
				if resolved == "" {
					violations = append(violations, fmt.Sprintf(
						"Unqualified table reference is ambiguous for '%s' across schemas %s.",
						tableName, strings.Join(candidates, ", ")))
					continue
				}
				fqn = resolved + "." + tableName
			}
		}

		if _, dup := seen[fqn]; !dup {
			seen[fqn] = struct{}{}
			tablesUsed = append(tablesUsed, fqn)
		}

		alias := tableName
		if ref.Alias != nil && ref.Alias.Aliasname != "" {
			alias = ref.Alias.Aliasname
		}
		aliases[alias] = fqn
	}
	return tablesUsed, aliases, violations
}

// resolveColumns resolves every column reference against the resolved
// tables. Qualified references go through the alias map; unqualified
// ones are searched across all resolved tables and must match exactly one.
func resolveColumns(
	facts *treeFacts,
	snapshot *schema.SchemaSnapshot,
	tablesUsed []string,
	aliases map[string]string,
) (columnsUsed []string, violations []string) {
	tableByFQN := func(fqn string) (*schema.TableInfo, bool) {
		schemaName, tableName, ok := strings.Cut(fqn, ".")
		if !ok {
			return nil, false
		}
		return snapshot.Table(schemaName, tableName)
	}

	for _, ref := range facts.columnRefs {
		parts, star := pgparser.ColumnRefParts(ref)
		if star || len(parts) == 0 {
			continue
		}
		columnName := parts[len(parts)-1]
		qualifier := ""
		if len(parts) >= 2 {
			qualifier = parts[len(parts)-2]
		}

		if qualifier != "" {
			if _, isCTE := facts.cteNames[qualifier]; isCTE {
				continue
			}
			fqn, known := aliases[qualifier]
			if !known {
				violations = append(violations,
					fmt.Sprintf("Column '%s.%s' uses unknown table alias.", qualifier, columnName))
				continue
			}
			table, ok := tableByFQN(fqn)
			if !ok {
				continue
			}
			if _, exists := table.Columns[columnName]; !exists {
				violations = append(violations,
					fmt.Sprintf("Column '%s.%s' is not present in '%s'.", qualifier, columnName, fqn))
				continue
			}
			columnsUsed = append(columnsUsed, fqn+"."+columnName)
			continue
		}

		var matches []string
		for _, fqn := range tablesUsed {
			table, ok := tableByFQN(fqn)
			if !ok {
				continue
			}
			if _, exists := table.Columns[columnName]; exists {
				matches = append(matches, fqn)
			}
		}
		switch {
		case len(matches) == 0:
			violations = append(violations,
				fmt.Sprintf("Unqualified column '%s' is not present in selected tables.", columnName))
		case len(matches) > 1:
			sort.Strings(matches)
			violations = append(violations, fmt.Sprintf(
				"Unqualified column '%s' is ambiguous across: %s",
				columnName, strings.Join(matches, ", ")))
		default:
			columnsUsed = append(columnsUsed, matches[0]+"."+columnName)
		}
	}
	return columnsUsed, violations
}

func dedupe(values []string) []string {
	seen := map[string]struct{}{}
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func sortedDistinct(values []string) []string {
	distinct := dedupe(values)
	sort.Strings(distinct)
	return distinct
}
