// Package pgparser provides PostgreSQL SQL parsing functionality.
//
// This package wraps the pganalyze PostgreSQL parser to provide
// consistent parsing, canonical deparsing, generic tree traversal, and
// limit injection for use by the SQL validator.
package pgparser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ParseError represents a SQL statement that could not be parsed safely.
type ParseError struct {
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return e.Message
}

// Parse parses exactly one SQL statement under PostgreSQL grammar.
// Empty input, syntax errors, and multi-statement input all fail with a
// *ParseError.
func Parse(sql string) (*pg_query.ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, &ParseError{Message: "SQL cannot be empty."}
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("Invalid SQL: %v", err)}
	}
	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil, &ParseError{Message: "SQL cannot be empty."}
	}
	if len(tree.Stmts) > 1 {
		return nil, &ParseError{Message: "Expected exactly one SQL statement."}
	}
	return tree, nil
}

// Deparse renders the tree back to canonical SQL text. Output is stable
// for a given tree: identifier quoting and keyword casing come from the
// PostgreSQL deparser, not from the input text.
func Deparse(tree *pg_query.ParseResult) (string, error) {
	return pg_query.Deparse(tree)
}

// RootSelect returns the root SelectStmt of a single-statement tree, or
// nil when the root is any other statement kind. Set operations
// (UNION/INTERSECT/EXCEPT) are SelectStmt nodes with a set op, so they
// are covered too.
func RootSelect(tree *pg_query.ParseResult) *pg_query.SelectStmt {
	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return nil
	}
	return tree.Stmts[0].Stmt.GetSelectStmt()
}

// HasLimit reports whether the statement already carries a LIMIT clause
// at its root.
func HasLimit(sel *pg_query.SelectStmt) bool {
	return sel != nil && sel.LimitCount != nil
}

// InjectLimit returns a copy of the tree with "LIMIT n" attached to the
// root select. The input tree is left untouched.
func InjectLimit(tree *pg_query.ParseResult, limit int) *pg_query.ParseResult {
	clone := proto.Clone(tree).(*pg_query.ParseResult)
	sel := RootSelect(clone)
	if sel == nil {
		return clone
	}
	sel.LimitCount = &pg_query.Node{
		Node: &pg_query.Node_AConst{
			AConst: &pg_query.A_Const{
				Val:      &pg_query.A_Const_Ival{Ival: &pg_query.Integer{Ival: int32(limit)}},
				Location: -1,
			},
		},
	}
	sel.LimitOption = pg_query.LimitOption_LIMIT_OPTION_COUNT
	return clone
}

// Walk visits every message in the tree in a stable depth-first order,
// including nodes nested inside CTEs, subqueries, and set operations.
// Traversal runs over protobuf reflection, so node kinds added by future
// parser versions are still reached.
func Walk(tree *pg_query.ParseResult, visit func(msg proto.Message)) {
	if tree == nil {
		return
	}
	walkMessage(tree.ProtoReflect(), visit)
}

func walkMessage(m protoreflect.Message, visit func(msg proto.Message)) {
	visit(m.Interface())
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsList():
			if fd.Kind() == protoreflect.MessageKind {
				list := v.List()
				for i := 0; i < list.Len(); i++ {
					walkMessage(list.Get(i).Message(), visit)
				}
			}
		case fd.IsMap():
			if fd.MapValue().Kind() == protoreflect.MessageKind {
				v.Map().Range(func(_ protoreflect.MapKey, mv protoreflect.Value) bool {
					walkMessage(mv.Message(), visit)
					return true
				})
			}
		case fd.Kind() == protoreflect.MessageKind:
			walkMessage(v.Message(), visit)
		}
		return true
	})
}

// CTENames collects the names of all common table expressions defined
// anywhere in the tree. CTE names shadow schema tables when referenced
// unqualified.
func CTENames(tree *pg_query.ParseResult) map[string]struct{} {
	names := map[string]struct{}{}
	Walk(tree, func(msg proto.Message) {
		if cte, ok := msg.(*pg_query.CommonTableExpr); ok && cte.Ctename != "" {
			names[cte.Ctename] = struct{}{}
		}
	})
	return names
}

// FuncCallName returns the lowercased, unqualified function name of a
// call, e.g. "count" for pg_catalog.count(*).
func FuncCallName(call *pg_query.FuncCall) string {
	if len(call.Funcname) == 0 {
		return ""
	}
	last := call.Funcname[len(call.Funcname)-1].GetString_()
	if last == nil {
		return ""
	}
	return strings.ToLower(last.Sval)
}

// ColumnRefParts splits a column reference into its identifier parts and
// reports whether the reference is (or ends in) a wildcard. For "a.b.c"
// the parts are ["a", "b", "c"]; for "t.*" the parts are ["t"] with
// star=true.
func ColumnRefParts(ref *pg_query.ColumnRef) (parts []string, star bool) {
	for _, field := range ref.Fields {
		if field.GetAStar() != nil {
			star = true
			continue
		}
		if s := field.GetString_(); s != nil {
			parts = append(parts, s.Sval)
		}
	}
	return parts, star
}
