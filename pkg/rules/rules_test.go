package rules

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/proto"
)

func TestIsAggregateFunction(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{name: "count", expected: true},
		{name: "SUM", expected: true},
		{name: "string_agg", expected: true},
		{name: "percentile_cont", expected: true},
		{name: "lower", expected: false},
		{name: "now", expected: false},
		{name: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAggregateFunction(tt.name))
		})
	}
}

func TestIsAggregateCall(t *testing.T) {
	tests := []struct {
		name     string
		call     *pg_query.FuncCall
		funcName string
		expected bool
	}{
		{
			name:     "count star marker",
			call:     &pg_query.FuncCall{AggStar: true},
			funcName: "count",
			expected: true,
		},
		{
			name:     "distinct marker on unknown name",
			call:     &pg_query.FuncCall{AggDistinct: true},
			funcName: "my_agg",
			expected: true,
		},
		{
			name:     "known aggregate by name",
			call:     &pg_query.FuncCall{},
			funcName: "sum",
			expected: true,
		},
		{
			name:     "plain scalar call",
			call:     &pg_query.FuncCall{},
			funcName: "lower",
			expected: false,
		},
		{
			name:     "rank as window function",
			call:     &pg_query.FuncCall{Over: &pg_query.WindowDef{}},
			funcName: "rank",
			expected: false,
		},
		{
			name:     "count star over window",
			call:     &pg_query.FuncCall{AggStar: true, Over: &pg_query.WindowDef{}},
			funcName: "count",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAggregateCall(tt.call, tt.funcName))
		})
	}
}

func TestClassifyForbidden(t *testing.T) {
	tests := []struct {
		name      string
		msg       proto.Message
		label     string
		forbidden bool
	}{
		{name: "select is allowed", msg: &pg_query.SelectStmt{}, forbidden: false},
		{name: "range var is not a statement", msg: &pg_query.RangeVar{}, forbidden: false},
		{name: "insert", msg: &pg_query.InsertStmt{}, label: "INSERT", forbidden: true},
		{name: "update", msg: &pg_query.UpdateStmt{}, label: "UPDATE", forbidden: true},
		{name: "delete", msg: &pg_query.DeleteStmt{}, label: "DELETE", forbidden: true},
		{name: "merge", msg: &pg_query.MergeStmt{}, label: "MERGE", forbidden: true},
		{name: "create table", msg: &pg_query.CreateStmt{}, label: "CREATE", forbidden: true},
		{name: "create view", msg: &pg_query.ViewStmt{}, label: "CREATE", forbidden: true},
		{name: "alter table", msg: &pg_query.AlterTableStmt{}, label: "ALTER", forbidden: true},
		{name: "drop", msg: &pg_query.DropStmt{}, label: "DROP", forbidden: true},
		{name: "truncate", msg: &pg_query.TruncateStmt{}, label: "TRUNCATE", forbidden: true},
		{name: "grant", msg: &pg_query.GrantStmt{IsGrant: true}, label: "GRANT", forbidden: true},
		{name: "revoke", msg: &pg_query.GrantStmt{IsGrant: false}, label: "REVOKE", forbidden: true},
		{name: "grant role", msg: &pg_query.GrantRoleStmt{IsGrant: true}, label: "GRANT", forbidden: true},
		{name: "explain falls to catch-all", msg: &pg_query.ExplainStmt{}, label: "EXPLAIN", forbidden: true},
		{name: "set falls to catch-all", msg: &pg_query.VariableSetStmt{}, label: "VARIABLESET", forbidden: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, forbidden := ClassifyForbidden(tt.msg)
			assert.Equal(t, tt.forbidden, forbidden)
			assert.Equal(t, tt.label, label)
		})
	}
}
