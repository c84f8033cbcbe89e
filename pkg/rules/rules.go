// Package rules is the static safety policy for generated SQL: which
// statement kinds are forbidden, which root shapes are allowed, and when
// a default row limit applies. Nothing here is computed per call.
package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"google.golang.org/protobuf/proto"
)

// DefaultNonAggregateLimit is appended to queries that pass validation,
// contain no aggregate call, and carry no LIMIT of their own.
const DefaultNonAggregateLimit = 100

// PostgreSQL built-in aggregate functions. The parser alone cannot tell
// an aggregate call from a plain function call, so eligibility for limit
// injection is decided by name (plus the parser's aggregate markers).
var aggregateFunctions = map[string]struct{}{
	"array_agg":        {},
	"avg":              {},
	"bit_and":          {},
	"bit_or":           {},
	"bool_and":         {},
	"bool_or":          {},
	"corr":             {},
	"count":            {},
	"covar_pop":        {},
	"covar_samp":       {},
	"cume_dist":        {},
	"dense_rank":       {},
	"every":            {},
	"grouping":         {},
	"json_agg":         {},
	"json_object_agg":  {},
	"jsonb_agg":        {},
	"jsonb_object_agg": {},
	"max":              {},
	"min":              {},
	"mode":             {},
	"percent_rank":     {},
	"percentile_cont":  {},
	"percentile_disc":  {},
	"rank":             {},
	"regr_avgx":        {},
	"regr_avgy":        {},
	"regr_count":       {},
	"regr_intercept":   {},
	"regr_r2":          {},
	"regr_slope":       {},
	"regr_sxx":         {},
	"regr_sxy":         {},
	"regr_syy":         {},
	"stddev":           {},
	"stddev_pop":       {},
	"stddev_samp":      {},
	"string_agg":       {},
	"sum":              {},
	"var_pop":          {},
	"var_samp":         {},
	"variance":         {},
	"xmlagg":           {},
}

// IsAggregateFunction reports whether name is a known aggregate function.
func IsAggregateFunction(name string) bool {
	_, ok := aggregateFunctions[strings.ToLower(name)]
	return ok
}

// IsAggregateCall reports whether a parsed function call is an aggregate,
// either by the parser's own aggregate markers (COUNT(*), DISTINCT,
// FILTER, ORDER BY inside the call) or by name.
//
// A call with an OVER clause is window usage: rank() OVER (...) and even
// count(*) OVER (...) keep one output row per input row, so they do not
// make a query aggregate. Names like rank and cume_dist only count as
// aggregates in their WITHIN GROUP ordered-set form, where Over is nil.
func IsAggregateCall(call *pg_query.FuncCall, name string) bool {
	if call.Over != nil {
		return false
	}
	if call.AggStar || call.AggDistinct || call.AggFilter != nil || len(call.AggOrder) > 0 {
		return true
	}
	return IsAggregateFunction(name)
}

// ClassifyForbidden maps a parse-tree message to the violation label of a
// forbidden statement kind. The second return is false for messages that
// are not forbidden (non-statement nodes and SELECT itself).
//
// Well-known kinds get grouped labels; every other statement message the
// parser can produce falls through to a catch-all keyed on the node's own
// type name, so a statement smuggled into a CTE or sub-block is always
// caught even if this registry has never heard of it.
func ClassifyForbidden(msg proto.Message) (string, bool) {
	switch n := msg.(type) {
	case *pg_query.SelectStmt:
		return "", false
	case *pg_query.InsertStmt:
		return "INSERT", true
	case *pg_query.UpdateStmt:
		return "UPDATE", true
	case *pg_query.DeleteStmt:
		return "DELETE", true
	case *pg_query.MergeStmt:
		return "MERGE", true
	case *pg_query.CreateStmt, *pg_query.CreateTableAsStmt, *pg_query.ViewStmt,
		*pg_query.IndexStmt, *pg_query.CreateSchemaStmt, *pg_query.CreateSeqStmt,
		*pg_query.CreateFunctionStmt, *pg_query.CreateTrigStmt, *pg_query.CreatedbStmt:
		return "CREATE", true
	case *pg_query.AlterTableStmt, *pg_query.RenameStmt, *pg_query.AlterSeqStmt,
		*pg_query.AlterOwnerStmt, *pg_query.AlterDatabaseStmt:
		return "ALTER", true
	case *pg_query.DropStmt, *pg_query.DropdbStmt:
		return "DROP", true
	case *pg_query.TruncateStmt:
		return "TRUNCATE", true
	case *pg_query.GrantStmt:
		if n.IsGrant {
			return "GRANT", true
		}
		return "REVOKE", true
	case *pg_query.GrantRoleStmt:
		if n.IsGrant {
			return "GRANT", true
		}
		return "REVOKE", true
	}

	// Catch-all over the parser's full statement taxonomy.
	name := string(msg.ProtoReflect().Descriptor().Name())
	if name != "RawStmt" && strings.HasSuffix(name, "Stmt") {
		return strings.ToUpper(strings.TrimSuffix(name, "Stmt")), true
	}
	return "", false
}
