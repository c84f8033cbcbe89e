package validator

import "github.com/nsxbet/pg-nl2sql/pkg/rules"

// Option is a functional option for customizing validation behavior.
type Option func(*options)

type options struct {
	allowedTables []string
	defaultSchema string
	enforceLimit  bool
	defaultLimit  int
}

func defaultOptions() *options {
	return &options{
		defaultSchema: "public",
		enforceLimit:  true,
		defaultLimit:  rules.DefaultNonAggregateLimit,
	}
}

// WithAllowedTables restricts validation to a closed set of
// fully-qualified table names. An empty set disables the restriction.
//
// The allowlist is enforced in addition to schema resolution: a table can
// exist in the schema and still be out of scope.
func WithAllowedTables(tables []string) Option {
	return func(o *options) {
		o.allowedTables = tables
	}
}

// WithDefaultSchema sets the schema used to disambiguate unqualified
// table references that match tables in several schemas. Default "public".
func WithDefaultSchema(schema string) Option {
	return func(o *options) {
		if schema != "" {
			o.defaultSchema = schema
		}
	}
}

// WithLimitEnforcement toggles automatic LIMIT injection for
// non-aggregate queries. Enabled by default.
func WithLimitEnforcement(enabled bool) Option {
	return func(o *options) {
		o.enforceLimit = enabled
	}
}

// WithDefaultLimit overrides the row limit injected into non-aggregate
// queries that carry none.
func WithDefaultLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.defaultLimit = limit
		}
	}
}
