package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

func testTable(schemaName, tableName string, columns ...string) *schema.TableInfo {
	cols := map[string]*schema.ColumnInfo{}
	for _, name := range columns {
		cols[name] = &schema.ColumnInfo{Name: name, DataType: "text", Nullable: true}
	}
	return &schema.TableInfo{
		Schema:    schemaName,
		Name:      tableName,
		TableType: "table",
		Columns:   cols,
	}
}

func testSnapshot() *schema.SchemaSnapshot {
	return &schema.SchemaSnapshot{
		Database: "app_db",
		Schemas: map[string]*schema.SchemaInfo{
			"public": {
				Name: "public",
				Tables: map[string]*schema.TableInfo{
					"orders": testTable("public", "orders",
						"id", "customer_id", "total_amount", "status", "created_at"),
					"customers": testTable("public", "customers",
						"id", "name", "email", "created_at"),
				},
			},
			"analytics": {
				Name: "analytics",
				Tables: map[string]*schema.TableInfo{
					"orders": testTable("analytics", "orders", "id", "region"),
				},
			},
		},
	}
}

func TestValidateHappyPath(t *testing.T) {
	result := Validate(
		"SELECT o.id, o.total_amount FROM public.orders o WHERE o.status = 'paid'",
		testSnapshot())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Violations)
	assert.Equal(t, []string{"public.orders"}, result.TablesUsed)
	assert.Equal(t, []string{
		"public.orders.id",
		"public.orders.status",
		"public.orders.total_amount",
	}, result.ColumnsUsed)
	assert.True(t, result.LimitAdded)
	assert.Contains(t, result.NormalizedSQL, "LIMIT 100")
}

func TestValidateParseFailure(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		violation string
	}{
		{name: "empty", sql: "", violation: "SQL cannot be empty."},
		{name: "multi-statement", sql: "SELECT 1; SELECT 2", violation: "Expected exactly one SQL statement."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, testSnapshot())
			assert.False(t, result.IsValid)
			assert.Equal(t, []string{tt.violation}, result.Violations)
			assert.Empty(t, result.TablesUsed)
			assert.Empty(t, result.ColumnsUsed)
			assert.False(t, result.LimitAdded)
		})
	}
}

func TestValidateForbiddenStatement(t *testing.T) {
	result := Validate("DROP TABLE public.orders", testSnapshot())

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Violations, "Only SELECT query forms are allowed.")
	assert.Contains(t, result.Violations, "Forbidden SQL statement(s) detected: DROP")
	assert.False(t, result.LimitAdded)
}

func TestValidateForbiddenInsideCTE(t *testing.T) {
	// The root parses as a SELECT, but the CTE smuggles in a write.
	result := Validate(
		"WITH moved AS (INSERT INTO public.orders (id) VALUES (1) RETURNING id) SELECT id FROM moved",
		testSnapshot())

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Violations, "Forbidden SQL statement(s) detected: INSERT")
	assert.False(t, result.LimitAdded)
}

func TestValidateWildcard(t *testing.T) {
	result := Validate("SELECT * FROM public.orders", testSnapshot())

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Violations, "SELECT * is not allowed; select explicit columns.")
}

func TestValidateCountStarIsNotWildcard(t *testing.T) {
	result := Validate("SELECT count(*) FROM public.orders", testSnapshot())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Violations)
	// Aggregate queries keep their natural cardinality.
	assert.False(t, result.LimitAdded)
	assert.NotContains(t, result.NormalizedSQL, "LIMIT")
}

func TestValidateWindowFunctionGetsLimit(t *testing.T) {
	// rank() OVER (...) keeps one row per input row, so the default
	// limit still applies.
	result := Validate(
		"SELECT id, rank() OVER (ORDER BY created_at) FROM public.orders",
		testSnapshot())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Violations)
	assert.True(t, result.LimitAdded)
	assert.Contains(t, result.NormalizedSQL, "LIMIT 100")
}

func TestValidateUnknownTables(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		violation string
	}{
		{
			name:      "qualified missing table",
			sql:       "SELECT id FROM public.missing",
			violation: "Table 'public.missing' is not present in schema cache.",
		},
		{
			name:      "unqualified missing table",
			sql:       "SELECT id FROM nowhere",
			violation: "Table 'nowhere' is not present in schema cache.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, testSnapshot())
			assert.False(t, result.IsValid)
			assert.Contains(t, result.Violations, tt.violation)
		})
	}
}

func TestValidateUnqualifiedTableDefaultSchema(t *testing.T) {
	// "orders" exists in both public and analytics; the default schema
	// wins the tie.
	result := Validate("SELECT id FROM orders", testSnapshot())

	assert.True(t, result.IsValid)
	assert.Equal(t, []string{"public.orders"}, result.TablesUsed)
}

func TestValidateUnqualifiedTableAmbiguous(t *testing.T) {
	result := Validate("SELECT id FROM orders", testSnapshot(),
		WithDefaultSchema("reporting"))

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Violations,
		"Unqualified table reference is ambiguous for 'orders' across schemas analytics, public.")
}

func TestValidateCTEIsNotATable(t *testing.T) {
	result := Validate(
		"WITH recent AS (SELECT id FROM public.orders) SELECT id FROM recent",
		testSnapshot())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Violations)
	assert.Equal(t, []string{"public.orders"}, result.TablesUsed)
}

func TestValidateColumnViolations(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		violation string
	}{
		{
			name:      "unknown alias",
			sql:       "SELECT x.id FROM public.orders o",
			violation: "Column 'x.id' uses unknown table alias.",
		},
		{
			name:      "column not in table",
			sql:       "SELECT o.shipping_cost FROM public.orders o",
			violation: "Column 'o.shipping_cost' is not present in 'public.orders'.",
		},
		{
			name:      "unqualified column not in any table",
			sql:       "SELECT shipping_cost FROM public.orders",
			violation: "Unqualified column 'shipping_cost' is not present in selected tables.",
		},
		{
			name:      "unqualified column ambiguous",
			sql:       "SELECT created_at FROM public.orders o, public.customers c",
			violation: "Unqualified column 'created_at' is ambiguous across: public.customers, public.orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.sql, testSnapshot())
			assert.False(t, result.IsValid)
			assert.Contains(t, result.Violations, tt.violation)
		})
	}
}

func TestValidateAllowedTables(t *testing.T) {
	result := Validate("SELECT o.id FROM public.orders o", testSnapshot(),
		WithAllowedTables([]string{"public.customers"}))

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Violations,
		"Table 'public.orders' is outside the allowed retrieval scope.")
}

func TestValidateExistingLimitIsKept(t *testing.T) {
	result := Validate("SELECT o.id FROM public.orders o LIMIT 10", testSnapshot())

	assert.True(t, result.IsValid)
	assert.False(t, result.LimitAdded)
	assert.Contains(t, result.NormalizedSQL, "LIMIT 10")
}

func TestValidateIsIdempotentOnNormalizedSQL(t *testing.T) {
	first := Validate("SELECT o.id FROM public.orders o", testSnapshot())
	require.True(t, first.IsValid)
	require.True(t, first.LimitAdded)

	second := Validate(first.NormalizedSQL, testSnapshot())
	assert.True(t, second.IsValid)
	assert.False(t, second.LimitAdded)
	assert.Equal(t, first.NormalizedSQL, second.NormalizedSQL)
}

func TestValidateLimitEnforcementDisabled(t *testing.T) {
	result := Validate("SELECT o.id FROM public.orders o", testSnapshot(),
		WithLimitEnforcement(false))

	assert.True(t, result.IsValid)
	assert.False(t, result.LimitAdded)
	assert.NotContains(t, result.NormalizedSQL, "LIMIT")
}

func TestValidateCustomDefaultLimit(t *testing.T) {
	result := Validate("SELECT o.id FROM public.orders o", testSnapshot(),
		WithDefaultLimit(25))

	assert.True(t, result.IsValid)
	assert.True(t, result.LimitAdded)
	assert.Contains(t, result.NormalizedSQL, "LIMIT 25")
}

func TestValidateNoLimitInjectionWhenInvalid(t *testing.T) {
	result := Validate("SELECT o.id, o.nope FROM public.orders o", testSnapshot())

	assert.False(t, result.IsValid)
	assert.False(t, result.LimitAdded)
	assert.NotContains(t, result.NormalizedSQL, "LIMIT")
}

func TestEnsureValid(t *testing.T) {
	result, err := EnsureValid("SELECT o.id FROM public.orders o", testSnapshot())
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	result, err = EnsureValid("SELECT * FROM public.orders", testSnapshot())
	require.Error(t, err)
	assert.False(t, result.IsValid)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, result.Violations, validationErr.Violations)
	assert.Contains(t, err.Error(), "SELECT * is not allowed")
}
