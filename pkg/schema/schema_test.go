package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(schemaName, tableName string, columns ...string) *TableInfo {
	cols := map[string]*ColumnInfo{}
	for _, name := range columns {
		cols[name] = &ColumnInfo{Name: name, DataType: "text", Nullable: true}
	}
	return &TableInfo{
		Schema:    schemaName,
		Name:      tableName,
		TableType: "table",
		Columns:   cols,
	}
}

func buildSnapshot() *SchemaSnapshot {
	orders := buildTable("public", "orders", "id", "customer_id", "status", "created_at")
	orders.ForeignKeys = []*ForeignKeyInfo{{
		Name:    "orders_customer_id_fkey",
		Columns: []string{"customer_id"},
		References: ForeignKeyReference{
			Schema:  "public",
			Table:   "customers",
			Columns: []string{"id"},
		},
	}}

	return &SchemaSnapshot{
		Database: "app_db",
		Schemas: map[string]*SchemaInfo{
			"public": {
				Name: "public",
				Tables: map[string]*TableInfo{
					"orders":    orders,
					"customers": buildTable("public", "customers", "id", "name", "email"),
				},
			},
			"analytics": {
				Name: "analytics",
				Tables: map[string]*TableInfo{
					"orders": buildTable("analytics", "orders", "id", "region"),
				},
			},
		},
	}
}

func TestSnapshotTableLookup(t *testing.T) {
	snapshot := buildSnapshot()

	table, ok := snapshot.Table("public", "orders")
	require.True(t, ok)
	assert.Equal(t, "public.orders", table.FQN())

	_, ok = snapshot.Table("public", "missing")
	assert.False(t, ok)

	_, ok = snapshot.Table("missing", "orders")
	assert.False(t, ok)
}

func TestSchemasWithTable(t *testing.T) {
	snapshot := buildSnapshot()

	assert.Equal(t, []string{"analytics", "public"}, snapshot.SchemasWithTable("orders"))
	assert.Equal(t, []string{"public"}, snapshot.SchemasWithTable("customers"))
	assert.Empty(t, snapshot.SchemasWithTable("missing"))
}

func TestSnapshotCounts(t *testing.T) {
	snapshot := buildSnapshot()

	assert.Equal(t, 3, snapshot.TableCount())
	assert.Equal(t, []string{"analytics", "public"}, snapshot.SchemaNames())
}
