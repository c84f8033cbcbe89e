package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

func promptSnapshot() *schema.SchemaSnapshot {
	orders := &schema.TableInfo{
		Schema:    "public",
		Name:      "orders",
		TableType: "table",
		Columns: map[string]*schema.ColumnInfo{
			"id":          {Name: "id", DataType: "bigint", Nullable: false},
			"customer_id": {Name: "customer_id", DataType: "bigint", Nullable: false},
			"status":      {Name: "status", DataType: "text", Nullable: true},
		},
		PrimaryKey: []string{"id"},
		ForeignKeys: []*schema.ForeignKeyInfo{{
			Name:    "orders_customer_id_fkey",
			Columns: []string{"customer_id"},
			References: schema.ForeignKeyReference{
				Schema:  "public",
				Table:   "customers",
				Columns: []string{"id"},
			},
		}},
	}
	customers := &schema.TableInfo{
		Schema:    "public",
		Name:      "customers",
		TableType: "table",
		Columns: map[string]*schema.ColumnInfo{
			"id":   {Name: "id", DataType: "bigint", Nullable: false},
			"name": {Name: "name", DataType: "text", Nullable: true},
		},
		PrimaryKey: []string{"id"},
	}
	return &schema.SchemaSnapshot{
		Database: "app_db",
		Schemas: map[string]*schema.SchemaInfo{
			"public": {
				Name: "public",
				Tables: map[string]*schema.TableInfo{
					"orders":    orders,
					"customers": customers,
				},
			},
		},
	}
}

func TestBuildBundle(t *testing.T) {
	bundle, err := Build("how many orders per customer", promptSnapshot())
	require.NoError(t, err)

	assert.Equal(t, "how many orders per customer", bundle.Question)
	assert.Contains(t, bundle.RetrievedTables, "public.orders")
	assert.NotEmpty(t, bundle.SystemPrompt)

	assert.Contains(t, bundle.UserPrompt, "how many orders per customer")
	assert.Contains(t, bundle.UserPrompt, "Schema subset:")
	assert.Contains(t, bundle.UserPrompt, "Response contract")
	assert.Contains(t, bundle.UserPrompt, "SELECT-only")

	var subset map[string]any
	require.NoError(t, json.Unmarshal([]byte(bundle.SchemaSubsetJSON), &subset))
	assert.Equal(t, "app_db", subset["database"])

	var contract map[string]any
	require.NoError(t, json.Unmarshal([]byte(bundle.OutputContractJSON), &contract))
	assert.Equal(t, "object", contract["type"])
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Build("orders per customer", promptSnapshot())
	require.NoError(t, err)
	second, err := Build("orders per customer", promptSnapshot())
	require.NoError(t, err)

	assert.Equal(t, first.UserPrompt, second.UserPrompt)
	assert.Equal(t, first.SchemaSubsetJSON, second.SchemaSubsetJSON)
}

func TestBuildEmptyQuestion(t *testing.T) {
	_, err := Build("   ", promptSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question cannot be empty")
}

func TestBuildNoRelevantTables(t *testing.T) {
	_, err := Build("completely unrelated gibberish", promptSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no relevant tables")
}

func TestBuildWithRetrievalResult(t *testing.T) {
	retrieval := &schema.RetrievalResult{
		Question: "orders",
		SelectedTables: []schema.RetrievedTable{
			{Schema: "public", Table: "orders", Score: 4.5},
		},
	}
	bundle, err := Build("orders", promptSnapshot(), WithRetrievalResult(retrieval))
	require.NoError(t, err)
	assert.Equal(t, []string{"public.orders"}, bundle.RetrievedTables)
}

func TestBuildRejectsUnknownRetrievedTable(t *testing.T) {
	retrieval := &schema.RetrievalResult{
		Question: "orders",
		SelectedTables: []schema.RetrievedTable{
			{Schema: "public", Table: "missing", Score: 4.5},
		},
	}
	_, err := Build("orders", promptSnapshot(), WithRetrievalResult(retrieval))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not present in schema snapshot")
}
