// Package schema holds the normalized PostgreSQL schema metadata model,
// live-database introspection, on-disk cache persistence, and lexical
// table retrieval.
//
// A SchemaSnapshot is built once (by introspection or a cache load) and
// then treated as read-only; the validator and retrieval layers only
// perform lookups against it, so a single snapshot can safely serve
// concurrent callers.
package schema

import (
	"fmt"
	"sort"
)

// ColumnInfo describes a single table column.
type ColumnInfo struct {
	Name        string `json:"-"`
	DataType    string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description,omitempty"`
}

// ForeignKeyReference is the referenced side of a foreign key constraint.
type ForeignKeyReference struct {
	Schema  string   `json:"schema"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

// ForeignKeyInfo describes one foreign key constraint. Columns and
// References.Columns correspond positionally and have equal length.
type ForeignKeyInfo struct {
	Name       string              `json:"name"`
	Columns    []string            `json:"columns"`
	References ForeignKeyReference `json:"references"`
}

// TableInfo describes a base table or view within a schema.
type TableInfo struct {
	Schema      string                 `json:"-"`
	Name        string                 `json:"-"`
	TableType   string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Columns     map[string]*ColumnInfo `json:"columns"`
	PrimaryKey  []string               `json:"primary_key"`
	ForeignKeys []*ForeignKeyInfo      `json:"foreign_keys"`
}

// FQN returns the fully-qualified "schema.table" name.
func (t *TableInfo) FQN() string {
	return fmt.Sprintf("%s.%s", t.Schema, t.Name)
}

// SchemaInfo groups the tables of one database schema. Table names are
// unique within a schema but not across schemas.
type SchemaInfo struct {
	Name   string                `json:"-"`
	Tables map[string]*TableInfo `json:"tables"`
}

// SchemaSnapshot is the root of the metadata model for one database.
type SchemaSnapshot struct {
	Database string                 `json:"database"`
	Schemas  map[string]*SchemaInfo `json:"schemas"`
}

// Table looks up a table by schema and table name. The boolean is false
// when either the schema or the table does not exist; absence is not an
// error, the caller decides what it means.
func (s *SchemaSnapshot) Table(schemaName, tableName string) (*TableInfo, bool) {
	schemaInfo, ok := s.Schemas[schemaName]
	if !ok {
		return nil, false
	}
	table, ok := schemaInfo.Tables[tableName]
	return table, ok
}

// SchemasWithTable returns the sorted names of all schemas containing a
// table of the given name. Used to disambiguate unqualified references.
func (s *SchemaSnapshot) SchemasWithTable(tableName string) []string {
	var names []string
	for schemaName, schemaInfo := range s.Schemas {
		if _, ok := schemaInfo.Tables[tableName]; ok {
			names = append(names, schemaName)
		}
	}
	sort.Strings(names)
	return names
}

// TableCount returns the total number of tables and views in the snapshot.
func (s *SchemaSnapshot) TableCount() int {
	count := 0
	for _, schemaInfo := range s.Schemas {
		count += len(schemaInfo.Tables)
	}
	return count
}

// SchemaNames returns the sorted schema names in the snapshot.
func (s *SchemaSnapshot) SchemaNames() []string {
	names := make([]string, 0, len(s.Schemas))
	for name := range s.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
