package schema

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nsxbet/pg-nl2sql/pkg/db"
)

var systemSchemas = map[string]struct{}{
	"pg_catalog":         {},
	"information_schema": {},
}

func targetSchemas(defaultSchema string, includeSchemas []string) []string {
	seen := map[string]struct{}{}
	var targets []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, system := systemSchemas[name]; system {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		targets = append(targets, name)
	}

	if len(includeSchemas) > 0 {
		for _, name := range includeSchemas {
			add(name)
		}
	} else {
		if strings.TrimSpace(defaultSchema) == "" {
			defaultSchema = "public"
		}
		add(defaultSchema)
	}
	sort.Strings(targets)
	return targets
}

// Introspect reads table, column, primary-key, and foreign-key metadata
// for the target schemas into a normalized SchemaSnapshot. When
// includeSchemas is empty, only defaultSchema is introspected. System
// schemas are always excluded.
func Introspect(ctx context.Context, dsn, defaultSchema string, includeSchemas []string) (*SchemaSnapshot, error) {
	targets := targetSchemas(defaultSchema, includeSchemas)
	if len(targets) == 0 {
		return nil, errors.New("no target schemas selected for introspection")
	}

	conn, err := db.ConnectReadOnly(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	snapshot := &SchemaSnapshot{Schemas: map[string]*SchemaInfo{}}
	if err := conn.QueryRow(ctx, "SELECT current_database()").Scan(&snapshot.Database); err != nil {
		return nil, errors.Wrap(err, "could not determine current PostgreSQL database")
	}

	if err := loadTables(ctx, conn, snapshot, targets); err != nil {
		return nil, err
	}
	if err := loadColumns(ctx, conn, snapshot, targets); err != nil {
		return nil, err
	}
	if err := loadPrimaryKeys(ctx, conn, snapshot, targets); err != nil {
		return nil, err
	}
	if err := loadForeignKeys(ctx, conn, snapshot, targets); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func ensureTable(snapshot *SchemaSnapshot, schemaName, tableName string) *TableInfo {
	schemaInfo, ok := snapshot.Schemas[schemaName]
	if !ok {
		schemaInfo = &SchemaInfo{Name: schemaName, Tables: map[string]*TableInfo{}}
		snapshot.Schemas[schemaName] = schemaInfo
	}
	table, ok := schemaInfo.Tables[tableName]
	if !ok {
		table = &TableInfo{
			Schema:      schemaName,
			Name:        tableName,
			TableType:   "BASE TABLE",
			Columns:     map[string]*ColumnInfo{},
			PrimaryKey:  []string{},
			ForeignKeys: []*ForeignKeyInfo{},
		}
		schemaInfo.Tables[tableName] = table
	}
	return table
}

func loadTables(ctx context.Context, conn *pgx.Conn, snapshot *SchemaSnapshot, targets []string) error {
	rows, err := conn.Query(ctx, tablesQuery, targets)
	if err != nil {
		return errors.Wrap(err, "table introspection query failed")
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, tableType string
		var description *string
		if err := rows.Scan(&schemaName, &tableName, &tableType, &description); err != nil {
			return errors.Wrap(err, "table introspection scan failed")
		}
		table := ensureTable(snapshot, schemaName, tableName)
		table.TableType = tableType
		if description != nil {
			table.Description = *description
		}
	}
	return errors.Wrap(rows.Err(), "table introspection failed")
}

func loadColumns(ctx context.Context, conn *pgx.Conn, snapshot *SchemaSnapshot, targets []string) error {
	rows, err := conn.Query(ctx, columnsQuery, targets)
	if err != nil {
		return errors.Wrap(err, "column introspection query failed")
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName, dataType, isNullable string
		var description *string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &dataType, &isNullable, &description); err != nil {
			return errors.Wrap(err, "column introspection scan failed")
		}
		column := &ColumnInfo{
			Name:     columnName,
			DataType: dataType,
			Nullable: isNullable == "YES",
		}
		if description != nil {
			column.Description = *description
		}
		ensureTable(snapshot, schemaName, tableName).Columns[columnName] = column
	}
	return errors.Wrap(rows.Err(), "column introspection failed")
}

func loadPrimaryKeys(ctx context.Context, conn *pgx.Conn, snapshot *SchemaSnapshot, targets []string) error {
	rows, err := conn.Query(ctx, primaryKeysQuery, targets)
	if err != nil {
		return errors.Wrap(err, "primary key introspection query failed")
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, columnName string
		if err := rows.Scan(&schemaName, &tableName, &columnName); err != nil {
			return errors.Wrap(err, "primary key introspection scan failed")
		}
		if table, ok := snapshot.Table(schemaName, tableName); ok {
			table.PrimaryKey = append(table.PrimaryKey, columnName)
		}
	}
	return errors.Wrap(rows.Err(), "primary key introspection failed")
}

func loadForeignKeys(ctx context.Context, conn *pgx.Conn, snapshot *SchemaSnapshot, targets []string) error {
	rows, err := conn.Query(ctx, foreignKeysQuery, targets)
	if err != nil {
		return errors.Wrap(err, "foreign key introspection query failed")
	}
	defer rows.Close()

	// Rows arrive ordered by constraint then ordinal position, so
	// consecutive rows of the same constraint fold into one ForeignKeyInfo.
	type fkKey struct {
		schema, table, constraint string
	}
	var lastKey fkKey
	var current *ForeignKeyInfo

	for rows.Next() {
		var schemaName, tableName, constraintName, columnName string
		var refSchema, refTable, refColumn string
		if err := rows.Scan(&schemaName, &tableName, &constraintName, &columnName, &refSchema, &refTable, &refColumn); err != nil {
			return errors.Wrap(err, "foreign key introspection scan failed")
		}

		key := fkKey{schemaName, tableName, constraintName}
		if current == nil || key != lastKey {
			current = &ForeignKeyInfo{
				Name: constraintName,
				References: ForeignKeyReference{
					Schema: refSchema,
					Table:  refTable,
				},
			}
			lastKey = key
			if table, ok := snapshot.Table(schemaName, tableName); ok {
				table.ForeignKeys = append(table.ForeignKeys, current)
			}
		}
		current.Columns = append(current.Columns, columnName)
		current.References.Columns = append(current.References.Columns, refColumn)
	}
	return errors.Wrap(rows.Err(), "foreign key introspection failed")
}
