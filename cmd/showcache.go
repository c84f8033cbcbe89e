package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

var showCacheCmd = &cobra.Command{
	Use:   "show-cache",
	Short: "Summarize the schema cache contents",
	Args:  cobra.NoArgs,
	RunE:  runShowCache,
}

func init() {
	rootCmd.AddCommand(showCacheCmd)
}

func runShowCache(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	cached, err := schema.LoadCache(settings.SchemaCachePath)
	if err != nil {
		return err
	}
	snapshot := cached.Snapshot

	fmt.Printf("Schema cache at %s\n", settings.SchemaCachePath)
	fmt.Printf("  database:     %s\n", snapshot.Database)
	fmt.Printf("  generated_at: %s\n", cached.GeneratedAt)
	fmt.Printf("  tables:       %d\n", snapshot.TableCount())

	for _, schemaName := range snapshot.SchemaNames() {
		schemaInfo := snapshot.Schemas[schemaName]
		tableNames := make([]string, 0, len(schemaInfo.Tables))
		for tableName := range schemaInfo.Tables {
			tableNames = append(tableNames, tableName)
		}
		sort.Strings(tableNames)

		fmt.Printf("\n%s (%d tables)\n", schemaName, len(tableNames))
		for _, tableName := range tableNames {
			table := schemaInfo.Tables[tableName]
			columnNames := make([]string, 0, len(table.Columns))
			for columnName := range table.Columns {
				columnNames = append(columnNames, columnName)
			}
			sort.Strings(columnNames)
			fmt.Printf("  %s [%s]: %s\n", tableName, table.TableType, strings.Join(columnNames, ", "))
		}
	}
	return nil
}
