package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

var refreshSchemas []string

var refreshCmd = &cobra.Command{
	Use:   "refresh-schema",
	Short: "Re-introspect the database and replace the schema cache",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().StringArrayVar(&refreshSchemas, "schema", nil,
		"additional schema to introspect (repeatable)")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	log := newLogger()
	settings := loadSettings()

	log.Info("refreshing schema cache", "path", settings.SchemaCachePath)
	cached, err := schema.RefreshCache(context.Background(),
		settings.PostgresDSN, settings.SchemaCachePath, settings.DefaultSchema, refreshSchemas)
	if err != nil {
		return err
	}

	fmt.Printf("Schema cache refreshed at %s\n", settings.SchemaCachePath)
	fmt.Printf("  database:     %s\n", cached.Snapshot.Database)
	fmt.Printf("  tables:       %d\n", cached.Snapshot.TableCount())
	fmt.Printf("  generated_at: %s\n", cached.GeneratedAt)
	return nil
}
