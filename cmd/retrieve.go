package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

var retrieveTopK int

var retrieveCmd = &cobra.Command{
	Use:   "retrieve-tables [flags] <question>",
	Short: "Rank schema tables relevant to a question",
	Long: `Score every cached table against the question using lexical overlap
and foreign-key expansion, and print the ranked selection that prompt
building would embed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)

	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 6, "maximum number of tables to select")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	cached, err := schema.LoadCache(settings.SchemaCachePath)
	if err != nil {
		return err
	}

	result, err := schema.RetrieveTables(args[0], cached.Snapshot, schema.WithTopK(retrieveTopK))
	if err != nil {
		return err
	}

	if len(result.SelectedTables) == 0 {
		fmt.Println("No relevant tables found.")
		return nil
	}

	fmt.Printf("Selected %d table(s) for: %s\n", len(result.SelectedTables), result.Question)
	for _, table := range result.SelectedTables {
		marker := ""
		if table.ExpandedByFK {
			marker = " (fk expansion)"
		}
		fmt.Printf("  %-40s score=%.3f%s\n", table.FQN(), table.Score, marker)
		if len(table.Reasons) > 0 {
			fmt.Printf("    %s\n", strings.Join(table.Reasons, "; "))
		}
	}
	return nil
}
