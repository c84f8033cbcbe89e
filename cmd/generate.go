package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/llm"
	"github.com/nsxbet/pg-nl2sql/pkg/prompt"
	"github.com/nsxbet/pg-nl2sql/pkg/schema"
	"github.com/nsxbet/pg-nl2sql/pkg/validator"
)

var (
	generateTopK int
	generateJSON bool
)

var generateCmd = &cobra.Command{
	Use:   "generate-sql [flags] <question>",
	Short: "Generate a validated SELECT query from a question",
	Long: `Retrieve relevant tables, prompt the configured LLM provider, and
validate the generated SQL against the schema cache and safety rules.
The printed SQL is always the validated, canonicalized form. Nothing is
executed against the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVar(&generateTopK, "top-k", 6, "maximum number of tables to embed")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "emit the full result as JSON")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	settings := loadSettings()
	if err := settings.ValidateLLMRequirements(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	ctx := context.Background()

	cached, err := schema.LoadCache(settings.SchemaCachePath)
	if err != nil {
		return err
	}

	bundle, err := prompt.Build(args[0], cached.Snapshot, prompt.WithTopK(generateTopK))
	if err != nil {
		return err
	}
	log.Debug("prompt built", "tables", strings.Join(bundle.RetrievedTables, ", "))

	generator, err := llm.NewGenerator(settings)
	if err != nil {
		return err
	}
	log.Info("requesting SQL generation", "provider", settings.LLMProvider)
	generated, err := generator.GenerateSQL(ctx, bundle)
	if err != nil {
		return err
	}

	checked, err := validator.EnsureValid(generated.SQL, cached.Snapshot,
		validator.WithDefaultSchema(settings.DefaultSchema),
		validator.WithAllowedTables(bundle.RetrievedTables))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Generated SQL failed validation:")
		for _, violation := range checked.Violations {
			fmt.Fprintf(os.Stderr, "  - %s\n", violation)
		}
		os.Exit(1)
	}

	// The validated, canonical form supersedes whatever the model wrote.
	generated.SQL = checked.NormalizedSQL
	generated.TablesUsed = checked.TablesUsed

	if generateJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]any{
			"question":    bundle.Question,
			"sql":         generated.SQL,
			"tables_used": generated.TablesUsed,
			"assumptions": generated.Assumptions,
			"confidence":  generated.Confidence,
			"limit_added": checked.LimitAdded,
		})
	}

	fmt.Printf("Confidence: %.2f\n", generated.Confidence)
	fmt.Printf("Tables: %s\n", strings.Join(generated.TablesUsed, ", "))
	if len(generated.Assumptions) > 0 {
		fmt.Println("Assumptions:")
		for _, assumption := range generated.Assumptions {
			fmt.Printf("  - %s\n", assumption)
		}
	}
	if checked.LimitAdded {
		fmt.Println("Note: LIMIT was added automatically.")
	}
	fmt.Printf("\n%s\n", generated.SQL)
	return nil
}
