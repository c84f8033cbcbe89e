package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/prompt"
	"github.com/nsxbet/pg-nl2sql/pkg/schema"
)

var promptTopK int

var promptCmd = &cobra.Command{
	Use:   "build-prompt [flags] <question>",
	Short: "Build and print the LLM prompts for a question",
	Long: `Run retrieval and print the exact system and user prompts that
generate-sql would send to the provider, without calling any LLM.`,
	Args: cobra.ExactArgs(1),
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().IntVar(&promptTopK, "top-k", 6, "maximum number of tables to embed")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	cached, err := schema.LoadCache(settings.SchemaCachePath)
	if err != nil {
		return err
	}

	bundle, err := prompt.Build(args[0], cached.Snapshot, prompt.WithTopK(promptTopK))
	if err != nil {
		return err
	}

	fmt.Printf("Retrieved tables: %s\n\n", strings.Join(bundle.RetrievedTables, ", "))
	fmt.Println("--- system prompt ---")
	fmt.Println(bundle.SystemPrompt)
	fmt.Println("\n--- user prompt ---")
	fmt.Println(bundle.UserPrompt)
	return nil
}
