package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCheckCmd = &cobra.Command{
	Use:   "config-check",
	Short: "Validate configuration without touching the database",
	Long: `Load configuration from environment variables and report what was
resolved. Secrets are shown only as present or missing.`,
	Args: cobra.NoArgs,
	RunE: runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	fmt.Println("Configuration OK")
	fmt.Printf("  llm_provider:      %s\n", settings.LLMProvider)
	fmt.Printf("  openai_model:      %s\n", settings.OpenAIModel)
	fmt.Printf("  anthropic_model:   %s\n", settings.AnthropicModel)
	fmt.Printf("  schema_cache_path: %s\n", settings.SchemaCachePath)
	fmt.Printf("  default_schema:    %s\n", settings.DefaultSchema)
	fmt.Printf("  openai_api_key:    %s\n", presence(settings.OpenAIAPIKey))
	fmt.Printf("  anthropic_api_key: %s\n", presence(settings.AnthropicAPIKey))
	return nil
}

func presence(secret string) string {
	if secret == "" {
		return "missing"
	}
	return "set"
}
