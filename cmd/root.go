package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/pg-nl2sql/pkg/config"
	"github.com/nsxbet/pg-nl2sql/pkg/logger"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pg-nl2sql",
	Short: "Natural-language to SQL toolchain for PostgreSQL",
	Long: `pg-nl2sql turns natural-language questions into validated PostgreSQL
SELECT queries.

It introspects a database into a local schema cache, retrieves the
tables relevant to a question, prompts an LLM provider for SQL, and
validates the result against safety rules before anything is shown
to the user. Nothing is ever executed against the database.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// newLogger builds the command logger honoring --debug and --verbose.
func newLogger() *logger.Logger {
	level := slog.LevelWarn
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	} else if viper.GetBool("verbose") {
		level = slog.LevelInfo
	}
	return logger.NewWithLevel(level)
}

// loadSettings loads configuration and exits with code 2 on failure so
// configuration mistakes are distinguishable from runtime errors.
func loadSettings() *config.Settings {
	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return settings
}
