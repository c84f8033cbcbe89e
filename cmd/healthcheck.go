package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nsxbet/pg-nl2sql/pkg/db"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Verify database connectivity and read-only session mode",
	Long: `Connect to PostgreSQL with the configured DSN and verify the session
is forced read-only. Fails if the server is unreachable or the session
would allow writes.`,
	Args: cobra.NoArgs,
	RunE: runHealthcheck,
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

func runHealthcheck(cmd *cobra.Command, args []string) error {
	log := newLogger()
	settings := loadSettings()

	log.Debug("connecting to database")
	result, err := db.CheckHealth(context.Background(), settings.PostgresDSN)
	if err != nil {
		return err
	}

	fmt.Println("Database healthcheck OK")
	fmt.Printf("  database:              %s\n", result.CurrentDatabase)
	fmt.Printf("  user:                  %s\n", result.CurrentUser)
	fmt.Printf("  server_version:        %s\n", result.ServerVersion)
	fmt.Printf("  transaction_read_only: %v\n", result.TransactionReadOnly)
	return nil
}
