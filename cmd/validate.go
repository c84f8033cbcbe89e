package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/pg-nl2sql/pkg/schema"
	"github.com/nsxbet/pg-nl2sql/pkg/validator"
)

var (
	validateAllowTables []string
	validateNoLimit     bool
)

var validateCmd = &cobra.Command{
	Use:   "validate-sql [flags] <sql>",
	Short: "Validate a SQL statement against the schema cache",
	Long: `Check one SQL statement against the read-only safety rules and the
cached schema, and print the canonicalized result. Exits non-zero when
the statement is rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringArrayVar(&validateAllowTables, "allow-table", nil,
		"restrict validation to this fully-qualified table (repeatable)")
	validateCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml)")
	validateCmd.Flags().BoolVar(&validateNoLimit, "no-limit", false,
		"skip automatic LIMIT injection")
}

func runValidate(cmd *cobra.Command, args []string) error {
	settings := loadSettings()

	cached, err := schema.LoadCache(settings.SchemaCachePath)
	if err != nil {
		return err
	}

	opts := []validator.Option{
		validator.WithDefaultSchema(settings.DefaultSchema),
	}
	if len(validateAllowTables) > 0 {
		opts = append(opts, validator.WithAllowedTables(validateAllowTables))
	}
	if validateNoLimit {
		opts = append(opts, validator.WithLimitEnforcement(false))
	}

	result := validator.Validate(args[0], cached.Snapshot, opts...)

	format, _ := cmd.Flags().GetString("output")
	if err := outputValidation(result, format); err != nil {
		return err
	}

	if !result.IsValid {
		os.Exit(1)
	}
	return nil
}

func outputValidation(result *validator.Result, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		defer encoder.Close()
		return encoder.Encode(result)
	case "text":
		return outputValidationText(result)
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

func outputValidationText(result *validator.Result) error {
	if !result.IsValid {
		fmt.Println("INVALID")
		for _, violation := range result.Violations {
			fmt.Printf("  - %s\n", violation)
		}
		return nil
	}

	fmt.Println("VALID")
	fmt.Printf("  tables:  %s\n", strings.Join(result.TablesUsed, ", "))
	fmt.Printf("  columns: %s\n", strings.Join(result.ColumnsUsed, ", "))
	if result.LimitAdded {
		fmt.Println("  note:    LIMIT was added automatically")
	}
	fmt.Printf("\n%s\n", result.NormalizedSQL)
	return nil
}
