package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/afflux/partner-service/internal/parsers/csv"
	"github.com/afflux/partner-service/internal/types"
)

var validateType string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a CSV file's header shape",
	Long: `Check that a CSV file carries the expected columns for a record type
without touching the database. Conversions require the exact canonical column
set; players are matched loosely against a required header subset.`,
	Example: `  partner-service validate --type conversions report.csv
  partner-service validate --type players players.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateType, "type", "", "Record type: conversions or players (required)")
	validateCmd.MarkFlagRequired("type")
}

func runValidate(cmd *cobra.Command, args []string) error {
	recordType, ok := types.ParseRecordType(validateType)
	if !ok {
		return fmt.Errorf("invalid record type: %s (expected conversions or players)", validateType)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	raws, headers, err := csv.NewParser(csv.DefaultOptions()).Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}

	if err := csv.ValidateHeaders(recordType, headers); err != nil {
		return fmt.Errorf("invalid %s file: %w", recordType, err)
	}

	fmt.Printf("OK: %d columns, %d data rows\n", len(headers), len(raws))
	return nil
}
