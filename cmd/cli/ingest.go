package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/afflux/partner-service/internal/database"
	"github.com/afflux/partner-service/internal/parsers/csv"
	"github.com/afflux/partner-service/internal/parsers/xlsx"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/pipeline"
	"github.com/afflux/partner-service/internal/types"
)

var (
	ingestPartnerID int64
	ingestType      string
	ingestFile      string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a partner data file",
	Long: `Read a partner data file (CSV, XLSX, or JSON array), normalize it against
the partner's configuration, and write the canonical records to the database.
Rows dated before today are skipped, today's rows are upserted, and future
rows are inserted.`,
	Example: `  partner-service ingest --partner 42 --type conversions --file report.csv
  partner-service ingest --partner 42 --type players --file players.xlsx`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Int64Var(&ingestPartnerID, "partner", 0, "Partner ID (required)")
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "Record type: conversions or players (required)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Path to the data file (required)")
	ingestCmd.MarkFlagRequired("partner")
	ingestCmd.MarkFlagRequired("type")
	ingestCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	recordType, ok := types.ParseRecordType(ingestType)
	if !ok {
		return fmt.Errorf("invalid record type: %s (expected conversions or players)", ingestType)
	}
	if ingestPartnerID <= 0 {
		return fmt.Errorf("invalid partner ID: %d", ingestPartnerID)
	}

	raws, err := readRecordsFile(ingestFile, recordType)
	if err != nil {
		return err
	}

	logger.Info().
		Int64("partner", ingestPartnerID).
		Str("type", string(recordType)).
		Int("rows", len(raws)).
		Msg("Starting ingestion")

	store := database.NewStore(db)
	loader := partners.NewLoader(store)
	pipe := pipeline.New(loader, store, store, *logger)

	runID, err := store.CreateImportRun(ctx, ingestPartnerID, recordType, database.RunSourceCLI, len(raws))
	if err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}

	result, err := pipe.Process(ctx, ingestPartnerID, recordType, raws)
	if err != nil {
		if failErr := store.FailImportRun(ctx, runID, err.Error()); failErr != nil {
			logger.Error().Err(failErr).Msg("Failed to mark import run failed")
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if err := store.CompleteImportRun(ctx, runID, result); err != nil {
		logger.Error().Err(err).Msg("Failed to complete import run")
	}

	displayResult(runID, result)

	if !result.Success {
		return fmt.Errorf("ingestion completed with %d errors", result.ErrorCount)
	}
	return nil
}

// readRecordsFile reads a data file into raw records based on its extension
func readRecordsFile(path string, recordType types.RecordType) ([]types.RawRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var raws []types.RawRecord
		if err := json.Unmarshal(content, &raws); err != nil {
			return nil, fmt.Errorf("invalid JSON file: %w", err)
		}
		return raws, nil

	case ".xlsx":
		raws, _, err := xlsx.NewParser(xlsx.DefaultOptions()).Parse(content)
		return raws, err

	default:
		raws, headers, err := csv.NewParser(csv.DefaultOptions()).Parse(content)
		if err != nil {
			return nil, err
		}
		if err := csv.ValidateHeaders(recordType, headers); err != nil {
			return nil, err
		}
		return raws, nil
	}
}

func displayResult(runID string, result *types.IngestionResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSUCCESS\tPROCESSED\tSKIPPED\tUPSERTED\tINSERTED\tERRORS")
	fmt.Fprintf(w, "%s\t%t\t%d\t%d\t%d\t%d\t%d\n",
		runID,
		result.Success,
		result.ProcessedCount,
		result.Summary.HistoricalSkipped,
		result.Summary.TodayUpserted,
		result.Summary.FutureInserted,
		result.ErrorCount,
	)
	w.Flush()

	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
}
