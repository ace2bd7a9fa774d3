package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/afflux/partner-service/internal/pkg/cuid2"
	"github.com/afflux/partner-service/internal/types"
)

// CreateImportRun records the start of an ingestion batch and returns its id
func (s *Store) CreateImportRun(ctx context.Context, partnerID int64, recordType types.RecordType, source string, totalRows int) (string, error) {
	runID := cuid2.New("run")
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO import_runs (
			id, partner_id, record_type, source, status, started_at,
			total_rows, created_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), $6, NOW())
	`, runID, partnerID, recordType, source, RunStatusRunning, totalRows)
	if err != nil {
		return "", fmt.Errorf("create import run: %w", err)
	}
	return runID, nil
}

// CompleteImportRun marks a run finished with the batch result. Row-level
// failures do not fail the run; a run that processed some rows and rejected
// others completes with errors, and "failed" is reserved for batch-fatal
// conditions recorded via FailImportRun.
func (s *Store) CompleteImportRun(ctx context.Context, runID string, result *types.IngestionResult) error {
	status := RunStatusCompleted
	if result.ErrorCount > 0 {
		status = RunStatusCompletedWithErrors
	}
	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	_, err = s.db.Pool().Exec(ctx, `
		UPDATE import_runs
		SET status = $2,
		    completed_at = NOW(),
		    processed_rows = $3,
		    skipped_rows = $4,
		    error_count = $5,
		    errors = $6
		WHERE id = $1
	`, runID, status, result.ProcessedCount, result.SkippedCount,
		result.ErrorCount, errorsJSON)
	if err != nil {
		return fmt.Errorf("complete import run: %w", err)
	}
	return nil
}

// FailImportRun marks a run failed with a batch-fatal error message
func (s *Store) FailImportRun(ctx context.Context, runID string, message string) error {
	errorsJSON, err := json.Marshal([]string{message})
	if err != nil {
		return fmt.Errorf("marshal run error: %w", err)
	}
	_, err = s.db.Pool().Exec(ctx, `
		UPDATE import_runs
		SET status = $2, completed_at = NOW(), errors = $3
		WHERE id = $1
	`, runID, RunStatusFailed, errorsJSON)
	if err != nil {
		return fmt.Errorf("fail import run: %w", err)
	}
	return nil
}

// FailRunningImportRuns marks every run still in the running state as
// failed with the given message. Called at startup so runs interrupted by a
// restart do not stay running forever.
func (s *Store) FailRunningImportRuns(ctx context.Context, message string) (int64, error) {
	errorsJSON, err := json.Marshal([]string{message})
	if err != nil {
		return 0, fmt.Errorf("marshal run error: %w", err)
	}
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE import_runs
		SET status = $1, completed_at = NOW(), errors = $2
		WHERE status = $3
	`, RunStatusFailed, errorsJSON, RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("fail running import runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetImportRun fetches one run. Returns (nil, nil) when absent.
func (s *Store) GetImportRun(ctx context.Context, runID string) (*ImportRun, error) {
	var (
		run        ImportRun
		errorsJSON []byte
	)
	err := s.db.Pool().QueryRow(ctx, `
		SELECT id, partner_id, record_type, source, status, started_at,
		       completed_at, total_rows, processed_rows, skipped_rows,
		       error_count, errors, created_at
		FROM import_runs
		WHERE id = $1
	`, runID).Scan(
		&run.ID, &run.PartnerID, &run.RecordType, &run.Source, &run.Status,
		&run.StartedAt, &run.CompletedAt, &run.TotalRows, &run.ProcessedRows,
		&run.SkippedRows, &run.ErrorCount, &errorsJSON, &run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal run errors: %w", err)
		}
	}
	return &run, nil
}

// ListImportRuns returns recent runs for a partner, newest first
func (s *Store) ListImportRuns(ctx context.Context, partnerID int64, limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, partner_id, record_type, source, status, started_at,
		       completed_at, total_rows, processed_rows, skipped_rows,
		       error_count, created_at
		FROM import_runs
		WHERE partner_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, partnerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(
			&run.ID, &run.PartnerID, &run.RecordType, &run.Source, &run.Status,
			&run.StartedAt, &run.CompletedAt, &run.TotalRows,
			&run.ProcessedRows, &run.SkippedRows, &run.ErrorCount,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}
