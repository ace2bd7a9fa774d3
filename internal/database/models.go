package database

import "time"

// Run source and status values for import_runs
const (
	RunSourceAPI = "api"
	RunSourceCLI = "cli"

	RunStatusRunning = "running"
	// Every row either persisted or was skipped as historical
	RunStatusCompleted = "completed"
	// Some rows persisted, some were rejected; details in errors
	RunStatusCompletedWithErrors = "completed_with_errors"
	// Batch-fatal: config missing/inactive or an interrupted run
	RunStatusFailed = "failed"
)

// ImportRun records one ingestion batch
type ImportRun struct {
	ID            string     `json:"id"` // prefixed cuid ("run_...")
	PartnerID     int64      `json:"partnerId"`
	RecordType    string     `json:"recordType"` // 'conversions' | 'players'
	Source        string     `json:"source"`     // 'api' | 'cli'
	Status        string     `json:"status"`     // 'running' | 'completed' | 'completed_with_errors' | 'failed'
	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	TotalRows     int        `json:"totalRows"`
	ProcessedRows int        `json:"processedRows"`
	SkippedRows   int        `json:"skippedRows"`
	ErrorCount    int        `json:"errorCount"`
	Errors        []string   `json:"errors,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}
