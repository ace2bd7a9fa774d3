package database

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/afflux/partner-service/internal/types"
)

// setupTestStore starts a PostgreSQL container, applies the schema, and
// returns a store bound to it
func setupTestStore(ctx context.Context, t testing.TB) (*Store, func(), error) {
	if testing.Short() {
		return nil, func() {}, fmt.Errorf("skipping integration test in short mode")
	}

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("start container: %w", err)
	}

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		testcontainers.TerminateContainer(container)
		return nil, nil, fmt.Errorf("connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		testcontainers.TerminateContainer(container)
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	db := NewFromPool(pool)
	if err := db.ApplySchema(ctx); err != nil {
		pool.Close()
		testcontainers.TerminateContainer(container)
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}

	cleanup := func() {
		pool.Close()
		testcontainers.TerminateContainer(container)
	}

	return NewStore(db), cleanup, nil
}

func TestPartnerConfigRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	_, err = store.db.Pool().Exec(ctx, `
		INSERT INTO partner_configs (
			partner_id, partner_name, is_active, field_mappings,
			dimension_mappings, date_format, timezone, validation_rules,
			default_values
		) VALUES (
			42, 'Acme Traffic', TRUE,
			'{"conversions": {"cc": "country"}}',
			'{"buyer": "sub1"}',
			'DD.MM.YYYY', 'Europe/Zagreb',
			'{"required": ["date"]}',
			'{"country": "GB"}'
		)
	`)
	if err != nil {
		t.Fatalf("insert config: %v", err)
	}

	cfg, err := store.GetPartnerConfig(ctx, 42)
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if cfg.PartnerName != "Acme Traffic" {
		t.Errorf("partner name: got %q", cfg.PartnerName)
	}
	if cfg.DateFormat != "DD.MM.YYYY" {
		t.Errorf("date format: got %q", cfg.DateFormat)
	}
	if got := cfg.FieldMappings.Conversions["cc"]; got != "country" {
		t.Errorf("field mapping: got %q", got)
	}
	if cfg.DimensionMappings.Buyer == nil || *cfg.DimensionMappings.Buyer != "sub1" {
		t.Errorf("dimension mapping: got %v", cfg.DimensionMappings.Buyer)
	}
	if got := cfg.CountryFallback(); got != "GB" {
		t.Errorf("country fallback: got %q", got)
	}

	// Absent partner resolves to (nil, nil)
	missing, err := store.GetPartnerConfig(ctx, 99)
	if err != nil {
		t.Fatalf("get missing config: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing partner, got %+v", missing)
	}
}

func TestEnsureDimensionIdempotent(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	dim := &types.Dimension{
		Kind:          types.DimensionBuyer,
		Name:          "Acme Traffic Buyer: buyer-a",
		PartnerID:     42,
		OriginalValue: "buyer-a",
		OriginalField: "sub1",
		IsActive:      true,
	}

	first, err := store.EnsureDimension(ctx, dim)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := store.EnsureDimension(ctx, dim)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same id both times, got %q and %q", first.ID, second.ID)
	}

	var count int
	if err := store.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM dimensions`).Scan(&count); err != nil {
		t.Fatalf("count dimensions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 dimension row, got %d", count)
	}

	// Same value for another partner is a distinct dimension
	other := *dim
	other.PartnerID = 43
	third, err := store.EnsureDimension(ctx, &other)
	if err != nil {
		t.Fatalf("other partner ensure: %v", err)
	}
	if third.ID == first.ID {
		t.Error("expected distinct id for other partner")
	}
}

func TestEnsureDimensionConcurrent(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	const workers = 8
	ids := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := store.EnsureDimension(ctx, &types.Dimension{
				Kind:          types.DimensionSource,
				Name:          "Acme Traffic Source: fb",
				PartnerID:     42,
				OriginalValue: "fb",
				OriginalField: "sub2",
				IsActive:      true,
			})
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = out.ID
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Errorf("worker %d got id %q, want %q", i, ids[i], ids[0])
		}
	}

	var count int
	if err := store.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM dimensions`).Scan(&count); err != nil {
		t.Fatalf("count dimensions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 dimension row after concurrent ensures, got %d", count)
	}
}

func TestConversionUpsert(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	conv := &types.Conversion{
		Date:               "2024-06-15",
		ForeignPartnerID:   1,
		ForeignCampaignID:  2,
		ForeignLandingID:   3,
		Country:            "US",
		AllClicks:          100,
		UniqueClicks:       80,
		RegistrationsCount: 10,
		FTDCount:           2,
	}

	if err := store.UpsertConversion(ctx, conv); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	conv.AllClicks = 150
	conv.FTDCount = 5
	if err := store.UpsertConversion(ctx, conv); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.FindConversionByKey(ctx, "2024-06-15", 1, 2, 3)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected conversion, got nil")
	}
	if got.AllClicks != 150 || got.FTDCount != 5 {
		t.Errorf("upsert did not replace counts: %+v", got)
	}

	var count int
	if err := store.db.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM conversions`).Scan(&count); err != nil {
		t.Fatalf("count conversions: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 conversion row, got %d", count)
	}

	// Plain insert on the same key must violate the unique constraint
	if err := store.InsertConversion(ctx, conv); err == nil {
		t.Error("expected unique violation on duplicate insert")
	}
}

func TestPlayerSumsStayExact(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	player := &types.Player{
		PlayerID:      "p-1",
		PartnerID:     42,
		Date:          "2024-06-15",
		FTDCount:      1,
		FTDSum:        "150.25",
		DepositsSum:   "12345678901234.56",
		CashoutsSum:   "0",
		CasinoRealNGR: "0",

		FixedPerPlayer: "0",
		CasinoBetsSum:  "0",
		CasinoWinsSum:  "0",
	}

	if err := store.UpsertPlayer(ctx, player); err != nil {
		t.Fatalf("upsert player: %v", err)
	}

	got, err := store.FindPlayerByKey(ctx, "p-1", "2024-06-15")
	if err != nil {
		t.Fatalf("find player: %v", err)
	}
	if got == nil {
		t.Fatal("expected player, got nil")
	}
	if got.FTDSum != "150.2500" {
		t.Errorf("ftd sum: got %q", got.FTDSum)
	}
	if got.DepositsSum != "12345678901234.5600" {
		t.Errorf("deposits sum lost precision: got %q", got.DepositsSum)
	}
	if got.PartnerID != 42 {
		t.Errorf("partner id: got %d", got.PartnerID)
	}
}

func TestImportRunLifecycle(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	runID, err := store.CreateImportRun(ctx, 42, types.RecordTypeConversions, RunSourceAPI, 100)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	run, err := store.GetImportRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run == nil || run.Status != RunStatusRunning {
		t.Fatalf("expected running run, got %+v", run)
	}

	result := &types.IngestionResult{
		Success:        false,
		ProcessedCount: 98,
		SkippedCount:   10,
		ErrorCount:     2,
		Errors:         []string{"Row 3: Missing date field", "Row 7: Missing date field"},
	}
	if err := store.CompleteImportRun(ctx, runID, result); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	run, err = store.GetImportRun(ctx, runID)
	if err != nil {
		t.Fatalf("get completed run: %v", err)
	}
	// Row-level failures leave the run completed, not failed
	if run.Status != RunStatusCompletedWithErrors {
		t.Errorf("status: got %q, want %q", run.Status, RunStatusCompletedWithErrors)
	}
	if run.ProcessedRows != 98 || run.ErrorCount != 2 {
		t.Errorf("counters: %+v", run)
	}
	if len(run.Errors) != 2 || run.Errors[0] != "Row 3: Missing date field" {
		t.Errorf("errors: %v", run.Errors)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}

	runs, err := store.ListImportRuns(ctx, 42, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Errorf("list: %+v", runs)
	}

	// Absent run resolves to (nil, nil)
	missing, err := store.GetImportRun(ctx, "run_nope")
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing run, got %+v", missing)
	}
}

func TestFailRunningImportRuns(t *testing.T) {
	ctx := context.Background()

	store, cleanup, err := setupTestStore(ctx, t)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
		return
	}
	defer cleanup()

	running, err := store.CreateImportRun(ctx, 42, types.RecordTypeConversions, RunSourceAPI, 10)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	done, err := store.CreateImportRun(ctx, 42, types.RecordTypePlayers, RunSourceCLI, 5)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.CompleteImportRun(ctx, done, &types.IngestionResult{Success: true}); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	affected, err := store.FailRunningImportRuns(ctx, "Service restarted during processing")
	if err != nil {
		t.Fatalf("fail running runs: %v", err)
	}
	if affected != 1 {
		t.Errorf("expected 1 affected run, got %d", affected)
	}

	run, err := store.GetImportRun(ctx, running)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Status != RunStatusFailed {
		t.Errorf("interrupted run status: got %q", run.Status)
	}
	if len(run.Errors) != 1 || run.Errors[0] != "Service restarted during processing" {
		t.Errorf("interrupted run errors: %v", run.Errors)
	}

	clean, err := store.GetImportRun(ctx, done)
	if err != nil {
		t.Fatalf("get completed run: %v", err)
	}
	if clean.Status != RunStatusCompleted {
		t.Errorf("completed run status: got %q", clean.Status)
	}
}
