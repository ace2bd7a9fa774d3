// Package pipeline runs partner data batches through normalization and
// date-bucketed persistence with per-record failure isolation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/afflux/partner-service/internal/dimensions"
	"github.com/afflux/partner-service/internal/metrics"
	"github.com/afflux/partner-service/internal/normalize"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// MaxReportedErrors caps the error list in an IngestionResult to bound
// response size
const MaxReportedErrors = 10

// RecordStore is the persistence collaborator for canonical records.
// Upserts must be atomic insert-or-update on the natural key: two concurrent
// imports touching the same key on "today" must not race a find-then-branch.
type RecordStore interface {
	InsertConversion(ctx context.Context, c *types.Conversion) error
	UpsertConversion(ctx context.Context, c *types.Conversion) error
	FindConversionByKey(ctx context.Context, date string, partnerID, campaignID, landingID int64) (*types.Conversion, error)
	InsertPlayer(ctx context.Context, p *types.Player) error
	UpsertPlayer(ctx context.Context, p *types.Player) error
	FindPlayerByKey(ctx context.Context, playerID, date string) (*types.Player, error)
}

// Pipeline ingests batches of raw partner records. The loop is sequential per
// batch, which keeps error ordering deterministic and bounds database load;
// multiple batches may run concurrently against the same stores.
type Pipeline struct {
	loader  *partners.Loader
	dims    dimensions.Store
	records RecordStore
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a pipeline with its collaborators injected. Lifecycle is owned
// by the caller.
func New(loader *partners.Loader, dims dimensions.Store, records RecordStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader:  loader,
		dims:    dims,
		records: records,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Process normalizes and persists a batch of raw records for one partner.
// The config is loaded once for the whole batch; config errors are
// batch-fatal. Row-level failures are isolated: one bad record never aborts
// the batch. Each processed record's date is classified against "today"
// (computed once per batch, in the partner's timezone): historical rows are
// skipped, today's rows are upserted, future rows are inserted.
func (p *Pipeline) Process(ctx context.Context, partnerID int64, recordType types.RecordType, raws []types.RawRecord) (*types.IngestionResult, error) {
	start := p.now()

	cfg, err := p.loader.Load(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	normalizer, err := normalize.NewRecordNormalizer(cfg, p.dims)
	if err != nil {
		return nil, fmt.Errorf("partner %d: %w", partnerID, err)
	}

	today := normalizer.Dates().Today(start)
	result := &types.IngestionResult{
		Errors:  make([]string, 0, MaxReportedErrors),
		Summary: types.ImportSummary{TotalRows: len(raws)},
	}

	for i, raw := range raws {
		rowErr := p.processRow(ctx, normalizer, partnerID, recordType, raw, today, result)
		if rowErr != nil {
			result.ErrorCount++
			if len(result.Errors) < MaxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", i+1, rowErr))
			}
			metrics.RowError(partnerID, string(recordType))
		}
	}

	result.Success = result.ErrorCount == 0
	metrics.ObserveBatch(string(recordType), len(raws), p.now().Sub(start))

	p.logger.Info().
		Int64("partner", partnerID).
		Str("type", string(recordType)).
		Int("rows", len(raws)).
		Int("processed", result.ProcessedCount).
		Int("skipped", result.SkippedCount).
		Int("errors", result.ErrorCount).
		Msg("Batch processed")

	return result, nil
}

// processRow normalizes and persists one record, updating counters on success
func (p *Pipeline) processRow(ctx context.Context, normalizer *normalize.RecordNormalizer, partnerID int64, recordType types.RecordType, raw types.RawRecord, today string, result *types.IngestionResult) error {
	var date string
	var persist func(context.Context, DateBucket) error

	switch recordType {
	case types.RecordTypePlayers:
		player, err := normalizer.NormalizePlayer(ctx, raw)
		if err != nil {
			return err
		}
		date = player.Date
		persist = func(ctx context.Context, bucket DateBucket) error {
			if bucket == BucketToday {
				return p.records.UpsertPlayer(ctx, player)
			}
			return p.records.InsertPlayer(ctx, player)
		}
	default:
		conv, err := normalizer.NormalizeConversion(ctx, raw)
		if err != nil {
			return err
		}
		date = conv.Date
		persist = func(ctx context.Context, bucket DateBucket) error {
			if bucket == BucketToday {
				return p.records.UpsertConversion(ctx, conv)
			}
			return p.records.InsertConversion(ctx, conv)
		}
	}

	bucket := Classify(date, today)

	if bucket == BucketHistorical {
		result.ProcessedCount++
		result.SkippedCount++
		result.Summary.HistoricalSkipped++
		metrics.RowSkipped(partnerID, string(recordType))
		return nil
	}

	if err := persist(ctx, bucket); err != nil {
		return &types.PersistError{Op: string(recordType), Err: err}
	}

	result.ProcessedCount++
	if bucket == BucketToday {
		result.Summary.TodayUpserted++
	} else {
		result.Summary.FutureInserted++
	}
	metrics.RowProcessed(partnerID, string(recordType))
	return nil
}
