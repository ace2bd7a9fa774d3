package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// fakeStore implements partners.ConfigStore, dimensions.Store, and
// RecordStore in memory. Dimension access is locked because the resolver
// runs its lookups concurrently.
type fakeStore struct {
	configs map[int64]*partners.Config

	mu     sync.Mutex
	dims   map[string]*types.Dimension
	dimSeq int

	insertedConversions []*types.Conversion
	upsertedConversions []*types.Conversion
	insertedPlayers     []*types.Player
	upsertedPlayers     []*types.Player

	// failConversionDate makes persistence fail for rows with this date
	failConversionDate string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: make(map[int64]*partners.Config),
		dims:    make(map[string]*types.Dimension),
	}
}

func (s *fakeStore) GetPartnerConfig(ctx context.Context, partnerID int64) (*partners.Config, error) {
	return s.configs[partnerID], nil
}

func (s *fakeStore) ListPartnerConfigs(ctx context.Context) ([]*partners.Config, error) {
	out := make([]*partners.Config, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *fakeStore) FindDimension(ctx context.Context, kind types.DimensionKind, partnerID int64, originalValue string) (*types.Dimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dims[fmt.Sprintf("%s|%d|%s", kind, partnerID, originalValue)], nil
}

func (s *fakeStore) EnsureDimension(ctx context.Context, dim *types.Dimension) (*types.Dimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s|%d|%s", dim.Kind, dim.PartnerID, dim.OriginalValue)
	if existing, ok := s.dims[key]; ok {
		return existing, nil
	}
	s.dimSeq++
	dim.ID = fmt.Sprintf("dim_%d", s.dimSeq)
	s.dims[key] = dim
	return dim, nil
}

func (s *fakeStore) InsertConversion(ctx context.Context, c *types.Conversion) error {
	if c.Date == s.failConversionDate {
		return errors.New("constraint violation")
	}
	s.insertedConversions = append(s.insertedConversions, c)
	return nil
}

func (s *fakeStore) UpsertConversion(ctx context.Context, c *types.Conversion) error {
	if c.Date == s.failConversionDate {
		return errors.New("constraint violation")
	}
	s.upsertedConversions = append(s.upsertedConversions, c)
	return nil
}

func (s *fakeStore) FindConversionByKey(ctx context.Context, date string, partnerID, campaignID, landingID int64) (*types.Conversion, error) {
	return nil, nil
}

func (s *fakeStore) InsertPlayer(ctx context.Context, p *types.Player) error {
	s.insertedPlayers = append(s.insertedPlayers, p)
	return nil
}

func (s *fakeStore) UpsertPlayer(ctx context.Context, p *types.Player) error {
	s.upsertedPlayers = append(s.upsertedPlayers, p)
	return nil
}

func (s *fakeStore) FindPlayerByKey(ctx context.Context, playerID, date string) (*types.Player, error) {
	return nil, nil
}

func newTestPipeline(store *fakeStore) *Pipeline {
	p := New(partners.NewLoader(store), store, store, zerolog.Nop())
	// Fixed batch time: today is 2024-06-15 UTC
	return p.WithClock(func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	})
}

func activeConfig(partnerID int64) *partners.Config {
	return &partners.Config{
		PartnerID:   partnerID,
		PartnerName: "Acme Traffic",
		IsActive:    true,
		DateFormat:  "YYYY-MM-DD",
	}
}

func conversionRow(date string) types.RawRecord {
	return types.RawRecord{
		"date":                date,
		"foreign_partner_id":  "1",
		"foreign_campaign_id": "2",
		"foreign_landing_id":  "3",
		"os_family":           "Windows",
		"country":             "US",
		"all_clicks":          "100",
		"unique_clicks":       "80",
		"registrations_count": "10",
		"ftd_count":           "2",
	}
}

func TestProcessDateBuckets(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-14"), // historical: skipped
		conversionRow("2024-06-15"), // today: upserted
		conversionRow("2024-06-16"), // future: inserted
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 3, result.ProcessedCount)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Equal(t, 3, result.Summary.TotalRows)
	assert.Equal(t, 1, result.Summary.HistoricalSkipped)
	assert.Equal(t, 1, result.Summary.TodayUpserted)
	assert.Equal(t, 1, result.Summary.FutureInserted)

	require.Len(t, store.upsertedConversions, 1)
	assert.Equal(t, "2024-06-15", store.upsertedConversions[0].Date)
	require.Len(t, store.insertedConversions, 1)
	assert.Equal(t, "2024-06-16", store.insertedConversions[0].Date)
}

func TestProcessResolvesDimensions(t *testing.T) {
	store := newFakeStore()
	cfg := activeConfig(42)
	cfg.DimensionMappings = partners.DimensionMappings{
		Buyer:  types.StringPtr("sub1"),
		Source: types.StringPtr("sub2"),
	}
	store.configs[42] = cfg
	p := newTestPipeline(store)

	rows := make([]types.RawRecord, 0, 4)
	for i := 0; i < 4; i++ {
		row := conversionRow("2024-06-15")
		row["sub1"] = "buyer-a"
		row["sub2"] = "google"
		rows = append(rows, row)
	}

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, rows)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Repeated raw values converge on two dimensions, not eight
	assert.Len(t, store.dims, 2)
	require.Len(t, store.upsertedConversions, 4)
	for _, conv := range store.upsertedConversions {
		require.NotNil(t, conv.BuyerID)
		require.NotNil(t, conv.SourceID)
		assert.Equal(t, *store.upsertedConversions[0].BuyerID, *conv.BuyerID)
	}
}

func TestProcessConfigNotFoundIsBatchFatal(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-15"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
	assert.Nil(t, result)
	assert.Empty(t, store.upsertedConversions)
}

func TestProcessConfigInactiveIsBatchFatal(t *testing.T) {
	store := newFakeStore()
	cfg := activeConfig(42)
	cfg.IsActive = false
	store.configs[42] = cfg
	p := newTestPipeline(store)

	_, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-15"),
	})
	assert.ErrorIs(t, err, types.ErrConfigInactive)
}

func TestProcessRowFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	p := newTestPipeline(store)

	bad := conversionRow("2024-06-15")
	delete(bad, "date")

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-15"),
		bad,
		conversionRow("2024-06-16"),
	})
	require.NoError(t, err)

	// One bad row never aborts the batch
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 2: Missing date field", result.Errors[0])
}

func TestProcessPersistFailureIsRowFatal(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	store.failConversionDate = "2024-06-16"
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-15"),
		conversionRow("2024-06-16"),
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Row 2:")
	assert.Contains(t, result.Errors[0], "constraint violation")
}

func TestProcessErrorListIsCapped(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	p := newTestPipeline(store)

	raws := make([]types.RawRecord, 25)
	for i := range raws {
		raws[i] = types.RawRecord{"all_clicks": "1"} // no date
	}

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, raws)
	require.NoError(t, err)

	assert.Equal(t, 25, result.ErrorCount)
	assert.Len(t, result.Errors, MaxReportedErrors)
	assert.Equal(t, "Row 1: Missing date field", result.Errors[0])
	assert.Equal(t, "Row 10: Missing date field", result.Errors[9])
}

func TestProcessPlayersInjectsPartnerID(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypePlayers, []types.RawRecord{
		{
			"date":       "2024-06-16",
			"player_id":  "p-1",
			"partner_id": "999",
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, store.insertedPlayers, 1)
	assert.Equal(t, int64(42), store.insertedPlayers[0].PartnerID)
}

func TestProcessTodayInPartnerTimezone(t *testing.T) {
	store := newFakeStore()
	cfg := activeConfig(42)
	// At 2024-06-15 12:00 UTC it is already 2024-06-16 in Auckland
	cfg.Timezone = "Pacific/Auckland"
	store.configs[42] = cfg
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, []types.RawRecord{
		conversionRow("2024-06-15"), // historical there
		conversionRow("2024-06-16"), // today there
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Summary.HistoricalSkipped)
	assert.Equal(t, 1, result.Summary.TodayUpserted)
	assert.Equal(t, 0, result.Summary.FutureInserted)
}

func TestProcessEmptyBatchSucceeds(t *testing.T) {
	store := newFakeStore()
	store.configs[42] = activeConfig(42)
	p := newTestPipeline(store)

	result, err := p.Process(context.Background(), 42, types.RecordTypeConversions, nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.ProcessedCount)
}
