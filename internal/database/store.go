package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/afflux/partner-service/internal/metrics"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/pkg/cuid2"
	"github.com/afflux/partner-service/internal/types"
)

// Store implements the persistence interfaces consumed by the loader, the
// dimension resolver, and the pipeline
type Store struct {
	db *DB
}

// NewStore creates a store backed by the given database
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// GetPartnerConfig fetches one partner's configuration. Returns (nil, nil)
// when no row exists; the loader maps that to ErrConfigNotFound.
func (s *Store) GetPartnerConfig(ctx context.Context, partnerID int64) (*partners.Config, error) {
	var (
		cfg                              partners.Config
		fieldMappings, dimMappings       []byte
		validationRules, defaultValues   []byte
	)
	err := s.db.Pool().QueryRow(ctx, `
		SELECT partner_id, partner_name, is_active, field_mappings,
		       dimension_mappings, date_format, COALESCE(timezone, ''),
		       validation_rules, default_values
		FROM partner_configs
		WHERE partner_id = $1
	`, partnerID).Scan(
		&cfg.PartnerID, &cfg.PartnerName, &cfg.IsActive, &fieldMappings,
		&dimMappings, &cfg.DateFormat, &cfg.Timezone,
		&validationRules, &defaultValues,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query partner config: %w", err)
	}

	if err := unmarshalInto(fieldMappings, &cfg.FieldMappings); err != nil {
		return nil, fmt.Errorf("partner %d field mappings: %w", partnerID, err)
	}
	if err := unmarshalInto(dimMappings, &cfg.DimensionMappings); err != nil {
		return nil, fmt.Errorf("partner %d dimension mappings: %w", partnerID, err)
	}
	if err := unmarshalInto(validationRules, &cfg.ValidationRules); err != nil {
		return nil, fmt.Errorf("partner %d validation rules: %w", partnerID, err)
	}
	if err := unmarshalInto(defaultValues, &cfg.DefaultValues); err != nil {
		return nil, fmt.Errorf("partner %d default values: %w", partnerID, err)
	}
	return &cfg, nil
}

// ListPartnerConfigs returns all configured partners ordered by id
func (s *Store) ListPartnerConfigs(ctx context.Context) ([]*partners.Config, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT partner_id FROM partner_configs ORDER BY partner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list partner configs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	configs := make([]*partners.Config, 0, len(ids))
	for _, id := range ids {
		cfg, err := s.GetPartnerConfig(ctx, id)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			configs = append(configs, cfg)
		}
	}
	return configs, nil
}

// FindDimension looks up a dimension by its natural key. Returns (nil, nil)
// when absent.
func (s *Store) FindDimension(ctx context.Context, kind types.DimensionKind, partnerID int64, originalValue string) (*types.Dimension, error) {
	var d types.Dimension
	err := s.db.Pool().QueryRow(ctx, `
		SELECT id, kind, name, partner_id, original_value, original_field,
		       is_active, created_at, updated_at
		FROM dimensions
		WHERE kind = $1 AND partner_id = $2 AND original_value = $3
	`, kind, partnerID, originalValue).Scan(
		&d.ID, &d.Kind, &d.Name, &d.PartnerID, &d.OriginalValue,
		&d.OriginalField, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// EnsureDimension atomically creates a dimension if absent and returns the
// surviving row either way. The conflict target is the
// (kind, partner_id, original_value) uniqueness invariant, so two concurrent
// first sightings of the same value converge on one id.
func (s *Store) EnsureDimension(ctx context.Context, dim *types.Dimension) (*types.Dimension, error) {
	id := cuid2.New("dim")

	out := *dim
	var inserted bool
	err := s.db.Pool().QueryRow(ctx, `
		INSERT INTO dimensions (
			id, kind, name, partner_id, original_value, original_field,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (kind, partner_id, original_value) DO UPDATE
			SET updated_at = NOW()
		RETURNING id, name, is_active, created_at, updated_at, (xmax = 0)
	`, id, dim.Kind, dim.Name, dim.PartnerID, dim.OriginalValue,
		dim.OriginalField, dim.IsActive).Scan(
		&out.ID, &out.Name, &out.IsActive, &out.CreatedAt, &out.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, err
	}
	if inserted {
		metrics.DimensionCreated(string(dim.Kind))
	}
	return &out, nil
}

// InsertConversion inserts one canonical conversion row
func (s *Store) InsertConversion(ctx context.Context, c *types.Conversion) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO conversions (
			id, date, foreign_partner_id, foreign_campaign_id,
			foreign_landing_id, buyer_id, funnel_id, source_id, campaign_id,
			os_family, country, all_clicks, unique_clicks,
			registrations_count, ftd_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			NOW(), NOW()
		)
	`, uuid.New().String(), c.Date, c.ForeignPartnerID, c.ForeignCampaignID,
		c.ForeignLandingID, c.BuyerID, c.FunnelID, c.SourceID, c.CampaignID,
		c.OSFamily, c.Country, c.AllClicks, c.UniqueClicks,
		c.RegistrationsCount, c.FTDCount)
	return err
}

// UpsertConversion atomically inserts or updates on the natural composite key
func (s *Store) UpsertConversion(ctx context.Context, c *types.Conversion) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO conversions (
			id, date, foreign_partner_id, foreign_campaign_id,
			foreign_landing_id, buyer_id, funnel_id, source_id, campaign_id,
			os_family, country, all_clicks, unique_clicks,
			registrations_count, ftd_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			NOW(), NOW()
		)
		ON CONFLICT (date, foreign_partner_id, foreign_campaign_id, foreign_landing_id)
		DO UPDATE SET
			buyer_id = EXCLUDED.buyer_id,
			funnel_id = EXCLUDED.funnel_id,
			source_id = EXCLUDED.source_id,
			campaign_id = EXCLUDED.campaign_id,
			os_family = EXCLUDED.os_family,
			country = EXCLUDED.country,
			all_clicks = EXCLUDED.all_clicks,
			unique_clicks = EXCLUDED.unique_clicks,
			registrations_count = EXCLUDED.registrations_count,
			ftd_count = EXCLUDED.ftd_count,
			updated_at = NOW()
	`, uuid.New().String(), c.Date, c.ForeignPartnerID, c.ForeignCampaignID,
		c.ForeignLandingID, c.BuyerID, c.FunnelID, c.SourceID, c.CampaignID,
		c.OSFamily, c.Country, c.AllClicks, c.UniqueClicks,
		c.RegistrationsCount, c.FTDCount)
	return err
}

// FindConversionByKey looks up a conversion by its natural composite key.
// Returns (nil, nil) when absent.
func (s *Store) FindConversionByKey(ctx context.Context, date string, partnerID, campaignID, landingID int64) (*types.Conversion, error) {
	var c types.Conversion
	err := s.db.Pool().QueryRow(ctx, `
		SELECT to_char(date, 'YYYY-MM-DD'), foreign_partner_id,
		       foreign_campaign_id, foreign_landing_id, buyer_id, funnel_id,
		       source_id, campaign_id, os_family, country, all_clicks,
		       unique_clicks, registrations_count, ftd_count
		FROM conversions
		WHERE date = $1 AND foreign_partner_id = $2
		  AND foreign_campaign_id = $3 AND foreign_landing_id = $4
	`, date, partnerID, campaignID, landingID).Scan(
		&c.Date, &c.ForeignPartnerID, &c.ForeignCampaignID, &c.ForeignLandingID,
		&c.BuyerID, &c.FunnelID, &c.SourceID, &c.CampaignID, &c.OSFamily,
		&c.Country, &c.AllClicks, &c.UniqueClicks, &c.RegistrationsCount,
		&c.FTDCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertPlayer inserts one canonical player row. The schema deliberately has
// no email or contact columns; privacy exclusion happens at parse time and
// the store cannot reintroduce it.
func (s *Store) InsertPlayer(ctx context.Context, p *types.Player) error {
	_, err := s.db.Pool().Exec(ctx, insertPlayerSQL, playerArgs(p)...)
	return err
}

// UpsertPlayer atomically inserts or updates on (player_id, date)
func (s *Store) UpsertPlayer(ctx context.Context, p *types.Player) error {
	_, err := s.db.Pool().Exec(ctx, insertPlayerSQL+`
		ON CONFLICT (player_id, date) DO UPDATE SET
			original_player_id = EXCLUDED.original_player_id,
			sign_up_date = EXCLUDED.sign_up_date,
			first_deposit_date = EXCLUDED.first_deposit_date,
			campaign_id = EXCLUDED.campaign_id,
			campaign_name = EXCLUDED.campaign_name,
			player_country = EXCLUDED.player_country,
			prequalified = EXCLUDED.prequalified,
			duplicate = EXCLUDED.duplicate,
			self_excluded = EXCLUDED.self_excluded,
			disabled = EXCLUDED.disabled,
			currency = EXCLUDED.currency,
			ftd_count = EXCLUDED.ftd_count,
			ftd_sum = EXCLUDED.ftd_sum,
			deposits_count = EXCLUDED.deposits_count,
			deposits_sum = EXCLUDED.deposits_sum,
			cashouts_count = EXCLUDED.cashouts_count,
			cashouts_sum = EXCLUDED.cashouts_sum,
			casino_bets_count = EXCLUDED.casino_bets_count,
			casino_real_ngr = EXCLUDED.casino_real_ngr,
			fixed_per_player = EXCLUDED.fixed_per_player,
			casino_bets_sum = EXCLUDED.casino_bets_sum,
			casino_wins_sum = EXCLUDED.casino_wins_sum,
			updated_at = NOW()
	`, playerArgs(p)...)
	return err
}

// FindPlayerByKey looks up a player row by (playerID, date). Returns
// (nil, nil) when absent.
func (s *Store) FindPlayerByKey(ctx context.Context, playerID, date string) (*types.Player, error) {
	var p types.Player
	err := s.db.Pool().QueryRow(ctx, `
		SELECT player_id, original_player_id,
		       to_char(sign_up_date, 'YYYY-MM-DD'),
		       to_char(first_deposit_date, 'YYYY-MM-DD'),
		       campaign_id, campaign_name, player_country, partner_id,
		       to_char(date, 'YYYY-MM-DD'), prequalified, duplicate,
		       self_excluded, disabled, currency, ftd_count, ftd_sum::text,
		       deposits_count, deposits_sum::text, cashouts_count,
		       cashouts_sum::text, casino_bets_count, casino_real_ngr::text,
		       fixed_per_player::text, casino_bets_sum::text,
		       casino_wins_sum::text
		FROM players
		WHERE player_id = $1 AND date = $2
	`, playerID, date).Scan(
		&p.PlayerID, &p.OriginalPlayerID, &p.SignUpDate, &p.FirstDepositDate,
		&p.CampaignID, &p.CampaignName, &p.PlayerCountry, &p.PartnerID,
		&p.Date, &p.Prequalified, &p.Duplicate, &p.SelfExcluded, &p.Disabled,
		&p.Currency, &p.FTDCount, &p.FTDSum, &p.DepositsCount, &p.DepositsSum,
		&p.CashoutsCount, &p.CashoutsSum, &p.CasinoBetsCount, &p.CasinoRealNGR,
		&p.FixedPerPlayer, &p.CasinoBetsSum, &p.CasinoWinsSum,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const insertPlayerSQL = `
	INSERT INTO players (
		id, player_id, original_player_id, sign_up_date, first_deposit_date,
		campaign_id, campaign_name, player_country, partner_id, date,
		prequalified, duplicate, self_excluded, disabled, currency,
		ftd_count, ftd_sum, deposits_count, deposits_sum, cashouts_count,
		cashouts_sum, casino_bets_count, casino_real_ngr, fixed_per_player,
		casino_bets_sum, casino_wins_sum, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW(), NOW()
	)`

func playerArgs(p *types.Player) []any {
	return []any{
		uuid.New().String(), p.PlayerID, p.OriginalPlayerID, p.SignUpDate,
		p.FirstDepositDate, p.CampaignID, p.CampaignName, p.PlayerCountry,
		p.PartnerID, p.Date, p.Prequalified, p.Duplicate, p.SelfExcluded,
		p.Disabled, p.Currency, p.FTDCount, p.FTDSum, p.DepositsCount,
		p.DepositsSum, p.CashoutsCount, p.CashoutsSum, p.CasinoBetsCount,
		p.CasinoRealNGR, p.FixedPerPlayer, p.CasinoBetsSum, p.CasinoWinsSum,
	}
}

func unmarshalInto(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
