package normalize

import (
	"context"
	"strings"

	"github.com/afflux/partner-service/internal/dimensions"
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// Canonical conversion field names (the expected CSV column set)
const (
	FieldDate               = "date"
	FieldForeignPartnerID   = "foreign_partner_id"
	FieldForeignCampaignID  = "foreign_campaign_id"
	FieldForeignLandingID   = "foreign_landing_id"
	FieldOSFamily           = "os_family"
	FieldCountry            = "country"
	FieldAllClicks          = "all_clicks"
	FieldUniqueClicks       = "unique_clicks"
	FieldRegistrationsCount = "registrations_count"
	FieldFTDCount           = "ftd_count"
)

// Canonical player field names
const (
	FieldPlayerID         = "player_id"
	FieldOriginalPlayerID = "original_player_id"
	FieldSignUpDate       = "sign_up_date"
	FieldFirstDepositDate = "first_deposit_date"
	FieldCampaignID       = "campaign_id"
	FieldCampaignName     = "campaign_name"
	FieldPlayerCountry    = "player_country"
	FieldPrequalified     = "prequalified"
	FieldDuplicate        = "duplicate"
	FieldSelfExcluded     = "self_excluded"
	FieldDisabled         = "disabled"
	FieldCurrency         = "currency"
	FieldFTDSum           = "ftd_sum"
	FieldDepositsCount    = "deposits_count"
	FieldDepositsSum      = "deposits_sum"
	FieldCashoutsCount    = "cashouts_count"
	FieldCashoutsSum      = "cashouts_sum"
	FieldCasinoBetsCount  = "casino_bets_count"
	FieldCasinoRealNGR    = "casino_real_ngr"
	FieldFixedPerPlayer   = "fixed_per_player"
	FieldCasinoBetsSum    = "casino_bets_sum"
	FieldCasinoWinsSum    = "casino_wins_sum"
)

// RecordNormalizer orchestrates mapping, validation, date conversion, and
// dimension resolution into canonical records. Stage order is fixed; the
// first error raised by any stage fails the record.
type RecordNormalizer struct {
	cfg       *partners.Config
	mapper    *FieldMapper
	validator *Validator
	dates     *DateConverter
	resolver  *dimensions.Resolver
}

// NewRecordNormalizer wires the per-record stages for one partner's config.
// Fails only on malformed validation patterns in the config.
func NewRecordNormalizer(cfg *partners.Config, dimStore dimensions.Store) (*RecordNormalizer, error) {
	validator, err := NewValidator(cfg.ValidationRules)
	if err != nil {
		return nil, err
	}
	return &RecordNormalizer{
		cfg:       cfg,
		mapper:    NewFieldMapper(cfg),
		validator: validator,
		dates:     NewDateConverter(cfg.DateFormat, cfg.Timezone),
		resolver:  dimensions.NewResolver(dimStore, cfg),
	}, nil
}

// Dates exposes the partner's date converter, used by the pipeline to compute
// the batch reference date in the partner's timezone
func (n *RecordNormalizer) Dates() *DateConverter {
	return n.dates
}

// NormalizeConversion maps, validates, and converts one raw conversion row
func (n *RecordNormalizer) NormalizeConversion(ctx context.Context, raw types.RawRecord) (*types.Conversion, error) {
	mapped := n.prepare(raw, types.RecordTypeConversions)

	if err := n.validator.Validate(mapped); err != nil {
		return nil, err
	}

	date, err := n.dates.Convert(mapped[FieldDate])
	if err != nil {
		return nil, err
	}

	ids, err := n.resolver.Resolve(ctx, mapped)
	if err != nil {
		return nil, err
	}

	conv := &types.Conversion{
		Date:     date,
		BuyerID:  ids.BuyerID,
		FunnelID: ids.FunnelID,
		SourceID: ids.SourceID,
		// Dimension id, distinct from the partner's raw campaign id below
		CampaignID: ids.CampaignID,
		OSFamily:   optional(mapped, FieldOSFamily),
		Country:    n.cfg.CountryFallback(),
	}
	if c, ok := mapped.Get(FieldCountry); ok {
		conv.Country = c
	}

	counts := []struct {
		field string
		dst   *int64
	}{
		{FieldForeignPartnerID, &conv.ForeignPartnerID},
		{FieldForeignCampaignID, &conv.ForeignCampaignID},
		{FieldForeignLandingID, &conv.ForeignLandingID},
		{FieldAllClicks, &conv.AllClicks},
		{FieldUniqueClicks, &conv.UniqueClicks},
		{FieldRegistrationsCount, &conv.RegistrationsCount},
		{FieldFTDCount, &conv.FTDCount},
	}
	for _, c := range counts {
		if err := setCount(mapped, c.field, c.dst); err != nil {
			return nil, err
		}
	}

	return conv, nil
}

// NormalizePlayer maps, validates, and converts one raw player row.
// The partner id is always injected from the loaded config; a partnerId
// supplied in partner data is never trusted.
func (n *RecordNormalizer) NormalizePlayer(ctx context.Context, raw types.RawRecord) (*types.Player, error) {
	mapped := n.prepare(raw, types.RecordTypePlayers)

	if err := n.validator.Validate(mapped); err != nil {
		return nil, err
	}

	date, err := n.dates.Convert(mapped[FieldDate])
	if err != nil {
		return nil, err
	}

	signUp, err := n.optionalDate(mapped, FieldSignUpDate)
	if err != nil {
		return nil, err
	}
	firstDeposit, err := n.optionalDate(mapped, FieldFirstDepositDate)
	if err != nil {
		return nil, err
	}

	p := &types.Player{
		PlayerID:         strings.TrimSpace(mapped[FieldPlayerID]),
		OriginalPlayerID: optional(mapped, FieldOriginalPlayerID),
		SignUpDate:       signUp,
		FirstDepositDate: firstDeposit,
		CampaignID:       optional(mapped, FieldCampaignID),
		CampaignName:     optional(mapped, FieldCampaignName),
		PlayerCountry:    optional(mapped, FieldPlayerCountry),
		PartnerID:        n.cfg.PartnerID,
		Date:             date,
		Prequalified:     ParseFlag(mapped[FieldPrequalified]),
		Duplicate:        ParseFlag(mapped[FieldDuplicate]),
		SelfExcluded:     ParseFlag(mapped[FieldSelfExcluded]),
		Disabled:         ParseFlag(mapped[FieldDisabled]),
		Currency:         optional(mapped, FieldCurrency),
	}

	counts := []struct {
		field string
		dst   *int64
	}{
		{FieldFTDCount, &p.FTDCount},
		{FieldDepositsCount, &p.DepositsCount},
		{FieldCashoutsCount, &p.CashoutsCount},
		{FieldCasinoBetsCount, &p.CasinoBetsCount},
	}
	for _, c := range counts {
		if err := setCount(mapped, c.field, c.dst); err != nil {
			return nil, err
		}
	}

	sums := []struct {
		field string
		dst   *string
	}{
		{FieldFTDSum, &p.FTDSum},
		{FieldDepositsSum, &p.DepositsSum},
		{FieldCashoutsSum, &p.CashoutsSum},
		{FieldCasinoRealNGR, &p.CasinoRealNGR},
		{FieldFixedPerPlayer, &p.FixedPerPlayer},
		{FieldCasinoBetsSum, &p.CasinoBetsSum},
		{FieldCasinoWinsSum, &p.CasinoWinsSum},
	}
	for _, s := range sums {
		if err := setDecimal(mapped, s.field, s.dst); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// prepare maps raw keys to canonical names and fills configured defaults
// for fields the partner left out
func (n *RecordNormalizer) prepare(raw types.RawRecord, recordType types.RecordType) types.RawRecord {
	mapped := n.mapper.Map(raw, recordType)
	for field, def := range n.cfg.DefaultValues {
		if _, ok := mapped.Get(field); !ok {
			mapped[field] = def
		}
	}
	return mapped
}

func (n *RecordNormalizer) optionalDate(record types.RawRecord, field string) (*string, error) {
	value, ok := record.Get(field)
	if !ok {
		return nil, nil
	}
	converted, err := n.dates.Convert(value)
	if err != nil {
		return nil, err
	}
	return &converted, nil
}

func optional(record types.RawRecord, field string) *string {
	if v, ok := record.Get(field); ok {
		return types.StringPtr(v)
	}
	return nil
}

func setCount(record types.RawRecord, field string, dst *int64) error {
	value, ok := record.Get(field)
	if !ok {
		*dst = 0
		return nil
	}
	n, err := ParseCount(value)
	if err != nil {
		return &types.ValidationError{Field: field, Value: value, Rule: types.RuleRange}
	}
	*dst = n
	return nil
}

func setDecimal(record types.RawRecord, field string, dst *string) error {
	value, ok := record.Get(field)
	if !ok {
		*dst = ZeroDecimal
		return nil
	}
	d, err := ParseDecimal(value)
	if err != nil {
		return &types.ValidationError{Field: field, Value: value, Rule: types.RuleRange}
	}
	*dst = d
	return nil
}
