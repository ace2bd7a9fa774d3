package types

import (
	"strings"
	"time"
)

// RecordType identifies the two kinds of partner data feeds
type RecordType string

const (
	RecordTypeConversions RecordType = "conversions"
	RecordTypePlayers     RecordType = "players"
)

// ParseRecordType converts a request path segment into a RecordType
func ParseRecordType(s string) (RecordType, bool) {
	switch RecordType(s) {
	case RecordTypeConversions:
		return RecordTypeConversions, true
	case RecordTypePlayers:
		return RecordTypePlayers, true
	}
	return "", false
}

// RawRecord represents one source row (CSV row or JSON array element)
// reduced to string keys and values, before any normalization
type RawRecord map[string]string

// Get returns the trimmed value for a key, and whether it is non-empty.
// A value that is all whitespace counts as absent.
func (r RawRecord) Get(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// Conversion is the canonical conversion record.
// Identity for upsert purposes: (Date, ForeignPartnerID, ForeignCampaignID, ForeignLandingID)
type Conversion struct {
	Date               string  `json:"date"` // YYYY-MM-DD
	ForeignPartnerID   int64   `json:"foreignPartnerId"`
	ForeignCampaignID  int64   `json:"foreignCampaignId"`
	ForeignLandingID   int64   `json:"foreignLandingId"`
	BuyerID            *string `json:"buyerId,omitempty"`
	FunnelID           *string `json:"funnelId,omitempty"`
	SourceID           *string `json:"sourceId,omitempty"`
	CampaignID         *string `json:"campaignId,omitempty"`
	OSFamily           *string `json:"osFamily,omitempty"`
	Country            string  `json:"country"`
	AllClicks          int64   `json:"allClicks"`
	UniqueClicks       int64   `json:"uniqueClicks"`
	RegistrationsCount int64   `json:"registrationsCount"`
	FTDCount           int64   `json:"ftdCount"`
}

// Player is the canonical player record.
// Identity: (PlayerID, Date) - the same player may recur on different dates.
// Monetary sums are exact decimal strings, never floats.
type Player struct {
	PlayerID         string  `json:"playerId"`
	OriginalPlayerID *string `json:"originalPlayerId,omitempty"`
	SignUpDate       *string `json:"signUpDate,omitempty"`       // YYYY-MM-DD
	FirstDepositDate *string `json:"firstDepositDate,omitempty"` // YYYY-MM-DD
	CampaignID       *string `json:"campaignId,omitempty"`
	CampaignName     *string `json:"campaignName,omitempty"`
	PlayerCountry    *string `json:"playerCountry,omitempty"`
	PartnerID        int64   `json:"partnerId"`
	Date             string  `json:"date"` // YYYY-MM-DD
	Prequalified     bool    `json:"prequalified"`
	Duplicate        bool    `json:"duplicate"`
	SelfExcluded     bool    `json:"selfExcluded"`
	Disabled         bool    `json:"disabled"`
	Currency         *string `json:"currency,omitempty"`
	FTDCount         int64   `json:"ftdCount"`
	FTDSum           string  `json:"ftdSum"`
	DepositsCount    int64   `json:"depositsCount"`
	DepositsSum      string  `json:"depositsSum"`
	CashoutsCount    int64   `json:"cashoutsCount"`
	CashoutsSum      string  `json:"cashoutsSum"`
	CasinoBetsCount  int64   `json:"casinoBetsCount"`
	CasinoRealNGR    string  `json:"casinoRealNgr"`
	FixedPerPlayer   string  `json:"fixedPerPlayer"`
	CasinoBetsSum    string  `json:"casinoBetsSum"`
	CasinoWinsSum    string  `json:"casinoWinsSum"`
}

// DimensionKind identifies the four partner-scoped reference entity kinds
type DimensionKind string

const (
	DimensionBuyer    DimensionKind = "buyer"
	DimensionFunnel   DimensionKind = "funnel"
	DimensionSource   DimensionKind = "source"
	DimensionCampaign DimensionKind = "campaign"
)

// DimensionKinds contains all dimension kinds
var DimensionKinds = []DimensionKind{
	DimensionBuyer,
	DimensionFunnel,
	DimensionSource,
	DimensionCampaign,
}

// Label returns the human-readable form used in generated dimension names
func (k DimensionKind) Label() string {
	switch k {
	case DimensionBuyer:
		return "Buyer"
	case DimensionFunnel:
		return "Funnel"
	case DimensionSource:
		return "Source"
	case DimensionCampaign:
		return "Campaign"
	}
	return string(k)
}

// Dimension is a deduplicated, partner-scoped reference entity derived from
// raw tag values. (Kind, PartnerID, OriginalValue) is unique.
type Dimension struct {
	ID            string        `json:"id"`
	Kind          DimensionKind `json:"kind"`
	Name          string        `json:"name"`
	PartnerID     int64         `json:"partnerId"`
	OriginalValue string        `json:"originalValue"`
	OriginalField string        `json:"originalField"`
	IsActive      bool          `json:"isActive"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// DimensionIDs carries the resolved dimension ids for one record.
// A nil entry means the partner has no mapping for that kind, or the
// mapped field was absent in the record.
type DimensionIDs struct {
	BuyerID    *string
	FunnelID   *string
	SourceID   *string
	CampaignID *string
}

// ImportSummary breaks processed rows down by date bucket
type ImportSummary struct {
	TotalRows         int `json:"totalRows"`
	HistoricalSkipped int `json:"historicalSkipped"`
	TodayUpserted     int `json:"todayUpserted"`
	FutureInserted    int `json:"futureInserted"`
}

// IngestionResult is the per-batch outcome returned to the caller.
// Created fresh per ingestion call, never persisted.
type IngestionResult struct {
	Success        bool          `json:"success"`
	ProcessedCount int           `json:"processedCount"`
	SkippedCount   int           `json:"skippedCount"`
	ErrorCount     int           `json:"errorCount"`
	Errors         []string      `json:"errors"`
	Summary        ImportSummary `json:"summary"`
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}
