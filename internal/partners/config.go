// Package partners holds the per-partner configuration model and loader.
// Each external partner supplies data with its own field names, date format,
// validation expectations, and dimension-tagging conventions; the config
// captures all of it so the normalization pipeline stays partner-agnostic.
package partners

import (
	"github.com/afflux/partner-service/internal/types"
)

// FieldMappings maps partner-specific field names to canonical field names,
// per record type
type FieldMappings struct {
	Conversions map[string]string `json:"conversions,omitempty"`
	Players     map[string]string `json:"players,omitempty"`
}

// ForType returns the mapping table for a record type (may be nil)
func (m FieldMappings) ForType(recordType types.RecordType) map[string]string {
	switch recordType {
	case types.RecordTypeConversions:
		return m.Conversions
	case types.RecordTypePlayers:
		return m.Players
	}
	return nil
}

// DimensionMappings names the raw field that carries each dimension tag.
// A nil entry means the partner does not tag that dimension.
type DimensionMappings struct {
	Buyer    *string `json:"buyer,omitempty"`
	Funnel   *string `json:"funnel,omitempty"`
	Source   *string `json:"source,omitempty"`
	Campaign *string `json:"campaign,omitempty"`
}

// Field returns the mapped raw field name for a dimension kind
func (m DimensionMappings) Field(kind types.DimensionKind) *string {
	switch kind {
	case types.DimensionBuyer:
		return m.Buyer
	case types.DimensionFunnel:
		return m.Funnel
	case types.DimensionSource:
		return m.Source
	case types.DimensionCampaign:
		return m.Campaign
	}
	return nil
}

// RangeRule bounds a numeric field. Nil min/max means unbounded on that side.
type RangeRule struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ValidationRules holds the partner's configured validation expectations
type ValidationRules struct {
	Required []string             `json:"required,omitempty"`
	Patterns map[string]string    `json:"patterns,omitempty"`
	Ranges   map[string]RangeRule `json:"ranges,omitempty"`
}

// Config is one partner's configuration document. All fields except
// PartnerID, PartnerName, and IsActive are optional and default to
// "no mapping / no validation / no transformation" when absent.
type Config struct {
	PartnerID         int64             `json:"partnerId"`
	PartnerName       string            `json:"partnerName"`
	IsActive          bool              `json:"isActive"`
	FieldMappings     FieldMappings     `json:"fieldMappings"`
	DimensionMappings DimensionMappings `json:"dimensionMappings"`
	DateFormat        string            `json:"dateFormat"` // e.g. "YYYY-MM-DD", "DD.MM.YYYY"
	Timezone          string            `json:"timezone,omitempty"`
	ValidationRules   ValidationRules   `json:"validationRules"`
	DefaultValues     map[string]string `json:"defaultValues,omitempty"`
}

// DefaultCountry is the lenient fallback applied when a record carries no
// country, unless the partner overrides it via defaultValues
const DefaultCountry = "US"

// CountryFallback returns the country value used when a record has none
func (c *Config) CountryFallback() string {
	if v, ok := c.DefaultValues["country"]; ok && v != "" {
		return v
	}
	return DefaultCountry
}

// Default returns the configured default for a canonical field, if any
func (c *Config) Default(field string) (string, bool) {
	v, ok := c.DefaultValues[field]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
