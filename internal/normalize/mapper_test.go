package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

func TestFieldMapperMap(t *testing.T) {
	cfg := &partners.Config{
		FieldMappings: partners.FieldMappings{
			Conversions: map[string]string{
				"external_id": "foreign_partner_id",
				"clicks":      "all_clicks",
			},
		},
	}
	m := NewFieldMapper(cfg)

	raw := types.RawRecord{
		"external_id": "42",
		"clicks":      "100",
		"country":     "DE",
	}
	mapped := m.Map(raw, types.RecordTypeConversions)

	assert.Equal(t, "42", mapped["foreign_partner_id"])
	assert.Equal(t, "100", mapped["all_clicks"])
	// Unmapped keys pass through
	assert.Equal(t, "DE", mapped["country"])
	// Source keys do not survive the rename
	assert.NotContains(t, mapped, "external_id")
	assert.NotContains(t, mapped, "clicks")
}

func TestFieldMapperMappedValueWinsOverPassthrough(t *testing.T) {
	cfg := &partners.Config{
		FieldMappings: partners.FieldMappings{
			Conversions: map[string]string{"cc": "country"},
		},
	}
	m := NewFieldMapper(cfg)

	raw := types.RawRecord{
		"cc":      "DE",
		"country": "should lose",
	}
	mapped := m.Map(raw, types.RecordTypeConversions)

	assert.Equal(t, "DE", mapped["country"])
}

func TestFieldMapperNoMappingIsIdentity(t *testing.T) {
	m := NewFieldMapper(&partners.Config{})

	raw := types.RawRecord{"date": "2024-01-01", "country": "US"}
	mapped := m.Map(raw, types.RecordTypePlayers)

	assert.Equal(t, raw, mapped)
}
