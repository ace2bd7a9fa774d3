// Package normalize converts partner-shaped raw records into canonical
// Conversion and Player records: field renaming, date conversion, validation,
// numeric coercion, and dimension resolution, in that fixed order.
package normalize

import (
	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// FieldMapper renames partner-specific keys to canonical field names.
// Purely a rename/copy stage: no validation, idempotent, side-effect free.
type FieldMapper struct {
	cfg *partners.Config
}

// NewFieldMapper creates a field mapper for one partner's config
func NewFieldMapper(cfg *partners.Config) *FieldMapper {
	return &FieldMapper{cfg: cfg}
}

// Map renames keys per the partner's mapping table for the record type.
// Unmapped keys pass through unchanged unless their name collides with an
// already-produced canonical key, which tolerates partners that already use
// canonical names for some fields.
func (m *FieldMapper) Map(raw types.RawRecord, recordType types.RecordType) types.RawRecord {
	mapping := m.cfg.FieldMappings.ForType(recordType)
	out := make(types.RawRecord, len(raw))

	for key, value := range raw {
		if target, ok := mapping[key]; ok {
			out[target] = value
		}
	}

	for key, value := range raw {
		if _, mapped := mapping[key]; mapped {
			continue
		}
		if _, taken := out[key]; taken {
			continue
		}
		out[key] = value
	}

	return out
}
