package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

func floatPtr(f float64) *float64 { return &f }

func TestValidatorRequired(t *testing.T) {
	v, err := NewValidator(partners.ValidationRules{
		Required: []string{"date", "country"},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		record types.RawRecord
		field  string
	}{
		{"absent key", types.RawRecord{"country": "US"}, "date"},
		{"empty value", types.RawRecord{"date": "", "country": "US"}, "date"},
		{"whitespace only", types.RawRecord{"date": "  ", "country": "US"}, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.record)
			require.Error(t, err)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, types.RuleRequired, verr.Rule)
		})
	}

	assert.NoError(t, v.Validate(types.RawRecord{"date": "2024-01-01", "country": "US"}))
}

func TestValidatorFailFastOrdering(t *testing.T) {
	// A record violating a required rule and a pattern rule reports the
	// required violation: required runs before patterns before ranges.
	v, err := NewValidator(partners.ValidationRules{
		Required: []string{"date"},
		Patterns: map[string]string{"country": `^[A-Z]{2}$`},
		Ranges:   map[string]partners.RangeRule{"all_clicks": {Min: floatPtr(0)}},
	})
	require.NoError(t, err)

	err = v.Validate(types.RawRecord{"country": "germany", "all_clicks": "-5"})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, types.RuleRequired, verr.Rule)
	assert.Equal(t, "date", verr.Field)

	// With the required field present, the pattern violation surfaces next
	err = v.Validate(types.RawRecord{"date": "2024-01-01", "country": "germany", "all_clicks": "-5"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, types.RulePattern, verr.Rule)
	assert.Equal(t, "country", verr.Field)

	// And only then the range violation
	err = v.Validate(types.RawRecord{"date": "2024-01-01", "country": "DE", "all_clicks": "-5"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, types.RuleRange, verr.Rule)
	assert.Equal(t, "all_clicks", verr.Field)
}

func TestValidatorRangeBounds(t *testing.T) {
	v, err := NewValidator(partners.ValidationRules{
		Ranges: map[string]partners.RangeRule{
			"ftd_count": {Min: floatPtr(0), Max: floatPtr(1000)},
		},
	})
	require.NoError(t, err)

	assert.NoError(t, v.Validate(types.RawRecord{"ftd_count": "0"}))
	assert.NoError(t, v.Validate(types.RawRecord{"ftd_count": "1000"}))
	assert.Error(t, v.Validate(types.RawRecord{"ftd_count": "-1"}))
	assert.Error(t, v.Validate(types.RawRecord{"ftd_count": "1001"}))
}

func TestValidatorRangeSkipsNonNumeric(t *testing.T) {
	v, err := NewValidator(partners.ValidationRules{
		Ranges: map[string]partners.RangeRule{"ftd_count": {Min: floatPtr(0)}},
	})
	require.NoError(t, err)

	// Non-numeric values silently skip range checks
	assert.NoError(t, v.Validate(types.RawRecord{"ftd_count": "n/a"}))
	// Absent values too
	assert.NoError(t, v.Validate(types.RawRecord{}))
}

func TestValidatorPatternSkipsAbsent(t *testing.T) {
	v, err := NewValidator(partners.ValidationRules{
		Patterns: map[string]string{"country": `^[A-Z]{2}$`},
	})
	require.NoError(t, err)

	assert.NoError(t, v.Validate(types.RawRecord{}))
	assert.NoError(t, v.Validate(types.RawRecord{"country": ""}))
}

func TestNewValidatorRejectsBadPattern(t *testing.T) {
	_, err := NewValidator(partners.ValidationRules{
		Patterns: map[string]string{"country": `([`},
	})
	assert.Error(t, err)
}
