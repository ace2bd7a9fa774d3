package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afflux/partner-service/internal/types"
)

func TestDateConverterConvert(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		value    string
		expected string
	}{
		{"canonical passthrough", "YYYY-MM-DD", "2024-06-15", "2024-06-15"},
		{"european dotted", "DD.MM.YYYY", "15.06.2024", "2024-06-15"},
		{"us slashes", "MM/DD/YYYY", "06/15/2024", "2024-06-15"},
		{"two digit year", "DD/MM/YY", "15/06/24", "2024-06-15"},
		{"empty format defaults to canonical", "", "2024-01-02", "2024-01-02"},
		{"with time component", "YYYY-MM-DD HH:mm:ss", "2024-06-15 13:45:00", "2024-06-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDateConverter(tt.format, "")
			got, err := c.Convert(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDateConverterMissingDate(t *testing.T) {
	c := NewDateConverter("YYYY-MM-DD", "")

	_, err := c.Convert("")
	require.Error(t, err)

	var missing *types.MissingDateError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Missing date field", err.Error())
}

func TestDateConverterParseError(t *testing.T) {
	c := NewDateConverter("DD.MM.YYYY", "")

	_, err := c.Convert("2024-06-15")
	require.Error(t, err)

	var parseErr *types.DateParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "2024-06-15", parseErr.Raw)
	assert.Equal(t, "DD.MM.YYYY", parseErr.Format)
}

func TestDateConverterToday(t *testing.T) {
	// 2024-06-15 01:30 UTC is still 2024-06-14 in New York
	now := time.Date(2024, 6, 15, 1, 30, 0, 0, time.UTC)

	utc := NewDateConverter("YYYY-MM-DD", "")
	assert.Equal(t, "2024-06-15", utc.Today(now))

	ny := NewDateConverter("YYYY-MM-DD", "America/New_York")
	assert.Equal(t, "2024-06-14", ny.Today(now))
}

func TestDateConverterBadTimezoneFallsBackToUTC(t *testing.T) {
	c := NewDateConverter("YYYY-MM-DD", "Not/AZone")
	now := time.Date(2024, 6, 15, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-15", c.Today(now))
}
