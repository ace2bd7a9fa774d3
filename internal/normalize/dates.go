package normalize

import (
	"strings"
	"time"

	"github.com/afflux/partner-service/internal/types"
)

// CanonicalDateLayout is the date-only output format for canonical records
const CanonicalDateLayout = "2006-01-02"

// layoutTokens translates partner-facing format tokens into a Go time layout.
// Ordered so longer tokens win (YYYY before YY).
var layoutTokens = strings.NewReplacer(
	"YYYY", "2006",
	"YY", "06",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

// DateConverter parses partner-formatted date strings into canonical
// YYYY-MM-DD. Parsing is strict: the value must match the partner's
// configured input format exactly.
type DateConverter struct {
	format string
	layout string
	loc    *time.Location
}

// NewDateConverter builds a converter for the partner's configured format.
// An empty format defaults to the canonical YYYY-MM-DD. The timezone, when
// set, is used for interpreting parsed values; invalid zones fall back to UTC.
func NewDateConverter(format, timezone string) *DateConverter {
	if format == "" {
		format = "YYYY-MM-DD"
	}
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return &DateConverter{
		format: format,
		layout: layoutTokens.Replace(format),
		loc:    loc,
	}
}

// Convert parses a partner-formatted date string into canonical YYYY-MM-DD.
// Time-of-day components are discarded. Empty input fails with
// MissingDateError; a mismatched value fails with DateParseError.
func (c *DateConverter) Convert(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &types.MissingDateError{}
	}
	t, err := time.ParseInLocation(c.layout, value, c.loc)
	if err != nil {
		return "", &types.DateParseError{Raw: value, Format: c.format}
	}
	return t.Format(CanonicalDateLayout), nil
}

// ConvertTime formats an already-parsed time directly, date-only
func (c *DateConverter) ConvertTime(t time.Time) string {
	return t.In(c.loc).Format(CanonicalDateLayout)
}

// Today returns the current date in the partner's timezone, date-only.
// Computed once per batch by the caller, never per row.
func (c *DateConverter) Today(now time.Time) string {
	return now.In(c.loc).Format(CanonicalDateLayout)
}
