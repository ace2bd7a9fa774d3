package csv

import (
	"fmt"
	"strings"

	"github.com/afflux/partner-service/internal/types"
)

// ConversionHeaders is the exact column set expected in a conversions CSV,
// order-independent.
var ConversionHeaders = []string{
	"date",
	"foreign_partner_id",
	"foreign_campaign_id",
	"foreign_landing_id",
	"os_family",
	"country",
	"all_clicks",
	"unique_clicks",
	"registrations_count",
	"ftd_count",
}

// PlayerRequiredHeaders is the subset of headers a players CSV must carry.
// Player exports vary wildly between partners, so matching is a loose
// case-insensitive substring check rather than an exact set comparison.
var PlayerRequiredHeaders = []string{
	"Player ID",
	"Sign up date",
	"Partner ID",
	"Campaign ID",
	"Player country",
}

// contactColumnMarkers identify columns that carry personal contact data.
// Matching columns are dropped at parse time and never reach storage.
var contactColumnMarkers = []string{
	"email",
	"e-mail",
	"phone",
	"contact",
}

// IsContactColumn reports whether a header names a personal contact column
func IsContactColumn(header string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, marker := range contactColumnMarkers {
		if strings.Contains(h, marker) {
			return true
		}
	}
	return false
}

// ValidateHeaders checks that a header row matches the expected shape for
// the record type. Conversions require the exact canonical column set;
// players require each known header to appear as a substring of some column.
func ValidateHeaders(recordType types.RecordType, headers []string) error {
	switch recordType {
	case types.RecordTypeConversions:
		return validateConversionHeaders(headers)
	case types.RecordTypePlayers:
		return validatePlayerHeaders(headers)
	default:
		return fmt.Errorf("unknown record type: %s", recordType)
	}
}

func validateConversionHeaders(headers []string) error {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		seen[strings.ToLower(strings.TrimSpace(h))] = true
	}

	var missing []string
	for _, want := range ConversionHeaders {
		if !seen[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	if len(seen) != len(ConversionHeaders) {
		var extra []string
		known := make(map[string]bool, len(ConversionHeaders))
		for _, h := range ConversionHeaders {
			known[h] = true
		}
		for h := range seen {
			if !known[h] {
				extra = append(extra, h)
			}
		}
		return fmt.Errorf("unexpected columns: %s", strings.Join(extra, ", "))
	}

	return nil
}

func validatePlayerHeaders(headers []string) error {
	lowered := make([]string, 0, len(headers))
	for _, h := range headers {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(h)))
	}

	var missing []string
	for _, want := range PlayerRequiredHeaders {
		wantLower := strings.ToLower(want)
		found := false
		for _, h := range lowered {
			if strings.Contains(h, wantLower) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return nil
}
