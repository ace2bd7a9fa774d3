package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ZeroDecimal is the default for absent monetary fields
const ZeroDecimal = "0"

var currencySuffix = regexp.MustCompile(`(?i)\s*(EUR|USD|GBP|HRK|PLN)\s*$`)

// ParseDecimal normalizes a partner-supplied monetary value into an exact
// dot-decimal string. Canonical monetary values are never floats; the digits
// pass through as strings to avoid rounding drift in aggregation. Both US
// ("1,234.56") and European ("1.234,56") separator conventions are accepted.
func ParseDecimal(value string) (string, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return "", fmt.Errorf("empty decimal value")
	}

	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', ' ', ' ':
			return -1
		}
		return r
	}, cleaned)
	cleaned = currencySuffix.ReplaceAllString(cleaned, "")

	if cleaned == "" {
		return "", fmt.Errorf("no numeric value in %q", value)
	}

	neg := false
	if strings.HasPrefix(cleaned, "-") {
		neg = true
		cleaned = cleaned[1:]
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case lastComma > lastDot:
		// European: dots are thousands separators, comma is decimal
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case lastDot > lastComma:
		// US: commas are thousands separators
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	intPart, fracPart, hasFrac := strings.Cut(cleaned, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !allDigits(intPart) || (hasFrac && !allDigits(fracPart)) {
		return "", fmt.Errorf("invalid decimal %q", value)
	}

	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}

	out := intPart
	if hasFrac && fracPart != "" {
		out += "." + fracPart
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out, nil
}

// ParseCount parses an integral count field
func ParseCount(value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", value)
	}
	return n, nil
}

// ParseFlag interprets the boolean conventions seen across partner feeds
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
