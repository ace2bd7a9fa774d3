package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/afflux/partner-service/internal/partners"
	"github.com/afflux/partner-service/internal/types"
)

// Validator enforces a partner's required-field, pattern, and numeric-range
// rules. Evaluation is fail-fast: the first violated rule is returned and
// later rules are not evaluated, which determines the error message a
// caller sees.
type Validator struct {
	rules        partners.ValidationRules
	patterns     map[string]*regexp.Regexp
	patternOrder []string
	rangeOrder   []string
}

// NewValidator compiles the partner's rules. A malformed pattern is a
// configuration error, not a data error.
func NewValidator(rules partners.ValidationRules) (*Validator, error) {
	v := &Validator{
		rules:    rules,
		patterns: make(map[string]*regexp.Regexp, len(rules.Patterns)),
	}
	for field, pattern := range rules.Patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern for field %q: %w", field, err)
		}
		v.patterns[field] = re
		v.patternOrder = append(v.patternOrder, field)
	}
	for field := range rules.Ranges {
		v.rangeOrder = append(v.rangeOrder, field)
	}
	// Map iteration order is random; keep rule evaluation deterministic
	sort.Strings(v.patternOrder)
	sort.Strings(v.rangeOrder)
	return v, nil
}

// Validate checks a mapped record against the rules in fixed order:
// required-field presence, then patterns, then numeric ranges. Empty string
// and absent key are both treated as missing. Range checks apply only when
// the value is coercible to a number; non-numeric values skip them silently.
func (v *Validator) Validate(record types.RawRecord) error {
	for _, field := range v.rules.Required {
		if val, ok := record[field]; !ok || strings.TrimSpace(val) == "" {
			return &types.ValidationError{Field: field, Rule: types.RuleRequired}
		}
	}

	for _, field := range v.patternOrder {
		val, ok := record.Get(field)
		if !ok {
			continue
		}
		if !v.patterns[field].MatchString(val) {
			return &types.ValidationError{Field: field, Value: val, Rule: types.RulePattern}
		}
	}

	for _, field := range v.rangeOrder {
		val, ok := record.Get(field)
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			continue
		}
		r := v.rules.Ranges[field]
		if r.Min != nil && n < *r.Min {
			return &types.ValidationError{Field: field, Value: val, Rule: types.RuleRange}
		}
		if r.Max != nil && n > *r.Max {
			return &types.ValidationError{Field: field, Value: val, Rule: types.RuleRange}
		}
	}

	return nil
}
