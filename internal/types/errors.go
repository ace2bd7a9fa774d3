package types

import (
	"errors"
	"fmt"
)

// Batch-fatal configuration errors. No records can be processed without a
// usable partner config, so these abort the whole batch.
var (
	ErrConfigNotFound = errors.New("partner config not found")
	ErrConfigInactive = errors.New("partner config inactive")
)

// MissingDateError indicates a null or empty date input.
// The message is fixed; import results key on it.
type MissingDateError struct {
	Field string
}

func (e *MissingDateError) Error() string {
	return "Missing date field"
}

// DateParseError indicates a date string that does not match the partner's
// configured input format
type DateParseError struct {
	Raw    string
	Format string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("cannot parse date %q with format %q", e.Raw, e.Format)
}

// Validation rule identifiers carried on ValidationError
const (
	RuleRequired = "required"
	RulePattern  = "pattern"
	RuleRange    = "range"
)

// ValidationError indicates the first violated validation rule for a record
type ValidationError struct {
	Field string
	Value string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleRequired:
		return fmt.Sprintf("required field %q is missing", e.Field)
	case RulePattern:
		return fmt.Sprintf("field %q value %q does not match pattern", e.Field, e.Value)
	case RuleRange:
		return fmt.Sprintf("field %q value %q is out of range", e.Field, e.Value)
	}
	return fmt.Sprintf("field %q value %q violates rule %q", e.Field, e.Value, e.Rule)
}

// PersistError wraps an opaque storage failure for one record
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
