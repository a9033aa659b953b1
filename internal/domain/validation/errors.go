package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindFormat       Kind = "format"
	KindRange        Kind = "range"
	KindChronology   Kind = "chronology"
	KindRequired     Kind = "required"
	KindInconsistent Kind = "inconsistent"
	KindDuplicate    Kind = "duplicate"
	KindNotFound     Kind = "not_found"
	KindAmbiguous    Kind = "ambiguous"
	KindBlocked      Kind = "blocked"
)

// Sentinels for errors.Is. A sentinel matches any FieldError of the same kind.
var (
	ErrFormat       = &FieldError{Kind: KindFormat}
	ErrRange        = &FieldError{Kind: KindRange}
	ErrChronology   = &FieldError{Kind: KindChronology}
	ErrRequired     = &FieldError{Kind: KindRequired}
	ErrInconsistent = &FieldError{Kind: KindInconsistent}
	ErrDuplicate    = &FieldError{Kind: KindDuplicate}
	ErrNotFound     = &FieldError{Kind: KindNotFound}
	ErrAmbiguous    = &FieldError{Kind: KindAmbiguous}
	ErrBlocked      = &FieldError{Kind: KindBlocked}
)

// NonFieldKey is the map key used for violations that are not bound to one field.
const NonFieldKey = "__all__"

// FieldError is a single field-scoped violation.
type FieldError struct {
	Field   string `json:"field"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports whether target is the sentinel for this error's kind.
func (e *FieldError) Is(target error) bool {
	t, ok := target.(*FieldError)
	if !ok {
		return false
	}
	return t.Field == "" && t.Message == "" && t.Kind == e.Kind
}

func newError(kind Kind, field, format string, args ...interface{}) *FieldError {
	return &FieldError{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Format builds a malformed-value error.
func Format(field, format string, args ...interface{}) *FieldError {
	return newError(KindFormat, field, format, args...)
}

// Range builds an out-of-bounds error.
func Range(field, format string, args ...interface{}) *FieldError {
	return newError(KindRange, field, format, args...)
}

// Chronology builds a date ordering error.
func Chronology(field, format string, args ...interface{}) *FieldError {
	return newError(KindChronology, field, format, args...)
}

// Missing builds a required-field error.
func Missing(field, format string, args ...interface{}) *FieldError {
	return newError(KindRequired, field, format, args...)
}

// Inconsistent builds an error for a field that is present but must be absent.
func Inconsistent(field, format string, args ...interface{}) *FieldError {
	return newError(KindInconsistent, field, format, args...)
}

// Duplicate builds a uniqueness violation.
func Duplicate(field, format string, args ...interface{}) *FieldError {
	return newError(KindDuplicate, field, format, args...)
}

// NotFound builds a failed reference resolution.
func NotFound(field, format string, args ...interface{}) *FieldError {
	return newError(KindNotFound, field, format, args...)
}

// Ambiguous builds a reference resolution that matched more than one row.
func Ambiguous(field, format string, args ...interface{}) *FieldError {
	return newError(KindAmbiguous, field, format, args...)
}

// Blocked builds an error for an operation forbidden by a business rule.
func Blocked(format string, args ...interface{}) *FieldError {
	return newError(KindBlocked, "", format, args...)
}

// Errors is the ordered set of violations found in one attempt.
type Errors []*FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the individual violations to errors.Is and errors.As.
func (e Errors) Unwrap() []error {
	out := make([]error, len(e))
	for i, fe := range e {
		out[i] = fe
	}
	return out
}

// Fields renders the violations as a field-keyed map of messages.
func (e Errors) Fields() map[string][]string {
	m := make(map[string][]string, len(e))
	for _, fe := range e {
		key := fe.Field
		if key == "" {
			key = NonFieldKey
		}
		m[key] = append(m[key], fe.Message)
	}
	return m
}

// FieldNames returns the sorted names of the fields with violations.
func (e Errors) FieldNames() []string {
	seen := make(map[string]struct{}, len(e))
	names := make([]string, 0, len(e))
	for _, fe := range e {
		if _, ok := seen[fe.Field]; ok {
			continue
		}
		seen[fe.Field] = struct{}{}
		names = append(names, fe.Field)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a violation of kind exists for field.
func (e Errors) Has(field string, kind Kind) bool {
	for _, fe := range e {
		if fe.Field == field && fe.Kind == kind {
			return true
		}
	}
	return false
}

// SystemError wraps an infrastructure failure. It is never a validation error.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// System wraps err as a SystemError unless it already is one.
func System(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *SystemError
	if errors.As(err, &se) {
		return err
	}
	return &SystemError{Op: op, Err: err}
}

// AsErrors extracts the violations carried by err, if any.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		return Errors{fe}, true
	}
	return nil, false
}

// IsSystem reports whether err is an infrastructure failure.
func IsSystem(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}
