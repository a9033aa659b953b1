package validation

import (
	"sort"
	"time"
)

// Set is an immutable membership table of enumeration values.
type Set map[string]struct{}

// SetOf builds a Set from typed string values.
func SetOf[T ~string](values ...T) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[string(v)] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the sorted members.
func (s Set) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Fields holds the presence-relevant value of each field of a candidate record.
// An empty string means the field is absent.
type Fields map[string]string

// DateValue renders an optional date for a Fields table.
func DateValue(d *time.Time) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Requirement declares that Field is required when Trigger holds. The trigger holds when the
// Trigger field is present and, if Values is non-nil, its value is in Values. With Exclusive set,
// Field must also be absent whenever the trigger does not hold.
type Requirement struct {
	Field     string
	Trigger   string
	Values    Set
	Exclusive bool

	// Optional message overrides.
	MissingMessage    string
	UnexpectedMessage string
}

func (r Requirement) holds(f Fields) bool {
	v := f[r.Trigger]
	if v == "" {
		return false
	}
	return r.Values == nil || r.Values.Has(v)
}

// Check evaluates the requirement against f.
func (r Requirement) Check(f Fields) *FieldError {
	present := f[r.Field] != ""
	holds := r.holds(f)
	switch {
	case holds && !present:
		msg := r.MissingMessage
		if msg == "" {
			msg = r.Field + " is required when " + r.Trigger + " is " + f[r.Trigger]
		}
		return Missing(r.Field, "%s", msg)
	case !holds && present && r.Exclusive:
		msg := r.UnexpectedMessage
		if msg == "" {
			msg = r.Field + " must be empty for the given " + r.Trigger
		}
		return Inconsistent(r.Field, "%s", msg)
	}
	return nil
}

// CheckRequirements evaluates every rule and returns all violations, or nil.
func CheckRequirements(f Fields, rules []Requirement) error {
	var errs Errors
	for _, r := range rules {
		if fe := r.Check(f); fe != nil {
			errs = append(errs, fe)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// StatusDateConsistency requires an onset date when status is in the primary registration set.
func StatusDateConsistency(status string, onset *time.Time, primary Set) error {
	return CheckRequirements(Fields{
		"status":          status,
		"disability_date": DateValue(onset),
	}, []Requirement{{
		Field:          "disability_date",
		Trigger:        "status",
		Values:         primary,
		MissingMessage: "disability onset date is required for a status registered this year",
	}})
}

// DateRemoval checks a removal date against the onset date and the removal reason.
// Reasons in removalSet require a removal date; any other reason forbids one.
func DateRemoval(removalDate, onsetDate *time.Time, removalReason string, removalSet Set) error {
	var errs Errors
	if removalDate != nil && onsetDate != nil && Day(*removalDate).Before(Day(*onsetDate)) {
		errs = append(errs, Chronology("removal_date", "removal date cannot be earlier than disability onset date"))
	}
	if err := CheckRequirements(Fields{
		"removal_reason": removalReason,
		"removal_date":   DateValue(removalDate),
	}, []Requirement{{
		Field:             "removal_date",
		Trigger:           "removal_reason",
		Values:            removalSet,
		Exclusive:         true,
		MissingMessage:    "removal date is required when a removal reason is set",
		UnexpectedMessage: "removal reason is required when a removal date is set",
	}}); err != nil {
		errs = append(errs, err.(Errors)...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PrimaryReason requires a primary-detection reason iff status is in triggers.
func PrimaryReason(status, reason string, triggers Set) error {
	return CheckRequirements(Fields{
		"disp_status":    status,
		"primary_reason": reason,
	}, []Requirement{{
		Field:             "primary_reason",
		Trigger:           "disp_status",
		Values:            triggers,
		Exclusive:         true,
		MissingMessage:    "primary detection reason is required for a newly detected diagnosis",
		UnexpectedMessage: "primary detection reason is only allowed for a newly detected diagnosis",
	}})
}

// RemoveReason requires a removal reason iff an end date is set.
func RemoveReason(endDate *time.Time, reason string) error {
	return CheckRequirements(Fields{
		"disp_end_date": DateValue(endDate),
		"remove_reason": reason,
	}, []Requirement{{
		Field:             "remove_reason",
		Trigger:           "disp_end_date",
		Exclusive:         true,
		MissingMessage:    "removal reason is required when observation end date is set",
		UnexpectedMessage: "removal reason is only allowed when observation end date is set",
	}})
}

// DispEndDate requires the observation end date, when set, to be on or after the start date.
func DispEndDate(start time.Time, end *time.Time) error {
	if end == nil || end.IsZero() {
		return nil
	}
	if Day(*end).Before(Day(start)) {
		return Chronology("disp_end_date", "observation end date cannot be earlier than start date %s", start.Format(DateLayout))
	}
	return nil
}
