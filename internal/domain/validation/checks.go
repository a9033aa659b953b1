package validation

import (
	"regexp"
	"strings"
	"time"
)

// MaxAgeYears bounds how far in the past a birth date may lie.
const MaxAgeYears = 150

// InsuranceNumberLength is the length of a compulsory medical insurance policy number.
const InsuranceNumberLength = 16

var (
	icd10Pattern = regexp.MustCompile(`^[A-Z]\d{2}(\.\d)?$`)
	phonePattern = regexp.MustCompile(`^\+7\d{10}$`)
)

// DateLayout is the wire and message format for calendar dates.
const DateLayout = "2006-01-02"

// ICD10Format accepts one Latin letter, two digits and an optional dot plus one digit (A00, A00.0).
// The letter is matched case-insensitively.
func ICD10Format(code string) error {
	if len(code) > 0 && icd10Pattern.MatchString(strings.ToUpper(code[:1])+code[1:]) {
		return nil
	}
	return Format("", "invalid ICD-10 code %q: expected one Latin letter, two digits and an optional dot with one digit (A00 or A00.0)", code)
}

// BirthDate rejects birth years after the current year or more than MaxAgeYears before it.
func BirthDate(d, now time.Time) error {
	year := now.Year()
	if d.Year() > year {
		return Range("", "birth date cannot be in the future")
	}
	if d.Year() < year-MaxAgeYears {
		return Range("", "birth date cannot be more than %d years ago", MaxAgeYears)
	}
	return nil
}

// InsuranceNumber requires exactly 16 digits with no separators.
func InsuranceNumber(value string) error {
	if len(value) != InsuranceNumberLength || !allDigits(value) {
		return Format("", "insurance number must contain exactly %d digits", InsuranceNumberLength)
	}
	return nil
}

// PhoneNumber requires the +7XXXXXXXXXX form.
func PhoneNumber(value string) error {
	if !phonePattern.MatchString(value) {
		return Format("", "phone number must have the form +7XXXXXXXXXX")
	}
	return nil
}

// NotAfter rejects a calendar date later than today.
func NotAfter(d, today time.Time) error {
	if Day(d).After(Day(today)) {
		return Range("", "date %s is in the future", d.Format(DateLayout))
	}
	return nil
}

// DeathDate requires birth <= death <= today.
func DeathDate(death, birth, today time.Time) error {
	death = Day(death)
	if death.After(Day(today)) {
		return Chronology("death_date", "death date cannot be in the future")
	}
	if death.Before(Day(birth)) {
		return Chronology("death_date", "death date cannot be earlier than birth date %s", birth.Format(DateLayout))
	}
	return nil
}

// Required fails when value is blank.
func Required(value string) error {
	if strings.TrimSpace(value) == "" {
		return Missing("", "this field is required")
	}
	return nil
}

// RequiredDate fails when d is nil or zero.
func RequiredDate(d *time.Time) error {
	if d == nil || d.IsZero() {
		return Missing("", "this field is required")
	}
	return nil
}

// OneOf fails when value is not a member of allowed.
func OneOf(value string, allowed Set) error {
	if !allowed.Has(value) {
		return Format("", "%q is not a valid choice", value)
	}
	return nil
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDate parses an optional YYYY-MM-DD value. An empty value yields the zero time.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, Format(field, "expected a date as YYYY-MM-DD")
	}
	return t, nil
}

// ParseDateRange parses the optional bounds params[fromKey] and params[toKey].
func ParseDateRange(params map[string]string, fromKey, toKey string) (time.Time, time.Time, error) {
	var c Collector
	from, err := ParseDate(fromKey, params[fromKey])
	c.Check(fromKey, err)
	to, err := ParseDate(toKey, params[toKey])
	c.Check(toKey, err)
	return from, to, c.Err()
}
