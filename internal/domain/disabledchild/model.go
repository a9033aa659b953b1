package disabledchild

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/patient"
)

// Status is the registration status of a disabled child.
type Status string

const (
	StatusRegistered     Status = "registered"
	StatusPrimaryCurrent Status = "primary_current"
	StatusPrimaryOther   Status = "primary_other"
	StatusRenewed        Status = "renewed"
)

func AllStatuses() []Status {
	return []Status{StatusRegistered, StatusPrimaryCurrent, StatusPrimaryOther, StatusRenewed}
}

// RemovalReason records why a child left the register.
type RemovalReason string

const (
	RemovalAgeLimit         RemovalReason = "age_limit"
	RemovalDisabilityLifted RemovalReason = "disability_lifted"
	RemovalDeceased         RemovalReason = "deceased"
	RemovalRelocated        RemovalReason = "relocated"
	RemovalOther            RemovalReason = "other"
)

func AllRemovalReasons() []RemovalReason {
	return []RemovalReason{RemovalAgeLimit, RemovalDisabilityLifted, RemovalDeceased, RemovalRelocated, RemovalOther}
}

// primaryRegistration marks the statuses that need a disability onset date.
var primaryRegistration = map[Status]bool{
	StatusRegistered:     false,
	StatusPrimaryCurrent: true,
	StatusPrimaryOther:   true,
	StatusRenewed:        true,
}

// removesFromRegister marks the reasons that take a removal date.
var removesFromRegister = map[RemovalReason]bool{
	RemovalAgeLimit:         true,
	RemovalDisabilityLifted: true,
	RemovalDeceased:         true,
	RemovalRelocated:        true,
	RemovalOther:            true,
}

func primarySet() []Status {
	var out []Status
	for _, s := range AllStatuses() {
		if primaryRegistration[s] {
			out = append(out, s)
		}
	}
	return out
}

func removalSet() []RemovalReason {
	var out []RemovalReason
	for _, r := range AllRemovalReasons() {
		if removesFromRegister[r] {
			out = append(out, r)
		}
	}
	return out
}

// DisabledChild maps to the disabled_child table. At most one exists per patient.
type DisabledChild struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	ICDCode        string        `db:"icd_code" json:"icd_code"`
	Status         Status        `db:"status" json:"status"`
	DisabilityDate *time.Time    `db:"disability_date" json:"disability_date,omitempty"`
	Palliative     bool          `db:"palliative" json:"palliative"`
	RemovalReason  RemovalReason `db:"removal_reason" json:"removal_reason,omitempty"`
	RemovalDate    *time.Time    `db:"removal_date" json:"removal_date,omitempty"`
	Comorbidities  string        `db:"comorbidities" json:"comorbidities,omitempty"`
	Notes          string        `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`

	// InsuranceNumber identifies the patient on create when PatientID is not given.
	InsuranceNumber string           `db:"-" json:"insurance_number,omitempty"`
	Patient         *patient.Summary `db:"-" json:"patient,omitempty"`
}
