package diagnosis

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/patient"
)

// DispStatus is the dispensary-observation status of a diagnosis.
type DispStatus string

const (
	StatusNewlyDetected    DispStatus = "newly_detected"
	StatusUnderObservation DispStatus = "under_observation"
	StatusRemoved          DispStatus = "removed"
)

func AllStatuses() []DispStatus {
	return []DispStatus{StatusNewlyDetected, StatusUnderObservation, StatusRemoved}
}

// PrimaryReason records how a newly detected condition was found.
type PrimaryReason string

const (
	ReasonProfExam       PrimaryReason = "prof_exam"
	ReasonDispensaryExam PrimaryReason = "dispensary_exam"
	ReasonVisit          PrimaryReason = "visit"
	ReasonOther          PrimaryReason = "other"
)

func AllPrimaryReasons() []PrimaryReason {
	return []PrimaryReason{ReasonProfExam, ReasonDispensaryExam, ReasonVisit, ReasonOther}
}

// RemoveReason records why observation ended.
type RemoveReason string

const (
	RemoveRecovered   RemoveReason = "recovered"
	RemoveDeceased    RemoveReason = "deceased"
	RemoveRelocated   RemoveReason = "relocated"
	RemoveTransferred RemoveReason = "transferred"
	RemoveOther       RemoveReason = "other"
)

func AllRemoveReasons() []RemoveReason {
	return []RemoveReason{RemoveRecovered, RemoveDeceased, RemoveRelocated, RemoveTransferred, RemoveOther}
}

// requiresPrimaryReason classifies every status; a status missing here fails the tests.
var requiresPrimaryReason = map[DispStatus]bool{
	StatusNewlyDetected:    true,
	StatusUnderObservation: false,
	StatusRemoved:          false,
}

func primaryReasonStatuses() []DispStatus {
	var out []DispStatus
	for _, s := range AllStatuses() {
		if requiresPrimaryReason[s] {
			out = append(out, s)
		}
	}
	return out
}

// Diagnosis maps to the diagnosis table. (patient_id, icd_code) is unique.
type Diagnosis struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	ICDCode       string        `db:"icd_code" json:"icd_code"`
	DispStatus    DispStatus    `db:"disp_status" json:"disp_status"`
	PrimaryReason PrimaryReason `db:"primary_reason" json:"primary_reason,omitempty"`
	DispStartDate time.Time     `db:"disp_start_date" json:"disp_start_date"`
	DispEndDate   *time.Time    `db:"disp_end_date" json:"disp_end_date,omitempty"`
	RemoveReason  RemoveReason  `db:"remove_reason" json:"remove_reason,omitempty"`
	Comment       *string       `db:"comment" json:"comment,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`

	// InsuranceNumber identifies the patient on create when PatientID is not given.
	InsuranceNumber string           `db:"-" json:"insurance_number,omitempty"`
	Patient         *patient.Summary `db:"-" json:"patient,omitempty"`
}

// Removal is the input of MarkRemoved. Zero values take defaults.
type Removal struct {
	EndDate *time.Time   `json:"disp_end_date,omitempty"`
	Reason  RemoveReason `json:"remove_reason,omitempty"`
}
