package death

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/patient"
)

// Place is where the death occurred.
type Place string

const (
	PlaceHome        Place = "home"
	PlaceHospital    Place = "hospital"
	PlaceAmbulance   Place = "ambulance"
	PlacePublicPlace Place = "public_place"
	PlaceOther       Place = "other"
)

func AllPlaces() []Place {
	return []Place{PlaceHome, PlaceHospital, PlaceAmbulance, PlacePublicPlace, PlaceOther}
}

// Death maps to the death table. At most one exists per patient.
type Death struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	SearchTerm string    `db:"search_term" json:"search_term"`
	DeathDate  time.Time `db:"death_date" json:"death_date"`
	DeathPlace Place     `db:"death_place" json:"death_place"`
	DeathCause string    `db:"death_cause" json:"death_cause"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`

	Patient *patient.Summary `db:"-" json:"patient,omitempty"`
}
