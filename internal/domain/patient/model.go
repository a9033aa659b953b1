package patient

import (
	"time"

	"github.com/google/uuid"
)

// Gender is the administrative sex recorded for a patient.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

func AllGenders() []Gender { return []Gender{GenderMale, GenderFemale} }

// Filial is the clinic branch a patient is attached to.
type Filial string

const (
	FilialMain Filial = "main"
	Filial1    Filial = "filial_1"
	Filial2    Filial = "filial_2"
	Filial3    Filial = "filial_3"
)

func AllFilials() []Filial { return []Filial{FilialMain, Filial1, Filial2, Filial3} }

// MaxFullNameLength bounds Patient.FullName.
const MaxFullNameLength = 100

// Patient maps to the patient table.
type Patient struct {
	ID              uuid.UUID `db:"id" json:"id"`
	FullName        string    `db:"full_name" json:"full_name"`
	BirthDate       time.Time `db:"birth_date" json:"birth_date"`
	Gender          Gender    `db:"gender" json:"gender"`
	PhoneNumber     *string   `db:"phone_number" json:"phone_number,omitempty"`
	Filial          Filial    `db:"filial" json:"filial"`
	InsuranceNumber string    `db:"insurance_number" json:"insurance_number"`
	Age             int       `db:"-" json:"age"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// AgeAt returns the patient's age in whole years on the date of now.
func (p *Patient) AgeAt(now time.Time) int {
	return AgeOn(p.BirthDate, now)
}

// AgeOn returns the age in whole years of someone born on birth, as of now.
func AgeOn(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Summary is the slice of a patient shown alongside dependent records.
type Summary struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	Gender          Gender    `json:"gender"`
	BirthDate       time.Time `json:"birth_date"`
	Age             int       `json:"age"`
	Filial          Filial    `json:"filial"`
	InsuranceNumber string    `json:"insurance_number"`
}

// Summarize builds the summary of p as of now.
func (p *Patient) Summarize(now time.Time) *Summary {
	return &Summary{
		ID:              p.ID,
		FullName:        p.FullName,
		Gender:          p.Gender,
		BirthDate:       p.BirthDate,
		Age:             p.AgeAt(now),
		Filial:          p.Filial,
		InsuranceNumber: p.InsuranceNumber,
	}
}
