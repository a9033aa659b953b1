package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/record"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

const entity = "patient"

// DeleteGuard vetoes the deletion of a patient whose dependents must not be cascaded away.
type DeleteGuard interface {
	CheckPatientDelete(ctx context.Context, patientID uuid.UUID) error
}

// UpdateGuard checks a change to a patient against the records bound to it. current is the
// stored patient, updated the submitted one.
type UpdateGuard interface {
	CheckPatientUpdate(ctx context.Context, current, updated *Patient) error
}

type Service struct {
	patients     Repository
	writer       *record.Writer
	guards       []DeleteGuard
	updateGuards []UpdateGuard
	nowFunc      func() time.Time
}

func NewService(patients Repository, writer *record.Writer) *Service {
	return &Service{patients: patients, writer: writer, nowFunc: time.Now}
}

// AddDeleteGuard registers a guard consulted by DeletePatient.
func (s *Service) AddDeleteGuard(g DeleteGuard) {
	s.guards = append(s.guards, g)
}

// AddUpdateGuard registers a guard consulted by UpdatePatient.
func (s *Service) AddUpdateGuard(g UpdateGuard) {
	s.updateGuards = append(s.updateGuards, g)
}

// Now returns the service clock.
func (s *Service) Now() time.Time { return s.nowFunc() }

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	normalize(p)
	return s.writer.Write(ctx, entity, record.OpCreate,
		func(ctx context.Context, c *validation.Collector) error { return s.check(ctx, c, p) },
		func(ctx context.Context) error { return s.patients.Create(ctx, p) })
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Age = p.AgeAt(s.nowFunc())
	return p, nil
}

// UpdatePatient rewrites a patient. Registered guards reject changes that would contradict
// the patient's dependent records.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	current, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	normalize(p)
	err = s.writer.Write(ctx, entity, record.OpUpdate,
		func(ctx context.Context, c *validation.Collector) error {
			if err := s.check(ctx, c, p); err != nil {
				return err
			}
			for _, g := range s.updateGuards {
				c.Check("", g.CheckPatientUpdate(ctx, current, p))
			}
			return nil
		},
		func(ctx context.Context) error { return s.patients.Update(ctx, p) })
	if err == nil {
		p.Age = p.AgeAt(s.nowFunc())
	}
	return err
}

// DeletePatient removes a patient and, through the store's cascade, its dependent records.
// Any registered guard may block it.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if _, err := s.patients.GetByID(ctx, id); err != nil {
		return err
	}
	return s.writer.Write(ctx, entity, record.OpDelete,
		func(ctx context.Context, c *validation.Collector) error {
			for _, g := range s.guards {
				c.Check("", g.CheckPatientDelete(ctx, id))
			}
			return nil
		},
		func(ctx context.Context) error { return s.patients.Delete(ctx, id) })
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	patients, total, err := s.patients.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.nowFunc()
	for _, p := range patients {
		p.Age = p.AgeAt(now)
	}
	return patients, total, nil
}

// ResolveByInsuranceNumber returns the single patient holding number. Failures are
// reported as violations on field: a malformed number, no match or more than one match.
func (s *Service) ResolveByInsuranceNumber(ctx context.Context, field, number string) (*Patient, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, validation.Missing(field, "an insurance number is required to find the patient")
	}
	if err := validation.InsuranceNumber(number); err != nil {
		return nil, validation.Format(field, "%s", err.Error())
	}
	matches, err := s.patients.MatchInsuranceNumber(ctx, number)
	if err != nil {
		return nil, validation.System("resolve patient", err)
	}
	switch len(matches) {
	case 0:
		return nil, validation.NotFound(field, "no patient with insurance number %s", number)
	case 1:
		p := matches[0]
		p.Age = p.AgeAt(s.nowFunc())
		return p, nil
	default:
		return nil, validation.Ambiguous(field, "more than one patient with insurance number %s", number)
	}
}

// ResolveByID loads the patient a dependent record links to, reporting a missing one as a
// violation on field.
func (s *Service) ResolveByID(ctx context.Context, field string, id uuid.UUID) (*Patient, error) {
	if id == uuid.Nil {
		return nil, validation.Missing(field, "patient is required")
	}
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, validation.NotFound(field, "patient %s does not exist", id)
	}
	if err != nil {
		return nil, validation.System("resolve patient", err)
	}
	p.Age = p.AgeAt(s.nowFunc())
	return p, nil
}

func (s *Service) check(ctx context.Context, c *validation.Collector, p *Patient) error {
	now := s.nowFunc()

	c.Check("full_name", validation.Required(p.FullName))
	if utf8.RuneCountInString(p.FullName) > MaxFullNameLength {
		c.Add(validation.Range("full_name", "full name must be at most %d characters", MaxFullNameLength))
	}

	if p.BirthDate.IsZero() {
		c.Add(validation.Missing("birth_date", "this field is required"))
	} else {
		c.Check("birth_date", validation.BirthDate(p.BirthDate, now))
		if !c.Failed("birth_date") {
			c.Check("birth_date", validation.NotAfter(p.BirthDate, now))
		}
	}

	c.Check("gender", validation.OneOf(string(p.Gender), validation.SetOf(AllGenders()...)))
	c.Check("filial", validation.OneOf(string(p.Filial), validation.SetOf(AllFilials()...)))
	if p.PhoneNumber != nil {
		c.Check("phone_number", validation.PhoneNumber(*p.PhoneNumber))
	}

	c.Check("insurance_number", validation.InsuranceNumber(p.InsuranceNumber))
	if c.Failed("insurance_number") {
		return nil
	}
	taken, err := s.patients.InsuranceNumberTaken(ctx, p.InsuranceNumber, p.ID)
	if err != nil {
		return fmt.Errorf("check insurance number: %w", err)
	}
	if taken {
		c.Add(validation.Duplicate("insurance_number", "a patient with this insurance number already exists"))
	}
	return nil
}

// InsuranceNumberChanged reports whether an update rewrites the insurance number.
func InsuranceNumberChanged(current, updated *Patient) bool {
	return current.InsuranceNumber != updated.InsuranceNumber
}

// InsuranceNumberLocked is the violation for rewriting the insurance number of a patient
// that has a dependent record of the named kind.
func InsuranceNumberLocked(kind string) *validation.FieldError {
	return validation.Inconsistent("insurance_number",
		"insurance number cannot be changed while the patient has a %s record", kind)
}

func normalize(p *Patient) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.InsuranceNumber = strings.TrimSpace(p.InsuranceNumber)
	if p.Filial == "" {
		p.Filial = FilialMain
	}
	if p.PhoneNumber != nil && strings.TrimSpace(*p.PhoneNumber) == "" {
		p.PhoneNumber = nil
	}
	if !p.BirthDate.IsZero() {
		p.BirthDate = validation.Day(p.BirthDate)
	}
}
