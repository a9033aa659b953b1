package death

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/record"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

const entity = "death"

// PatientResolver finds the patient a death record is bound to. *patient.Service satisfies it.
type PatientResolver interface {
	ResolveByInsuranceNumber(ctx context.Context, field, number string) (*patient.Patient, error)
	ResolveByID(ctx context.Context, field string, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	deaths   Repository
	patients PatientResolver
	writer   *record.Writer
	nowFunc  func() time.Time
}

func NewService(deaths Repository, patients PatientResolver, writer *record.Writer) *Service {
	return &Service{deaths: deaths, patients: patients, writer: writer, nowFunc: time.Now}
}

// CreateDeath binds the record to the patient whose insurance number is d.SearchTerm.
func (s *Service) CreateDeath(ctx context.Context, d *Death) error {
	normalize(d)
	d.ID = uuid.Nil
	var p *patient.Patient
	err := s.writer.Write(ctx, entity, record.OpCreate,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			p, err = s.patients.ResolveByInsuranceNumber(ctx, "search_term", d.SearchTerm)
			c.Check("search_term", err)
			if p != nil {
				d.PatientID = p.ID
			}
			return s.check(ctx, c, d, p)
		},
		func(ctx context.Context) error { return s.deaths.Create(ctx, d) })
	if err == nil {
		d.Patient = p.Summarize(s.nowFunc())
	}
	return err
}

func (s *Service) GetDeath(ctx context.Context, id uuid.UUID) (*Death, error) {
	d, err := s.deaths.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillAge(d)
	return d, nil
}

// UpdateDeath rewrites the clinical fields. The patient binding is fixed at creation, so a
// search term that no longer names the bound patient is rejected.
func (s *Service) UpdateDeath(ctx context.Context, d *Death) error {
	existing, err := s.deaths.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	normalize(d)
	d.PatientID = existing.PatientID
	if d.SearchTerm == "" {
		d.SearchTerm = existing.SearchTerm
	}

	var p *patient.Patient
	err = s.writer.Write(ctx, entity, record.OpUpdate,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			p, err = s.patients.ResolveByID(ctx, "search_term", d.PatientID)
			c.Check("search_term", err)
			if p != nil && d.SearchTerm != p.InsuranceNumber {
				c.Add(validation.Inconsistent("search_term",
					"search term cannot be changed after the record is created; the bound patient has insurance number %s",
					p.InsuranceNumber))
			}
			return s.check(ctx, c, d, p)
		},
		func(ctx context.Context) error { return s.deaths.Update(ctx, d) })
	if err == nil {
		d.Patient = p.Summarize(s.nowFunc())
	}
	return err
}

func (s *Service) DeleteDeath(ctx context.Context, id uuid.UUID) error {
	if _, err := s.deaths.GetByID(ctx, id); err != nil {
		return err
	}
	return s.writer.Write(ctx, entity, record.OpDelete,
		func(context.Context, *validation.Collector) error { return nil },
		func(ctx context.Context) error { return s.deaths.Delete(ctx, id) })
}

// CheckPatientUpdate keeps a patient change consistent with the patient's death record: the
// insurance number it was bound by stays fixed and the birth date cannot move past the death.
func (s *Service) CheckPatientUpdate(ctx context.Context, current, updated *patient.Patient) error {
	d, err := s.deaths.GetByPatientID(ctx, current.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load death record: %w", err)
	}
	var errs validation.Errors
	if patient.InsuranceNumberChanged(current, updated) {
		errs = append(errs, patient.InsuranceNumberLocked("death"))
	}
	if !updated.BirthDate.IsZero() && updated.BirthDate.After(d.DeathDate) {
		errs = append(errs, validation.Chronology("birth_date",
			"birth date cannot be after the recorded death date %s", d.DeathDate.Format("2006-01-02")))
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Service) SearchDeaths(ctx context.Context, params map[string]string, limit, offset int) ([]*Death, int, error) {
	if v := params["death_cause"]; v != "" {
		params["death_cause"] = strings.ToUpper(v)
	}
	deaths, total, err := s.deaths.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, d := range deaths {
		s.fillAge(d)
	}
	return deaths, total, nil
}

// check runs the field, chronology and uniqueness stages. p is nil when the patient could
// not be resolved; the checks that need it are skipped.
func (s *Service) check(ctx context.Context, c *validation.Collector, d *Death, p *patient.Patient) error {
	today := s.nowFunc()

	if d.DeathDate.IsZero() {
		c.Add(validation.Missing("death_date", "this field is required"))
	} else {
		var birth time.Time
		if p != nil {
			birth = p.BirthDate
		}
		c.Check("death_date", validation.DeathDate(d.DeathDate, birth, today))
	}

	c.Check("death_place", validation.OneOf(string(d.DeathPlace), validation.SetOf(AllPlaces()...)))

	c.Check("death_cause", validation.Required(d.DeathCause))
	if !c.Failed("death_cause") {
		c.Check("death_cause", validation.ICD10Format(d.DeathCause))
	}

	if p == nil {
		return nil
	}
	exists, err := s.deaths.ExistsForPatient(ctx, p.ID, d.ID)
	if err != nil {
		return fmt.Errorf("check death uniqueness: %w", err)
	}
	if exists {
		c.Add(validation.Duplicate("search_term", "a death record for this patient already exists"))
	}
	return nil
}

func (s *Service) fillAge(d *Death) {
	if d.Patient != nil {
		d.Patient.Age = patient.AgeOn(d.Patient.BirthDate, s.nowFunc())
	}
}

func normalize(d *Death) {
	d.SearchTerm = strings.TrimSpace(d.SearchTerm)
	d.DeathCause = strings.ToUpper(strings.TrimSpace(d.DeathCause))
	if !d.DeathDate.IsZero() {
		d.DeathDate = validation.Day(d.DeathDate)
	}
	if d.Comment != nil && strings.TrimSpace(*d.Comment) == "" {
		d.Comment = nil
	}
}
