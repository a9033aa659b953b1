package disabledchild

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

const entity = "disabled_child"

// PatientResolver finds the patient a record belongs to. *patient.Service satisfies it.
type PatientResolver interface {
	ResolveByInsuranceNumber(ctx context.Context, field, number string) (*patient.Patient, error)
	ResolveByID(ctx context.Context, field string, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	children Repository
	patients PatientResolver
	writer   *record.Writer
	nowFunc  func() time.Time
}

func NewService(children Repository, patients PatientResolver, writer *record.Writer) *Service {
	return &Service{children: children, patients: patients, writer: writer, nowFunc: time.Now}
}

func (s *Service) CreateDisabledChild(ctx context.Context, dc *DisabledChild) error {
	normalize(dc)
	dc.ID = uuid.Nil
	var p *patient.Patient
	err := s.writer.Write(ctx, entity, record.OpCreate,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			if dc.PatientID != uuid.Nil {
				p, err = s.patients.ResolveByID(ctx, "patient_id", dc.PatientID)
				c.Check("patient_id", err)
			} else {
				p, err = s.patients.ResolveByInsuranceNumber(ctx, "insurance_number", dc.InsuranceNumber)
				c.Check("insurance_number", err)
			}
			if p != nil {
				dc.PatientID = p.ID
			}
			return s.check(ctx, c, dc, p)
		},
		func(ctx context.Context) error { return s.children.Create(ctx, dc) })
	if err == nil {
		s.bind(dc, p)
	}
	return err
}

func (s *Service) GetDisabledChild(ctx context.Context, id uuid.UUID) (*DisabledChild, error) {
	dc, err := s.children.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillAge(dc)
	return dc, nil
}

// UpdateDisabledChild rewrites a registration. The patient link is kept from the stored record
// and a palliative flag, once set, cannot be cleared.
func (s *Service) UpdateDisabledChild(ctx context.Context, dc *DisabledChild) error {
	existing, err := s.children.GetByID(ctx, dc.ID)
	if err != nil {
		return err
	}
	normalize(dc)
	dc.PatientID = existing.PatientID

	var p *patient.Patient
	err = s.writer.Write(ctx, entity, record.OpUpdate,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			p, err = s.patients.ResolveByID(ctx, "patient_id", dc.PatientID)
			c.Check("patient_id", err)
			if existing.Palliative && !dc.Palliative {
				c.Add(validation.Inconsistent("palliative",
					"the palliative flag cannot be cleared once it is set"))
			}
			return s.check(ctx, c, dc, p)
		},
		func(ctx context.Context) error { return s.children.Update(ctx, dc) })
	if err == nil {
		s.bind(dc, p)
	}
	return err
}

// DeleteDisabledChild removes a registration unless the child has ever been marked palliative.
func (s *Service) DeleteDisabledChild(ctx context.Context, id uuid.UUID) error {
	dc, err := s.children.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.writer.Write(ctx, entity, record.OpDelete,
		func(_ context.Context, c *validation.Collector) error {
			if dc.Palliative {
				c.Add(palliativeBlock())
			}
			return nil
		},
		func(ctx context.Context) error { return s.children.Delete(ctx, id) })
}

// CheckPatientDelete blocks deleting a patient whose disabled-child record is palliative,
// which would otherwise be removed by the cascade.
func (s *Service) CheckPatientDelete(ctx context.Context, patientID uuid.UUID) error {
	dc, err := s.children.GetByPatientID(ctx, patientID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load disabled-child record: %w", err)
	}
	if dc.Palliative {
		return palliativeBlock()
	}
	return nil
}

// CheckPatientUpdate keeps the insurance number of a registered disabled child fixed.
func (s *Service) CheckPatientUpdate(ctx context.Context, current, updated *patient.Patient) error {
	if !patient.InsuranceNumberChanged(current, updated) {
		return nil
	}
	_, err := s.children.GetByPatientID(ctx, current.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load disabled-child record: %w", err)
	}
	return patient.InsuranceNumberLocked("disabled-child")
}

func (s *Service) SearchDisabledChildren(ctx context.Context, params map[string]string, limit, offset int) ([]*DisabledChild, int, error) {
	children, total, err := s.children.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, dc := range children {
		s.fillAge(dc)
	}
	return children, total, nil
}

func (s *Service) check(ctx context.Context, c *validation.Collector, dc *DisabledChild, p *patient.Patient) error {
	c.Check("icd_code", validation.Required(dc.ICDCode))
	if !c.Failed("icd_code") {
		c.Check("icd_code", validation.ICD10Format(dc.ICDCode))
	}

	c.Check("status", validation.OneOf(string(dc.Status), validation.SetOf(AllStatuses()...)))
	if !c.Failed("status") {
		c.Check("disability_date", validation.StatusDateConsistency(string(dc.Status), dc.DisabilityDate,
			validation.SetOf(primarySet()...)))
	}

	if dc.RemovalReason != "" {
		c.Check("removal_reason", validation.OneOf(string(dc.RemovalReason), validation.SetOf(AllRemovalReasons()...)))
	}
	c.Check("removal_date", validation.DateRemoval(dc.RemovalDate, dc.DisabilityDate, string(dc.RemovalReason),
		validation.SetOf(removalSet()...)))

	if p == nil {
		return nil
	}
	exists, err := s.children.ExistsForPatient(ctx, p.ID, dc.ID)
	if err != nil {
		return fmt.Errorf("check disabled-child uniqueness: %w", err)
	}
	if exists {
		c.Add(validation.Duplicate("patient_id", "this patient is already registered as a disabled child"))
	}
	return nil
}

func (s *Service) bind(dc *DisabledChild, p *patient.Patient) {
	if p != nil {
		dc.Patient = p.Summarize(s.nowFunc())
		dc.InsuranceNumber = p.InsuranceNumber
	}
}

func (s *Service) fillAge(dc *DisabledChild) {
	if dc.Patient != nil {
		dc.Patient.Age = patient.AgeOn(dc.Patient.BirthDate, s.nowFunc())
		dc.InsuranceNumber = dc.Patient.InsuranceNumber
	}
}

func palliativeBlock() *validation.FieldError {
	return validation.Blocked("a palliative patient cannot be removed from the disabled-children register")
}

func normalize(dc *DisabledChild) {
	dc.ICDCode = strings.ToUpper(strings.TrimSpace(dc.ICDCode))
	dc.InsuranceNumber = strings.TrimSpace(dc.InsuranceNumber)
	if dc.Status == "" {
		dc.Status = StatusRegistered
	}
	dc.DisabilityDate = normalizeDate(dc.DisabilityDate)
	dc.RemovalDate = normalizeDate(dc.RemovalDate)
}

func normalizeDate(d *time.Time) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	day := validation.Day(*d)
	return &day
}
