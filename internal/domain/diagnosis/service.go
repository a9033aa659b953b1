package diagnosis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/record"
	"github.com/clinic/registry/internal/domain/validation"
)

const entity = "diagnosis"

// PatientResolver finds the patient a diagnosis belongs to. *patient.Service satisfies it.
type PatientResolver interface {
	ResolveByInsuranceNumber(ctx context.Context, field, number string) (*patient.Patient, error)
	ResolveByID(ctx context.Context, field string, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	diagnoses Repository
	patients  PatientResolver
	writer    *record.Writer
	nowFunc   func() time.Time
}

func NewService(diagnoses Repository, patients PatientResolver, writer *record.Writer) *Service {
	return &Service{diagnoses: diagnoses, patients: patients, writer: writer, nowFunc: time.Now}
}

// CreateDiagnosis links the record to d.PatientID, or to the patient holding
// d.InsuranceNumber when no id is given.
func (s *Service) CreateDiagnosis(ctx context.Context, d *Diagnosis) error {
	normalize(d)
	d.ID = uuid.Nil
	var p *patient.Patient
	err := s.writer.Write(ctx, entity, record.OpCreate,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			if d.PatientID != uuid.Nil {
				p, err = s.patients.ResolveByID(ctx, "patient_id", d.PatientID)
				c.Check("patient_id", err)
			} else {
				p, err = s.patients.ResolveByInsuranceNumber(ctx, "insurance_number", d.InsuranceNumber)
				c.Check("insurance_number", err)
			}
			if p != nil {
				d.PatientID = p.ID
			}
			return s.check(ctx, c, d, p)
		},
		func(ctx context.Context) error { return s.diagnoses.Create(ctx, d) })
	if err == nil {
		s.bind(d, p)
	}
	return err
}

func (s *Service) GetDiagnosis(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fillAge(d)
	return d, nil
}

// UpdateDiagnosis rewrites a diagnosis. The patient link is kept from the stored record.
func (s *Service) UpdateDiagnosis(ctx context.Context, d *Diagnosis) error {
	existing, err := s.diagnoses.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	normalize(d)
	d.PatientID = existing.PatientID
	return s.update(ctx, record.OpUpdate, d)
}

// MarkRemoved ends observation: the end date defaults to today and the reason to
// recovered. The status becomes removed and the primary reason is cleared.
func (s *Service) MarkRemoved(ctx context.Context, id uuid.UUID, rm Removal) (*Diagnosis, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	end := validation.Day(s.nowFunc())
	if rm.EndDate != nil && !rm.EndDate.IsZero() {
		end = validation.Day(*rm.EndDate)
	}
	d.DispEndDate = &end
	d.RemoveReason = RemoveRecovered
	if rm.Reason != "" {
		d.RemoveReason = rm.Reason
	}
	d.DispStatus = StatusRemoved
	d.PrimaryReason = ""

	if err := s.update(ctx, record.OpRemove, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) update(ctx context.Context, op record.Op, d *Diagnosis) error {
	var p *patient.Patient
	err := s.writer.Write(ctx, entity, op,
		func(ctx context.Context, c *validation.Collector) error {
			var err error
			p, err = s.patients.ResolveByID(ctx, "patient_id", d.PatientID)
			c.Check("patient_id", err)
			return s.check(ctx, c, d, p)
		},
		func(ctx context.Context) error { return s.diagnoses.Update(ctx, d) })
	if err == nil {
		s.bind(d, p)
	}
	return err
}

func (s *Service) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	if _, err := s.diagnoses.GetByID(ctx, id); err != nil {
		return err
	}
	return s.writer.Write(ctx, entity, record.OpDelete,
		func(context.Context, *validation.Collector) error { return nil },
		func(ctx context.Context) error { return s.diagnoses.Delete(ctx, id) })
}

// CheckPatientUpdate keeps the insurance number of a patient with diagnoses fixed.
func (s *Service) CheckPatientUpdate(ctx context.Context, current, updated *patient.Patient) error {
	if !patient.InsuranceNumberChanged(current, updated) {
		return nil
	}
	exists, err := s.diagnoses.ExistsForPatient(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("check diagnoses: %w", err)
	}
	if exists {
		return patient.InsuranceNumberLocked("diagnosis")
	}
	return nil
}

func (s *Service) SearchDiagnoses(ctx context.Context, params map[string]string, limit, offset int) ([]*Diagnosis, int, error) {
	if v := params["icd_code"]; v != "" {
		params["icd_code"] = strings.ToUpper(v)
	}
	diagnoses, total, err := s.diagnoses.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, d := range diagnoses {
		s.fillAge(d)
	}
	return diagnoses, total, nil
}

func (s *Service) check(ctx context.Context, c *validation.Collector, d *Diagnosis, p *patient.Patient) error {
	c.Check("icd_code", validation.Required(d.ICDCode))
	if !c.Failed("icd_code") {
		c.Check("icd_code", validation.ICD10Format(d.ICDCode))
	}

	c.Check("disp_status", validation.OneOf(string(d.DispStatus), validation.SetOf(AllStatuses()...)))
	if d.PrimaryReason != "" {
		c.Check("primary_reason", validation.OneOf(string(d.PrimaryReason), validation.SetOf(AllPrimaryReasons()...)))
	}
	if !c.Failed("disp_status") {
		c.Check("primary_reason", validation.PrimaryReason(string(d.DispStatus), string(d.PrimaryReason),
			validation.SetOf(primaryReasonStatuses()...)))
	}

	if d.DispStartDate.IsZero() {
		c.Add(validation.Missing("disp_start_date", "this field is required"))
	} else {
		c.Check("disp_end_date", validation.DispEndDate(d.DispStartDate, d.DispEndDate))
	}

	if d.RemoveReason != "" {
		c.Check("remove_reason", validation.OneOf(string(d.RemoveReason), validation.SetOf(AllRemoveReasons()...)))
	}
	c.Check("remove_reason", validation.RemoveReason(d.DispEndDate, string(d.RemoveReason)))

	if p == nil || c.Failed("icd_code") {
		return nil
	}
	exists, err := s.diagnoses.ExistsForPatientCode(ctx, p.ID, d.ICDCode, d.ID)
	if err != nil {
		return fmt.Errorf("check diagnosis uniqueness: %w", err)
	}
	if exists {
		c.Add(validation.Duplicate("icd_code", "this patient already has a diagnosis with code %s", d.ICDCode))
	}
	return nil
}

func (s *Service) bind(d *Diagnosis, p *patient.Patient) {
	if p != nil {
		d.Patient = p.Summarize(s.nowFunc())
		d.InsuranceNumber = p.InsuranceNumber
	}
}

func (s *Service) fillAge(d *Diagnosis) {
	if d.Patient != nil {
		d.Patient.Age = patient.AgeOn(d.Patient.BirthDate, s.nowFunc())
		d.InsuranceNumber = d.Patient.InsuranceNumber
	}
}

func normalize(d *Diagnosis) {
	d.ICDCode = strings.ToUpper(strings.TrimSpace(d.ICDCode))
	d.InsuranceNumber = strings.TrimSpace(d.InsuranceNumber)
	if !d.DispStartDate.IsZero() {
		d.DispStartDate = validation.Day(d.DispStartDate)
	}
	if d.DispEndDate != nil {
		if d.DispEndDate.IsZero() {
			d.DispEndDate = nil
		} else {
			end := validation.Day(*d.DispEndDate)
			d.DispEndDate = &end
		}
	}
	if d.Comment != nil && strings.TrimSpace(*d.Comment) == "" {
		d.Comment = nil
	}
}
