package diagnosis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/record"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

// -- Mock Diagnosis Repository --

type mockDiagnosisRepo struct {
	diagnoses map[uuid.UUID]*Diagnosis
	patients  *mockResolver
}

func (m *mockDiagnosisRepo) Create(_ context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.diagnoses[d.ID] = &cp
	return nil
}

func (m *mockDiagnosisRepo) GetByID(_ context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, ok := m.diagnoses[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *d
	if p, ok := m.patients.byID[d.PatientID]; ok {
		cp.Patient = p.Summarize(time.Now())
	}
	return &cp, nil
}

func (m *mockDiagnosisRepo) ExistsForPatient(_ context.Context, patientID uuid.UUID) (bool, error) {
	for _, d := range m.diagnoses {
		if d.PatientID == patientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDiagnosisRepo) ExistsForPatientCode(_ context.Context, patientID uuid.UUID, icdCode string, exclude uuid.UUID) (bool, error) {
	for id, d := range m.diagnoses {
		if d.PatientID == patientID && d.ICDCode == icdCode && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDiagnosisRepo) Update(_ context.Context, d *Diagnosis) error {
	cp := *d
	m.diagnoses[d.ID] = &cp
	return nil
}

func (m *mockDiagnosisRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.diagnoses, id)
	return nil
}

func (m *mockDiagnosisRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Diagnosis, int, error) {
	var result []*Diagnosis
	for id := range m.diagnoses {
		d, _ := m.GetByID(ctx, id)
		if v := params["disp_status"]; v != "" && string(d.DispStatus) != v {
			continue
		}
		if v := params["icd_code"]; v != "" && d.ICDCode != v {
			continue
		}
		result = append(result, d)
	}
	return result, len(result), nil
}

// -- Mock Patient Resolver --

type mockResolver struct {
	byID map[uuid.UUID]*patient.Patient
}

func (m *mockResolver) add(number string) *patient.Patient {
	p := &patient.Patient{
		ID:              uuid.New(),
		FullName:        "Kuznetsova Olga",
		BirthDate:       time.Date(1985, time.February, 2, 0, 0, 0, 0, time.UTC),
		Gender:          patient.GenderFemale,
		Filial:          patient.Filial1,
		InsuranceNumber: number,
	}
	m.byID[p.ID] = p
	return p
}

func (m *mockResolver) ResolveByInsuranceNumber(_ context.Context, field, number string) (*patient.Patient, error) {
	for _, p := range m.byID {
		if p.InsuranceNumber == number {
			return p, nil
		}
	}
	return nil, validation.NotFound(field, "no patient with insurance number %s", number)
}

func (m *mockResolver) ResolveByID(_ context.Context, field string, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, validation.NotFound(field, "patient %s does not exist", id)
	}
	return p, nil
}

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

const insurance = "5555666677778888"

func newTestService() (*Service, *mockDiagnosisRepo, *mockResolver) {
	resolver := &mockResolver{byID: make(map[uuid.UUID]*patient.Patient)}
	repo := &mockDiagnosisRepo{diagnoses: make(map[uuid.UUID]*Diagnosis), patients: resolver}
	svc := NewService(repo, resolver, record.NewWriter(nil, zerolog.Nop(), nil))
	svc.nowFunc = func() time.Time { return testNow }
	return svc, repo, resolver
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func validDiagnosis() *Diagnosis {
	return &Diagnosis{
		InsuranceNumber: insurance,
		ICDCode:         "j45.0",
		DispStatus:      StatusNewlyDetected,
		PrimaryReason:   ReasonProfExam,
		DispStartDate:   day(2024, time.January, 10),
	}
}

func requireFieldKind(t *testing.T, err error, field string, kind validation.Kind) {
	t.Helper()
	errs, ok := validation.AsErrors(err)
	require.True(t, ok, "expected violations, got %v", err)
	assert.True(t, errs.Has(field, kind), "expected %s on %s, got %v", kind, field, errs.Fields())
}

func TestEveryStatusIsClassified(t *testing.T) {
	for _, s := range AllStatuses() {
		_, ok := requiresPrimaryReason[s]
		assert.True(t, ok, "status %s has no primary reason rule", s)
	}
	assert.Equal(t, []DispStatus{StatusNewlyDetected}, primaryReasonStatuses())
}

func TestCreateDiagnosis_ByInsuranceNumber(t *testing.T) {
	svc, repo, resolver := newTestService()
	p := resolver.add(insurance)

	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))
	assert.Equal(t, p.ID, d.PatientID)
	assert.Equal(t, "J45.0", d.ICDCode)
	assert.Equal(t, 39, d.Patient.Age)
	assert.Len(t, repo.diagnoses, 1)
}

func TestCreateDiagnosis_ByPatientID(t *testing.T) {
	svc, _, resolver := newTestService()
	p := resolver.add(insurance)

	d := validDiagnosis()
	d.InsuranceNumber = ""
	d.PatientID = p.ID
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))
	assert.Equal(t, insurance, d.InsuranceNumber)

	missing := validDiagnosis()
	missing.ICDCode = "K21"
	missing.PatientID = uuid.New()
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), missing), "patient_id", validation.KindNotFound)
}

func TestCreateDiagnosis_NewlyDetectedNeedsPrimaryReason(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)

	d := validDiagnosis()
	d.PrimaryReason = ""
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), d), "primary_reason", validation.KindRequired)
}

func TestCreateDiagnosis_PrimaryReasonForbiddenOtherwise(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)

	d := validDiagnosis()
	d.DispStatus = StatusUnderObservation
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), d), "primary_reason", validation.KindInconsistent)
}

func TestCreateDiagnosis_EndDateRules(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)

	early := validDiagnosis()
	early.DispEndDate = dayPtr(2023, time.December, 31)
	early.RemoveReason = RemoveRecovered
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), early), "disp_end_date", validation.KindChronology)

	noReason := validDiagnosis()
	noReason.DispEndDate = dayPtr(2024, time.March, 1)
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), noReason), "remove_reason", validation.KindRequired)

	noDate := validDiagnosis()
	noDate.RemoveReason = RemoveRelocated
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), noDate), "remove_reason", validation.KindInconsistent)

	sameDay := validDiagnosis()
	sameDay.DispEndDate = dayPtr(2024, time.January, 10)
	sameDay.RemoveReason = RemoveRecovered
	assert.NoError(t, svc.CreateDiagnosis(context.Background(), sameDay))
}

func TestCreateDiagnosis_InvalidEnums(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)

	d := validDiagnosis()
	d.DispStatus = "archived"
	d.PrimaryReason = "rumour"
	d.ICDCode = "45J"
	err := svc.CreateDiagnosis(context.Background(), d)
	requireFieldKind(t, err, "disp_status", validation.KindFormat)
	requireFieldKind(t, err, "primary_reason", validation.KindFormat)
	requireFieldKind(t, err, "icd_code", validation.KindFormat)
}

func TestCreateDiagnosis_DuplicatePair(t *testing.T) {
	svc, repo, resolver := newTestService()
	resolver.add(insurance)
	require.NoError(t, svc.CreateDiagnosis(context.Background(), validDiagnosis()))

	again := validDiagnosis()
	again.ICDCode = "J45.0"
	requireFieldKind(t, svc.CreateDiagnosis(context.Background(), again), "icd_code", validation.KindDuplicate)
	assert.Len(t, repo.diagnoses, 1)

	other := validDiagnosis()
	other.ICDCode = "E11"
	assert.NoError(t, svc.CreateDiagnosis(context.Background(), other))
}

func TestUpdateDiagnosis_ResubmitUnchanged(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	again := *d
	require.NoError(t, svc.UpdateDiagnosis(context.Background(), &again))
}

func TestUpdateDiagnosis_KeepsPatientLink(t *testing.T) {
	svc, _, resolver := newTestService()
	p := resolver.add(insurance)
	other := resolver.add("1212121212121212")
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	changed := *d
	changed.PatientID = other.ID
	require.NoError(t, svc.UpdateDiagnosis(context.Background(), &changed))
	assert.Equal(t, p.ID, changed.PatientID)
}

func TestMarkRemoved_Defaults(t *testing.T) {
	svc, repo, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	got, err := svc.MarkRemoved(context.Background(), d.ID, Removal{})
	require.NoError(t, err)
	assert.Equal(t, StatusRemoved, got.DispStatus)
	assert.Equal(t, RemoveRecovered, got.RemoveReason)
	assert.Empty(t, got.PrimaryReason)
	require.NotNil(t, got.DispEndDate)
	assert.Equal(t, day(2024, time.June, 15), *got.DispEndDate)
	assert.Equal(t, StatusRemoved, repo.diagnoses[d.ID].DispStatus)
}

func TestMarkRemoved_Explicit(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	got, err := svc.MarkRemoved(context.Background(), d.ID, Removal{EndDate: dayPtr(2024, time.May, 5), Reason: RemoveDeceased})
	require.NoError(t, err)
	assert.Equal(t, RemoveDeceased, got.RemoveReason)
	assert.Equal(t, day(2024, time.May, 5), *got.DispEndDate)
}

func TestMarkRemoved_BeforeStartIsRejected(t *testing.T) {
	svc, repo, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	_, err := svc.MarkRemoved(context.Background(), d.ID, Removal{EndDate: dayPtr(2023, time.May, 5)})
	requireFieldKind(t, err, "disp_end_date", validation.KindChronology)
	assert.Equal(t, StatusNewlyDetected, repo.diagnoses[d.ID].DispStatus)
}

func TestMarkRemoved_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.MarkRemoved(context.Background(), uuid.New(), Removal{})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestDeleteDiagnosis(t *testing.T) {
	svc, repo, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	require.NoError(t, svc.CreateDiagnosis(context.Background(), d))

	require.NoError(t, svc.DeleteDiagnosis(context.Background(), d.ID))
	assert.Empty(t, repo.diagnoses)
}

func TestSearchDiagnoses(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	require.NoError(t, svc.CreateDiagnosis(context.Background(), validDiagnosis()))

	found, total, err := svc.SearchDiagnoses(context.Background(), map[string]string{"icd_code": "j45.0"}, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, insurance, found[0].InsuranceNumber)
}

func TestCheckPatientUpdate(t *testing.T) {
	svc, _, resolver := newTestService()
	p := resolver.add(insurance)
	require.NoError(t, svc.CreateDiagnosis(context.Background(), validDiagnosis()))

	renumbered := *p
	renumbered.InsuranceNumber = "9999888877776666"
	requireFieldKind(t, svc.CheckPatientUpdate(context.Background(), p, &renumbered),
		"insurance_number", validation.KindInconsistent)

	renamed := *p
	renamed.FullName = "Petrov Petr"
	assert.NoError(t, svc.CheckPatientUpdate(context.Background(), p, &renamed))

	other := resolver.add("1212343456567878")
	changed := *other
	changed.InsuranceNumber = "1212343456567879"
	assert.NoError(t, svc.CheckPatientUpdate(context.Background(), other, &changed))
}
