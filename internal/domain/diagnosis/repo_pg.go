package diagnosis

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

type diagnosisRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &diagnosisRepoPG{pool: pool}
}

func (r *diagnosisRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const (
	diagnosisFrom = `diagnosis d JOIN patient p ON p.id = d.patient_id`
	diagnosisCols = `d.id, d.patient_id, d.icd_code, d.disp_status, COALESCE(d.primary_reason, ''),
	d.disp_start_date, d.disp_end_date, COALESCE(d.remove_reason, ''), d.comment, d.created_at, d.updated_at,
	p.full_name, p.gender, p.birth_date, p.filial, p.insurance_number`
)

func (r *diagnosisRepoPG) Create(ctx context.Context, d *Diagnosis) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO diagnosis (id, patient_id, icd_code, disp_status, primary_reason,
			disp_start_date, disp_end_date, remove_reason, comment)
		VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,NULLIF($8,''),$9)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.ICDCode, d.DispStatus, string(d.PrimaryReason),
		d.DispStartDate, d.DispEndDate, string(d.RemoveReason), d.Comment,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapWriteErr(err)
}

func (r *diagnosisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := scanDiagnosis(r.conn(ctx).QueryRow(ctx, `SELECT `+diagnosisCols+` FROM `+diagnosisFrom+` WHERE d.id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return d, nil
}

func (r *diagnosisRepoPG) ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM diagnosis WHERE patient_id = $1)`, patientID,
	).Scan(&exists)
	return exists, err
}

func (r *diagnosisRepoPG) ExistsForPatientCode(ctx context.Context, patientID uuid.UUID, icdCode string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM diagnosis WHERE patient_id = $1 AND icd_code = $2 AND id <> $3)`,
		patientID, icdCode, exclude,
	).Scan(&exists)
	return exists, err
}

func (r *diagnosisRepoPG) Update(ctx context.Context, d *Diagnosis) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE diagnosis SET
			icd_code=$2, disp_status=$3, primary_reason=NULLIF($4,''), disp_start_date=$5,
			disp_end_date=$6, remove_reason=NULLIF($7,''), comment=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.ICDCode, d.DispStatus, string(d.PrimaryReason), d.DispStartDate,
		d.DispEndDate, string(d.RemoveReason), d.Comment,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapWriteErr(db.NotFound(err))
	}
	return nil
}

func (r *diagnosisRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM diagnosis WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *diagnosisRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Diagnosis, int, error) {
	qb := db.NewSearchQuery(diagnosisFrom, diagnosisCols)
	if v := params["q"]; v != "" {
		qb.Contains(v, "p.insurance_number", "p.full_name")
	}
	if v := params["insurance_number"]; v != "" {
		qb.Eq("p.insurance_number", v)
	}
	if v := params["patient_id"]; v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, 0, validation.Format("patient_id", "invalid id")
		}
		qb.Eq("d.patient_id", id)
	}
	if v := params["icd_code"]; v != "" {
		qb.Eq("d.icd_code", v)
	}
	if v := params["disp_status"]; v != "" {
		qb.Eq("d.disp_status", v)
	}
	if v := params["remove_reason"]; v != "" {
		qb.Eq("d.remove_reason", v)
	}

	var c validation.Collector
	startFrom, startTo, err := validation.ParseDateRange(params, "start_from", "start_to")
	c.Check("", err)
	endFrom, endTo, err := validation.ParseDateRange(params, "end_from", "end_to")
	c.Check("", err)
	if err := c.Err(); err != nil {
		return nil, 0, err
	}
	qb.DateRange("d.disp_start_date", startFrom, startTo)
	qb.DateRange("d.disp_end_date", endFrom, endTo)
	qb.OrderBy("d.disp_start_date DESC, d.icd_code")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var diagnoses []*Diagnosis
	for rows.Next() {
		d, err := scanDiagnosis(rows)
		if err != nil {
			return nil, 0, err
		}
		diagnoses = append(diagnoses, d)
	}
	return diagnoses, total, rows.Err()
}

func scanDiagnosis(row pgx.Row) (*Diagnosis, error) {
	var d Diagnosis
	var s patient.Summary
	err := row.Scan(&d.ID, &d.PatientID, &d.ICDCode, &d.DispStatus, &d.PrimaryReason,
		&d.DispStartDate, &d.DispEndDate, &d.RemoveReason, &d.Comment, &d.CreatedAt, &d.UpdatedAt,
		&s.FullName, &s.Gender, &s.BirthDate, &s.Filial, &s.InsuranceNumber)
	if err != nil {
		return nil, err
	}
	s.ID = d.PatientID
	d.Patient = &s
	return &d, nil
}

func mapWriteErr(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == "diagnosis_patient_icd_key" {
		return validation.Duplicate("icd_code", "this patient already has a diagnosis with this ICD-10 code")
	}
	if _, ok := db.ForeignKeyViolation(err); ok {
		return validation.NotFound("patient_id", "the patient no longer exists")
	}
	return err
}
