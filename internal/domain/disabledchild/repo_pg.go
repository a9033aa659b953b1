package disabledchild

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

type disabledChildRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &disabledChildRepoPG{pool: pool}
}

func (r *disabledChildRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const (
	childFrom = `disabled_child dc JOIN patient p ON p.id = dc.patient_id`
	childCols = `dc.id, dc.patient_id, dc.icd_code, dc.status, dc.disability_date, dc.palliative,
	COALESCE(dc.removal_reason, ''), dc.removal_date, COALESCE(dc.comorbidities, ''), COALESCE(dc.notes, ''),
	dc.created_at, dc.updated_at,
	p.full_name, p.gender, p.birth_date, p.filial, p.insurance_number`
)

func (r *disabledChildRepoPG) Create(ctx context.Context, dc *DisabledChild) error {
	dc.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO disabled_child (id, patient_id, icd_code, status, disability_date, palliative,
			removal_reason, removal_date, comorbidities, notes)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10)
		RETURNING created_at, updated_at`,
		dc.ID, dc.PatientID, dc.ICDCode, dc.Status, dc.DisabilityDate, dc.Palliative,
		string(dc.RemovalReason), dc.RemovalDate, dc.Comorbidities, dc.Notes,
	).Scan(&dc.CreatedAt, &dc.UpdatedAt)
	return mapWriteErr(err)
}

func (r *disabledChildRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DisabledChild, error) {
	dc, err := scanChild(r.conn(ctx).QueryRow(ctx, `SELECT `+childCols+` FROM `+childFrom+` WHERE dc.id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return dc, nil
}

func (r *disabledChildRepoPG) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*DisabledChild, error) {
	dc, err := scanChild(r.conn(ctx).QueryRow(ctx, `SELECT `+childCols+` FROM `+childFrom+` WHERE dc.patient_id = $1`, patientID))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return dc, nil
}

func (r *disabledChildRepoPG) ExistsForPatient(ctx context.Context, patientID, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM disabled_child WHERE patient_id = $1 AND id <> $2)`, patientID, exclude,
	).Scan(&exists)
	return exists, err
}

func (r *disabledChildRepoPG) Update(ctx context.Context, dc *DisabledChild) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE disabled_child SET
			icd_code=$2, status=$3, disability_date=$4, palliative=$5, removal_reason=NULLIF($6,''),
			removal_date=$7, comorbidities=$8, notes=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		dc.ID, dc.ICDCode, dc.Status, dc.DisabilityDate, dc.Palliative, string(dc.RemovalReason),
		dc.RemovalDate, dc.Comorbidities, dc.Notes,
	).Scan(&dc.CreatedAt, &dc.UpdatedAt)
	if err != nil {
		return mapWriteErr(db.NotFound(err))
	}
	return nil
}

func (r *disabledChildRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM disabled_child WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *disabledChildRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*DisabledChild, int, error) {
	qb := db.NewSearchQuery(childFrom, childCols)
	if v := params["q"]; v != "" {
		qb.Contains(v, "p.insurance_number")
	}
	if v := params["insurance_number"]; v != "" {
		qb.Eq("p.insurance_number", v)
	}
	if v := params["status"]; v != "" {
		qb.Eq("dc.status", v)
	}
	if v := params["palliative"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, 0, validation.Format("palliative", "expected true or false")
		}
		qb.Eq("dc.palliative", b)
	}
	qb.OrderBy("p.full_name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var children []*DisabledChild
	for rows.Next() {
		dc, err := scanChild(rows)
		if err != nil {
			return nil, 0, err
		}
		children = append(children, dc)
	}
	return children, total, rows.Err()
}

func scanChild(row pgx.Row) (*DisabledChild, error) {
	var dc DisabledChild
	var s patient.Summary
	err := row.Scan(&dc.ID, &dc.PatientID, &dc.ICDCode, &dc.Status, &dc.DisabilityDate, &dc.Palliative,
		&dc.RemovalReason, &dc.RemovalDate, &dc.Comorbidities, &dc.Notes,
		&dc.CreatedAt, &dc.UpdatedAt,
		&s.FullName, &s.Gender, &s.BirthDate, &s.Filial, &s.InsuranceNumber)
	if err != nil {
		return nil, err
	}
	s.ID = dc.PatientID
	dc.Patient = &s
	return &dc, nil
}

func mapWriteErr(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == "disabled_child_patient_id_key" {
		return validation.Duplicate("patient_id", "this patient is already registered as a disabled child")
	}
	if _, ok := db.ForeignKeyViolation(err); ok {
		return validation.NotFound("patient_id", "the patient no longer exists")
	}
	return err
}
