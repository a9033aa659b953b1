package death

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/registry/internal/domain/patient"
	"github.com/clinic/registry/internal/domain/validation"
	"github.com/clinic/registry/internal/platform/db"
)

type deathRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &deathRepoPG{pool: pool}
}

func (r *deathRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const (
	deathFrom = `death d JOIN patient p ON p.id = d.patient_id`
	deathCols = `d.id, d.patient_id, d.search_term, d.death_date, d.death_place, d.death_cause, d.comment,
	d.created_at, d.updated_at,
	p.full_name, p.gender, p.birth_date, p.filial, p.insurance_number`
)

func (r *deathRepoPG) Create(ctx context.Context, d *Death) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO death (id, patient_id, search_term, death_date, death_place, death_cause, comment)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.SearchTerm, d.DeathDate, d.DeathPlace, d.DeathCause, d.Comment,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	return mapWriteErr(err)
}

func (r *deathRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Death, error) {
	d, err := scanDeath(r.conn(ctx).QueryRow(ctx, `SELECT `+deathCols+` FROM `+deathFrom+` WHERE d.id = $1`, id))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return d, nil
}

func (r *deathRepoPG) GetByPatientID(ctx context.Context, patientID uuid.UUID) (*Death, error) {
	d, err := scanDeath(r.conn(ctx).QueryRow(ctx, `SELECT `+deathCols+` FROM `+deathFrom+` WHERE d.patient_id = $1`, patientID))
	if err != nil {
		return nil, db.NotFound(err)
	}
	return d, nil
}

func (r *deathRepoPG) ExistsForPatient(ctx context.Context, patientID, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM death WHERE patient_id = $1 AND id <> $2)`, patientID, exclude,
	).Scan(&exists)
	return exists, err
}

func (r *deathRepoPG) Update(ctx context.Context, d *Death) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE death SET
			death_date=$2, death_place=$3, death_cause=$4, comment=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		d.ID, d.DeathDate, d.DeathPlace, d.DeathCause, d.Comment,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return mapWriteErr(db.NotFound(err))
	}
	return nil
}

func (r *deathRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM death WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *deathRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Death, int, error) {
	qb := db.NewSearchQuery(deathFrom, deathCols)
	if v := params["q"]; v != "" {
		qb.Contains(v, "p.full_name", "d.search_term")
	}
	if v := params["death_place"]; v != "" {
		qb.Eq("d.death_place", v)
	}
	if v := params["death_cause"]; v != "" {
		qb.Eq("UPPER(d.death_cause)", v)
	}
	if v := params["filial"]; v != "" {
		qb.Eq("p.filial", v)
	}
	if v := params["gender"]; v != "" {
		qb.Eq("p.gender", v)
	}
	from, to, err := validation.ParseDateRange(params, "death_date_from", "death_date_to")
	if err != nil {
		return nil, 0, err
	}
	qb.DateRange("d.death_date", from, to)
	qb.OrderBy("d.death_date DESC, p.full_name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var deaths []*Death
	for rows.Next() {
		d, err := scanDeath(rows)
		if err != nil {
			return nil, 0, err
		}
		deaths = append(deaths, d)
	}
	return deaths, total, rows.Err()
}

func scanDeath(row pgx.Row) (*Death, error) {
	var d Death
	var s patient.Summary
	err := row.Scan(&d.ID, &d.PatientID, &d.SearchTerm, &d.DeathDate, &d.DeathPlace, &d.DeathCause, &d.Comment,
		&d.CreatedAt, &d.UpdatedAt,
		&s.FullName, &s.Gender, &s.BirthDate, &s.Filial, &s.InsuranceNumber)
	if err != nil {
		return nil, err
	}
	s.ID = d.PatientID
	d.Patient = &s
	return &d, nil
}

func mapWriteErr(err error) error {
	if name, ok := db.UniqueViolation(err); ok && name == "death_patient_id_key" {
		return validation.Duplicate("search_term", "a death record for this patient already exists")
	}
	if _, ok := db.ForeignKeyViolation(err); ok {
		return validation.NotFound("search_term", "the patient no longer exists")
	}
	return err
}
