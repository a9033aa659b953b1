package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/registry/internal/platform/db"
)

// ErrUnknownMeasure is returned when a measure id is not defined.
var ErrUnknownMeasure = errors.New("measure not found")

// Column is one output column of a measure, in display order.
type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Measure is a fixed registry query. SQL takes two date bounds ($1 from, $2 to);
// a NULL bound is open.
type Measure struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []Column `json:"columns"`
	SQL         string   `json:"-"`
}

// Report holds the rows produced by one evaluation of a measure.
type Report struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	From        *time.Time               `json:"from,omitempty"`
	To          *time.Time               `json:"to,omitempty"`
	Columns     []Column                 `json:"columns"`
	Results     []map[string]interface{} `json:"results"`
}

// Measures lists the available registry measures.
var Measures = []Measure{
	{
		ID:          "patients-by-filial",
		Name:        "Patients by filial",
		Description: "Registered patients per filial and gender, by birth date range",
		Columns: []Column{
			{"filial", "Filial"}, {"gender", "Gender"}, {"total", "Patients"},
		},
		SQL: `SELECT filial, gender, COUNT(*) AS total FROM patient
			WHERE ($1::date IS NULL OR birth_date >= $1) AND ($2::date IS NULL OR birth_date <= $2)
			GROUP BY filial, gender ORDER BY filial, gender`,
	},
	{
		ID:          "deaths-by-place",
		Name:        "Deaths by place",
		Description: "Recorded deaths per place of death, by death date range",
		Columns: []Column{
			{"death_place", "Place of death"}, {"total", "Deaths"},
		},
		SQL: `SELECT death_place, COUNT(*) AS total FROM death
			WHERE ($1::date IS NULL OR death_date >= $1) AND ($2::date IS NULL OR death_date <= $2)
			GROUP BY death_place ORDER BY total DESC, death_place`,
	},
	{
		ID:          "death-register",
		Name:        "Death register",
		Description: "All recorded deaths with patient details, by death date range",
		Columns: []Column{
			{"full_name", "Full name"}, {"insurance_number", "Insurance number"}, {"birth_date", "Birth date"},
			{"death_date", "Death date"}, {"death_place", "Place of death"}, {"death_cause", "Cause (ICD-10)"},
		},
		SQL: `SELECT p.full_name, p.insurance_number, p.birth_date, d.death_date, d.death_place, d.death_cause
			FROM death d JOIN patient p ON p.id = d.patient_id
			WHERE ($1::date IS NULL OR d.death_date >= $1) AND ($2::date IS NULL OR d.death_date <= $2)
			ORDER BY d.death_date, p.full_name`,
	},
	{
		ID:          "diagnoses-by-status",
		Name:        "Dispensary observation by status",
		Description: "Diagnoses per dispensary status, by observation start range",
		Columns: []Column{
			{"disp_status", "Status"}, {"total", "Diagnoses"},
		},
		SQL: `SELECT disp_status, COUNT(*) AS total FROM diagnosis
			WHERE ($1::date IS NULL OR disp_start_date >= $1) AND ($2::date IS NULL OR disp_start_date <= $2)
			GROUP BY disp_status ORDER BY disp_status`,
	},
	{
		ID:          "top-diagnoses",
		Name:        "Most frequent diagnoses",
		Description: "The twenty most frequent ICD-10 codes under active observation",
		Columns: []Column{
			{"icd_code", "ICD-10"}, {"total", "Patients"},
		},
		SQL: `SELECT icd_code, COUNT(*) AS total FROM diagnosis
			WHERE disp_status <> 'removed'
			  AND ($1::date IS NULL OR disp_start_date >= $1) AND ($2::date IS NULL OR disp_start_date <= $2)
			GROUP BY icd_code ORDER BY total DESC, icd_code LIMIT 20`,
	},
	{
		ID:          "disabled-children-by-status",
		Name:        "Disabled children by status",
		Description: "Disabled-child register per status, with palliative counts, by onset date range",
		Columns: []Column{
			{"status", "Status"}, {"total", "Children"}, {"palliative", "Palliative"},
		},
		SQL: `SELECT status, COUNT(*) AS total, COUNT(*) FILTER (WHERE palliative) AS palliative FROM disabled_child
			WHERE ($1::date IS NULL OR disability_date >= $1) AND ($2::date IS NULL OR disability_date <= $2)
			GROUP BY status ORDER BY status`,
	},
}

// FindMeasure looks up a measure by id.
func FindMeasure(id string) *Measure {
	for i := range Measures {
		if Measures[i].ID == id {
			return &Measures[i]
		}
	}
	return nil
}

// Evaluator runs measures.
type Evaluator interface {
	Evaluate(ctx context.Context, id string, from, to time.Time) (*Report, error)
}

// Service evaluates measures against PostgreSQL.
type Service struct {
	pool    *pgxpool.Pool
	nowFunc func() time.Time
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, nowFunc: time.Now}
}

// Evaluate runs the measure with optional date bounds. Zero bounds are open.
func (s *Service) Evaluate(ctx context.Context, id string, from, to time.Time) (*Report, error) {
	m := FindMeasure(id)
	if m == nil {
		return nil, ErrUnknownMeasure
	}

	results, err := s.query(ctx, m.SQL, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", m.ID, err)
	}
	return newReport(m, s.nowFunc(), from, to, results), nil
}

func (s *Service) query(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := db.Conn(ctx, s.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func newReport(m *Measure, now, from, to time.Time, results []map[string]interface{}) *Report {
	r := &Report{
		MeasureID:   m.ID,
		MeasureName: m.Name,
		GeneratedAt: now.UTC(),
		Columns:     m.Columns,
		Results:     results,
	}
	if !from.IsZero() {
		r.From = &from
	}
	if !to.IsZero() {
		r.To = &to
	}
	return r
}

func dateArg(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
