package diagnosis

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	ExistsForPatient(ctx context.Context, patientID uuid.UUID) (bool, error)
	ExistsForPatientCode(ctx context.Context, patientID uuid.UUID, icdCode string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, d *Diagnosis) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Diagnosis, int, error)
}
