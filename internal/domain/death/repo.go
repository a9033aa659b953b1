package death

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Death) error
	GetByID(ctx context.Context, id uuid.UUID) (*Death, error)
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*Death, error)
	ExistsForPatient(ctx context.Context, patientID, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, d *Death) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Death, int, error)
}
