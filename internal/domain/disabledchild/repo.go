package disabledchild

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, dc *DisabledChild) error
	GetByID(ctx context.Context, id uuid.UUID) (*DisabledChild, error)
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*DisabledChild, error)
	ExistsForPatient(ctx context.Context, patientID, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, dc *DisabledChild) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*DisabledChild, int, error)
}
