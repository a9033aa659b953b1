package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// MatchInsuranceNumber returns at most two patients holding number, enough to tell a
	// unique match from an ambiguous one.
	MatchInsuranceNumber(ctx context.Context, number string) ([]*Patient, error)
	InsuranceNumberTaken(ctx context.Context, number string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
}
