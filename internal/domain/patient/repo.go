package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// GetForUpdate reads the patient and, inside a transaction, locks the
	// row until commit.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*Patient, int, error)
	// ListChildren returns the parent's active patients ordered by name.
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*Patient, error)
	// LinkParent sets parent_user_id only while it is still NULL and
	// reports whether a row changed.
	LinkParent(ctx context.Context, patientID, parentID uuid.UUID) (bool, error)
}
