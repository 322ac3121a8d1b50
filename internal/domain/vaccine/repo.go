package vaccine

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, v *Vaccine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error)
	Update(ctx context.Context, v *Vaccine) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// ListActive orders by name.
	ListActive(ctx context.Context) ([]*Vaccine, error)
	ListLowStock(ctx context.Context) ([]*Vaccine, error)
	// Upsert inserts v or, when the name exists, replaces its stock fields
	// and reactivates it.
	Upsert(ctx context.Context, v *Vaccine) error
}
