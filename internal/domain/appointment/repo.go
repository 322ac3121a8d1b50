package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListByParent orders by preferred date, earliest first.
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]*Appointment, error)
	// List returns every appointment, optionally narrowed to one status.
	List(ctx context.Context, status Status) ([]*Appointment, error)
	// SetStatus changes the status. A non-nil parentID restricts the
	// update to that parent's appointments.
	SetStatus(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, status Status) error
}
