package immunization

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, im *Immunization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Immunization, error)
	Update(ctx context.Context, im *Immunization) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List orders by date administered, newest first.
	List(ctx context.Context, f ListFilter) ([]*Immunization, int, error)
	// ListOverdue returns records past next_due_date that are not Completed.
	ListOverdue(ctx context.Context, now time.Time) ([]*Immunization, error)
	// ListUpcoming returns the patient's Due or Overdue records with
	// next_due_date at or after now, soonest first.
	ListUpcoming(ctx context.Context, patientID uuid.UUID, now time.Time) ([]*Immunization, error)
}
