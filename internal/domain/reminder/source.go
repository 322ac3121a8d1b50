package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Due is an immunization joined with the patient fields a reminder needs.
type Due struct {
	ImmunizationID uuid.UUID
	PatientID      uuid.UUID
	PatientName    string
	ParentUserID   *uuid.UUID
	VaccineName    string
	NextDueDate    time.Time
}

// Source reads reminder candidates.
type Source interface {
	// Upcoming returns status Due records with next_due_date in [from, to].
	Upcoming(ctx context.Context, from, to time.Time) ([]Due, error)
	// Overdue returns status Overdue records with next_due_date before t.
	Overdue(ctx context.Context, before time.Time) ([]Due, error)
	// MarkOverdue moves Due records whose next_due_date is before t to
	// Overdue and returns how many changed.
	MarkOverdue(ctx context.Context, before time.Time) (int64, error)
}
