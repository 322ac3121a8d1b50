// Package notification carries in-app notification messages from the
// operations that trigger them to a Sink, rendering titles and bodies from
// templates. Delivery from request paths is best-effort.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type is the notification category shown to the user.
type Type string

const (
	TypeAppointmentReminder  Type = "appointment_reminder"
	TypeUpcomingImmunization Type = "upcoming_immunization"
	TypeOverdueImmunization  Type = "overdue_immunization"
	TypeGeneral              Type = "general"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAppointmentReminder, TypeUpcomingImmunization, TypeOverdueImmunization, TypeGeneral:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Message is a notification addressed to one user.
type Message struct {
	UserID         uuid.UUID
	Type           Type
	Title          string
	Body           string
	PatientID      *uuid.UUID
	ImmunizationID *uuid.UUID
	DueDate        *time.Time
	Priority       Priority
}

// Sink persists a Message.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }
