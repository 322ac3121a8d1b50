package inbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/notification"
)

// Notification is a stored in-app message. Only IsRead changes after
// creation.
type Notification struct {
	ID             uuid.UUID             `json:"id"`
	UserID         uuid.UUID             `json:"user"`
	PatientID      *uuid.UUID            `json:"patientId,omitempty"`
	PatientName    string                `json:"patientName,omitempty"`
	ImmunizationID *uuid.UUID            `json:"immunizationId,omitempty"`
	Type           notification.Type     `json:"type"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	DueDate        *time.Time            `json:"dueDate,omitempty"`
	Priority       notification.Priority `json:"priority"`
	IsRead         bool                  `json:"isRead"`
	CreatedAt      time.Time             `json:"createdAt"`
}

func fromMessage(msg notification.Message) *Notification {
	return &Notification{
		UserID:         msg.UserID,
		PatientID:      msg.PatientID,
		ImmunizationID: msg.ImmunizationID,
		Type:           msg.Type,
		Title:          msg.Title,
		Message:        msg.Body,
		DueDate:        msg.DueDate,
		Priority:       msg.Priority,
	}
}

// event is the payload published for downstream delivery workers.
type event struct {
	ID        uuid.UUID             `json:"id"`
	UserID    uuid.UUID             `json:"userId"`
	PatientID *uuid.UUID            `json:"patientId,omitempty"`
	Type      notification.Type     `json:"type"`
	Title     string                `json:"title"`
	Message   string                `json:"message"`
	DueDate   *time.Time            `json:"dueDate,omitempty"`
	Priority  notification.Priority `json:"priority"`
	CreatedAt time.Time             `json:"createdAt"`
}

func (n *Notification) event() event {
	return event{
		ID:        n.ID,
		UserID:    n.UserID,
		PatientID: n.PatientID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		DueDate:   n.DueDate,
		Priority:  n.Priority,
		CreatedAt: n.CreatedAt,
	}
}
