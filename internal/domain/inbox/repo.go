package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/notification"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	// ListByUser returns the user's notifications newest first, with the
	// patient name filled in.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error)
	// MarkRead only touches a notification owned by userID.
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	// SentSince reports whether a notification of type typ referencing the
	// immunization was created at or after since.
	SentSince(ctx context.Context, immunizationID uuid.UUID, typ notification.Type, since time.Time) (bool, error)
}
