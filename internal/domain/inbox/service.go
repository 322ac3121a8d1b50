package inbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/platform/notification"
)

// Publisher forwards stored notifications to an external broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// Service stores notifications and serves a user's inbox. It is the
// notification.Sink used by the dispatcher.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

var _ notification.Sink = (*Service)(nil)

func NewService(repo Repository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger.With().Str("component", "inbox").Logger()}
}

// Notify persists one notification. When a publisher is configured the
// stored row is also published, keyed by type; a publish failure is
// logged and does not affect the result.
func (s *Service) Notify(ctx context.Context, msg notification.Message) error {
	if msg.UserID == uuid.Nil {
		return fmt.Errorf("notification has no recipient")
	}
	if !msg.Type.Valid() {
		return fmt.Errorf("invalid notification type %q", msg.Type)
	}
	if msg.Priority == "" {
		msg.Priority = notification.PriorityMedium
	}
	if !msg.Priority.Valid() {
		return fmt.Errorf("invalid notification priority %q", msg.Priority)
	}

	n := fromMessage(msg)
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, string(n.Type), n.event()); err != nil {
			s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("publish notification")
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

// SentSince reports whether the immunization already produced a
// notification of typ at or after since.
func (s *Service) SentSince(ctx context.Context, immunizationID uuid.UUID, typ notification.Type, since time.Time) (bool, error) {
	return s.repo.SentSince(ctx, immunizationID, typ, since)
}
