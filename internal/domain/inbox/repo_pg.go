package inbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/db"
	"github.com/clinic/immunize/internal/platform/notification"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const notificationCols = `n.id, n.user_id, n.patient_id, COALESCE(p.name, ''), n.immunization_id,
	n.type, n.title, n.message, n.due_date, n.priority, n.is_read, n.created_at`

const notificationFrom = ` FROM notification n LEFT JOIN patient p ON p.id = n.patient_id`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.PatientID, &n.PatientName, &n.ImmunizationID,
		&n.Type, &n.Title, &n.Message, &n.DueDate, &n.Priority, &n.IsRead, &n.CreatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notification (id, user_id, patient_id, immunization_id, type, title, message, due_date, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		n.ID, n.UserID, n.PatientID, n.ImmunizationID, n.Type, n.Title, n.Message, n.DueDate, n.Priority,
	).Scan(&n.CreatedAt)
	return apperr.FromDB(err, "insert notification", "")
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "count notifications", "")
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+notificationCols+notificationFrom+`
		WHERE n.user_id = $1 ORDER BY n.created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "list notifications", "")
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, apperr.FromDB(err, "scan notification", "")
		}
		items = append(items, n)
	}
	return items, total, apperr.FromDB(rows.Err(), "list notifications", "")
}

func (r *repoPG) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	n, err := scanNotification(r.conn(ctx).QueryRow(ctx, `
		WITH updated AS (
			UPDATE notification SET is_read = TRUE WHERE id = $1 AND user_id = $2 RETURNING *
		)
		SELECT `+notificationCols+` FROM updated n LEFT JOIN patient p ON p.id = n.patient_id`, id, userID))
	if err != nil {
		return nil, apperr.FromDB(err, "mark notification read", "Notification not found")
	}
	return n, nil
}

func (r *repoPG) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, apperr.FromDB(err, "mark all notifications read", "")
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, apperr.FromDB(err, "count unread notifications", "")
}

func (r *repoPG) SentSince(ctx context.Context, immunizationID uuid.UUID, typ notification.Type, since time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification WHERE immunization_id = $1 AND type = $2 AND created_at >= $3
		)`, immunizationID, typ, since).Scan(&exists)
	return exists, apperr.FromDB(err, "check reminder history", "")
}
