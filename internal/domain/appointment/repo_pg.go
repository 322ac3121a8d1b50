package appointment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/db"
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

const apptCols = `a.id, a.patient_id, p.name, a.parent_user_id, COALESCE(u.name, ''), COALESCE(u.email, ''),
	a.vaccine_name, a.immunization_id, a.preferred_date, COALESCE(a.notes, ''), a.status,
	a.created_at, a.updated_at`

const apptFrom = ` FROM appointment a
	JOIN patient p ON p.id = a.patient_id
	LEFT JOIN users u ON u.id = a.parent_user_id`

const notFoundMsg = "Appointment not found"

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.ParentUserID, &a.ParentName, &a.ParentEmail,
		&a.VaccineName, &a.ImmunizationID, &a.PreferredDate, &a.Notes, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, patient_id, parent_user_id, vaccine_name, immunization_id, preferred_date, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.ParentUserID, a.VaccineName, a.ImmunizationID, a.PreferredDate, a.Notes, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return apperr.FromDB(err, "insert appointment", "")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+apptFrom+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "get appointment", notFoundMsg)
	}
	return a, nil
}

func (r *repoPG) ListByParent(ctx context.Context, parentID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE a.parent_user_id = $1 ORDER BY a.preferred_date`, parentID)
	if err != nil {
		return nil, apperr.FromDB(err, "list parent appointments", "")
	}
	return collect(rows)
}

func (r *repoPG) List(ctx context.Context, status Status) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+apptCols+apptFrom+`
		WHERE ($1 = '' OR a.status = $1) ORDER BY a.preferred_date`, string(status))
	if err != nil {
		return nil, apperr.FromDB(err, "list appointments", "")
	}
	return collect(rows)
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status = $3, updated_at = NOW()
		WHERE id = $1 AND ($2::uuid IS NULL OR parent_user_id = $2)`, id, parentID, status)
	if err != nil {
		return apperr.FromDB(err, "update appointment status", notFoundMsg)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notFoundMsg)
	}
	return nil
}

func collect(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "scan appointment", "")
		}
		items = append(items, a)
	}
	return items, apperr.FromDB(rows.Err(), "read appointments", "")
}
