package immunization

import (
	"context"
	"fmt"
	"strings"
	"time"

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

const immCols = `i.id, i.patient_id, p.name, i.vaccine_name, i.date_administered, i.batch_number,
	i.next_due_date, i.administered_by, COALESCE(u.name, ''), COALESCE(i.notes, ''), i.status,
	i.created_at, i.updated_at`

const immFrom = ` FROM immunization i
	JOIN patient p ON p.id = i.patient_id
	LEFT JOIN users u ON u.id = i.administered_by`

const notFoundMsg = "Immunization record not found"

func scanImmunization(row pgx.Row) (*Immunization, error) {
	var im Immunization
	err := row.Scan(&im.ID, &im.PatientID, &im.PatientName, &im.VaccineName, &im.DateAdministered,
		&im.BatchNumber, &im.NextDueDate, &im.AdministeredBy, &im.AdministeredByName, &im.Notes,
		&im.Status, &im.CreatedAt, &im.UpdatedAt)
	return &im, err
}

func (r *repoPG) Create(ctx context.Context, im *Immunization) error {
	im.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO immunization (id, patient_id, vaccine_name, date_administered, batch_number,
			next_due_date, administered_by, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING created_at, updated_at`,
		im.ID, im.PatientID, im.VaccineName, im.DateAdministered, im.BatchNumber,
		im.NextDueDate, im.AdministeredBy, im.Notes, im.Status,
	).Scan(&im.CreatedAt, &im.UpdatedAt)
	return apperr.FromDB(err, "insert immunization", "")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Immunization, error) {
	im, err := scanImmunization(r.conn(ctx).QueryRow(ctx, `SELECT `+immCols+immFrom+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "get immunization", notFoundMsg)
	}
	return im, nil
}

func (r *repoPG) Update(ctx context.Context, im *Immunization) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE immunization SET vaccine_name = $2, date_administered = $3, batch_number = $4,
			next_due_date = $5, notes = NULLIF($6, ''), status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		im.ID, im.VaccineName, im.DateAdministered, im.BatchNumber, im.NextDueDate, im.Notes, im.Status,
	).Scan(&im.UpdatedAt)
	return apperr.FromDB(err, "update immunization", notFoundMsg)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM immunization WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "delete immunization", notFoundMsg)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notFoundMsg)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Immunization, int, error) {
	where := []string{"TRUE"}
	var args []interface{}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where = append(where, fmt.Sprintf("i.patient_id = $%d", len(args)))
	}
	if f.PatientIDs != nil {
		args = append(args, f.PatientIDs)
		where = append(where, fmt.Sprintf("i.patient_id = ANY($%d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("i.status = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM immunization i WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "count immunizations", "")
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+immCols+immFrom+` WHERE %s
		ORDER BY i.date_administered DESC, i.id LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "list immunizations", "")
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListOverdue(ctx context.Context, now time.Time) ([]*Immunization, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+immCols+immFrom+`
		WHERE i.next_due_date < $1 AND i.status <> 'Completed'
		ORDER BY i.next_due_date`, now)
	if err != nil {
		return nil, apperr.FromDB(err, "list overdue immunizations", "")
	}
	return collect(rows)
}

func (r *repoPG) ListUpcoming(ctx context.Context, patientID uuid.UUID, now time.Time) ([]*Immunization, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+immCols+immFrom+`
		WHERE i.patient_id = $1 AND i.next_due_date >= $2 AND i.status IN ('Due', 'Overdue')
		ORDER BY i.next_due_date`, patientID, now)
	if err != nil {
		return nil, apperr.FromDB(err, "list upcoming immunizations", "")
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Immunization, error) {
	defer rows.Close()
	var items []*Immunization
	for rows.Next() {
		im, err := scanImmunization(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "scan immunization", "")
		}
		items = append(items, im)
	}
	return items, apperr.FromDB(rows.Err(), "read immunizations", "")
}
