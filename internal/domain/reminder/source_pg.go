package reminder

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type sourcePG struct{ pool *pgxpool.Pool }

func NewSourcePG(pool *pgxpool.Pool) Source {
	return &sourcePG{pool: pool}
}

const dueQuery = `
	SELECT i.id, i.patient_id, p.name, p.parent_user_id, i.vaccine_name, i.next_due_date
	FROM immunization i
	JOIN patient p ON p.id = i.patient_id
	WHERE `

func (s *sourcePG) Upcoming(ctx context.Context, from, to time.Time) ([]Due, error) {
	rows, err := s.pool.Query(ctx, dueQuery+`i.status = 'Due' AND i.next_due_date BETWEEN $1 AND $2
		ORDER BY i.next_due_date`, from, to)
	if err != nil {
		return nil, apperr.FromDB(err, "query upcoming immunizations", "")
	}
	return collect(rows)
}

func (s *sourcePG) Overdue(ctx context.Context, before time.Time) ([]Due, error) {
	rows, err := s.pool.Query(ctx, dueQuery+`i.status = 'Overdue' AND i.next_due_date < $1
		ORDER BY i.next_due_date`, before)
	if err != nil {
		return nil, apperr.FromDB(err, "query overdue immunizations", "")
	}
	return collect(rows)
}

func (s *sourcePG) MarkOverdue(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE immunization SET status = 'Overdue', updated_at = NOW()
		WHERE status = 'Due' AND next_due_date < $1`, before)
	if err != nil {
		return 0, apperr.FromDB(err, "mark overdue immunizations", "")
	}
	return tag.RowsAffected(), nil
}

func collect(rows pgx.Rows) ([]Due, error) {
	defer rows.Close()
	var out []Due
	for rows.Next() {
		var d Due
		if err := rows.Scan(&d.ImmunizationID, &d.PatientID, &d.PatientName, &d.ParentUserID,
			&d.VaccineName, &d.NextDueDate); err != nil {
			return nil, apperr.FromDB(err, "scan reminder candidate", "")
		}
		out = append(out, d)
	}
	return out, apperr.FromDB(rows.Err(), "read reminder candidates", "")
}
