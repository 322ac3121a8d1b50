package patient

import (
	"context"
	"fmt"
	"strings"

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

const patientCols = `id, name, date_of_birth, gender, contact_number,
	COALESCE(email, ''), COALESCE(address, ''), COALESCE(guardian_name, ''),
	COALESCE(guardian_contact, ''), COALESCE(guardian_relation, ''),
	parent_user_id, is_active, created_at, updated_at`

const notFoundMsg = "Patient not found"

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.DateOfBirth, &p.Gender, &p.ContactNumber,
		&p.Email, &p.Address, &p.GuardianName, &p.GuardianContact, &p.GuardianRelation,
		&p.ParentUserID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, name, date_of_birth, gender, contact_number, email, address,
			guardian_name, guardian_contact, guardian_relation, parent_user_id, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.ContactNumber, p.Email, p.Address,
		p.GuardianName, p.GuardianContact, p.GuardianRelation, p.ParentUserID, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return apperr.FromDB(err, "insert patient", "")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "get patient", notFoundMsg)
	}
	return p, nil
}

func (r *repoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "lock patient", notFoundMsg)
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET name = $2, date_of_birth = $3, gender = $4, contact_number = $5,
			email = NULLIF($6, ''), address = NULLIF($7, ''), guardian_name = NULLIF($8, ''),
			guardian_contact = NULLIF($9, ''), guardian_relation = NULLIF($10, ''), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.ContactNumber, p.Email, p.Address,
		p.GuardianName, p.GuardianContact, p.GuardianRelation,
	).Scan(&p.UpdatedAt)
	return apperr.FromDB(err, "update patient", notFoundMsg)
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "delete patient", notFoundMsg)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notFoundMsg)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Patient, int, error) {
	where := []string{"is_active"}
	var args []interface{}
	if f.ParentID != nil {
		args = append(args, *f.ParentID)
		where = append(where, fmt.Sprintf("parent_user_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR contact_number ILIKE $%d)", len(args), len(args)))
	}
	if f.Gender != "" {
		args = append(args, f.Gender)
		where = append(where, fmt.Sprintf("gender = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, apperr.FromDB(err, "count patients", "")
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+patientCols+` FROM patient WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "list patients", "")
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *repoPG) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE parent_user_id = $1 AND is_active ORDER BY name`, parentID)
	if err != nil {
		return nil, apperr.FromDB(err, "list children", "")
	}
	return collect(rows)
}

func (r *repoPG) LinkParent(ctx context.Context, patientID, parentID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET parent_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND parent_user_id IS NULL`, patientID, parentID)
	if err != nil {
		return false, apperr.FromDB(err, "link parent", "")
	}
	return tag.RowsAffected() == 1, nil
}

func collect(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "scan patient", "")
		}
		items = append(items, p)
	}
	return items, apperr.FromDB(rows.Err(), "read patients", "")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
