package linking

import (
	"context"
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

const codeCols = `vc.id, vc.patient_id, vc.code, vc.generated_by, vc.is_used, vc.expires_at,
	vc.parent_email, vc.parent_name, vc.created_at, vc.updated_at`

func (r *repoPG) DeleteUnusedForPatient(ctx context.Context, patientID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM verification_code WHERE patient_id = $1 AND NOT is_used`, patientID)
	if err != nil {
		return 0, apperr.FromDB(err, "delete unused codes", "")
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) Create(ctx context.Context, vc *VerificationCode) error {
	vc.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO verification_code (id, patient_id, code, generated_by, is_used, expires_at, parent_email, parent_name)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6, $7)
		RETURNING created_at, updated_at`,
		vc.ID, vc.PatientID, vc.Code, vc.GeneratedBy, vc.ExpiresAt, vc.ParentEmail, vc.ParentName,
	).Scan(&vc.CreatedAt, &vc.UpdatedAt)
	if apperr.IsUniqueViolation(err) {
		return codeCollision()
	}
	return apperr.FromDB(err, "insert verification code", "")
}

func (r *repoPG) FindRedeemable(ctx context.Context, patientID uuid.UUID, code string, now time.Time) (*VerificationCode, error) {
	var vc VerificationCode
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT `+codeCols+` FROM verification_code vc
		WHERE vc.patient_id = $1 AND vc.code = $2 AND NOT vc.is_used AND vc.expires_at > $3`,
		patientID, code, now,
	).Scan(&vc.ID, &vc.PatientID, &vc.Code, &vc.GeneratedBy, &vc.IsUsed, &vc.ExpiresAt,
		&vc.ParentEmail, &vc.ParentName, &vc.CreatedAt, &vc.UpdatedAt)
	if err != nil {
		return nil, apperr.FromDB(err, "find verification code", "Verification code not found")
	}
	return &vc, nil
}

func (r *repoPG) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE verification_code SET is_used = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT is_used AND expires_at > $2`, id, now)
	if err != nil {
		return false, apperr.FromDB(err, "mark code used", "")
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) ListUnused(ctx context.Context) ([]*CodeView, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+codeCols+`, p.id, p.name, p.date_of_birth, u.id, u.name
		FROM verification_code vc
		JOIN patient p ON p.id = vc.patient_id
		JOIN users u ON u.id = vc.generated_by
		WHERE NOT vc.is_used
		ORDER BY vc.created_at DESC`)
	if err != nil {
		return nil, apperr.FromDB(err, "list verification codes", "")
	}
	defer rows.Close()

	var items []*CodeView
	for rows.Next() {
		var v CodeView
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Code, &v.GeneratedBy, &v.IsUsed, &v.ExpiresAt,
			&v.ParentEmail, &v.ParentName, &v.CreatedAt, &v.UpdatedAt,
			&v.Patient.ID, &v.Patient.Name, &v.Patient.DateOfBirth, &v.Issuer.ID, &v.Issuer.Name); err != nil {
			return nil, apperr.FromDB(err, "scan verification code", "")
		}
		items = append(items, &v)
	}
	return items, apperr.FromDB(rows.Err(), "list verification codes", "")
}

func (r *repoPG) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM verification_code WHERE expires_at < $1`, before)
	if err != nil {
		return 0, apperr.FromDB(err, "purge expired codes", "")
	}
	return tag.RowsAffected(), nil
}
