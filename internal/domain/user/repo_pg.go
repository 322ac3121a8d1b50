package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
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

const userCols = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.Email = strings.ToLower(u.Email)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive).Scan(&u.CreatedAt, &u.UpdatedAt)
	return apperr.FromDB(err, "insert user", "")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "get user", "User not found")
	}
	return u, nil
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, apperr.FromDB(err, "get user by email", "User not found")
	}
	return u, nil
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(u.Email)
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET name = $2, email = $3, password_hash = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.UpdatedAt)
	return apperr.FromDB(err, "update user", "User not found")
}

func (r *repoPG) ListActiveByRoles(ctx context.Context, roles ...auth.Role) ([]*User, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users WHERE is_active AND role = ANY($1) ORDER BY name`, names)
	if err != nil {
		return nil, apperr.FromDB(err, "list users by role", "")
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "scan user", "")
		}
		items = append(items, u)
	}
	return items, apperr.FromDB(rows.Err(), "list users by role", "")
}
