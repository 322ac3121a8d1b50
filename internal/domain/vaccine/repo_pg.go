package vaccine

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

const vaccineCols = `id, name, manufacturer, quantity, expiry_date, batch_number, min_stock_level,
	is_active, created_at, updated_at`

const notFoundMsg = "Vaccine not found"

func scanVaccine(row pgx.Row) (*Vaccine, error) {
	var v Vaccine
	err := row.Scan(&v.ID, &v.Name, &v.Manufacturer, &v.Quantity, &v.ExpiryDate, &v.BatchNumber,
		&v.MinStockLevel, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Vaccine) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine (id, name, manufacturer, quantity, expiry_date, batch_number, min_stock_level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		v.ID, v.Name, v.Manufacturer, v.Quantity, v.ExpiryDate, v.BatchNumber, v.MinStockLevel, v.IsActive,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	return apperr.FromDB(err, "insert vaccine", "")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	v, err := scanVaccine(r.conn(ctx).QueryRow(ctx, `SELECT `+vaccineCols+` FROM vaccine WHERE id = $1`, id))
	if err != nil {
		return nil, apperr.FromDB(err, "get vaccine", notFoundMsg)
	}
	return v, nil
}

func (r *repoPG) Update(ctx context.Context, v *Vaccine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE vaccine SET name = $2, manufacturer = $3, quantity = $4, expiry_date = $5,
			batch_number = $6, min_stock_level = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		v.ID, v.Name, v.Manufacturer, v.Quantity, v.ExpiryDate, v.BatchNumber, v.MinStockLevel,
	).Scan(&v.UpdatedAt)
	return apperr.FromDB(err, "update vaccine", notFoundMsg)
}

func (r *repoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE vaccine SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "delete vaccine", notFoundMsg)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notFoundMsg)
	}
	return nil
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Vaccine, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vaccineCols+` FROM vaccine WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, apperr.FromDB(err, "list vaccines", "")
	}
	return collect(rows)
}

func (r *repoPG) ListLowStock(ctx context.Context) ([]*Vaccine, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vaccineCols+` FROM vaccine
		WHERE is_active AND quantity <= min_stock_level ORDER BY quantity, name`)
	if err != nil {
		return nil, apperr.FromDB(err, "list low stock vaccines", "")
	}
	return collect(rows)
}

func (r *repoPG) Upsert(ctx context.Context, v *Vaccine) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO vaccine (id, name, manufacturer, quantity, expiry_date, batch_number, min_stock_level, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		ON CONFLICT (name) DO UPDATE SET manufacturer = EXCLUDED.manufacturer, quantity = EXCLUDED.quantity,
			expiry_date = EXCLUDED.expiry_date, batch_number = EXCLUDED.batch_number,
			min_stock_level = EXCLUDED.min_stock_level, is_active = TRUE, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		uuid.New(), v.Name, v.Manufacturer, v.Quantity, v.ExpiryDate, v.BatchNumber, v.MinStockLevel,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err == nil {
		v.IsActive = true
	}
	return apperr.FromDB(err, "upsert vaccine", "")
}

func collect(rows pgx.Rows) ([]*Vaccine, error) {
	defer rows.Close()
	var items []*Vaccine
	for rows.Next() {
		v, err := scanVaccine(rows)
		if err != nil {
			return nil, apperr.FromDB(err, "scan vaccine", "")
		}
		items = append(items, v)
	}
	return items, apperr.FromDB(rows.Err(), "read vaccines", "")
}
