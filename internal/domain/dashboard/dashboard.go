// Package dashboard serves clinic-wide counts and the vaccine coverage
// report.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

// Horizon is how far ahead a Due dose counts as upcoming.
const Horizon = 30 * 24 * time.Hour

const recentLimit = 5

type Counts struct {
	TotalPatients         int `json:"totalPatients"`
	TotalImmunizations    int `json:"totalImmunizations"`
	UpcomingImmunizations int `json:"upcomingImmunizations"`
	OverdueImmunizations  int `json:"overdueImmunizations"`
	LowStockVaccines      int `json:"lowStockVaccines"`
}

type Stats struct {
	Counts
	RecentImmunizations []*immunization.Immunization `json:"recentImmunizations"`
}

type Coverage struct {
	VaccineName string `json:"vaccineName"`
	Count       int    `json:"count"`
}

type Store interface {
	Counts(ctx context.Context, now, horizon time.Time) (Counts, error)
	// Coverage counts records per vaccine, most common first.
	Coverage(ctx context.Context) ([]Coverage, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) Counts(ctx context.Context, now, horizon time.Time) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patient WHERE is_active),
			(SELECT COUNT(*) FROM immunization),
			(SELECT COUNT(*) FROM immunization WHERE status = 'Due' AND next_due_date BETWEEN $1 AND $2),
			(SELECT COUNT(*) FROM immunization WHERE status = 'Overdue' AND next_due_date < $1),
			(SELECT COUNT(*) FROM vaccine WHERE is_active AND quantity <= min_stock_level)`,
		now, horizon,
	).Scan(&c.TotalPatients, &c.TotalImmunizations, &c.UpcomingImmunizations, &c.OverdueImmunizations, &c.LowStockVaccines)
	return c, apperr.FromDB(err, "dashboard counts", "")
}

func (s *storePG) Coverage(ctx context.Context) ([]Coverage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT vaccine_name, COUNT(*) FROM immunization
		GROUP BY vaccine_name ORDER BY COUNT(*) DESC, vaccine_name`)
	if err != nil {
		return nil, apperr.FromDB(err, "coverage report", "")
	}
	defer rows.Close()
	var out []Coverage
	for rows.Next() {
		var c Coverage
		if err := rows.Scan(&c.VaccineName, &c.Count); err != nil {
			return nil, apperr.FromDB(err, "scan coverage", "")
		}
		out = append(out, c)
	}
	return out, apperr.FromDB(rows.Err(), "read coverage", "")
}

type Service struct {
	store         Store
	immunizations immunization.Repository
	now           func() time.Time
}

func NewService(store Store, immunizations immunization.Repository) *Service {
	return &Service{store: store, immunizations: immunizations, now: time.Now}
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	counts, err := s.store.Counts(ctx, now, now.Add(Horizon))
	if err != nil {
		return nil, err
	}
	recent, _, err := s.immunizations.List(ctx, immunization.ListFilter{Limit: recentLimit})
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*immunization.Immunization{}
	}
	return &Stats{Counts: counts, RecentImmunizations: recent}, nil
}

func (s *Service) Coverage(ctx context.Context) ([]Coverage, error) {
	return s.store.Coverage(ctx)
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.Require(auth.CapDashboardRead))
	g.GET("/stats", h.Stats)
	g.GET("/coverage", h.Coverage)
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": stats})
}

func (h *Handler) Coverage(c echo.Context) error {
	items, err := h.svc.Coverage(c.Request().Context())
	if err != nil {
		return err
	}
	if items == nil {
		items = []Coverage{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": items})
}
