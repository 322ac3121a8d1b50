// Package portal serves the parent-facing views of linked children and
// their immunization records.
package portal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
)

// Horizon is how far ahead a Due dose counts as upcoming on the dashboard.
const Horizon = 30 * 24 * time.Hour

const recentLimit = 5

type Dashboard struct {
	TotalChildren         int                          `json:"totalChildren"`
	TotalImmunizations    int                          `json:"totalImmunizations"`
	UpcomingImmunizations int                          `json:"upcomingImmunizations"`
	OverdueImmunizations  int                          `json:"overdueImmunizations"`
	UnreadNotifications   int                          `json:"unreadNotifications"`
	RecentImmunizations   []*immunization.Immunization `json:"recentImmunizations"`
	Children              []*patient.Patient           `json:"children"`
}

// DueStore counts outstanding doses across a set of patients.
type DueStore interface {
	DueCounts(ctx context.Context, patientIDs []uuid.UUID, now, horizon time.Time) (upcoming, overdue int, err error)
}

type dueStorePG struct{ pool *pgxpool.Pool }

func NewDueStorePG(pool *pgxpool.Pool) DueStore {
	return &dueStorePG{pool: pool}
}

func (s *dueStorePG) DueCounts(ctx context.Context, patientIDs []uuid.UUID, now, horizon time.Time) (int, int, error) {
	var upcoming, overdue int
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'Due' AND next_due_date BETWEEN $2 AND $3),
			COUNT(*) FILTER (WHERE status = 'Overdue' AND next_due_date < $2)
		FROM immunization WHERE patient_id = ANY($1)`,
		patientIDs, now, horizon,
	).Scan(&upcoming, &overdue)
	return upcoming, overdue, apperr.FromDB(err, "count due immunizations", "")
}

type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	patients      *patient.Service
	immunizations *immunization.Service
	due           DueStore
	inbox         UnreadCounter
	now           func() time.Time
}

func NewService(patients *patient.Service, immunizations *immunization.Service, due DueStore, inbox UnreadCounter) *Service {
	return &Service{
		patients:      patients,
		immunizations: immunizations,
		due:           due,
		inbox:         inbox,
		now:           time.Now,
	}
}

func (s *Service) Dashboard(ctx context.Context, parentID uuid.UUID) (*Dashboard, error) {
	children, err := s.patients.Children(ctx, parentID)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{
		TotalChildren:       len(children),
		Children:            children,
		RecentImmunizations: []*immunization.Immunization{},
	}
	if d.Children == nil {
		d.Children = []*patient.Patient{}
	}

	if len(children) > 0 {
		ids := make([]uuid.UUID, len(children))
		for i, c := range children {
			ids[i] = c.ID
		}
		recent, total, err := s.immunizations.List(ctx, immunization.ListFilter{PatientIDs: ids, Limit: recentLimit})
		if err != nil {
			return nil, err
		}
		d.TotalImmunizations = total
		if recent != nil {
			d.RecentImmunizations = recent
		}
		now := s.now()
		d.UpcomingImmunizations, d.OverdueImmunizations, err = s.due.DueCounts(ctx, ids, now, now.Add(Horizon))
		if err != nil {
			return nil, err
		}
	}

	if d.UnreadNotifications, err = s.inbox.UnreadCount(ctx, parentID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Children(ctx context.Context, parentID uuid.UUID) ([]*patient.Patient, error) {
	return s.patients.Children(ctx, parentID)
}

func (s *Service) Child(ctx context.Context, parentID, childID uuid.UUID) (*patient.Patient, error) {
	return s.patients.Child(ctx, parentID, childID)
}

// History returns the child's records newest first.
func (s *Service) History(ctx context.Context, parentID, childID uuid.UUID) ([]*immunization.Immunization, error) {
	if _, err := s.patients.Child(ctx, parentID, childID); err != nil {
		return nil, err
	}
	return s.immunizations.ForPatient(ctx, childID)
}

func (s *Service) Upcoming(ctx context.Context, parentID, childID uuid.UUID) ([]*immunization.Immunization, error) {
	if _, err := s.patients.Child(ctx, parentID, childID); err != nil {
		return nil, err
	}
	return s.immunizations.Upcoming(ctx, childID)
}
