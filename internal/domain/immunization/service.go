package immunization

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

type Service struct {
	immunizations Repository
	patients      patient.Repository
	now           func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source used for overdue and upcoming queries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(imm Repository, patients patient.Repository, opts ...Option) *Service {
	s := &Service{immunizations: imm, patients: patients, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Immunization, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("Invalid status")
	}
	return s.immunizations.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Immunization, error) {
	return s.immunizations.GetByID(ctx, id)
}

// Create records a dose given by the caller.
func (s *Service) Create(ctx context.Context, caller auth.Principal, req CreateRequest) (*Immunization, error) {
	if err := auth.Authorize(caller.Role, auth.CapImmunizationWrite); err != nil {
		return nil, err
	}
	im, err := req.toImmunization()
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, im.PatientID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.NotFound("Patient not found")
	}
	im.PatientName = p.Name
	im.AdministeredBy = caller.UserID
	if err := s.immunizations.Create(ctx, im); err != nil {
		return nil, err
	}
	return im, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Immunization, error) {
	im, err := s.immunizations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(im); err != nil {
		return nil, err
	}
	if err := s.immunizations.Update(ctx, im); err != nil {
		return nil, err
	}
	return im, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.immunizations.Delete(ctx, id)
}

func (s *Service) Overdue(ctx context.Context) ([]*Immunization, error) {
	return s.immunizations.ListOverdue(ctx, s.now())
}

// ForPatient returns every record for the patient, newest first, reading
// the repository one page at a time.
func (s *Service) ForPatient(ctx context.Context, patientID uuid.UUID) ([]*Immunization, error) {
	all := make([]*Immunization, 0)
	for offset := 0; ; offset += historyPageSize {
		page, total, err := s.immunizations.List(ctx, ListFilter{PatientID: &patientID, Limit: historyPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < historyPageSize || len(all) >= total {
			return all, nil
		}
	}
}

// Upcoming returns the patient's outstanding doses from now on.
func (s *Service) Upcoming(ctx context.Context, patientID uuid.UUID) ([]*Immunization, error) {
	return s.immunizations.ListUpcoming(ctx, patientID, s.now())
}

const historyPageSize = 200
