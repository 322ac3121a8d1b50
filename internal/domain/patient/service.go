package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

const (
	msgAccessDenied = "Patient not found or access denied"
	msgChildDenied  = "Child not found or access denied"
)

type Service struct {
	patients Repository
}

func NewService(patients Repository) *Service {
	return &Service{patients: patients}
}

// List returns active patients. Parents only ever see their own children.
func (s *Service) List(ctx context.Context, caller auth.Principal, f ListFilter) ([]*Patient, int, error) {
	if caller.Role == auth.RoleParent {
		id := caller.UserID
		f.ParentID = &id
	}
	return s.patients.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) && caller.Role == auth.RoleParent {
			return nil, apperr.NotFound(msgAccessDenied)
		}
		return nil, err
	}
	if caller.Role == auth.RoleParent && !p.OwnedBy(caller.UserID) {
		return nil, apperr.NotFound(msgAccessDenied)
	}
	return p, nil
}

// Create stores a new patient. A parent creating a record becomes its
// linked parent.
func (s *Service) Create(ctx context.Context, caller auth.Principal, req CreateRequest) (*Patient, error) {
	p, err := req.toPatient()
	if err != nil {
		return nil, err
	}
	if caller.Role == auth.RoleParent {
		id := caller.UserID
		p.ParentUserID = &id
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.SoftDelete(ctx, id)
}

// Children returns the parent's active children ordered by name.
func (s *Service) Children(ctx context.Context, parentID uuid.UUID) ([]*Patient, error) {
	return s.patients.ListChildren(ctx, parentID)
}

// Child returns one of the parent's active children.
func (s *Service) Child(ctx context.Context, parentID, childID uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, childID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound(msgChildDenied)
		}
		return nil, err
	}
	if !p.IsActive || !p.OwnedBy(parentID) {
		return nil, apperr.NotFound(msgChildDenied)
	}
	return p, nil
}
