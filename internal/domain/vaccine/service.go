package vaccine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type Service struct {
	vaccines Repository
}

func NewService(vaccines Repository) *Service {
	return &Service{vaccines: vaccines}
}

func (s *Service) List(ctx context.Context) ([]*Vaccine, error) {
	return s.vaccines.ListActive(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]*Vaccine, error) {
	return s.vaccines.ListLowStock(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Vaccine, error) {
	return s.vaccines.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Vaccine, error) {
	v, err := req.toVaccine()
	if err != nil {
		return nil, err
	}
	if err := s.vaccines.Create(ctx, v); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict("Vaccine %s already exists", v.Name)
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Vaccine, error) {
	v, err := s.vaccines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(v); err != nil {
		return nil, err
	}
	if err := s.vaccines.Update(ctx, v); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Conflict("Vaccine %s already exists", v.Name)
		}
		return nil, err
	}
	return v, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.vaccines.SoftDelete(ctx, id)
}

// Seed upserts each vaccine by name and returns how many were written.
func (s *Service) Seed(ctx context.Context, inventory []Vaccine) (int, error) {
	for i := range inventory {
		v := inventory[i]
		if err := s.vaccines.Upsert(ctx, &v); err != nil {
			return i, fmt.Errorf("seed %s: %w", v.Name, err)
		}
	}
	return len(inventory), nil
}
