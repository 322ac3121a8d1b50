package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/auth"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	ListActiveByRoles(ctx context.Context, roles ...auth.Role) ([]*User, error)
}
