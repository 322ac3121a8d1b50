package user

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

type Service struct {
	users  Repository
	tokens *auth.TokenIssuer
}

func NewService(users Repository, tokens *auth.TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates an active account and returns it with a fresh token.
// The request is expected to have passed validation already.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, "", apperr.Validation("Invalid role")
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, "", apperr.Conflict("User already exists")
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}
	u := &User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, "", apperr.Conflict("User already exists")
		}
		return nil, "", err
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", apperr.Validation("Please provide email and password")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, "", apperr.Unauthenticated("Invalid credentials")
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, "", apperr.Unauthenticated("Invalid credentials")
	}
	if !u.IsActive {
		return nil, "", apperr.Unauthenticated("Account is deactivated")
	}

	token, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// ResolvePrincipal reloads the account behind a token so that email, role
// and deactivation changes apply to the next request.
func (s *Service) ResolvePrincipal(ctx context.Context, id uuid.UUID) (auth.Principal, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return auth.Principal{}, apperr.Unauthenticated("Not authorized, user not found")
		}
		return auth.Principal{}, err
	}
	if !u.IsActive {
		return auth.Principal{}, apperr.Unauthenticated("Account is deactivated")
	}
	return auth.Principal{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// UpdateProfile changes name and email, and the password when NewPassword
// is set. Changing the password requires the current one.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req ProfileRequest) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != u.Email {
		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != u.ID:
			return nil, apperr.Validation("Email already in use")
		case err != nil && !apperr.IsKind(err, apperr.KindNotFound):
			return nil, err
		}
	}

	u.Name = strings.TrimSpace(req.Name)
	u.Email = email

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, apperr.Validation("Current password is required to change password")
		}
		if !auth.CheckPassword(u.PasswordHash, req.CurrentPassword) {
			return nil, apperr.Validation("Current password is incorrect")
		}
		if !auth.StrongPassword(req.NewPassword) {
			return nil, apperr.Validation("New password must be at least 8 characters and contain uppercase, lowercase, number, and special character")
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	if err := s.users.Update(ctx, u); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, apperr.Validation("Email already in use")
		}
		return nil, err
	}
	return u, nil
}

// StaffIDs returns the active users holding any of roles.
func (s *Service) StaffIDs(ctx context.Context, roles ...auth.Role) ([]uuid.UUID, error) {
	users, err := s.users.ListActiveByRoles(ctx, roles...)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}
