package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/auth"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the user shape returned alongside a token.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

func (u *User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required" message:"Name is required"`
	Email    string `json:"email" validate:"required,email" message:"Valid email is required"`
	Password string `json:"password" validate:"strongpassword" message:"Password must contain at least one lowercase letter, one uppercase letter, one number, and one special character (@$!%*?&)"`
	Role     string `json:"role" validate:"role" message:"Invalid role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name            string `json:"name" validate:"required" message:"Name is required"`
	Email           string `json:"email" validate:"required,email" message:"Valid email is required"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
