package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type signup struct {
	Name     string `validate:"required" message:"Name is required"`
	Email    string `validate:"required,email" message:"Valid email is required"`
	Password string `validate:"strongpassword" message:"Password is too weak"`
	Role     string `validate:"role" message:"Invalid role"`
	Nickname string `validate:"max=3"`
}

func TestValidate(t *testing.T) {
	v := New()
	ok := signup{Name: "Ann", Email: "ann@example.com", Password: "Secret1!", Role: "Parent"}

	tests := []struct {
		name    string
		mutate  func(s *signup)
		wantMsg string
	}{
		{"valid", func(s *signup) {}, ""},
		{"missing name", func(s *signup) { s.Name = "" }, "Name is required"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "Valid email is required"},
		{"weak password", func(s *signup) { s.Password = "password" }, "Password is too weak"},
		{"unknown role", func(s *signup) { s.Role = "Janitor" }, "Invalid role"},
		{"no message tag", func(s *signup) { s.Nickname = "toolong" }, "nickname is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mutate(&s)
			err := v.Validate(&s)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}
