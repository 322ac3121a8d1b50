package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type Patient struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	DateOfBirth      time.Time  `json:"dateOfBirth"`
	Gender           string     `json:"gender"`
	ContactNumber    string     `json:"contactNumber"`
	Email            string     `json:"email,omitempty"`
	Address          string     `json:"address,omitempty"`
	GuardianName     string     `json:"guardianName,omitempty"`
	GuardianContact  string     `json:"guardianContact,omitempty"`
	GuardianRelation string     `json:"guardianRelation,omitempty"`
	ParentUserID     *uuid.UUID `json:"parentUser,omitempty"`
	IsActive         bool       `json:"isActive"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Linked reports whether a parent account owns the patient.
func (p *Patient) Linked() bool {
	return p.ParentUserID != nil && *p.ParentUserID != uuid.Nil
}

// OwnedBy reports whether parentID is the linked parent.
func (p *Patient) OwnedBy(parentID uuid.UUID) bool {
	return p.Linked() && *p.ParentUserID == parentID
}

var genders = map[string]bool{"Male": true, "Female": true, "Other": true}

type CreateRequest struct {
	Name             string `json:"name" validate:"required" message:"Name is required"`
	DateOfBirth      string `json:"dateOfBirth" validate:"required" message:"Valid date of birth is required"`
	Gender           string `json:"gender" validate:"oneof=Male Female Other" message:"Invalid gender"`
	ContactNumber    string `json:"contactNumber" validate:"required" message:"Contact number is required"`
	Email            string `json:"email" validate:"omitempty,email" message:"Valid email is required"`
	Address          string `json:"address"`
	GuardianName     string `json:"guardianName"`
	GuardianContact  string `json:"guardianContact"`
	GuardianRelation string `json:"guardianRelation"`
}

func (r CreateRequest) toPatient() (*Patient, error) {
	dob, err := ParseDate(r.DateOfBirth)
	if err != nil {
		return nil, apperr.Validation("Valid date of birth is required")
	}
	return &Patient{
		Name:             strings.TrimSpace(r.Name),
		DateOfBirth:      dob,
		Gender:           r.Gender,
		ContactNumber:    strings.TrimSpace(r.ContactNumber),
		Email:            strings.ToLower(strings.TrimSpace(r.Email)),
		Address:          strings.TrimSpace(r.Address),
		GuardianName:     strings.TrimSpace(r.GuardianName),
		GuardianContact:  strings.TrimSpace(r.GuardianContact),
		GuardianRelation: strings.TrimSpace(r.GuardianRelation),
		IsActive:         true,
	}, nil
}

// UpdateRequest carries a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name             *string `json:"name"`
	DateOfBirth      *string `json:"dateOfBirth"`
	Gender           *string `json:"gender"`
	ContactNumber    *string `json:"contactNumber"`
	Email            *string `json:"email"`
	Address          *string `json:"address"`
	GuardianName     *string `json:"guardianName"`
	GuardianContact  *string `json:"guardianContact"`
	GuardianRelation *string `json:"guardianRelation"`
}

func (r UpdateRequest) apply(p *Patient) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return apperr.Validation("Name is required")
		}
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.DateOfBirth != nil {
		dob, err := ParseDate(*r.DateOfBirth)
		if err != nil {
			return apperr.Validation("Valid date of birth is required")
		}
		p.DateOfBirth = dob
	}
	if r.Gender != nil {
		if !genders[*r.Gender] {
			return apperr.Validation("Invalid gender")
		}
		p.Gender = *r.Gender
	}
	if r.ContactNumber != nil {
		p.ContactNumber = strings.TrimSpace(*r.ContactNumber)
	}
	if r.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Address != nil {
		p.Address = strings.TrimSpace(*r.Address)
	}
	if r.GuardianName != nil {
		p.GuardianName = strings.TrimSpace(*r.GuardianName)
	}
	if r.GuardianContact != nil {
		p.GuardianContact = strings.TrimSpace(*r.GuardianContact)
	}
	if r.GuardianRelation != nil {
		p.GuardianRelation = strings.TrimSpace(*r.GuardianRelation)
	}
	return nil
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// ListFilter narrows List. A non-nil ParentID restricts results to that
// parent's children.
type ListFilter struct {
	Search   string
	Gender   string
	ParentID *uuid.UUID
	Limit    int
	Offset   int
}
