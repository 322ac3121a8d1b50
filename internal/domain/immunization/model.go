package immunization

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
)

type Status string

const (
	StatusCompleted Status = "Completed"
	StatusDue       Status = "Due"
	StatusOverdue   Status = "Overdue"
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusDue || s == StatusOverdue
}

type Immunization struct {
	ID                 uuid.UUID  `json:"id"`
	PatientID          uuid.UUID  `json:"patient"`
	PatientName        string     `json:"patientName,omitempty"`
	VaccineName        string     `json:"vaccineName"`
	DateAdministered   time.Time  `json:"dateAdministered"`
	BatchNumber        string     `json:"batchNumber"`
	NextDueDate        *time.Time `json:"nextDueDate,omitempty"`
	AdministeredBy     uuid.UUID  `json:"administeredBy"`
	AdministeredByName string     `json:"administeredByName,omitempty"`
	Notes              string     `json:"notes,omitempty"`
	Status             Status     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	Patient          string `json:"patient" validate:"required,uuid" message:"Patient ID is required"`
	VaccineName      string `json:"vaccineName" validate:"required" message:"Vaccine name is required"`
	DateAdministered string `json:"dateAdministered" validate:"required" message:"Valid date is required"`
	BatchNumber      string `json:"batchNumber" validate:"required" message:"Batch number is required"`
	NextDueDate      string `json:"nextDueDate"`
	Notes            string `json:"notes"`
	Status           string `json:"status" validate:"omitempty,oneof=Completed Due Overdue" message:"Invalid status"`
}

func (r CreateRequest) toImmunization() (*Immunization, error) {
	patientID, err := uuid.Parse(r.Patient)
	if err != nil {
		return nil, apperr.Validation("Patient ID is required")
	}
	im := &Immunization{
		PatientID:   patientID,
		VaccineName: strings.TrimSpace(r.VaccineName),
		BatchNumber: strings.TrimSpace(r.BatchNumber),
		Notes:       strings.TrimSpace(r.Notes),
		Status:      StatusCompleted,
	}
	if im.VaccineName == "" {
		return nil, apperr.Validation("Vaccine name is required")
	}
	if im.BatchNumber == "" {
		return nil, apperr.Validation("Batch number is required")
	}
	if im.DateAdministered, err = patient.ParseDate(r.DateAdministered); err != nil {
		return nil, apperr.Validation("Valid date is required")
	}
	if strings.TrimSpace(r.NextDueDate) != "" {
		due, err := patient.ParseDate(r.NextDueDate)
		if err != nil {
			return nil, apperr.Validation("Valid next due date is required")
		}
		im.NextDueDate = &due
	}
	if r.Status != "" {
		im.Status = Status(r.Status)
	}
	return im, nil
}

// UpdateRequest carries a partial update. An empty NextDueDate clears it.
type UpdateRequest struct {
	VaccineName      *string `json:"vaccineName"`
	DateAdministered *string `json:"dateAdministered"`
	BatchNumber      *string `json:"batchNumber"`
	NextDueDate      *string `json:"nextDueDate"`
	Notes            *string `json:"notes"`
	Status           *string `json:"status"`
}

func (r UpdateRequest) apply(im *Immunization) error {
	if r.VaccineName != nil {
		if strings.TrimSpace(*r.VaccineName) == "" {
			return apperr.Validation("Vaccine name is required")
		}
		im.VaccineName = strings.TrimSpace(*r.VaccineName)
	}
	if r.DateAdministered != nil {
		t, err := patient.ParseDate(*r.DateAdministered)
		if err != nil {
			return apperr.Validation("Valid date is required")
		}
		im.DateAdministered = t
	}
	if r.BatchNumber != nil {
		if strings.TrimSpace(*r.BatchNumber) == "" {
			return apperr.Validation("Batch number is required")
		}
		im.BatchNumber = strings.TrimSpace(*r.BatchNumber)
	}
	if r.NextDueDate != nil {
		if strings.TrimSpace(*r.NextDueDate) == "" {
			im.NextDueDate = nil
		} else {
			due, err := patient.ParseDate(*r.NextDueDate)
			if err != nil {
				return apperr.Validation("Valid next due date is required")
			}
			im.NextDueDate = &due
		}
	}
	if r.Notes != nil {
		im.Notes = strings.TrimSpace(*r.Notes)
	}
	if r.Status != nil {
		s := Status(*r.Status)
		if !s.Valid() {
			return apperr.Validation("Invalid status")
		}
		im.Status = s
	}
	return nil
}

type ListFilter struct {
	PatientID *uuid.UUID
	// PatientIDs restricts results to the given patients when non-nil. An
	// empty non-nil slice matches nothing.
	PatientIDs []uuid.UUID
	Status     Status
	Limit      int
	Offset     int
}
