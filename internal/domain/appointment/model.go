package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient"`
	PatientName    string     `json:"patientName"`
	ParentUserID   uuid.UUID  `json:"parentUser"`
	ParentName     string     `json:"parentName,omitempty"`
	ParentEmail    string     `json:"parentEmail,omitempty"`
	VaccineName    string     `json:"vaccineName"`
	ImmunizationID *uuid.UUID `json:"immunizationId,omitempty"`
	PreferredDate  time.Time  `json:"preferredDate"`
	Notes          string     `json:"notes,omitempty"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type CreateRequest struct {
	PatientID      string `json:"patientId" validate:"required,uuid" message:"Patient ID is required"`
	VaccineName    string `json:"vaccineName" validate:"required" message:"Vaccine name is required"`
	ImmunizationID string `json:"immunizationId" validate:"omitempty,uuid" message:"Invalid immunization id"`
	PreferredDate  string `json:"preferredDate" validate:"required" message:"Valid preferred date is required"`
	Notes          string `json:"notes"`
}

func (r CreateRequest) toAppointment() (*Appointment, error) {
	patientID, err := uuid.Parse(r.PatientID)
	if err != nil {
		return nil, apperr.Validation("Patient ID is required")
	}
	a := &Appointment{
		PatientID:   patientID,
		VaccineName: strings.TrimSpace(r.VaccineName),
		Notes:       strings.TrimSpace(r.Notes),
		Status:      StatusPending,
	}
	if a.VaccineName == "" {
		return nil, apperr.Validation("Vaccine name is required")
	}
	if a.PreferredDate, err = patient.ParseDate(r.PreferredDate); err != nil {
		return nil, apperr.Validation("Valid preferred date is required")
	}
	if r.ImmunizationID != "" {
		id, err := uuid.Parse(r.ImmunizationID)
		if err != nil {
			return nil, apperr.Validation("Invalid immunization id")
		}
		a.ImmunizationID = &id
	}
	return a, nil
}

type StatusRequest struct {
	Status string `json:"status"`
}
