package vaccine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
)

const defaultMinStockLevel = 10

type Vaccine struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Manufacturer  string    `json:"manufacturer"`
	Quantity      int       `json:"quantity"`
	ExpiryDate    time.Time `json:"expiryDate"`
	BatchNumber   string    `json:"batchNumber"`
	MinStockLevel int       `json:"minStockLevel"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// LowStock reports whether the quantity is at or below the minimum level.
func (v *Vaccine) LowStock() bool {
	return v.Quantity <= v.MinStockLevel
}

type CreateRequest struct {
	Name          string `json:"name" validate:"required" message:"Vaccine name is required"`
	Manufacturer  string `json:"manufacturer" validate:"required" message:"Manufacturer is required"`
	Quantity      *int   `json:"quantity" validate:"required,min=0" message:"Valid quantity is required"`
	ExpiryDate    string `json:"expiryDate" validate:"required" message:"Valid expiry date is required"`
	BatchNumber   string `json:"batchNumber" validate:"required" message:"Batch number is required"`
	MinStockLevel *int   `json:"minStockLevel" validate:"omitempty,min=0" message:"Minimum stock level must not be negative"`
}

func (r CreateRequest) toVaccine() (*Vaccine, error) {
	v := &Vaccine{
		Name:          strings.TrimSpace(r.Name),
		Manufacturer:  strings.TrimSpace(r.Manufacturer),
		BatchNumber:   strings.TrimSpace(r.BatchNumber),
		MinStockLevel: defaultMinStockLevel,
		IsActive:      true,
	}
	switch {
	case v.Name == "":
		return nil, apperr.Validation("Vaccine name is required")
	case v.Manufacturer == "":
		return nil, apperr.Validation("Manufacturer is required")
	case r.Quantity == nil || *r.Quantity < 0:
		return nil, apperr.Validation("Valid quantity is required")
	case v.BatchNumber == "":
		return nil, apperr.Validation("Batch number is required")
	}
	v.Quantity = *r.Quantity
	expiry, err := patient.ParseDate(r.ExpiryDate)
	if err != nil {
		return nil, apperr.Validation("Valid expiry date is required")
	}
	v.ExpiryDate = expiry
	if r.MinStockLevel != nil {
		if *r.MinStockLevel < 0 {
			return nil, apperr.Validation("Minimum stock level must not be negative")
		}
		v.MinStockLevel = *r.MinStockLevel
	}
	return v, nil
}

// UpdateRequest carries a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	Name          *string `json:"name"`
	Manufacturer  *string `json:"manufacturer"`
	Quantity      *int    `json:"quantity"`
	ExpiryDate    *string `json:"expiryDate"`
	BatchNumber   *string `json:"batchNumber"`
	MinStockLevel *int    `json:"minStockLevel"`
}

func (r UpdateRequest) apply(v *Vaccine) error {
	if r.Name != nil {
		if strings.TrimSpace(*r.Name) == "" {
			return apperr.Validation("Vaccine name is required")
		}
		v.Name = strings.TrimSpace(*r.Name)
	}
	if r.Manufacturer != nil {
		if strings.TrimSpace(*r.Manufacturer) == "" {
			return apperr.Validation("Manufacturer is required")
		}
		v.Manufacturer = strings.TrimSpace(*r.Manufacturer)
	}
	if r.Quantity != nil {
		if *r.Quantity < 0 {
			return apperr.Validation("Valid quantity is required")
		}
		v.Quantity = *r.Quantity
	}
	if r.ExpiryDate != nil {
		t, err := patient.ParseDate(*r.ExpiryDate)
		if err != nil {
			return apperr.Validation("Valid expiry date is required")
		}
		v.ExpiryDate = t
	}
	if r.BatchNumber != nil {
		if strings.TrimSpace(*r.BatchNumber) == "" {
			return apperr.Validation("Batch number is required")
		}
		v.BatchNumber = strings.TrimSpace(*r.BatchNumber)
	}
	if r.MinStockLevel != nil {
		if *r.MinStockLevel < 0 {
			return apperr.Validation("Minimum stock level must not be negative")
		}
		v.MinStockLevel = *r.MinStockLevel
	}
	return nil
}
