package linking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VerificationCode is a single-use token that lets the parent owning
// ParentEmail link themselves to PatientID before ExpiresAt.
type VerificationCode struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patientId"`
	Code        string    `json:"code"`
	GeneratedBy uuid.UUID `json:"generatedBy"`
	IsUsed      bool      `json:"isUsed"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ParentEmail string    `json:"parentEmail"`
	ParentName  string    `json:"parentName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Redeemable reports whether the code can still be used at now.
func (v *VerificationCode) Redeemable(now time.Time) bool {
	return !v.IsUsed && v.ExpiresAt.After(now)
}

type PatientRef struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DateOfBirth time.Time `json:"dateOfBirth"`
}

type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// CodeView is an unused code joined with its patient and issuer.
type CodeView struct {
	VerificationCode
	Patient PatientRef `json:"patient"`
	Issuer  UserRef    `json:"issuer"`
}

type IssueRequest struct {
	PatientID   string `json:"patientId" validate:"required" message:"Patient ID is required"`
	ParentEmail string `json:"parentEmail" validate:"required,email" message:"Valid parent email is required"`
	ParentName  string `json:"parentName" validate:"required" message:"Parent name is required"`
}

type IssueResult struct {
	Code        string    `json:"code"`
	PatientName string    `json:"patientName"`
	ParentName  string    `json:"parentName"`
	ParentEmail string    `json:"parentEmail"`
	ExpiresAt   time.Time `json:"expiresAt"`
	PatientID   uuid.UUID `json:"patientId"`
}

type LinkRequest struct {
	ChildID          string   `json:"childId"`
	VerificationCode CodeText `json:"verificationCode"`
}

// CodeText accepts a code sent as either a JSON string or a JSON number.
type CodeText string

func (c *CodeText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = CodeText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CodeText(n.String())
	return nil
}
