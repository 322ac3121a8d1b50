package linking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
)

// ErrCodeCollision marks an insert that hit the unique index on code.
var ErrCodeCollision = errors.New("verification code already exists")

func codeCollision() error {
	return &apperr.Error{Kind: apperr.KindConflict, Message: "Verification code collision", Err: ErrCodeCollision}
}

type Repository interface {
	// DeleteUnusedForPatient removes every unused code for the patient.
	DeleteUnusedForPatient(ctx context.Context, patientID uuid.UUID) (int64, error)
	Create(ctx context.Context, vc *VerificationCode) error
	// FindRedeemable returns the unused code matching patient and code that
	// is still valid at now, or a NotFound error.
	FindRedeemable(ctx context.Context, patientID uuid.UUID, code string, now time.Time) (*VerificationCode, error)
	// MarkUsed flips is_used only while the code is unused and unexpired and
	// reports whether it did.
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ListUnused(ctx context.Context) ([]*CodeView, error)
	// PurgeExpired hard-deletes codes that expired before the cutoff.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
