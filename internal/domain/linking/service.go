package linking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/db"
	"github.com/clinic/immunize/internal/platform/notification"
)

const (
	DefaultCodeTTL = 48 * time.Hour

	// Issuance is retried in a fresh transaction when the generated code
	// collides with an existing one.
	maxIssueAttempts = 3
)

// Notifier hands a message to the notification sink without waiting for it.
type Notifier interface {
	Dispatch(ctx context.Context, msg notification.Message)
}

type Service struct {
	codes     Repository
	patients  patient.Repository
	tx        db.Transactor
	notifier  Notifier
	templates *notification.TemplateEngine
	logger    zerolog.Logger

	ttl     time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Service)

func WithCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(codes Repository, patients patient.Repository, tx db.Transactor, notifier Notifier,
	templates *notification.TemplateEngine, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		codes:     codes,
		patients:  patients,
		tx:        tx,
		notifier:  notifier,
		templates: templates,
		logger:    logger.With().Str("component", "linking").Logger(),
		ttl:       DefaultCodeTTL,
		now:       time.Now,
		newCode:   GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue mints a code for an unlinked patient, replacing any unused code the
// patient already has. The patient row stays locked for the duration of the
// transaction so concurrent issuance for the same patient serializes.
func (s *Service) Issue(ctx context.Context, caller auth.Principal, req IssueRequest) (*IssueResult, error) {
	if err := auth.Authorize(caller.Role, auth.CapCodeIssue); err != nil {
		return nil, err
	}
	patientID, err := parsePatientID(req.PatientID, "Patient ID is required")
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.ParentEmail))
	name := strings.TrimSpace(req.ParentName)
	if email == "" {
		return nil, apperr.Validation("Valid parent email is required")
	}
	if name == "" {
		return nil, apperr.Validation("Parent name is required")
	}

	for attempt := 1; ; attempt++ {
		res, err := s.issueOnce(ctx, caller.UserID, patientID, email, name)
		if err == nil {
			s.logger.Info().
				Str("patient_id", patientID.String()).
				Str("issued_by", caller.UserID.String()).
				Time("expires_at", res.ExpiresAt).
				Msg("verification code issued")
			return res, nil
		}
		if !isCollision(err) || attempt == maxIssueAttempts {
			if isCollision(err) {
				return nil, apperr.Conflict("Could not generate a unique verification code, please try again")
			}
			return nil, err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("verification code collision, retrying")
	}
}

func isCollision(err error) bool {
	return errors.Is(err, ErrCodeCollision)
}

func (s *Service) issueOnce(ctx context.Context, issuer, patientID uuid.UUID, email, name string) (*IssueResult, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}

	var res *IssueResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetForUpdate(ctx, patientID)
		if err != nil {
			return err
		}
		if p.Linked() {
			return apperr.Conflict("Patient already linked to a parent account")
		}
		if _, err := s.codes.DeleteUnusedForPatient(ctx, patientID); err != nil {
			return err
		}
		vc := &VerificationCode{
			PatientID:   patientID,
			Code:        code,
			GeneratedBy: issuer,
			ExpiresAt:   s.now().Add(s.ttl),
			ParentEmail: email,
			ParentName:  name,
		}
		if err := s.codes.Create(ctx, vc); err != nil {
			return err
		}
		res = &IssueResult{
			Code:        vc.Code,
			PatientName: p.Name,
			ParentName:  vc.ParentName,
			ParentEmail: vc.ParentEmail,
			ExpiresAt:   vc.ExpiresAt,
			PatientID:   p.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ListUnused returns every unused code, newest first.
func (s *Service) ListUnused(ctx context.Context, caller auth.Principal) ([]*CodeView, error) {
	if err := auth.Authorize(caller.Role, auth.CapCodeList); err != nil {
		return nil, err
	}
	return s.codes.ListUnused(ctx)
}

// Link redeems code for the calling parent. The checks run in order and
// the first failure is returned with nothing changed. The code and the
// patient are both updated with compare-and-swap statements inside one
// transaction, so of two concurrent redemptions at most one commits.
func (s *Service) Link(ctx context.Context, caller auth.Principal, req LinkRequest) (*patient.Patient, error) {
	code := strings.TrimSpace(string(req.VerificationCode))
	if strings.TrimSpace(req.ChildID) == "" || code == "" {
		return nil, apperr.Validation("Patient ID and verification code are required")
	}
	patientID, err := parsePatientID(req.ChildID, "Patient ID and verification code are required")
	if err != nil {
		return nil, err
	}

	var linked *patient.Patient
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()

		p, err := s.patients.GetByID(ctx, patientID)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.Validation("Patient not found with the provided ID")
			}
			return err
		}

		vc, err := s.codes.FindRedeemable(ctx, patientID, code, now)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.InvalidCode()
			}
			return err
		}

		if !strings.EqualFold(vc.ParentEmail, caller.Email) {
			return apperr.EmailMismatch(vc.ParentEmail)
		}

		if p.Linked() {
			return apperr.AlreadyLinked()
		}

		ok, err := s.codes.MarkUsed(ctx, vc.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidCode()
		}

		ok, err = s.patients.LinkParent(ctx, patientID, caller.UserID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.AlreadyLinked()
		}

		linked, err = s.patients.GetByID(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", linked.ID.String()).
		Str("parent_id", caller.UserID.String()).
		Msg("child linked to parent")
	s.notifyLinked(ctx, caller.UserID, linked)
	return linked, nil
}

func (s *Service) notifyLinked(ctx context.Context, parentID uuid.UUID, p *patient.Patient) {
	pid := p.ID
	msg, err := s.templates.Compose(notification.TemplateChildLinked,
		map[string]string{"patient_name": p.Name},
		notification.Message{UserID: parentID, PatientID: &pid})
	if err != nil {
		s.logger.Warn().Err(err).Msg("compose link notification")
		return
	}
	s.notifier.Dispatch(ctx, msg)
}

// PurgeExpired removes codes that expired more than grace ago.
func (s *Service) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	n, err := s.codes.PurgeExpired(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info().Int64("deleted", n).Msg("purged expired verification codes")
	}
	return n, nil
}

func parsePatientID(raw, missingMsg string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apperr.Validation("%s", missingMsg)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("Invalid patient id")
	}
	return id, nil
}
