package appointment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/notification"
)

// Notifier hands a message off for best-effort delivery.
type Notifier interface {
	Dispatch(ctx context.Context, msg notification.Message)
}

// StaffDirectory resolves the users who receive appointment requests.
type StaffDirectory interface {
	StaffIDs(ctx context.Context, roles ...auth.Role) ([]uuid.UUID, error)
}

var statusTemplates = map[Status]string{
	StatusConfirmed: notification.TemplateAppointmentConfirmed,
	StatusCancelled: notification.TemplateAppointmentCancelled,
	StatusCompleted: notification.TemplateAppointmentCompleted,
}

type Service struct {
	appointments Repository
	patients     patient.Repository
	staff        StaffDirectory
	notifier     Notifier
	templates    *notification.TemplateEngine
	logger       zerolog.Logger
}

func NewService(appointments Repository, patients patient.Repository, staff StaffDirectory,
	notifier Notifier, templates *notification.TemplateEngine, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		patients:     patients,
		staff:        staff,
		notifier:     notifier,
		templates:    templates,
		logger:       logger.With().Str("component", "appointment").Logger(),
	}
}

// Create files a request for one of the caller's children and tells every
// doctor and nurse about it.
func (s *Service) Create(ctx context.Context, caller auth.Principal, req CreateRequest) (*Appointment, error) {
	a, err := req.toAppointment()
	if err != nil {
		return nil, err
	}
	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if p == nil || !p.OwnedBy(caller.UserID) {
		return nil, apperr.NotFound("Patient not found or access denied")
	}

	a.ParentUserID = caller.UserID
	a.PatientName = p.Name
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.notifyStaff(ctx, a)
	return a, nil
}

func (s *Service) notifyStaff(ctx context.Context, a *Appointment) {
	ids, err := s.staff.StaffIDs(ctx, auth.RoleDoctor, auth.RoleNurse)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("look up staff for appointment notice")
		return
	}
	data := map[string]string{
		"patient_name": a.PatientName,
		"vaccine_name": a.VaccineName,
		"date":         notification.FormatDate(a.PreferredDate),
	}
	for _, id := range ids {
		s.dispatch(ctx, notification.TemplateAppointmentRequested, data, id, a)
	}
}

func (s *Service) dispatch(ctx context.Context, templateID string, data map[string]string, to uuid.UUID, a *Appointment) {
	patientID := a.PatientID
	msg, err := s.templates.Compose(templateID, data, notification.Message{
		UserID:         to,
		PatientID:      &patientID,
		ImmunizationID: a.ImmunizationID,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("template", templateID).Msg("compose appointment notice")
		return
	}
	s.notifier.Dispatch(ctx, msg)
}

func (s *Service) Mine(ctx context.Context, parentID uuid.UUID) ([]*Appointment, error) {
	return s.appointments.ListByParent(ctx, parentID)
}

// Cancel cancels one of the caller's own appointments.
func (s *Service) Cancel(ctx context.Context, caller auth.Principal, id uuid.UUID) (*Appointment, error) {
	parentID := caller.UserID
	if err := s.appointments.SetStatus(ctx, id, &parentID, StatusCancelled); err != nil {
		return nil, err
	}
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status) ([]*Appointment, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	return s.appointments.List(ctx, status)
}

// UpdateStatus is the staff transition. The parent hears about every
// change except a return to Pending.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}
	if err := s.appointments.SetStatus(ctx, id, nil, status); err != nil {
		return nil, err
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if templateID, ok := statusTemplates[status]; ok {
		s.dispatch(ctx, templateID, map[string]string{
			"patient_name": a.PatientName,
			"vaccine_name": a.VaccineName,
			"date":         notification.FormatDate(a.PreferredDate),
		}, a.ParentUserID, a)
	}
	return a, nil
}

func statusMessage(status Status) string {
	return "Appointment " + strings.ToLower(string(status))
}
