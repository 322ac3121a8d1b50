package notification

import (
	"fmt"
	"strings"
	"time"
)

const (
	TemplateChildLinked          = "child-linked"
	TemplateUpcomingImmunization = "upcoming-immunization"
	TemplateOverdueImmunization  = "overdue-immunization"
	TemplateAppointmentRequested = "appointment-requested"
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateAppointmentCancelled = "appointment-cancelled"
	TemplateAppointmentCompleted = "appointment-completed"
)

// Template is a title/body pair with {{key}} placeholders.
type Template struct {
	ID       string
	Type     Type
	Priority Priority
	Title    string
	Body     string
}

// TemplateEngine holds the built-in templates. It is read-only after
// construction and safe for concurrent use.
type TemplateEngine struct {
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range builtIn {
		e.templates[t.ID] = t
	}
	return e
}

var builtIn = []Template{
	{
		ID:       TemplateChildLinked,
		Type:     TypeGeneral,
		Priority: PriorityMedium,
		Title:    "Child Account Linked Successfully",
		Body:     "{{patient_name}} has been successfully linked to your parent account. You can now view their immunization records and receive notifications.",
	},
	{
		ID:       TemplateUpcomingImmunization,
		Type:     TypeUpcomingImmunization,
		Priority: PriorityHigh,
		Title:    "Upcoming Immunization",
		Body:     "{{patient_name}} has an upcoming {{vaccine_name}} immunization due on {{due_date}}",
	},
	{
		ID:       TemplateOverdueImmunization,
		Type:     TypeOverdueImmunization,
		Priority: PriorityHigh,
		Title:    "Overdue Immunization",
		Body:     "{{patient_name}} has an overdue {{vaccine_name}} immunization that was due on {{due_date}}",
	},
	{
		ID:       TemplateAppointmentRequested,
		Type:     TypeAppointmentReminder,
		Priority: PriorityHigh,
		Title:    "New Appointment Request",
		Body:     "{{patient_name}} has requested an appointment for {{vaccine_name}} on {{date}}",
	},
	{
		ID:       TemplateAppointmentConfirmed,
		Type:     TypeAppointmentReminder,
		Priority: PriorityHigh,
		Title:    "Appointment Confirmed",
		Body:     "Your appointment for {{patient_name}}'s {{vaccine_name}} vaccination on {{date}} has been confirmed.",
	},
	{
		ID:       TemplateAppointmentCancelled,
		Type:     TypeAppointmentReminder,
		Priority: PriorityHigh,
		Title:    "Appointment Cancelled",
		Body:     "Your appointment for {{patient_name}}'s {{vaccine_name}} vaccination has been cancelled. Please contact the clinic to reschedule.",
	},
	{
		ID:       TemplateAppointmentCompleted,
		Type:     TypeAppointmentReminder,
		Priority: PriorityMedium,
		Title:    "Appointment Completed",
		Body:     "{{patient_name}}'s {{vaccine_name}} vaccination appointment has been completed.",
	},
}

// Render substitutes data into the template in a single pass, so values
// that themselves contain {{...}} are left alone. Unknown keys stay as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, body string, err error) {
	t, ok := e.templates[templateID]
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Title), r.Replace(t.Body), nil
}

// Compose renders templateID into a Message for userID, taking type and
// priority from the template.
func (e *TemplateEngine) Compose(templateID string, data map[string]string, msg Message) (Message, error) {
	t, ok := e.templates[templateID]
	if !ok {
		return Message{}, fmt.Errorf("template %q not found", templateID)
	}
	title, body, err := e.Render(templateID, data)
	if err != nil {
		return Message{}, err
	}
	msg.Type = t.Type
	msg.Priority = t.Priority
	msg.Title = title
	msg.Body = body
	return msg, nil
}

// FormatDate renders a date the way notification bodies show it.
func FormatDate(t time.Time) string {
	return t.Format("1/2/2006")
}
