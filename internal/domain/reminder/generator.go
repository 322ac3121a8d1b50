// Package reminder scans immunization records for doses that are coming up
// or overdue and notifies the linked parent of each one.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/platform/notification"
)

// Deliverer stores one notification synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, msg notification.Message) bool
}

// History answers whether a reminder was already sent.
type History interface {
	SentSince(ctx context.Context, immunizationID uuid.UUID, typ notification.Type, since time.Time) (bool, error)
}

type Config struct {
	// Window is how far ahead an upcoming dose is reported.
	Window time.Duration
	// DedupWindow suppresses a reminder when the same one was sent within
	// it. Zero disables suppression.
	DedupWindow time.Duration
	// TransitionOverdue moves lapsed Due records to Overdue before scanning.
	TransitionOverdue bool
}

const DefaultWindow = 7 * 24 * time.Hour

// Summary reports one run. Every scanned record ends up in exactly one of
// Notified, Skipped or Failed.
type Summary struct {
	Scanned      int
	Notified     int
	Skipped      int
	Failed       int
	Transitioned int64
}

func (s Summary) String() string {
	return fmt.Sprintf("scanned=%d notified=%d skipped=%d failed=%d transitioned=%d",
		s.Scanned, s.Notified, s.Skipped, s.Failed, s.Transitioned)
}

type Generator struct {
	source    Source
	deliverer Deliverer
	history   History
	templates *notification.TemplateEngine
	logger    zerolog.Logger
	cfg       Config
	now       func() time.Time
}

type Option func(*Generator)

// WithHistory enables dedup lookups. Without it DedupWindow is ignored.
func WithHistory(h History) Option {
	return func(g *Generator) { g.history = h }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(source Source, deliverer Deliverer, templates *notification.TemplateEngine,
	logger zerolog.Logger, cfg Config, opts ...Option) *Generator {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	g := &Generator{
		source:    source,
		deliverer: deliverer,
		templates: templates,
		logger:    logger.With().Str("component", "reminder").Logger(),
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LogMode warns about the behaviours that are off, since with both off a
// lapsed Due record is never reminded about and reminders repeat daily.
func (g *Generator) LogMode() {
	if !g.cfg.TransitionOverdue {
		g.logger.Warn().Msg("overdue transition disabled: Due records past their date get no reminder until staff mark them Overdue")
	}
	if g.dedupWindow() == 0 {
		g.logger.Warn().Msg("reminder dedup disabled: every run re-sends reminders for the same records")
	}
}

func (g *Generator) dedupWindow() time.Duration {
	if g.history == nil {
		return 0
	}
	return g.cfg.DedupWindow
}

// Run performs one scan. Only a failed query aborts it; each reminder is
// delivered independently.
func (g *Generator) Run(ctx context.Context, now time.Time) (Summary, error) {
	var sum Summary

	if g.cfg.TransitionOverdue {
		n, err := g.source.MarkOverdue(ctx, now)
		if err != nil {
			g.logger.Warn().Err(err).Msg("mark overdue immunizations")
		}
		sum.Transitioned = n
	}

	upcoming, err := g.source.Upcoming(ctx, now, now.Add(g.cfg.Window))
	if err != nil {
		return sum, fmt.Errorf("scan upcoming: %w", err)
	}
	for _, d := range upcoming {
		g.remind(ctx, now, d, notification.TemplateUpcomingImmunization, notification.TypeUpcomingImmunization, &sum)
	}

	overdue, err := g.source.Overdue(ctx, now)
	if err != nil {
		return sum, fmt.Errorf("scan overdue: %w", err)
	}
	for _, d := range overdue {
		g.remind(ctx, now, d, notification.TemplateOverdueImmunization, notification.TypeOverdueImmunization, &sum)
	}

	return sum, nil
}

func (g *Generator) remind(ctx context.Context, now time.Time, d Due, templateID string, typ notification.Type, sum *Summary) {
	sum.Scanned++
	if d.ParentUserID == nil || *d.ParentUserID == uuid.Nil {
		sum.Skipped++
		return
	}

	log := g.logger.With().
		Str("immunization_id", d.ImmunizationID.String()).
		Str("type", string(typ)).
		Logger()

	if window := g.dedupWindow(); window > 0 {
		sent, err := g.history.SentSince(ctx, d.ImmunizationID, typ, now.Add(-window))
		if err != nil {
			log.Warn().Err(err).Msg("check reminder history")
		} else if sent {
			sum.Skipped++
			return
		}
	}

	patientID, immID, due := d.PatientID, d.ImmunizationID, d.NextDueDate
	msg, err := g.templates.Compose(templateID, map[string]string{
		"patient_name": d.PatientName,
		"vaccine_name": d.VaccineName,
		"due_date":     notification.FormatDate(due),
	}, notification.Message{
		UserID:         *d.ParentUserID,
		PatientID:      &patientID,
		ImmunizationID: &immID,
		DueDate:        &due,
	})
	if err != nil {
		log.Error().Err(err).Msg("compose reminder")
		sum.Failed++
		return
	}
	if g.deliverer.Deliver(ctx, msg) {
		sum.Notified++
	} else {
		sum.Failed++
	}
}

// Job adapts the generator to the scheduler, logging each summary.
func (g *Generator) Job() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sum, err := g.Run(ctx, g.now())
		if err != nil {
			return err
		}
		g.logger.Info().
			Int("scanned", sum.Scanned).
			Int("notified", sum.Notified).
			Int("skipped", sum.Skipped).
			Int("failed", sum.Failed).
			Int64("transitioned", sum.Transitioned).
			Msg("reminder run complete")
		return nil
	}
}
