package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/config"
	"github.com/clinic/immunize/internal/domain/appointment"
	"github.com/clinic/immunize/internal/domain/dashboard"
	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/domain/inbox"
	"github.com/clinic/immunize/internal/domain/linking"
	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/domain/portal"
	"github.com/clinic/immunize/internal/domain/reminder"
	"github.com/clinic/immunize/internal/domain/user"
	"github.com/clinic/immunize/internal/domain/vaccine"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/db"
	"github.com/clinic/immunize/internal/platform/middleware"
	"github.com/clinic/immunize/internal/platform/notification"
	"github.com/clinic/immunize/internal/platform/validate"
)

const version = "1.0.0"

type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

// app holds the wired services shared by the server and the one-shot
// commands.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *db.Manager

	publisher  *notification.Publisher
	dispatcher *notification.Dispatcher

	users     *user.Service
	inbox     *inbox.Service
	linking   *linking.Service
	vaccines  *vaccine.Service
	reminders *reminder.Generator

	handlers []routeRegistrar
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	dbm, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	pool := dbm.Pool()
	a := &app{cfg: cfg, logger: logger, db: dbm}

	// The broker is optional. Notifications are always persisted.
	var publisher inbox.Publisher
	if cfg.AMQPURL != "" {
		p, err := notification.DialPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn().Err(err).Msg("notification broker unavailable, continuing without publishing")
		} else {
			a.publisher = p
			publisher = p
			logger.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing notifications to broker")
		}
	}

	templates := notification.NewTemplateEngine()
	a.inbox = inbox.NewService(inbox.NewRepoPG(pool), publisher, logger)
	a.dispatcher = notification.NewDispatcher(a.inbox, logger)

	patientRepo := patient.NewRepoPG(pool)
	immRepo := immunization.NewRepoPG(pool)

	a.users = user.NewService(user.NewRepoPG(pool), auth.NewTokenIssuer(cfg.SigningKey(), cfg.JWTTTL))
	patients := patient.NewService(patientRepo)
	immunizations := immunization.NewService(immRepo, patientRepo)
	a.vaccines = vaccine.NewService(vaccine.NewRepoPG(pool))
	a.linking = linking.NewService(linking.NewRepoPG(pool), patientRepo, db.NewTransactor(pool),
		a.dispatcher, templates, logger, linking.WithCodeTTL(cfg.VerificationCodeTTL))
	appointments := appointment.NewService(appointment.NewRepoPG(pool), patientRepo, a.users,
		a.dispatcher, templates, logger)

	var reminderOpts []reminder.Option
	if cfg.ReminderDedupWindow > 0 {
		reminderOpts = append(reminderOpts, reminder.WithHistory(a.inbox))
	}
	a.reminders = reminder.NewGenerator(reminder.NewSourcePG(pool), a.dispatcher, templates, logger,
		reminderConfig(cfg), reminderOpts...)

	a.handlers = []routeRegistrar{
		user.NewHandler(a.users),
		patient.NewHandler(patients),
		linking.NewHandler(a.linking),
		immunization.NewHandler(immunizations),
		vaccine.NewHandler(a.vaccines),
		appointment.NewHandler(appointments),
		inbox.NewHandler(a.inbox),
		dashboard.NewHandler(dashboard.NewService(dashboard.NewStorePG(pool), immRepo)),
		portal.NewHandler(portal.NewService(patients, immunizations, portal.NewDueStorePG(pool), a.inbox)),
	}
	return a, nil
}

func reminderConfig(cfg *config.Config) reminder.Config {
	return reminder.Config{
		Window:            cfg.ReminderWindow(),
		DedupWindow:       cfg.ReminderDedupWindow,
		TransitionOverdue: cfg.ReminderTransitionOverdue,
	}
}

// router builds the echo instance with global middleware, health checks and
// every domain route under /api.
func (a *app) router(limiter *middleware.IPRateLimiter) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(a.logger)

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit(a.cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.db))

	api := e.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.Use(a.db.Middleware(a.logger))
	api.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey: a.cfg.SigningKey(),
		Skipper:    auth.AuthSkipper,
		Resolver:   a.users,
	}))
	api.Use(middleware.Audit(a.logger))

	for _, h := range a.handlers {
		h.RegisterRoutes(api)
	}
	return e
}

// close releases resources in dependency order: pending notifications are
// flushed before the broker and the pool go away.
func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a.dispatcher.Wait(ctx)
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close notification broker")
		}
	}
	a.db.Close()
}
