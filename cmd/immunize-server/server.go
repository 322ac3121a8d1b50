package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/config"
	"github.com/clinic/immunize/internal/platform/middleware"
	"github.com/clinic/immunize/internal/platform/scheduler"
)

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// The server starts even when the database is down; requests get 503
	// until it comes back.
	if err := a.db.EnsureConnected(ctx); err != nil {
		logger.Warn().Err(err).Msg("database unreachable at startup")
	} else {
		logger.Info().Msg("connected to database")
	}

	a.reminders.LogMode()

	rateCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = middleware.DefaultRateLimitConfig()
	}
	limiter := middleware.NewIPRateLimiter(rateCfg)

	sched := scheduler.New(logger)
	if err := registerJobs(sched, a, limiter); err != nil {
		return err
	}
	sched.Start()

	e := a.router(limiter)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	sched.Stop(shutdownCtx)
	return nil
}

func registerJobs(sched *scheduler.Scheduler, a *app, limiter *middleware.IPRateLimiter) error {
	if err := sched.Add("reminders", a.cfg.ReminderSchedule, a.reminders.Job()); err != nil {
		return err
	}
	grace := a.cfg.CodePurgeGrace
	if err := sched.Add("code-purge", a.cfg.CodePurgeSchedule, func(ctx context.Context) error {
		_, err := a.linking.PurgeExpired(ctx, grace)
		return err
	}); err != nil {
		return err
	}
	return sched.Add("rate-limit-sweep", "@every 1m", func(context.Context) error {
		if n := limiter.Sweep(time.Now()); n > 0 {
			a.logger.Debug().Int("removed", n).Msg("swept idle rate limiters")
		}
		return nil
	})
}
