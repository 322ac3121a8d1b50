// Package scheduler runs named background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work. The context is cancelled on Stop.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]bool
}

func New(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]bool),
	}
}

// Add registers job under name. Specs use six fields with leading seconds,
// or descriptors such as "@hourly" and "@every 1m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := cron.Parse(spec); err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, spec, err)
	}
	if err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("job registered")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, cancels running jobs and waits for them up to
// the deadline of ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stopped with jobs still running")
	}
}

// run executes job once. A run that starts while the previous run of the
// same job is still going is skipped.
func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.logger.Warn().Str("job", name).Msg("previous run still in progress, skipping")
		return
	}
	s.running[name] = true
	s.mu.Unlock()

	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
		s.wg.Done()
	}()

	start := time.Now()
	err := s.safeRun(job)
	log := s.logger.Info()
	if err != nil {
		log = s.logger.Error().Err(err)
	}
	log.Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) safeRun(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job(s.ctx)
}
