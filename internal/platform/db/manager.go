package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clinic/immunize/internal/platform/apperr"
)

const (
	defaultCheckInterval = 5 * time.Second
	defaultFailBackoff   = time.Second
	pingTimeout          = 3 * time.Second
)

// Manager owns the connection pool and tracks whether the database is
// reachable. Handlers never consult package-level connection state; they go
// through EnsureConnected.
type Manager struct {
	pool        *pgxpool.Pool
	ping        func(ctx context.Context) error
	interval    time.Duration
	failBackoff time.Duration
	now         func() time.Time

	pings singleflight.Group

	mu       sync.Mutex
	lastOK   time.Time
	lastFail time.Time
	lastErr  error
}

// Open parses databaseURL and builds a pool. The pool dials lazily, so Open
// succeeds even when the database is down; call EnsureConnected to verify.
func Open(ctx context.Context, databaseURL string, maxConns, minConns int32) (*Manager, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	m := newManager(pool.Ping, defaultCheckInterval)
	m.pool = pool
	return m, nil
}

func newManager(ping func(ctx context.Context) error, interval time.Duration) *Manager {
	return &Manager{ping: ping, interval: interval, failBackoff: defaultFailBackoff, now: time.Now}
}

// Pool returns the underlying pool.
func (m *Manager) Pool() *pgxpool.Pool {
	return m.pool
}

// EnsureConnected pings the database unless a ping succeeded within the
// check interval. A failed ping is reported to every caller for the
// failure backoff without pinging again, and concurrent callers share one
// ping.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if ok, err := m.cached(); ok {
		return err
	}

	ch := m.pings.DoChan("ping", func() (interface{}, error) {
		// The shared ping must outlive the request that started it.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
		defer cancel()
		err := m.ping(pctx)
		if err != nil {
			err = fmt.Errorf("ping database: %w", err)
		}
		m.record(err)
		return nil, err
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) cached() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !m.lastOK.IsZero() && now.Sub(m.lastOK) < m.interval {
		return true, nil
	}
	if m.lastErr != nil && now.Sub(m.lastFail) < m.failBackoff {
		return true, m.lastErr
	}
	return false, nil
}

func (m *Manager) record(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastOK = time.Time{}
		m.lastFail = m.now()
		m.lastErr = err
		return
	}
	m.lastOK = m.now()
	m.lastErr = nil
}

// Middleware rejects requests with 503 while the database is unreachable.
func (m *Manager) Middleware(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := m.EnsureConnected(c.Request().Context()); err != nil {
				logger.Warn().Err(err).Str("path", c.Path()).Msg("database unavailable")
				return apperr.Unavailable("Database connection failed")
			}
			return next(c)
		}
	}
}

func (m *Manager) Close() {
	if m.pool != nil {
		m.pool.Close()
	}
}
