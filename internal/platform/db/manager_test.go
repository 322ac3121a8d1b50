package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/immunize/internal/platform/apperr"
)

func TestManager_EnsureConnected_CachesSuccess(t *testing.T) {
	calls := 0
	m := newManager(func(context.Context) error { calls++; return nil }, time.Minute)

	for i := 0; i < 3; i++ {
		if err := m.EnsureConnected(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 ping, got %d", calls)
	}
}

func TestManager_EnsureConnected_RetriesAfterFailure(t *testing.T) {
	fail := true
	calls := 0
	m := newManager(func(context.Context) error {
		calls++
		if fail {
			return errors.New("connection refused")
		}
		return nil
	}, time.Minute)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.EnsureConnected(context.Background()); err == nil {
		t.Fatal("expected error while database is down")
	}
	fail = false
	if err := m.EnsureConnected(context.Background()); err == nil {
		t.Fatal("expected the failure to be reported again within the backoff")
	}
	if calls != 1 {
		t.Fatalf("expected no ping within the backoff, got %d", calls)
	}

	now = now.Add(defaultFailBackoff)
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 pings, got %d", calls)
	}
}

func TestManager_EnsureConnected_ConcurrentCallersShareOnePing(t *testing.T) {
	var calls atomic.Int32
	m := newManager(func(context.Context) error {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		return errors.New("connection refused")
	}, time.Minute)

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.EnsureConnected(context.Background())
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	close(errs)

	for err := range errs {
		if err == nil {
			t.Error("expected every caller to see the failure")
		}
	}
	if elapsed > time.Second {
		t.Errorf("callers were serialized: took %s", elapsed)
	}
	if n := calls.Load(); n > 2 {
		t.Errorf("expected concurrent callers to share a ping, got %d pings", n)
	}

	before := time.Now()
	if err := m.EnsureConnected(context.Background()); err == nil {
		t.Error("expected cached failure")
	}
	if time.Since(before) > 50*time.Millisecond {
		t.Error("expected cached failure to return without pinging")
	}
}

func TestManager_EnsureConnected_CallerCancelDoesNotAbortSharedPing(t *testing.T) {
	release := make(chan struct{})
	m := newManager(func(ctx context.Context) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.EnsureConnected(ctx) }()
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled caller, got %v", err)
	}

	close(release)
	if err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("expected the shared ping to succeed, got %v", err)
	}
}

func TestManager_Middleware_Unavailable(t *testing.T) {
	m := newManager(func(context.Context) error { return errors.New("down") }, time.Minute)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	h := m.Middleware(zerolog.Nop())(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	if called {
		t.Error("handler must not run while database is down")
	}
	if !apperr.IsKind(err, apperr.KindUnavailable) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestManager_Middleware_PassesThrough(t *testing.T) {
	m := newManager(func(context.Context) error { return nil }, time.Minute)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := m.Middleware(zerolog.Nop())(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestTxFromContext(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected nil tx from empty context")
	}
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if TxFromContext(ctx) != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestGetPoolStats_NilPool(t *testing.T) {
	stats := GetPoolStats(nil)
	if stats.Healthy {
		t.Error("expected unhealthy stats for nil pool")
	}
}
