package linking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/platform/apperr"
)

type memCodes struct {
	mu    sync.Mutex
	store map[uuid.UUID]*VerificationCode
}

func newMemCodes() *memCodes {
	return &memCodes{store: make(map[uuid.UUID]*VerificationCode)}
}

func (m *memCodes) add(vc VerificationCode) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vc.ID == uuid.Nil {
		vc.ID = uuid.New()
	}
	m.store[vc.ID] = &vc
	return vc.ID
}

func (m *memCodes) get(id uuid.UUID) VerificationCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.store[id]
}

func (m *memCodes) unusedFor(patientID uuid.UUID) []VerificationCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []VerificationCode
	for _, vc := range m.store {
		if vc.PatientID == patientID && !vc.IsUsed {
			out = append(out, *vc)
		}
	}
	return out
}

func (m *memCodes) snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[uuid.UUID]VerificationCode, len(m.store))
	for id, vc := range m.store {
		saved[id] = *vc
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.store = make(map[uuid.UUID]*VerificationCode, len(saved))
		for id, vc := range saved {
			cp := vc
			m.store[id] = &cp
		}
	}
}

func (m *memCodes) DeleteUnusedForPatient(_ context.Context, patientID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, vc := range m.store {
		if vc.PatientID == patientID && !vc.IsUsed {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func (m *memCodes) Create(_ context.Context, vc *VerificationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.store {
		if existing.Code == vc.Code {
			return codeCollision()
		}
	}
	vc.ID = uuid.New()
	vc.CreatedAt = time.Now()
	cp := *vc
	m.store[vc.ID] = &cp
	return nil
}

func (m *memCodes) FindRedeemable(_ context.Context, patientID uuid.UUID, code string, now time.Time) (*VerificationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, vc := range m.store {
		if vc.PatientID == patientID && vc.Code == code && vc.Redeemable(now) {
			cp := *vc
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Verification code not found")
}

func (m *memCodes) MarkUsed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vc, ok := m.store[id]
	if !ok || !vc.Redeemable(now) {
		return false, nil
	}
	vc.IsUsed = true
	return true, nil
}

func (m *memCodes) ListUnused(_ context.Context) ([]*CodeView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*CodeView
	for _, vc := range m.store {
		if !vc.IsUsed {
			out = append(out, &CodeView{VerificationCode: *vc})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memCodes) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, vc := range m.store {
		if vc.ExpiresAt.Before(before) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

// rollbackTx runs one transaction at a time and restores every registered
// store when fn fails.
type rollbackTx struct {
	mu        sync.Mutex
	snapshots []func() func()
}

func (t *rollbackTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	restores := make([]func(), len(t.snapshots))
	for i, snap := range t.snapshots {
		restores[i] = snap()
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// passthroughTx gives no isolation at all; only the repositories'
// conditional updates protect the data.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
