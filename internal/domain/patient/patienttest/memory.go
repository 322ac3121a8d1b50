// Package patienttest provides an in-memory patient.Repository for tests.
package patienttest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/platform/apperr"
)

type Memory struct {
	mu    sync.Mutex
	store map[uuid.UUID]*patient.Patient
	// FailLink makes LinkParent return this error when set.
	FailLink error
}

func NewMemory() *Memory {
	return &Memory{store: make(map[uuid.UUID]*patient.Patient)}
}

// Add stores p as-is, assigning an id when missing, and returns the id.
func (m *Memory) Add(p *patient.Patient) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	m.store[p.ID] = &cp
	return p.ID
}

// Snapshot captures the current rows; the returned func restores them.
func (m *Memory) Snapshot() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make(map[uuid.UUID]patient.Patient, len(m.store))
	for id, p := range m.store {
		saved[id] = *p
	}
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.store = make(map[uuid.UUID]*patient.Patient, len(saved))
		for id, p := range saved {
			cp := p
			m.store[id] = &cp
		}
	}
}

func (m *Memory) Create(_ context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) GetForUpdate(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *Memory) Update(_ context.Context, p *patient.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.store[p.ID]
	if !ok {
		return apperr.NotFound("Patient not found")
	}
	cp := *p
	cp.ParentUserID = existing.ParentUserID
	cp.UpdatedAt = time.Now()
	m.store[p.ID] = &cp
	return nil
}

func (m *Memory) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return apperr.NotFound("Patient not found")
	}
	p.IsActive = false
	return nil
}

func (m *Memory) List(_ context.Context, f patient.ListFilter) ([]*patient.Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(f.Search)
	var out []*patient.Patient
	for _, p := range m.store {
		if !p.IsActive {
			continue
		}
		if f.ParentID != nil && !p.OwnedBy(*f.ParentID) {
			continue
		}
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.ContactNumber), search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m *Memory) ListChildren(_ context.Context, parentID uuid.UUID) ([]*patient.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*patient.Patient
	for _, p := range m.store {
		if p.IsActive && p.OwnedBy(parentID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) LinkParent(_ context.Context, patientID, parentID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLink != nil {
		return false, m.FailLink
	}
	p, ok := m.store[patientID]
	if !ok || p.Linked() {
		return false, nil
	}
	id := parentID
	p.ParentUserID = &id
	p.UpdatedAt = time.Now()
	return true, nil
}
