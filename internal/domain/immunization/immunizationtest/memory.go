// Package immunizationtest provides an in-memory immunization.Repository
// for tests.
package immunizationtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/platform/apperr"
)

type Memory struct {
	mu    sync.Mutex
	store map[uuid.UUID]*immunization.Immunization
}

func NewMemory() *Memory {
	return &Memory{store: make(map[uuid.UUID]*immunization.Immunization)}
}

// Add stores im as-is, assigning an id when missing, and returns the id.
func (m *Memory) Add(im *immunization.Immunization) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if im.ID == uuid.Nil {
		im.ID = uuid.New()
	}
	if im.Status == "" {
		im.Status = immunization.StatusCompleted
	}
	cp := *im
	m.store[im.ID] = &cp
	return im.ID
}

// Get returns a copy of the stored record, or nil.
func (m *Memory) Get(id uuid.UUID) *immunization.Immunization {
	m.mu.Lock()
	defer m.mu.Unlock()
	im, ok := m.store[id]
	if !ok {
		return nil
	}
	cp := *im
	return &cp
}

func (m *Memory) Create(_ context.Context, im *immunization.Immunization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	im.ID = uuid.New()
	im.CreatedAt = time.Now()
	im.UpdatedAt = im.CreatedAt
	cp := *im
	m.store[im.ID] = &cp
	return nil
}

func (m *Memory) GetByID(_ context.Context, id uuid.UUID) (*immunization.Immunization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	im, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Immunization record not found")
	}
	cp := *im
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, im *immunization.Immunization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[im.ID]; !ok {
		return apperr.NotFound("Immunization record not found")
	}
	im.UpdatedAt = time.Now()
	cp := *im
	m.store[im.ID] = &cp
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("Immunization record not found")
	}
	delete(m.store, id)
	return nil
}

func (m *Memory) List(_ context.Context, f immunization.ListFilter) ([]*immunization.Immunization, int, error) {
	items := m.filter(func(im *immunization.Immunization) bool {
		if f.PatientID != nil && im.PatientID != *f.PatientID {
			return false
		}
		if f.PatientIDs != nil && !contains(f.PatientIDs, im.PatientID) {
			return false
		}
		return f.Status == "" || im.Status == f.Status
	})
	sort.Slice(items, func(i, j int) bool {
		if !items[i].DateAdministered.Equal(items[j].DateAdministered) {
			return items[i].DateAdministered.After(items[j].DateAdministered)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	total := len(items)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return items[f.Offset:end], total, nil
}

func (m *Memory) ListOverdue(_ context.Context, now time.Time) ([]*immunization.Immunization, error) {
	items := m.filter(func(im *immunization.Immunization) bool {
		return im.NextDueDate != nil && im.NextDueDate.Before(now) && im.Status != immunization.StatusCompleted
	})
	sortByDue(items)
	return items, nil
}

func (m *Memory) ListUpcoming(_ context.Context, patientID uuid.UUID, now time.Time) ([]*immunization.Immunization, error) {
	items := m.filter(func(im *immunization.Immunization) bool {
		return im.PatientID == patientID && im.NextDueDate != nil && !im.NextDueDate.Before(now) &&
			(im.Status == immunization.StatusDue || im.Status == immunization.StatusOverdue)
	})
	sortByDue(items)
	return items, nil
}

// All returns copies of every stored record.
func (m *Memory) All() []*immunization.Immunization {
	return m.filter(func(*immunization.Immunization) bool { return true })
}

func (m *Memory) filter(keep func(im *immunization.Immunization) bool) []*immunization.Immunization {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*immunization.Immunization
	for _, im := range m.store {
		if keep(im) {
			cp := *im
			out = append(out, &cp)
		}
	}
	return out
}

func sortByDue(items []*immunization.Immunization) {
	sort.Slice(items, func(i, j int) bool { return items[i].NextDueDate.Before(*items[j].NextDueDate) })
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
