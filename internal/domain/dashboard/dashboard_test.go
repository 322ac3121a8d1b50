package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/domain/immunization/immunizationtest"
)

type fakeStore struct {
	counts   Counts
	coverage []Coverage
	err      error
	from, to time.Time
}

func (f *fakeStore) Counts(_ context.Context, now, horizon time.Time) (Counts, error) {
	f.from, f.to = now, horizon
	return f.counts, f.err
}

func (f *fakeStore) Coverage(context.Context) ([]Coverage, error) {
	return f.coverage, f.err
}

func TestService_Stats(t *testing.T) {
	store := &fakeStore{counts: Counts{TotalPatients: 4, LowStockVaccines: 1}}
	imms := immunizationtest.NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		imms.Add(&immunization.Immunization{PatientID: uuid.New(), VaccineName: "V", DateAdministered: base.AddDate(0, 0, i)})
	}
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	svc := NewService(store, imms)
	svc.now = func() time.Time { return now }

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalPatients != 4 || stats.LowStockVaccines != 1 {
		t.Errorf("unexpected counts: %+v", stats.Counts)
	}
	if len(stats.RecentImmunizations) != recentLimit {
		t.Fatalf("expected %d recent, got %d", recentLimit, len(stats.RecentImmunizations))
	}
	if !stats.RecentImmunizations[0].DateAdministered.Equal(base.AddDate(0, 0, 6)) {
		t.Errorf("expected newest first, got %s", stats.RecentImmunizations[0].DateAdministered)
	}
	if !store.from.Equal(now) || store.to.Sub(store.from) != Horizon {
		t.Errorf("expected [now, now+30d], got [%s, %s]", store.from, store.to)
	}
}

func TestService_Stats_StoreError(t *testing.T) {
	svc := NewService(&fakeStore{err: errors.New("down")}, immunizationtest.NewMemory())
	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHandler_Stats_EmptyRecent(t *testing.T) {
	h := NewHandler(NewService(&fakeStore{}, immunizationtest.NewMemory()))
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	recent, ok := body.Data["recentImmunizations"].([]interface{})
	if !ok || len(recent) != 0 {
		t.Errorf("expected empty recent list, got %s", rec.Body.String())
	}
	if _, ok := body.Data["totalPatients"]; !ok {
		t.Errorf("expected flattened counts, got %s", rec.Body.String())
	}
}

func TestHandler_Coverage(t *testing.T) {
	store := &fakeStore{coverage: []Coverage{{"MMR", 3}, {"BCG", 1}}}
	h := NewHandler(NewService(store, immunizationtest.NewMemory()))
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := h.Coverage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data []Coverage `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Data) != 2 || body.Data[0].VaccineName != "MMR" || body.Data[0].Count != 3 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
