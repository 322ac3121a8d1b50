package immunization_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/domain/immunization/immunizationtest"
	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/domain/patient/patienttest"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *immunization.Service
	imms     *immunizationtest.Memory
	patients *patienttest.Memory
	child    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{imms: immunizationtest.NewMemory(), patients: patienttest.NewMemory()}
	f.child = f.patients.Add(&patient.Patient{Name: "Ava", Gender: "Female", IsActive: true})
	f.svc = immunization.NewService(f.imms, f.patients, immunization.WithClock(func() time.Time { return now }))
	return f
}

func nurse() auth.Principal {
	return auth.Principal{UserID: uuid.New(), Email: "nurse@clinic.test", Role: auth.RoleNurse}
}

func day(offset int) *time.Time {
	t := now.AddDate(0, 0, offset)
	return &t
}

func TestService_Create(t *testing.T) {
	f := newFixture()
	caller := nurse()

	im, err := f.svc.Create(context.Background(), caller, immunization.CreateRequest{
		Patient:          f.child.String(),
		VaccineName:      " MMR ",
		DateAdministered: "2025-03-01",
		BatchNumber:      "MMR-1",
		NextDueDate:      "2025-09-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "MMR", im.VaccineName)
	assert.Equal(t, caller.UserID, im.AdministeredBy)
	assert.Equal(t, immunization.StatusCompleted, im.Status)
	assert.Equal(t, "Ava", im.PatientName)
	require.NotNil(t, im.NextDueDate)
	assert.Equal(t, time.September, im.NextDueDate.Month())
	assert.NotNil(t, f.imms.Get(im.ID))
}

func TestService_Create_Errors(t *testing.T) {
	f := newFixture()
	inactive := f.patients.Add(&patient.Patient{Name: "Gone", IsActive: false})
	valid := func() immunization.CreateRequest {
		return immunization.CreateRequest{
			Patient: f.child.String(), VaccineName: "BCG", DateAdministered: "2025-03-01", BatchNumber: "B-1",
		}
	}

	tests := []struct {
		name   string
		caller auth.Principal
		mutate func(r *immunization.CreateRequest)
		kind   apperr.Kind
	}{
		{"admin cannot administer", auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}, func(*immunization.CreateRequest) {}, apperr.KindAuthorization},
		{"bad date", nurse(), func(r *immunization.CreateRequest) { r.DateAdministered = "yesterday" }, apperr.KindValidation},
		{"blank vaccine", nurse(), func(r *immunization.CreateRequest) { r.VaccineName = "  " }, apperr.KindValidation},
		{"bad next due", nurse(), func(r *immunization.CreateRequest) { r.NextDueDate = "soon" }, apperr.KindValidation},
		{"unknown patient", nurse(), func(r *immunization.CreateRequest) { r.Patient = uuid.NewString() }, apperr.KindNotFound},
		{"inactive patient", nurse(), func(r *immunization.CreateRequest) { r.Patient = inactive.String() }, apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), tt.caller, req)
			assert.True(t, apperr.IsKind(err, tt.kind), "expected %s, got %v", tt.kind, err)
		})
	}
	assert.Empty(t, f.imms.All())
}

func TestService_Update(t *testing.T) {
	f := newFixture()
	id := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "DTP", BatchNumber: "D-1", NextDueDate: day(3), Status: immunization.StatusDue})

	status := "Completed"
	empty := ""
	im, err := f.svc.Update(context.Background(), id, immunization.UpdateRequest{Status: &status, NextDueDate: &empty})
	require.NoError(t, err)
	assert.Equal(t, immunization.StatusCompleted, im.Status)
	assert.Nil(t, im.NextDueDate)
	assert.Equal(t, "DTP", f.imms.Get(id).VaccineName)

	bad := "Skipped"
	_, err = f.svc.Update(context.Background(), id, immunization.UpdateRequest{Status: &bad})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = f.svc.Update(context.Background(), uuid.New(), immunization.UpdateRequest{Status: &status})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestService_Delete(t *testing.T) {
	f := newFixture()
	id := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "BCG"})

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.Nil(t, f.imms.Get(id))
	assert.True(t, apperr.IsKind(f.svc.Delete(context.Background(), id), apperr.KindNotFound))
}

func TestService_OverdueAndUpcoming(t *testing.T) {
	f := newFixture()
	overdue := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "A", NextDueDate: day(-2), Status: immunization.StatusOverdue})
	pastDue := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "B", NextDueDate: day(-1), Status: immunization.StatusDue})
	f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "C", NextDueDate: day(-5), Status: immunization.StatusCompleted})
	soon := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "D", NextDueDate: day(4), Status: immunization.StatusDue})
	later := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "E", NextDueDate: day(40), Status: immunization.StatusOverdue})
	f.imms.Add(&immunization.Immunization{PatientID: uuid.New(), VaccineName: "F", NextDueDate: day(4), Status: immunization.StatusDue})

	got, err := f.svc.Overdue(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, overdue, got[0].ID)
	assert.Equal(t, pastDue, got[1].ID)

	up, err := f.svc.Upcoming(context.Background(), f.child)
	require.NoError(t, err)
	require.Len(t, up, 2)
	assert.Equal(t, soon, up[0].ID)
	assert.Equal(t, later, up[1].ID)
}

func TestService_List(t *testing.T) {
	f := newFixture()
	other := uuid.New()
	f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "A", DateAdministered: now.AddDate(0, -2, 0)})
	f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "B", DateAdministered: now.AddDate(0, -1, 0), Status: immunization.StatusDue})
	f.imms.Add(&immunization.Immunization{PatientID: other, VaccineName: "C", DateAdministered: now})

	items, total, err := f.svc.List(context.Background(), immunization.ListFilter{PatientID: &f.child, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "B", items[0].VaccineName)

	items, _, err = f.svc.List(context.Background(), immunization.ListFilter{Status: immunization.StatusDue, Limit: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].VaccineName)

	_, _, err = f.svc.List(context.Background(), immunization.ListFilter{Status: "Later"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	history, err := f.svc.ForPatient(context.Background(), f.child)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestService_ForPatient_ReturnsFullHistory(t *testing.T) {
	f := newFixture()
	const records = 1001
	for i := 0; i < records; i++ {
		f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "Dose", DateAdministered: now.AddDate(0, 0, -i/3)})
	}
	f.imms.Add(&immunization.Immunization{PatientID: uuid.New(), VaccineName: "Other", DateAdministered: now})

	history, err := f.svc.ForPatient(context.Background(), f.child)
	require.NoError(t, err)
	require.Len(t, history, records)

	seen := make(map[uuid.UUID]bool, records)
	for i, im := range history {
		assert.False(t, seen[im.ID], "record %s returned twice", im.ID)
		seen[im.ID] = true
		if i > 0 {
			assert.False(t, im.DateAdministered.After(history[i-1].DateAdministered), "history must be newest first")
		}
	}
}

func TestService_ForPatient_Empty(t *testing.T) {
	f := newFixture()
	history, err := f.svc.ForPatient(context.Background(), f.child)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}
