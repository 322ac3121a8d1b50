package immunization_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/immunize/internal/domain/immunization"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/validate"
)

func request(e *echo.Echo, caller auth.Principal, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), caller))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Create(t *testing.T) {
	f := newFixture()
	h := immunization.NewHandler(f.svc)
	e := echo.New()
	e.Validator = validate.New()

	body := `{"patient":"` + f.child.String() + `","vaccineName":"MMR","dateAdministered":"2025-03-01","batchNumber":"M-7","status":"Due","nextDueDate":"2025-03-12"}`
	c, rec := request(e, nurse(), http.MethodPost, "/", body)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool                      `json:"success"`
		Data    immunization.Immunization `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, immunization.StatusDue, resp.Data.Status)
}

func TestHandler_Create_Validation(t *testing.T) {
	f := newFixture()
	h := immunization.NewHandler(f.svc)
	e := echo.New()
	e.Validator = validate.New()

	tests := []struct {
		body string
		msg  string
	}{
		{`{"vaccineName":"MMR","dateAdministered":"2025-03-01","batchNumber":"M"}`, "Patient ID is required"},
		{`{"patient":"` + f.child.String() + `","dateAdministered":"2025-03-01","batchNumber":"M"}`, "Vaccine name is required"},
		{`{"patient":"` + f.child.String() + `","vaccineName":"MMR","batchNumber":"M"}`, "Valid date is required"},
		{`{"patient":"` + f.child.String() + `","vaccineName":"MMR","dateAdministered":"2025-03-01"}`, "Batch number is required"},
	}
	for _, tt := range tests {
		c, _ := request(e, nurse(), http.MethodPost, "/", tt.body)
		err := h.Create(c)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "body %s: got %v", tt.body, err)
		if err != nil {
			assert.Equal(t, tt.msg, err.Error())
		}
	}
}

func TestHandler_ListAndOverdue(t *testing.T) {
	f := newFixture()
	h := immunization.NewHandler(f.svc)
	e := echo.New()
	f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "A", NextDueDate: day(-1), Status: immunization.StatusOverdue})

	c, rec := request(e, nurse(), http.MethodGet, "/?patientId="+f.child.String(), "")
	require.NoError(t, h.List(c))
	assert.Contains(t, rec.Body.String(), `"total":1`)

	c, _ = request(e, nurse(), http.MethodGet, "/?patientId=nope", "")
	assert.True(t, apperr.IsKind(h.List(c), apperr.KindValidation))

	c, rec = request(e, nurse(), http.MethodGet, "/", "")
	require.NoError(t, h.Overdue(c))
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture()
	h := immunization.NewHandler(f.svc)
	e := echo.New()
	id := f.imms.Add(&immunization.Immunization{PatientID: f.child, VaccineName: "A"})

	c, rec := request(e, nurse(), http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	require.NoError(t, h.Delete(c))
	assert.Contains(t, rec.Body.String(), "Immunization record deleted")
}
