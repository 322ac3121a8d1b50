package patient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/domain/patient"
	"github.com/clinic/immunize/internal/domain/patient/patienttest"
	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/validate"
)

func newTestHandler() (*patient.Handler, *patienttest.Memory, *echo.Echo) {
	repo := patienttest.NewMemory()
	e := echo.New()
	e.Validator = validate.New()
	return patient.NewHandler(patient.NewService(repo)), repo, e
}

func request(e *echo.Echo, method, body string, p auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Create(t *testing.T) {
	h, _, e := newTestHandler()
	c, rec := request(e, http.MethodPost, `{"name":"Ava","dateOfBirth":"2023-04-01","gender":"Female","contactNumber":"555"}`, staff)
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_Create_InvalidGender(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := request(e, http.MethodPost, `{"name":"Ava","dateOfBirth":"2023-04-01","gender":"F","contactNumber":"555"}`, staff)
	err := h.Create(c)
	if !apperr.IsKind(err, apperr.KindValidation) || err.Error() != "Invalid gender" {
		t.Errorf("expected invalid gender, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	h, repo, e := newTestHandler()
	seed(repo)
	c, rec := request(e, http.MethodGet, "", staff)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Success bool              `json:"success"`
		Count   int               `json:"count"`
		Data    []patient.Patient `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if !body.Success || body.Count != 2 || len(body.Data) != 2 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	h, repo, e := newTestHandler()
	own, _ := seed(repo)

	c, rec := request(e, http.MethodGet, "", parent)
	c.SetParamNames("id")
	c.SetParamValues(own.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, rec = request(e, http.MethodDelete, "", staff)
	c.SetParamNames("id")
	c.SetParamValues(own.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Patient deleted successfully") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := request(e, http.MethodGet, "", staff)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.Get(c); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
