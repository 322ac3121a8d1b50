package appointment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/auth"
	"github.com/clinic/immunize/internal/platform/validate"
)

func request(caller auth.Principal, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validate.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithPrincipal(req.Context(), caller))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateAndStatus(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	c, rec := request(f.parent, http.MethodPost, `{"patientId":"`+f.child.String()+`","vaccineName":"MMR","preferredDate":"2025-03-14"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Message string      `json:"message"`
		Data    Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Contains(t, created.Message, "The clinic will contact you to confirm.")

	staff := auth.Principal{Role: auth.RoleNurse}
	c, rec = request(staff, http.MethodPut, `{"status":"Confirmed"}`)
	c.SetParamNames("id")
	c.SetParamValues(created.Data.ID.String())
	require.NoError(t, h.UpdateStatus(c))
	assert.Contains(t, rec.Body.String(), `"message":"Appointment confirmed"`)
}

func TestHandler_Create_Validation(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	c, _ := request(f.parent, http.MethodPost, `{"vaccineName":"MMR","preferredDate":"2025-03-14"}`)
	err := h.Create(c)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.EqualError(t, err, "Patient ID is required")
}

func TestHandler_UpdateStatus_Invalid(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	c, _ := request(auth.Principal{Role: auth.RoleAdmin}, http.MethodPut, `{"status":"Later"}`)
	c.SetParamNames("id")
	c.SetParamValues(f.child.String())
	err := h.UpdateStatus(c)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	assert.EqualError(t, err, "Invalid status")
}

func TestHandler_Mine_Empty(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)

	c, rec := request(f.parent, http.MethodGet, "")
	require.NoError(t, h.Mine(c))
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}
