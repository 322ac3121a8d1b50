package vaccine

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/immunize/internal/platform/apperr"
	"github.com/clinic/immunize/internal/platform/validate"
)

func newTestHandler() (*Handler, *echo.Echo) {
	e := echo.New()
	e.Validator = validate.New()
	return NewHandler(NewService(newMockRepo())), e
}

func jsonContext(e *echo.Echo, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	c, rec := jsonContext(e, http.MethodPost, `{"name":"BCG","manufacturer":"SII","quantity":0,"expiryDate":"2026-06-15","batchNumber":"B-1"}`)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body struct {
		Data Vaccine `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Data.Name != "BCG" || body.Data.Quantity != 0 {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_Create_Validation(t *testing.T) {
	h, e := newTestHandler()
	tests := []struct {
		body string
		msg  string
	}{
		{`{"manufacturer":"SII","quantity":1,"expiryDate":"2026-06-15","batchNumber":"B"}`, "Vaccine name is required"},
		{`{"name":"BCG","quantity":1,"expiryDate":"2026-06-15","batchNumber":"B"}`, "Manufacturer is required"},
		{`{"name":"BCG","manufacturer":"SII","expiryDate":"2026-06-15","batchNumber":"B"}`, "Valid quantity is required"},
		{`{"name":"BCG","manufacturer":"SII","quantity":-4,"expiryDate":"2026-06-15","batchNumber":"B"}`, "Valid quantity is required"},
		{`{"name":"BCG","manufacturer":"SII","quantity":1,"batchNumber":"B"}`, "Valid expiry date is required"},
		{`{"name":"BCG","manufacturer":"SII","quantity":1,"expiryDate":"2026-06-15"}`, "Batch number is required"},
	}
	for _, tt := range tests {
		c, _ := jsonContext(e, http.MethodPost, tt.body)
		err := h.Create(c)
		if !apperr.IsKind(err, apperr.KindValidation) || err.Error() != tt.msg {
			t.Errorf("expected %q, got %v", tt.msg, err)
		}
	}
}

func TestHandler_ListAndDelete(t *testing.T) {
	h, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, `{"name":"BCG","manufacturer":"SII","quantity":3,"expiryDate":"2026-06-15","batchNumber":"B-1"}`)
	if err := h.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}

	c, rec := jsonContext(e, http.MethodGet, "")
	if err := h.LowStock(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list struct {
		Count int       `json:"count"`
		Data  []Vaccine `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Count != 1 {
		t.Fatalf("expected 1 low stock vaccine, got %s", rec.Body.String())
	}

	c, rec = jsonContext(e, http.MethodDelete, "")
	c.SetParamNames("id")
	c.SetParamValues(list.Data[0].ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Vaccine deleted successfully") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	c, rec = jsonContext(e, http.MethodGet, "")
	h.List(c)
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty list, got %s", rec.Body.String())
	}
}
