package diagnosis

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestHandler_CreateDiagnosis(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	h, e := NewHandler(svc), echo.New()

	body := `{"insurance_number":"5555666677778888","icd_code":"E11","disp_status":"under_observation","disp_start_date":"2024-02-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnoses", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateDiagnosis(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateDiagnosis_ValidationBody(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	h, e := NewHandler(svc), echo.New()

	body := `{"insurance_number":"5555666677778888","icd_code":"E11","disp_status":"newly_detected","disp_start_date":"2024-02-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/diagnoses", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.CreateDiagnosis(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	msg := he.Message.(map[string]interface{})
	fields := msg["fields"].(map[string][]string)
	if len(fields["primary_reason"]) != 1 {
		t.Errorf("expected a primary_reason violation, got %v", fields)
	}
}

func TestHandler_MarkRemoved(t *testing.T) {
	svc, _, resolver := newTestService()
	resolver.add(insurance)
	d := validDiagnosis()
	if err := svc.CreateDiagnosis(t.Context(), d); err != nil {
		t.Fatal(err)
	}
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"remove_reason":"relocated"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.MarkRemoved(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Diagnosis
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.DispStatus != StatusRemoved || got.RemoveReason != RemoveRelocated {
		t.Errorf("unexpected result: %s %s", got.DispStatus, got.RemoveReason)
	}
}

func TestHandler_MarkRemoved_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.MarkRemoved(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
