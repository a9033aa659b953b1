package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinic/registry/internal/domain/validation"
)

func TestObserveSubmission(t *testing.T) {
	m := New()

	m.ObserveSubmission("diagnosis", "create", &validation.Submission{
		State:    validation.StateRejected,
		Duration: 3 * time.Millisecond,
		Errors: validation.Errors{
			validation.Missing("primary_reason", "required"),
			validation.Blocked("palliative"),
		},
	})
	m.ObserveSubmission("diagnosis", "create", &validation.Submission{State: validation.StatePersisted})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("diagnosis", "create", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("diagnosis", "create", "persisted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("diagnosis", "primary_reason", "required")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Violations.WithLabelValues("diagnosis", validation.NonFieldKey, "blocked")))
}

func TestObserveSubmission_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSubmission("patient", "create", &validation.Submission{})
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/patients/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	for _, path := range []string{"/api/v1/patients/a", "/api/v1/patients/b", "/api/v1/patients/missing", "/boom"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/patients/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/patients/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/boom", "500")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveSubmission("death", "create", &validation.Submission{State: validation.StatePersisted})

	e := echo.New()
	e.GET("/metrics", m.Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `clinic_registry_submissions_total{entity="death",op="create",state="persisted"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
