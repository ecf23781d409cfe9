package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

func TestHealthHandler(t *testing.T) {
	h := NewHealth(map[string]HealthChecker{
		"database": CheckerFunc(func(context.Context) error { return nil }),
		"archive":  CheckerFunc(func(context.Context) error { return errors.New("bucket gone") }),
	})

	rec := httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.Equal(t, "bucket gone", body.Checks["archive"].Message)
}

func TestReadinessDrain(t *testing.T) {
	h := NewHealth(nil)

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.Drain()
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "draining")
}

func TestMetricsRuns(t *testing.T) {
	m := NewMetrics()
	for _, k := range []domain.VerdictKind{domain.VerdictClean, domain.VerdictIssuesFound, domain.VerdictTimeout, domain.VerdictError} {
		m.RunStarted()
		m.RunFinished(k)
	}
	m.RunStarted()

	snap := m.Snapshot()
	assert.EqualValues(t, 5, snap["runs_total"])
	assert.EqualValues(t, 1, snap["runs_running"])
	assert.EqualValues(t, 1, snap["runs_passed"])
	assert.EqualValues(t, 1, snap["runs_failed"])
	assert.EqualValues(t, 1, snap["runs_timed_out"])
	assert.EqualValues(t, 1, snap["runs_errored"])
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	assert.EqualValues(t, 2, m.RequestsTotal.Load())
	assert.EqualValues(t, 1, m.RequestsSuccess.Load())
	assert.EqualValues(t, 1, m.RequestsFailed.Load())
	assert.EqualValues(t, 0, m.RequestsInProgress.Load())
}
