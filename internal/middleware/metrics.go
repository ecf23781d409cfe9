package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64

	RunsTotal    atomic.Uint64
	RunsRunning  atomic.Int64
	RunsPassed   atomic.Uint64
	RunsFailed   atomic.Uint64
	RunsTimedOut atomic.Uint64
	RunsErrored  atomic.Uint64

	StartTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RunStarted dipanggil saat orchestration mulai
func (m *Metrics) RunStarted() {
	m.RunsTotal.Add(1)
	m.RunsRunning.Add(1)
}

// RunFinished records the verdict of a finished orchestration.
func (m *Metrics) RunFinished(kind domain.VerdictKind) {
	m.RunsRunning.Add(-1)
	switch kind {
	case domain.VerdictClean, domain.VerdictCleanWithFalsePositives:
		m.RunsPassed.Add(1)
	case domain.VerdictIssuesFound:
		m.RunsFailed.Add(1)
	case domain.VerdictTimeout:
		m.RunsTimedOut.Add(1)
	default:
		m.RunsErrored.Add(1)
	}
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"runs_total":           m.RunsTotal.Load(),
		"runs_running":         m.RunsRunning.Load(),
		"runs_passed":          m.RunsPassed.Load(),
		"runs_failed":          m.RunsFailed.Load(),
		"runs_timed_out":       m.RunsTimedOut.Load(),
		"runs_errored":         m.RunsErrored.Load(),
		"uptime_seconds":       time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 || (status >= 200 && status < 400) {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
