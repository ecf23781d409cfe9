package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-scan-gate/internal/application"
	appscans "github.com/bryanwahyu/automaton-scan-gate/internal/application/scans"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/db/memory"
	"github.com/bryanwahyu/automaton-scan-gate/internal/middleware"
)

// doneAPI reports every scan as finished with the configured findings.
type doneAPI struct {
	findings   []domain.Finding
	dispatched atomic.Int32
}

func (a *doneAPI) Dispatch(context.Context, domain.TriggerContext) error {
	a.dispatched.Add(1)
	return nil
}

func (a *doneAPI) Status(context.Context, int64, int64) (domain.StatusReport, error) {
	return domain.StatusReport{Visible: true, ScanID: "scan-1", Status: domain.StatusDone}, nil
}

func (a *doneAPI) Issues(context.Context, domain.ScanID) ([]domain.Finding, error) {
	return a.findings, nil
}

type testServer struct {
	router  *Router
	handler http.Handler
	api     *doneAPI
	metrics *middleware.Metrics
}

func newTestServer(t *testing.T, keys map[string]string) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	api := &doneAPI{findings: []domain.Finding{{ID: "f1", Name: "XSS"}}}
	svc := &appscans.Service{
		API:    api,
		Clock:  application.SystemClock{},
		Policy: appscans.Policy{Interval: time.Millisecond, MaxAttempts: 3},
		Runs:   memory.NewRunRepository(),
	}
	metrics := middleware.NewMetrics()
	r := NewRouter(ctx, svc, zap.NewNop().Sugar(), Options{
		ClientKeys: keys,
		Metrics:    metrics,
		RunBurst:   100,
	})
	return &testServer{router: r, handler: r.Handler(), api: api, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.router.Wait(ctx))
}

const commitBody = `{"repoId":42,"runId":7,"eventType":"commit","targetBranch":"main"}`

func TestCreateRunRunsInBackground(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/v1/runs", commitBody, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "queued", created["status"])
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	s.wait(t)
	assert.EqualValues(t, 1, s.api.dispatched.Load())

	rec = s.do(t, http.MethodGet, "/v1/runs/"+id, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run domain.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, domain.RunStateFinished, run.State)
	assert.Equal(t, domain.VerdictIssuesFound, run.Verdict)
	assert.Equal(t, 1, run.ValidCount)
	assert.Equal(t, domain.ScanID("scan-1"), run.ScanID)

	assert.EqualValues(t, 1, s.metrics.RunsTotal.Load())
	assert.EqualValues(t, 1, s.metrics.RunsFailed.Load())
	assert.EqualValues(t, 0, s.metrics.RunsRunning.Load())
}

func TestCreateRunValidation(t *testing.T) {
	s := newTestServer(t, nil)

	bodies := map[string]string{
		"not json":              `{`,
		"pull request no url":   `{"repoId":42,"runId":7,"eventType":"pull-request","targetBranch":"main"}`,
		"unsupported event":     `{"repoId":42,"runId":7,"eventType":"schedule"}`,
		"missing repo":          `{"runId":7,"eventType":"commit"}`,
		"pull request ftp url":  `{"repoId":42,"runId":7,"eventType":"pull-request","pullRequest":"ftp://x/pull/1"}`,
		"branch with traversal": `{"repoId":42,"runId":7,"eventType":"commit","targetBranch":"a/../b"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/runs", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
	s.wait(t)
	assert.EqualValues(t, 0, s.api.dispatched.Load())
}

func TestGetRun(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/v1/runs/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/runs/0b9f2a4e-3c51-4d2a-9f8e-1a2b3c4d5e6f", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestAndSummary(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/v1/runs", commitBody, "").Code)
	}
	other := `{"repoId":9,"runId":1,"eventType":"commit","targetBranch":"dev"}`
	require.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/v1/runs", other, "").Code)
	s.wait(t)

	rec := s.do(t, http.MethodGet, "/v1/runs/latest?limit=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = s.do(t, http.MethodGet, "/v1/runs/latest?repo_id=9", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, int64(9), list[0].RepoID)

	rec = s.do(t, http.MethodGet, "/v1/runs/latest?repo_id=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/summary?days=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, domain.RunSummary{Total: 4, Failed: 4}, sum)
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, map[string]string{"ci": "secret-1"})

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/live", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/metrics", "", "").Code)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/summary", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/summary", "", "wrong").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/summary", "", "secret-1").Code)

	rec := s.do(t, http.MethodPost, "/v1/runs", commitBody, "secret-1")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ci", created["client"])
	s.wait(t)
}

func TestCreateRunRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := &appscans.Service{
		API:    &doneAPI{},
		Clock:  application.SystemClock{},
		Policy: appscans.Policy{Interval: time.Millisecond, MaxAttempts: 1},
	}
	r := NewRouter(ctx, svc, zap.NewNop().Sugar(), Options{RunBurst: 1, RunsPerMinute: 1})
	h := r.Handler()

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(commitBody))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, r.Wait(waitCtx))
}
