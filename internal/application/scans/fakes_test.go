package scans

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// scriptedAPI replays status answers in order; the last one repeats.
type scriptedAPI struct {
	mu sync.Mutex

	dispatchErr error
	statuses    []statusAnswer
	findings    []domain.Finding
	issuesErr   error

	dispatchCalls int
	statusCalls   int
	issuesCalls   int
	lastTrigger   domain.TriggerContext
}

type statusAnswer struct {
	report domain.StatusReport
	err    error
}

func notFound() statusAnswer { return statusAnswer{report: domain.StatusReport{Visible: false}} }

func visible(id string, st domain.Status, errMsg string) statusAnswer {
	return statusAnswer{report: domain.StatusReport{Visible: true, ScanID: domain.ScanID(id), Status: st, ErrorMessage: errMsg}}
}

func (a *scriptedAPI) Dispatch(_ context.Context, t domain.TriggerContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatchCalls++
	a.lastTrigger = t
	return a.dispatchErr
}

func (a *scriptedAPI) Status(_ context.Context, _, _ int64) (domain.StatusReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.statusCalls
	a.statusCalls++
	if len(a.statuses) == 0 {
		return domain.StatusReport{}, nil
	}
	if i >= len(a.statuses) {
		i = len(a.statuses) - 1
	}
	return a.statuses[i].report, a.statuses[i].err
}

func (a *scriptedAPI) Issues(_ context.Context, _ domain.ScanID) ([]domain.Finding, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issuesCalls++
	return a.findings, a.issuesErr
}

// fakeClock never blocks; Sleep advances Now.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  int
	onSleep func(n int)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps++
	n := c.sleeps
	c.now = c.now.Add(d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

type mockRuns struct{ mock.Mock }

func (m *mockRuns) Save(ctx context.Context, r *domain.RunRecord) error {
	// snapshot, record dimutasi lagi setelah Save pertama
	cp := *r
	return m.Called(ctx, &cp).Error(0)
}

func (m *mockRuns) Get(ctx context.Context, id domain.RunID) (*domain.RunRecord, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*domain.RunRecord)
	return rec, args.Error(1)
}

func (m *mockRuns) Latest(ctx context.Context, repoID int64, limit int) ([]*domain.RunRecord, error) {
	args := m.Called(ctx, repoID, limit)
	list, _ := args.Get(0).([]*domain.RunRecord)
	return list, args.Error(1)
}

func (m *mockRuns) Summary(ctx context.Context, since time.Time) (domain.RunSummary, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(domain.RunSummary), args.Error(1)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) UploadReport(ctx context.Context, key string, body []byte) (string, error) {
	args := m.Called(ctx, key, body)
	return args.String(0), args.Error(1)
}
