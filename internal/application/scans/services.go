package scans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-scan-gate/internal/application"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxAttempts  = 1200 // 1 jam kalau 3s per attempt
)

// Policy controls the poll cadence: fixed interval, no backoff.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultPolicy() Policy {
	return Policy{Interval: DefaultPollInterval, MaxAttempts: DefaultMaxAttempts}
}

// Budget is the hard ceiling for the whole poll stage. Saturates instead of overflowing.
func (p Policy) Budget() time.Duration {
	if p.Interval > 0 && int64(p.MaxAttempts) > int64(math.MaxInt64/p.Interval) {
		return time.Duration(math.MaxInt64)
	}
	return p.Interval * time.Duration(p.MaxAttempts)
}

// ProgressFunc is called once per poll attempt that got an answer.
type ProgressFunc func(attempt int, report domain.StatusReport)

// Service implements the scan lifecycle: dispatch → poll → resolve → triage.
// One call to Run is strictly sequential; the Service itself is stateless and
// may be shared by goroutines running independent orchestrations.
type Service struct {
	API      domain.ScanAPI
	Clock    application.Clock
	Log      *zap.SugaredLogger
	Policy   Policy
	Progress ProgressFunc

	// optional, outside the core
	Runs    domain.RunRepository
	Reports domain.ReportStore
}

// PollResult hasil dari Poll
type PollResult struct {
	ScanID   domain.ScanID
	Status   domain.Status
	Attempts int
}

//
// ==== STAGES ====
//

// Dispatch validates the trigger and submits exactly one scan request, no retry.
func (s *Service) Dispatch(ctx context.Context, t domain.TriggerContext) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.log().Infow("Queueing scan...", "repo_id", t.RepoID, "run_id", t.RunID, "event", t.EventType, "branch", t.TargetBranch)
	if err := s.API.Dispatch(ctx, t); err != nil {
		return stageError(domain.ErrDispatch, err)
	}
	s.log().Info("Scan queued...")
	return nil
}

// Poll waits for the scan of repoID/runID to reach a terminal state.
func (s *Service) Poll(ctx context.Context, repoID, runID int64) (PollResult, error) {
	p := s.policy()
	pollCtx, cancel := context.WithTimeout(ctx, p.Budget())
	defer cancel()

	var res PollResult
	for res.Attempts < p.MaxAttempts {
		res.Attempts++
		report, err := s.API.Status(pollCtx, repoID, runID)
		if err != nil {
			if cerr := interrupted(ctx, pollCtx, res.Attempts); cerr != nil {
				return res, cerr
			}
			return res, stageError(domain.ErrTransientQuery, err)
		}
		if s.Progress != nil {
			s.Progress(res.Attempts, report)
		}

		switch {
		case !report.Visible:
			s.log().Infow("Scan not found yet, waiting...", "attempt", res.Attempts)
		case report.Status.Terminal():
			res.ScanID = report.ScanID
			res.Status = report.Status
			s.log().Infow(fmt.Sprintf("Current scan status: %s", report.Status), "scan_id", report.ScanID, "attempt", res.Attempts)
			if report.ErrorMessage != "" {
				return res, domain.NewError(domain.ErrRemoteScan, report.ErrorMessage)
			}
			return res, nil
		default:
			res.ScanID = report.ScanID
			res.Status = report.Status
			s.log().Infow(fmt.Sprintf("Current scan status: %s", report.Status), "scan_id", report.ScanID, "attempt", res.Attempts)
		}

		if res.Attempts == p.MaxAttempts {
			break
		}
		if err := s.Clock.Sleep(pollCtx, p.Interval); err != nil {
			if cerr := interrupted(ctx, pollCtx, res.Attempts); cerr != nil {
				return res, cerr
			}
			return res, err
		}
	}
	return res, &domain.Error{Kind: domain.ErrTimeout, Detail: fmt.Sprintf("no terminal status after %d attempts", res.Attempts)}
}

// Resolve fetches the findings of a finished scan, no retry.
func (s *Service) Resolve(ctx context.Context, id domain.ScanID) ([]domain.Finding, error) {
	findings, err := s.API.Issues(ctx, id)
	if err != nil {
		return nil, stageError(domain.ErrFetch, err)
	}
	return findings, nil
}

// Run executes all stages and maps the result to a Verdict.
func (s *Service) Run(ctx context.Context, t domain.TriggerContext) domain.Outcome {
	out := domain.Outcome{Trigger: t, StartedAt: s.Clock.Now()}
	finish := func(v domain.Verdict) domain.Outcome {
		out.Verdict = v
		out.FinishedAt = s.Clock.Now()
		s.log().Infow("scan finished",
			"verdict", v.Kind,
			"valid", v.ValidCount,
			"false_positives", v.FalsePositiveCount,
			"scan_id", out.ScanID,
			"attempts", out.Attempts,
			"duration", out.FinishedAt.Sub(out.StartedAt).String(),
		)
		return out
	}

	if err := s.Dispatch(ctx, t); err != nil {
		return finish(domain.VerdictFromError(err))
	}

	res, err := s.Poll(ctx, t.RepoID, t.RunID)
	out.ScanID = res.ScanID
	out.Attempts = res.Attempts
	if err != nil {
		return finish(domain.VerdictFromError(err))
	}

	findings, err := s.Resolve(ctx, res.ScanID)
	if err != nil {
		return finish(domain.VerdictFromError(err))
	}
	out.Findings = findings

	return finish(domain.VerdictFromCounts(domain.Triage(findings)))
}

//
// ==== RUN HISTORY ====
//

// Begin validates the trigger and opens a running RunRecord for it.
// Dipakai server: request yang invalid langsung ditolak tanpa background job.
func (s *Service) Begin(ctx context.Context, t domain.TriggerContext) (*domain.RunRecord, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return s.open(ctx, t), nil
}

// Complete runs the orchestration for rec and stores the outcome.
func (s *Service) Complete(ctx context.Context, rec *domain.RunRecord) domain.Outcome {
	out := s.Run(ctx, rec.Trigger())

	// simpan hasil pakai context baru, supaya tetap tersimpan walau ctx sudah cancel
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	url := s.archive(saveCtx, out)
	rec.Finish(out, url)
	if s.Runs != nil {
		if err := s.Runs.Save(saveCtx, rec); err != nil {
			s.log().Warnw("failed to store run outcome", "run", rec.ID, "error", err)
		}
	}
	return out
}

// Execute = Begin tanpa validasi + Complete, dipakai CLI dan queue worker.
func (s *Service) Execute(ctx context.Context, t domain.TriggerContext) (domain.Outcome, *domain.RunRecord) {
	rec := s.open(ctx, t)
	return s.Complete(ctx, rec), rec
}

// Get ambil 1 run by id
func (s *Service) Get(ctx context.Context, id domain.RunID) (*domain.RunRecord, error) {
	if s.Runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return s.Runs.Get(ctx, id)
}

// Latest ambil N run terakhir, repoID 0 berarti semua repo
func (s *Service) Latest(ctx context.Context, repoID int64, limit int) ([]*domain.RunRecord, error) {
	if s.Runs == nil {
		return nil, nil
	}
	return s.Runs.Latest(ctx, repoID, limit)
}

// Summary rekap hasil run N hari terakhir
func (s *Service) Summary(ctx context.Context, sinceDays int) (domain.RunSummary, error) {
	if s.Runs == nil {
		return domain.RunSummary{}, nil
	}
	return s.Runs.Summary(ctx, s.Clock.Now().AddDate(0, 0, -sinceDays))
}

// ReportKey is the object key used for the archived JSON report.
func ReportKey(t domain.TriggerContext) string {
	return fmt.Sprintf("%d/%d/report.json", t.RepoID, t.RunID)
}

func (s *Service) open(ctx context.Context, t domain.TriggerContext) *domain.RunRecord {
	rec := domain.NewRunRecord(domain.RunID(uuid.New().String()), t, s.Clock.Now())
	if s.Runs != nil {
		if err := s.Runs.Save(ctx, rec); err != nil {
			s.log().Warnw("failed to store run", "run", rec.ID, "error", err)
		}
	}
	return rec
}

func (s *Service) archive(ctx context.Context, out domain.Outcome) string {
	if s.Reports == nil {
		return ""
	}
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		s.log().Warnw("failed to encode report", "error", err)
		return ""
	}
	url, err := s.Reports.UploadReport(ctx, ReportKey(out.Trigger), body)
	if err != nil {
		s.log().Warnw("failed to upload report", "error", err)
		return ""
	}
	return url
}

func (s *Service) policy() Policy {
	p := s.Policy
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	return p
}

func (s *Service) log() *zap.SugaredLogger {
	if s.Log == nil {
		return zap.NewNop().Sugar()
	}
	return s.Log
}

// interrupted tells apart our own poll deadline (a timeout) from the caller
// cancelling the run (e.g. CI job cancelled). Returns nil if neither happened.
func interrupted(parent, pollCtx context.Context, attempts int) error {
	if parent.Err() != nil {
		return fmt.Errorf("scan polling interrupted: %w", parent.Err())
	}
	if errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
		return &domain.Error{Kind: domain.ErrTimeout, Detail: fmt.Sprintf("poll deadline reached after %d attempts", attempts), Err: pollCtx.Err()}
	}
	return nil
}

// stageError keeps typed errors from adapters and wraps anything else in kind.
func stageError(kind error, err error) error {
	var se *domain.Error
	if errors.As(err, &se) {
		return err
	}
	return &domain.Error{Kind: kind, Err: err}
}
