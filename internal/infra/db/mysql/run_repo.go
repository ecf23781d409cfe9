package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Save insert/update RunRecord
func (r *RunRepository) Save(ctx context.Context, rec *domain.RunRecord) error {
	const q = `
INSERT INTO scan_runs
(id, repo_id, action_run_id, event_type, pull_request_url, target_branch,
 scan_id, state, verdict, valid_count, false_positive_count, message,
 attempts, report_url, started_at, finished_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 scan_id=VALUES(scan_id), state=VALUES(state), verdict=VALUES(verdict),
 valid_count=VALUES(valid_count), false_positive_count=VALUES(false_positive_count),
 message=VALUES(message), attempts=VALUES(attempts), report_url=VALUES(report_url),
 finished_at=VALUES(finished_at);
`
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.RepoID, rec.ActionRunID, rec.EventType, rec.PullRequestURL, rec.TargetBranch,
		rec.ScanID, rec.State, rec.Verdict, rec.ValidCount, rec.FalsePositiveCount, rec.Message,
		rec.Attempts, rec.ReportURL, started.UTC(), nullTime(rec.FinishedAt),
	)
	return err
}

// Get by ID
func (r *RunRepository) Get(ctx context.Context, id domain.RunID) (*domain.RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM scan_runs WHERE id=? LIMIT 1;`
	rec, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return rec, err
}

// Latest runs, repoID 0 = semua repo
func (r *RunRepository) Latest(ctx context.Context, repoID int64, limit int) ([]*domain.RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM scan_runs`
	args := []any{}
	if repoID != 0 {
		q += ` WHERE repo_id=?`
		args = append(args, repoID)
	}
	q += ` ORDER BY started_at DESC, id DESC LIMIT ?;`
	args = append(args, clampLimit(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summary counts run verdicts since a point in time
func (r *RunRepository) Summary(ctx context.Context, since time.Time) (domain.RunSummary, error) {
	const q = `
SELECT COUNT(*) AS total_runs,
       COALESCE(SUM(CASE WHEN verdict IN ('clean','clean-with-false-positives') THEN 1 ELSE 0 END),0) AS passed,
       COALESCE(SUM(CASE WHEN verdict = 'issues-found' THEN 1 ELSE 0 END),0) AS failed,
       COALESCE(SUM(CASE WHEN verdict = 'timeout' THEN 1 ELSE 0 END),0) AS timed_out,
       COALESCE(SUM(CASE WHEN verdict = 'error' THEN 1 ELSE 0 END),0) AS errored
FROM scan_runs
WHERE started_at >= ?;
`
	var s domain.RunSummary
	err := r.db.QueryRowContext(ctx, q, since.UTC()).Scan(&s.Total, &s.Passed, &s.Failed, &s.TimedOut, &s.Errored)
	return s, err
}
