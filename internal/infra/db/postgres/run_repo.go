package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const runColumns = `id, repo_id, action_run_id, event_type, pull_request_url, target_branch,
       scan_id, state, verdict, valid_count, false_positive_count, message,
       attempts, report_url, started_at, finished_at`

type RunRepository struct{ db *sql.DB }

func NewRunRepository(db *sql.DB) *RunRepository { return &RunRepository{db: db} }

// Save insert/update RunRecord
func (r *RunRepository) Save(ctx context.Context, rec *domain.RunRecord) error {
	const q = `
INSERT INTO scan_runs
(id, repo_id, action_run_id, event_type, pull_request_url, target_branch,
 scan_id, state, verdict, valid_count, false_positive_count, message,
 attempts, report_url, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,
        $7,$8,$9,$10,$11,$12,
        $13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET
 scan_id = EXCLUDED.scan_id,
 state = EXCLUDED.state,
 verdict = EXCLUDED.verdict,
 valid_count = EXCLUDED.valid_count,
 false_positive_count = EXCLUDED.false_positive_count,
 message = EXCLUDED.message,
 attempts = EXCLUDED.attempts,
 report_url = EXCLUDED.report_url,
 finished_at = EXCLUDED.finished_at;`

	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	var finished sql.NullTime
	if rec.FinishedAt != nil {
		finished = sql.NullTime{Time: rec.FinishedAt.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, q,
		rec.ID, rec.RepoID, rec.ActionRunID, rec.EventType, rec.PullRequestURL, rec.TargetBranch,
		rec.ScanID, rec.State, rec.Verdict, rec.ValidCount, rec.FalsePositiveCount, rec.Message,
		rec.Attempts, rec.ReportURL, started.UTC(), finished,
	)
	return err
}

// Get by ID
func (r *RunRepository) Get(ctx context.Context, id domain.RunID) (*domain.RunRecord, error) {
	q := `SELECT ` + runColumns + ` FROM scan_runs WHERE id=$1 LIMIT 1;`
	rec, err := scanRun(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	return rec, err
}

// Latest runs, repoID 0 = semua repo
func (r *RunRepository) Latest(ctx context.Context, repoID int64, limit int) ([]*domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	q := `SELECT ` + runColumns + ` FROM scan_runs`
	args := []any{}
	if repoID != 0 {
		args = append(args, repoID)
		q += fmt.Sprintf(` WHERE repo_id=$%d`, len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY started_at DESC, id DESC LIMIT $%d;`, len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	out := []*domain.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Summary counts run verdicts since a point in time
func (r *RunRepository) Summary(ctx context.Context, since time.Time) (domain.RunSummary, error) {
	const q = `
SELECT COUNT(*) AS total_runs,
       COUNT(*) FILTER (WHERE verdict IN ('clean','clean-with-false-positives')) AS passed,
       COUNT(*) FILTER (WHERE verdict = 'issues-found') AS failed,
       COUNT(*) FILTER (WHERE verdict = 'timeout') AS timed_out,
       COUNT(*) FILTER (WHERE verdict = 'error') AS errored
FROM scan_runs
WHERE started_at >= $1;`
	var s domain.RunSummary
	err := r.db.QueryRowContext(ctx, q, since.UTC()).Scan(&s.Total, &s.Passed, &s.Failed, &s.TimedOut, &s.Errored)
	return s, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.RunRecord, error) {
	var r domain.RunRecord
	var finished sql.NullTime
	if err := row.Scan(
		&r.ID, &r.RepoID, &r.ActionRunID, &r.EventType, &r.PullRequestURL, &r.TargetBranch,
		&r.ScanID, &r.State, &r.Verdict, &r.ValidCount, &r.FalsePositiveCount, &r.Message,
		&r.Attempts, &r.ReportURL, &r.StartedAt, &finished,
	); err != nil {
		return nil, err
	}
	r.StartedAt = r.StartedAt.UTC()
	if finished.Valid {
		t := finished.Time.UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}
