package mysql

import (
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const runColumns = `id, repo_id, action_run_id, event_type, pull_request_url, target_branch,
       scan_id, state, verdict, valid_count, false_positive_count, message,
       attempts, report_url, started_at, finished_at`

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
	if finished.Valid {
		t := finished.Time.UTC()
		r.FinishedAt = &t
	}
	r.StartedAt = r.StartedAt.UTC()
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// clampLimit default 20, max 100
func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
