package scans

import "time"

// RunID identifier untuk RunRecord
type RunID string

// RunState enum
type RunState string

const (
	RunStateRunning  RunState = "running"
	RunStateFinished RunState = "finished"
)

// Outcome is what one orchestration produced, handed to reporters.
type Outcome struct {
	Trigger    TriggerContext `json:"trigger"`
	ScanID     ScanID         `json:"scan_id,omitempty"`
	Verdict    Verdict        `json:"verdict"`
	Findings   []Finding      `json:"findings"`
	Attempts   int            `json:"attempts"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunRecord is the persisted view of an orchestration (run history).
type RunRecord struct {
	ID                 RunID       `json:"id"`
	RepoID             int64       `json:"repo_id"`
	ActionRunID        int64       `json:"action_run_id"`
	EventType          EventType   `json:"event_type"`
	PullRequestURL     string      `json:"pull_request_url,omitempty"`
	TargetBranch       string      `json:"target_branch"`
	ScanID             ScanID      `json:"scan_id,omitempty"`
	State              RunState    `json:"state"`
	Verdict            VerdictKind `json:"verdict,omitempty"`
	ValidCount         int         `json:"valid_count"`
	FalsePositiveCount int         `json:"false_positive_count"`
	Message            string      `json:"message,omitempty"`
	Attempts           int         `json:"attempts"`
	ReportURL          string      `json:"report_url,omitempty"`
	StartedAt          time.Time   `json:"started_at"`
	FinishedAt         *time.Time  `json:"finished_at,omitempty"`
}

// NewRunRecord starts a record in running state.
func NewRunRecord(id RunID, t TriggerContext, startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:             id,
		RepoID:         t.RepoID,
		ActionRunID:    t.RunID,
		EventType:      t.EventType,
		PullRequestURL: t.PullRequestURL,
		TargetBranch:   t.TargetBranch,
		State:          RunStateRunning,
		StartedAt:      startedAt,
	}
}

// Trigger rebuilds the trigger the record was opened for.
func (r *RunRecord) Trigger() TriggerContext {
	return TriggerContext{
		RepoID:         r.RepoID,
		RunID:          r.ActionRunID,
		EventType:      r.EventType,
		PullRequestURL: r.PullRequestURL,
		TargetBranch:   r.TargetBranch,
	}
}

// Finish copies the outcome into the record.
func (r *RunRecord) Finish(o Outcome, reportURL string) {
	finished := o.FinishedAt
	r.ScanID = o.ScanID
	r.State = RunStateFinished
	r.Verdict = o.Verdict.Kind
	r.ValidCount = o.Verdict.ValidCount
	r.FalsePositiveCount = o.Verdict.FalsePositiveCount
	r.Message = o.Verdict.Message()
	r.Attempts = o.Attempts
	r.ReportURL = reportURL
	r.FinishedAt = &finished
}

// RunSummary rekap hasil run N hari terakhir
type RunSummary struct {
	Total    int `json:"total_runs"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timed_out"`
	Errored  int `json:"errored"`
}
