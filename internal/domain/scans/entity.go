package scans

import (
	"fmt"
	"strings"
)

// ScanID diberikan oleh remote service begitu scan sudah kelihatan
type ScanID string

// EventType enum
type EventType string

const (
	EventPullRequest EventType = "pull-request"
	EventCommit      EventType = "commit"
)

// Status enum, mirrors the remote status field
type Status string

const (
	StatusScanning          Status = "scanning"
	StatusTriaging          Status = "triaging"
	StatusDone              Status = "done"
	StatusGeneratingPatches Status = "generating patches"
)

// ParseStatus rejects anything outside the known set.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusScanning, StatusTriaging, StatusDone, StatusGeneratingPatches:
		return s, nil
	default:
		return "", fmt.Errorf("unknown scan status %q", raw)
	}
}

// Terminal reports whether no further progress will happen.
func (s Status) Terminal() bool { return s == StatusDone }

// TriggerContext describes the CI event that asked for the scan.
// Built once at the process boundary and passed by value.
type TriggerContext struct {
	RepoID         int64     `json:"repoId"`
	RunID          int64     `json:"runId"`
	EventType      EventType `json:"eventType"`
	PullRequestURL string    `json:"pullRequest,omitempty"`
	TargetBranch   string    `json:"targetBranch"`
}

// Validate checks the trigger before anything touches the network.
func (t TriggerContext) Validate() error {
	switch t.EventType {
	case EventPullRequest:
		if strings.TrimSpace(t.PullRequestURL) == "" {
			return NewError(ErrConfiguration, "pull-request trigger without a pull request URL")
		}
	case EventCommit:
	default:
		return NewError(ErrConfiguration, fmt.Sprintf("unsupported event type: %s", t.EventType))
	}
	if t.RepoID <= 0 {
		return NewError(ErrConfiguration, "repository id is missing")
	}
	if t.RunID <= 0 {
		return NewError(ErrConfiguration, "run id is missing")
	}
	return nil
}

// StatusReport is one answer of the status endpoint.
// Visible=false means the remote side answered "not found" (scan not materialized yet).
type StatusReport struct {
	Visible      bool
	ScanID       ScanID
	Status       Status
	ErrorMessage string
}

// FalsePositiveVerdict value object
type FalsePositiveVerdict struct {
	IsFalsePositive bool    `json:"falsePositive"`
	Confidence      float64 `json:"confidence"`
	Summary         string  `json:"summaryExplanation"`
}

// Finding is one issue candidate reported by a scan.
// FalsePositive nil berarti belum di-triage remote, dianggap valid.
type Finding struct {
	ID            string                `json:"id"`
	Label         string                `json:"issueLabel,omitempty"`
	Name          string                `json:"name,omitempty"`
	Description   string                `json:"description,omitempty"`
	FalsePositive *FalsePositiveVerdict `json:"falsePositive,omitempty"`
}

// Valid is the conservative classification: only an explicit
// isFalsePositive=true judgment removes a finding.
func (f Finding) Valid() bool {
	return f.FalsePositive == nil || !f.FalsePositive.IsFalsePositive
}
