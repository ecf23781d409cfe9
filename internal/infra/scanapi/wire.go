package scanapi

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

type dispatchRequest struct {
	APIKey       string  `json:"apiKey"`
	RepoID       int64   `json:"repoId"`
	EventType    string  `json:"eventType"`
	ActionRunID  int64   `json:"actionRunId"`
	PullRequest  *string `json:"pullRequest"`
	TargetBranch string  `json:"targetBranch"`
}

type statusRequest struct {
	APIKey      string `json:"apiKey"`
	RepoID      int64  `json:"repoId"`
	ActionRunID int64  `json:"actionRunId"`
}

type issuesRequest struct {
	APIKey string `json:"apiKey"`
	ScanID string `json:"scanId"`
}

// Response shapes use pointers so required fields can be told apart from zero values.

type statusResponse struct {
	ID           *string `json:"id"`
	Status       *string `json:"status"`
	ErrorMessage *string `json:"errorMessage"`
}

func (r statusResponse) toDomain() (domain.StatusReport, error) {
	if r.ID == nil {
		return domain.StatusReport{}, errors.New("missing id")
	}
	if err := validScanID(*r.ID); err != nil {
		return domain.StatusReport{}, err
	}
	if r.Status == nil {
		return domain.StatusReport{}, errors.New("missing status")
	}
	st, err := domain.ParseStatus(*r.Status)
	if err != nil {
		return domain.StatusReport{}, err
	}
	report := domain.StatusReport{Visible: true, ScanID: domain.ScanID(*r.ID), Status: st}
	if r.ErrorMessage != nil {
		report.ErrorMessage = *r.ErrorMessage
	}
	return report, nil
}

type falsePositiveInfo struct {
	FalsePositive      *bool    `json:"falsePositive"`
	Confidence         *float64 `json:"confidence"`
	SummaryExplanation *string  `json:"summaryExplanation"`
}

type issueInfo struct {
	ID            *string            `json:"id"`
	IssueLabel    *string            `json:"issueLabel"`
	Name          *string            `json:"name"`
	Description   *string            `json:"description"`
	FalsePositive *falsePositiveInfo `json:"falsePositive"`
}

type issuesResponse struct {
	Count  *float64    `json:"count"`
	Issues []issueInfo `json:"issues"`
}

func (r issuesResponse) toDomain() ([]domain.Finding, error) {
	if r.Count == nil {
		return nil, errors.New("missing count")
	}
	if r.Issues == nil {
		return nil, errors.New("missing issues")
	}
	out := make([]domain.Finding, 0, len(r.Issues))
	for i, is := range r.Issues {
		f, err := is.toDomain()
		if err != nil {
			return nil, fmt.Errorf("issues[%d]: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (is issueInfo) toDomain() (domain.Finding, error) {
	if is.ID == nil {
		return domain.Finding{}, errors.New("missing id")
	}
	f := domain.Finding{
		ID:          *is.ID,
		Label:       deref(is.IssueLabel),
		Name:        deref(is.Name),
		Description: deref(is.Description),
	}
	if fp := is.FalsePositive; fp != nil {
		if fp.FalsePositive == nil || fp.Confidence == nil || fp.SummaryExplanation == nil {
			return domain.Finding{}, errors.New("incomplete falsePositive analysis")
		}
		f.FalsePositive = &domain.FalsePositiveVerdict{
			IsFalsePositive: *fp.FalsePositive,
			Confidence:      *fp.Confidence,
			Summary:         *fp.SummaryExplanation,
		}
	}
	return f, nil
}

// validScanID: the id is echoed into CI outputs and object keys, control characters are never legit.
func validScanID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("empty id")
	}
	if strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("id %q contains control characters", id)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
