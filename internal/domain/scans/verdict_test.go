package scans

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(isFP bool) *FalsePositiveVerdict {
	return &FalsePositiveVerdict{IsFalsePositive: isFP, Confidence: 0.9, Summary: "checked"}
}

func TestTriage(t *testing.T) {
	findings := []Finding{
		{ID: "1"},
		{ID: "2", FalsePositive: fp(true)},
		{ID: "3", FalsePositive: fp(false)},
		{ID: "4", FalsePositive: fp(true)},
	}
	c := Triage(findings)
	assert.Equal(t, 2, c.Valid)
	assert.Equal(t, 2, c.FalsePositive)
	assert.Equal(t, len(findings), c.Total())

	valid := ValidFindings(findings)
	require.Len(t, valid, 2)
	assert.Equal(t, "1", valid[0].ID)
	assert.Equal(t, "3", valid[1].ID)
}

func TestTriageEmpty(t *testing.T) {
	assert.Equal(t, TriageCounts{}, Triage(nil))
}

func TestVerdictFromCounts(t *testing.T) {
	tests := []struct {
		name    string
		counts  TriageCounts
		kind    VerdictKind
		passed  bool
		message string
	}{
		{"clean", TriageCounts{}, VerdictClean, true, "Scan completed successfully. No issues found."},
		{"only false positives", TriageCounts{FalsePositive: 3}, VerdictCleanWithFalsePositives, true,
			"Scan completed successfully. No issues found. (3 false positives)."},
		{"issues", TriageCounts{Valid: 2, FalsePositive: 1}, VerdictIssuesFound, false,
			"Scan completed successfully. 2 issues found (1 false positives)."},
		{"one issue among many false positives", TriageCounts{Valid: 1, FalsePositive: 50}, VerdictIssuesFound, false,
			"Scan completed successfully. 1 issues found (50 false positives)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := VerdictFromCounts(tt.counts)
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.passed, v.Passed())
			assert.Equal(t, tt.message, v.Message())
		})
	}
}

func TestVerdictFromError(t *testing.T) {
	t.Run("timeout stays distinct", func(t *testing.T) {
		v := VerdictFromError(&Error{Kind: ErrTimeout, Detail: "no terminal status after 1200 attempts"})
		assert.Equal(t, VerdictTimeout, v.Kind)
		assert.False(t, v.Passed())
		assert.Equal(t, "Scan timed out", v.Message())
	})

	t.Run("remote error message surfaces verbatim", func(t *testing.T) {
		v := VerdictFromError(NewError(ErrRemoteScan, "repository too large"))
		assert.Equal(t, VerdictError, v.Kind)
		assert.Equal(t, "Error occurred during scan: repository too large", v.Message())
	})

	t.Run("wrapped stage error", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", &Error{Kind: ErrDispatch, Status: 401, Detail: "bad key"})
		v := VerdictFromError(err)
		assert.Equal(t, VerdictError, v.Kind)
		assert.Equal(t, "dispatch error: status 401: bad key", v.Reason)
	})

	t.Run("plain error", func(t *testing.T) {
		v := VerdictFromError(context.Canceled)
		assert.Equal(t, VerdictError, v.Kind)
		assert.Equal(t, "context canceled", v.Reason)
	})
}
