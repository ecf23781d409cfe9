package scans

import (
	"errors"
	"fmt"
)

// VerdictKind enum
type VerdictKind string

const (
	VerdictClean                   VerdictKind = "clean"
	VerdictCleanWithFalsePositives VerdictKind = "clean-with-false-positives"
	VerdictIssuesFound             VerdictKind = "issues-found"
	VerdictError                   VerdictKind = "error"
	VerdictTimeout                 VerdictKind = "timeout"
)

// Verdict is the final answer of one orchestration. Never mutated after creation.
type Verdict struct {
	Kind               VerdictKind `json:"kind"`
	ValidCount         int         `json:"valid_count"`
	FalsePositiveCount int         `json:"false_positive_count"`
	Reason             string      `json:"reason,omitempty"`
}

// VerdictFromCounts applies the pass/fail rule: any valid finding fails the
// run no matter how many false positives came with it.
func VerdictFromCounts(c TriageCounts) Verdict {
	switch {
	case c.Valid > 0:
		return Verdict{Kind: VerdictIssuesFound, ValidCount: c.Valid, FalsePositiveCount: c.FalsePositive}
	case c.FalsePositive > 0:
		return Verdict{Kind: VerdictCleanWithFalsePositives, FalsePositiveCount: c.FalsePositive}
	default:
		return Verdict{Kind: VerdictClean}
	}
}

// VerdictFromError maps a stage failure. Timeouts stay distinct from errors.
func VerdictFromError(err error) Verdict {
	if errors.Is(err, ErrTimeout) {
		return Verdict{Kind: VerdictTimeout, Reason: err.Error()}
	}
	var se *Error
	if errors.As(err, &se) {
		return Verdict{Kind: VerdictError, Reason: se.Reason()}
	}
	return Verdict{Kind: VerdictError, Reason: err.Error()}
}

// Passed reports whether the surrounding CI job should succeed.
func (v Verdict) Passed() bool {
	return v.Kind == VerdictClean || v.Kind == VerdictCleanWithFalsePositives
}

// Message is the human readable line shown to the CI user.
func (v Verdict) Message() string {
	switch v.Kind {
	case VerdictIssuesFound:
		return fmt.Sprintf("Scan completed successfully. %d issues found (%d false positives).", v.ValidCount, v.FalsePositiveCount)
	case VerdictCleanWithFalsePositives:
		return fmt.Sprintf("Scan completed successfully. No issues found. (%d false positives).", v.FalsePositiveCount)
	case VerdictClean:
		return "Scan completed successfully. No issues found."
	case VerdictTimeout:
		return "Scan timed out"
	default:
		return "Error occurred during scan: " + v.Reason
	}
}
