package ai

import (
	"context"

	"github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// Client writes a short markdown digest of the given findings.
type Client interface {
	Summarize(ctx context.Context, findings []scans.Finding) (string, error)
}
