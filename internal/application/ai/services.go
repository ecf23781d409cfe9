package ai

import (
	"context"

	"github.com/bryanwahyu/automaton-scan-gate/internal/domain/ai"
	"github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// MaxDigestFindings batas finding yang dikirim ke model
const MaxDigestFindings = 20

type Service struct {
	client ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

// Digest returns a markdown digest for runs that found issues, "" otherwise.
// Only valid findings are sent, capped at MaxDigestFindings.
func (s *Service) Digest(ctx context.Context, out scans.Outcome) (string, error) {
	if s == nil || s.client == nil || out.Verdict.Kind != scans.VerdictIssuesFound {
		return "", nil
	}
	valid := scans.ValidFindings(out.Findings)
	if len(valid) == 0 {
		return "", nil
	}
	if len(valid) > MaxDigestFindings {
		valid = valid[:MaxDigestFindings]
	}
	return s.client.Summarize(ctx, valid)
}
