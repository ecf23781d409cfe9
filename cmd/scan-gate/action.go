package main

import (
	"context"
	"io"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/ci/actions"
	"github.com/bryanwahyu/automaton-scan-gate/internal/infra/ci/github"
)

// runAction is the GitHub Action mode: one orchestration, exit code = verdict.
// getenv is os.Getenv and stdout os.Stdout outside tests.
func runAction(ctx context.Context, a *app, getenv func(string) string, stdout io.Writer) int {
	reporter := actions.NewReporter(getenv, stdout)

	workdir := getenv("GITHUB_WORKSPACE")
	if workdir == "" {
		workdir = "."
	}

	var out domain.Outcome
	t, err := github.TriggerFromEnv(github.EnvFrom(getenv), workdir)
	if err != nil {
		out = domain.Outcome{Trigger: t, Verdict: domain.VerdictFromError(err)}
	} else {
		out, _ = a.scans.Execute(ctx, t)
	}

	digest, err := a.ai.Digest(ctx, out)
	if err != nil {
		a.log.Warnw("findings digest unavailable", "error", err)
	}

	reporter.Report(out, digest)
	a.log.Info(out.Verdict.Message())
	return actions.ExitCode(out.Verdict)
}
