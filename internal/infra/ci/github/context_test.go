package github

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

func writeEvent(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func TestEnvFrom(t *testing.T) {
	vars := map[string]string{
		"GITHUB_EVENT_NAME": "push",
		"GITHUB_EVENT_PATH": "/tmp/event.json",
		"GITHUB_RUN_ID":     "99",
		"GITHUB_REF":        "refs/heads/main",
	}
	env := EnvFrom(func(k string) string { return vars[k] })
	assert.Equal(t, Env{EventName: "push", EventPath: "/tmp/event.json", RunID: "99", Ref: "refs/heads/main"}, env)
}

func TestTriggerFromPullRequest(t *testing.T) {
	path := writeEvent(t, `{
		"repository": {"id": 123456},
		"pull_request": {"html_url": "https://github.com/acme/app/pull/8", "head": {"ref": "feature/login"}}
	}`)

	tr, err := TriggerFromEnv(Env{EventName: "pull_request", EventPath: path, RunID: "777", Ref: "refs/pull/8/merge"}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerContext{
		RepoID:         123456,
		RunID:          777,
		EventType:      domain.EventPullRequest,
		PullRequestURL: "https://github.com/acme/app/pull/8",
		TargetBranch:   "feature/login",
	}, tr)
	assert.NoError(t, tr.Validate())
}

func TestTriggerFromPush(t *testing.T) {
	path := writeEvent(t, `{"repository": {"id": 5}}`)

	tr, err := TriggerFromEnv(Env{EventName: "push", EventPath: path, RunID: "12", Ref: "refs/heads/release/v2"}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.EventCommit, tr.EventType)
	assert.Equal(t, "release/v2", tr.TargetBranch)
	assert.Empty(t, tr.PullRequestURL)
	assert.Equal(t, int64(5), tr.RepoID)
}

func TestUnsupportedEventIsRejectedAtDispatch(t *testing.T) {
	path := writeEvent(t, `{"repository": {"id": 5}}`)

	tr, err := TriggerFromEnv(Env{EventName: "schedule", EventPath: path, RunID: "12", Ref: "refs/heads/main"}, "")
	require.NoError(t, err)

	err = tr.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
	assert.Contains(t, err.Error(), "unsupported event type: schedule")
}

func TestInvalidRunID(t *testing.T) {
	_, err := TriggerFromEnv(Env{EventName: "push", RunID: "abc"}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestUnreadablePayload(t *testing.T) {
	_, err := TriggerFromEnv(Env{EventName: "push", RunID: "1", EventPath: filepath.Join(t.TempDir(), "missing.json")}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	bad := writeEvent(t, `{not json`)
	_, err = TriggerFromEnv(Env{EventName: "push", RunID: "1", EventPath: bad}, "")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func initRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
	}))
	return dir
}

func TestBranchFallsBackToCheckout(t *testing.T) {
	dir := initRepo(t, "feature/fallback")
	sub := filepath.Join(dir, "nested", "dir")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	branch, err := CurrentBranch(sub)
	require.NoError(t, err)
	assert.Equal(t, "feature/fallback", branch)

	tr, err := TriggerFromEnv(Env{EventName: "workflow_dispatch", RunID: "3"}, dir)
	require.NoError(t, err)
	assert.Equal(t, "feature/fallback", tr.TargetBranch)
}

func TestCurrentBranchOutsideRepo(t *testing.T) {
	_, err := CurrentBranch(t.TempDir())
	assert.Error(t, err)
}
