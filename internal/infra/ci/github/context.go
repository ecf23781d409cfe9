// Package github builds a TriggerContext from the GitHub Actions environment.
package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	git "github.com/go-git/go-git/v5"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const (
	EventPullRequest = "pull_request"
	EventPush        = "push"
)

// Env is the subset of GitHub-provided variables we read.
type Env struct {
	EventName string
	EventPath string
	RunID     string
	Ref       string
}

// EnvFrom reads the variables through getenv (os.Getenv in production).
func EnvFrom(getenv func(string) string) Env {
	return Env{
		EventName: getenv("GITHUB_EVENT_NAME"),
		EventPath: getenv("GITHUB_EVENT_PATH"),
		RunID:     getenv("GITHUB_RUN_ID"),
		Ref:       getenv("GITHUB_REF"),
	}
}

// eventPayload is the part of the webhook payload file we need.
type eventPayload struct {
	Repository *struct {
		ID int64 `json:"id"`
	} `json:"repository"`
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
		Head    struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
}

// TriggerFromEnv turns the ambient GitHub context into an explicit TriggerContext.
// Unsupported event names are carried through verbatim; dispatch rejects them.
// workdir is used to find the checked-out branch when the event has none.
func TriggerFromEnv(env Env, workdir string) (domain.TriggerContext, error) {
	var t domain.TriggerContext

	runID, err := strconv.ParseInt(strings.TrimSpace(env.RunID), 10, 64)
	if err != nil {
		return t, domain.NewError(domain.ErrConfiguration, fmt.Sprintf("invalid GITHUB_RUN_ID %q", env.RunID))
	}
	t.RunID = runID

	payload, err := readPayload(env.EventPath)
	if err != nil {
		return t, &domain.Error{Kind: domain.ErrConfiguration, Detail: "read event payload", Err: err}
	}
	if payload.Repository != nil {
		t.RepoID = payload.Repository.ID
	}

	switch env.EventName {
	case EventPullRequest:
		t.EventType = domain.EventPullRequest
		if payload.PullRequest != nil {
			t.PullRequestURL = payload.PullRequest.HTMLURL
			t.TargetBranch = payload.PullRequest.Head.Ref
		}
	case EventPush:
		t.EventType = domain.EventCommit
		t.TargetBranch = strings.TrimPrefix(env.Ref, "refs/heads/")
	default:
		t.EventType = domain.EventType(env.EventName)
		t.TargetBranch = strings.TrimPrefix(env.Ref, "refs/heads/")
	}

	if t.TargetBranch == "" && workdir != "" {
		if branch, err := CurrentBranch(workdir); err == nil {
			t.TargetBranch = branch
		}
	}
	return t, nil
}

func readPayload(path string) (eventPayload, error) {
	var p eventPayload
	if strings.TrimSpace(path) == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}

// ErrDetachedHead is returned when HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is not a branch")

// CurrentBranch returns the short branch name checked out at (or above) dir.
func CurrentBranch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open git repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}
