package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

func TestValidateTrigger(t *testing.T) {
	base := domain.TriggerContext{RepoID: 1, RunID: 2, EventType: domain.EventCommit, TargetBranch: "feature/login-v2"}

	assert.NoError(t, ValidateTrigger(base))

	pr := base
	pr.EventType = domain.EventPullRequest
	pr.PullRequestURL = "https://github.com/acme/api/pull/9"
	assert.NoError(t, ValidateTrigger(pr))

	pr.PullRequestURL = "javascript:alert(1)"
	assert.ErrorIs(t, ValidateTrigger(pr), domain.ErrConfiguration)

	bad := base
	bad.TargetBranch = "../../etc"
	assert.ErrorIs(t, ValidateTrigger(bad), domain.ErrConfiguration)

	bad.TargetBranch = "has space"
	assert.ErrorIs(t, ValidateTrigger(bad), domain.ErrConfiguration)

	noRepo := base
	noRepo.RepoID = 0
	assert.ErrorIs(t, ValidateTrigger(noRepo), domain.ErrConfiguration)
}

func TestSanitizeTrigger(t *testing.T) {
	got := SanitizeTrigger(domain.TriggerContext{
		EventType:      " commit\x00 ",
		TargetBranch:   "main\x07\n",
		PullRequestURL: "  https://x/pull/1 ",
	})
	assert.Equal(t, domain.EventCommit, got.EventType)
	assert.Equal(t, "main", got.TargetBranch)
	assert.Equal(t, "https://x/pull/1", got.PullRequestURL)
}

func TestValidateRunID(t *testing.T) {
	assert.NoError(t, ValidateRunID("7b3c1a52-2f8e-4a57-9d0f-5f3f7f1d8e21"))
	assert.Error(t, ValidateRunID(""))
	assert.Error(t, ValidateRunID("42"))
}

func TestLimitsAndDays(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 5, ValidateLimit(5))
	assert.Equal(t, 100, ValidateLimit(1000))

	assert.Equal(t, 7, ValidateDays(-1))
	assert.Equal(t, 30, ValidateDays(30))
	assert.Equal(t, 365, ValidateDays(9999))
}
