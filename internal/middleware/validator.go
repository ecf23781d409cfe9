package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// Input validation and sanitization utilities

var branchPattern = regexp.MustCompile(`^[A-Za-z0-9._/@+-]{1,255}$`)

// ValidatePullRequestURL requires an absolute http(s) URL.
func ValidatePullRequestURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid pull request URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid pull request URL scheme: %q (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("pull request URL has no host")
	}
	return nil
}

// ValidateBranch rejects names git itself would not accept as a ref.
func ValidateBranch(branch string) error {
	if branch == "" {
		return nil // optional
	}
	if !branchPattern.MatchString(branch) || strings.Contains(branch, "..") {
		return fmt.Errorf("invalid target branch %q", branch)
	}
	return nil
}

// ValidateTrigger checks the request body of POST /v1/runs on top of TriggerContext.Validate.
func ValidateTrigger(t domain.TriggerContext) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.PullRequestURL != "" {
		if err := ValidatePullRequestURL(t.PullRequestURL); err != nil {
			return domain.NewError(domain.ErrConfiguration, err.Error())
		}
	}
	if err := ValidateBranch(t.TargetBranch); err != nil {
		return domain.NewError(domain.ErrConfiguration, err.Error())
	}
	return nil
}

// SanitizeTrigger trims whitespace and control characters from free-text fields.
func SanitizeTrigger(t domain.TriggerContext) domain.TriggerContext {
	t.PullRequestURL = SanitizeString(t.PullRequestURL)
	t.TargetBranch = SanitizeString(t.TargetBranch)
	t.EventType = domain.EventType(SanitizeString(string(t.EventType)))
	return t
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateRunID requires the uuid form produced for RunRecord ids.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid run ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
