package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

func TestGetUserPrompt(t *testing.T) {
	got := GetUserPrompt([]scans.Finding{
		{ID: "a1", Name: "SQL   injection\nin login", Description: "user input\n\tconcatenated"},
		{ID: "b2", Label: "xss"},
		{ID: "c3", Name: "Long", Description: strings.Repeat("x", maxDescription+50)},
	})

	assert.True(t, strings.HasPrefix(got, "Findings (3):\n"))
	assert.Contains(t, got, "1. [a1] SQL injection in login\n   user input concatenated\n")
	assert.Contains(t, got, "2. [b2] xss\n")
	assert.Contains(t, got, "   "+strings.Repeat("x", maxDescription)+"...\n")
}

func TestGetSystemPrompt(t *testing.T) {
	assert.Contains(t, GetSystemPrompt(), "markdown digest")
}
