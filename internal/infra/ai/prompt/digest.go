package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

const maxDescription = 600

// GetSystemPrompt gives the model its role and output rules.
func GetSystemPrompt() string {
	return `You are a senior application security reviewer writing for the developer who opened this change.
Write a short markdown digest of the security findings listed by the user.

Requirements:
- Plain markdown only, no code fences around the whole answer.
- Start with one sentence stating the overall risk.
- Then a bullet per finding: bold title, one line on impact, one line on the fix.
- Group findings that share a root cause into a single bullet.
- Do not invent findings that are not listed. Do not restate false positives.
- Stay under 250 words.`
}

// GetUserPrompt renders findings as a numbered list. Long descriptions are cut.
func GetUserPrompt(findings []scans.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Findings (%d):\n", len(findings))
	for i, f := range findings {
		title := f.Name
		if title == "" {
			title = f.Label
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, f.ID, oneLine(title))
		if d := oneLine(f.Description); d != "" {
			fmt.Fprintf(&b, "   %s\n", trim(d, maxDescription))
		}
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
