// Package actions reports an outcome back to a GitHub Actions job.
package actions

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sethvargo/go-githubactions"

	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
)

// Reporter writes step outputs, the job summary and the failure annotation.
// Empty paths are skipped (e.g. when running outside Actions).
type Reporter struct {
	action      *githubactions.Action
	OutputPath  string
	SummaryPath string
}

func NewReporter(getenv func(string) string, stdout io.Writer) *Reporter {
	if stdout == nil {
		stdout = io.Discard
	}
	return &Reporter{
		action:      githubactions.New(githubactions.WithGetenv(getenv), githubactions.WithWriter(stdout)),
		OutputPath:  getenv("GITHUB_OUTPUT"),
		SummaryPath: getenv("GITHUB_STEP_SUMMARY"),
	}
}

// Report publishes out. digest is optional extra markdown for the summary.
// Outputs use the delimited file-command form, so a value cannot add lines.
func (r *Reporter) Report(out domain.Outcome, digest string) {
	if strings.TrimSpace(r.OutputPath) != "" {
		for _, o := range outputs(out) {
			r.action.SetOutput(o.name, o.value)
		}
	}
	if strings.TrimSpace(r.SummaryPath) != "" {
		r.action.AddStepSummary(Summary(out, digest))
	}
	if !out.Verdict.Passed() {
		r.action.Errorf("%s", out.Verdict.Message())
	}
}

// ExitCode: 0 for clean / clean-with-false-positives, 1 otherwise.
func ExitCode(v domain.Verdict) int {
	if v.Passed() {
		return 0
	}
	return 1
}

type output struct{ name, value string }

func outputs(out domain.Outcome) []output {
	return []output{
		{"verdict", string(out.Verdict.Kind)},
		{"passed", strconv.FormatBool(out.Verdict.Passed())},
		{"valid-count", strconv.Itoa(out.Verdict.ValidCount)},
		{"false-positive-count", strconv.Itoa(out.Verdict.FalsePositiveCount)},
		{"scan-id", string(out.ScanID)},
	}
}

// Summary renders the markdown job summary.
func Summary(out domain.Outcome, digest string) string {
	var b strings.Builder
	b.WriteString("## Security scan\n\n")
	b.WriteString("| Verdict | Valid issues | False positives | Scan |\n")
	b.WriteString("|---|---|---|---|\n")
	scanID := string(out.ScanID)
	if scanID == "" {
		scanID = "-"
	}
	fmt.Fprintf(&b, "| %s | %d | %d | %s |\n\n", out.Verdict.Kind, out.Verdict.ValidCount, out.Verdict.FalsePositiveCount, scanID)
	b.WriteString(out.Verdict.Message())
	b.WriteString("\n")

	if valid := domain.ValidFindings(out.Findings); len(valid) > 0 {
		b.WriteString("\n### Issues\n\n")
		for _, f := range valid {
			title := f.Name
			if title == "" {
				title = f.Label
			}
			if title == "" {
				title = f.ID
			}
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", markdownLine(title), f.ID)
		}
	}
	if strings.TrimSpace(digest) != "" {
		b.WriteString("\n### Digest\n\n")
		b.WriteString(strings.TrimSpace(digest))
		b.WriteString("\n")
	}
	return b.String()
}

func markdownLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
