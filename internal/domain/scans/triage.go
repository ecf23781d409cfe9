package scans

// TriageCounts value object
type TriageCounts struct {
	Valid         int `json:"valid"`
	FalsePositive int `json:"false_positive"`
}

// Total is Valid + FalsePositive, which is always the number of findings triaged.
func (c TriageCounts) Total() int { return c.Valid + c.FalsePositive }

// Triage reduces findings to counts. Pure, no I/O, cannot fail.
func Triage(findings []Finding) TriageCounts {
	var valid int
	for _, f := range findings {
		if f.Valid() {
			valid++
		}
	}
	return TriageCounts{Valid: valid, FalsePositive: len(findings) - valid}
}

// ValidFindings keeps the order returned by the remote side.
func ValidFindings(findings []Finding) []Finding {
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Valid() {
			out = append(out, f)
		}
	}
	return out
}
