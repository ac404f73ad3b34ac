package models

// IssueSeverity grades a static-analysis finding.
type IssueSeverity string

const (
	SeverityHigh   IssueSeverity = "high"
	SeverityMedium IssueSeverity = "medium"
	SeverityLow    IssueSeverity = "low"
)

// AnalysisIssue is one severity-tagged finding in generated content.
type AnalysisIssue struct {
	Severity   IssueSeverity `json:"severity"`
	Location   string        `json:"location"`
	Message    string        `json:"message"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// StaticAnalysisReport is the quality verdict for one generated file.
// An empty issue list means no fix cycle runs, regardless of the score.
type StaticAnalysisReport struct {
	QualityScore    int             `json:"qualityScore"`
	Issues          []AnalysisIssue `json:"issues"`
	Recommendations []string        `json:"recommendations,omitempty"`
}

// HasIssues reports whether the report contains at least one finding.
func (r *StaticAnalysisReport) HasIssues() bool {
	return r != nil && len(r.Issues) > 0
}
