package assessment

import (
	"fmt"
	"sort"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

// maxIssueExamples bounds how many occurrences a summarized issue records.
const maxIssueExamples = 5

// IssueExample points at one occurrence of a summarized issue.
type IssueExample struct {
	ResourceID string `json:"resourceId"`
	Location   string `json:"location,omitempty"`
}

// SummarizedIssue is a deduplicated group of identical validation issues
// with an occurrence count and a bounded sample of where they appeared.
type SummarizedIssue struct {
	Severity    fhir.Severity  `json:"severity"`
	Code        string         `json:"code"`
	Dimension   fhir.Dimension `json:"dimension"`
	Diagnostics string         `json:"diagnostics"`
	Count       int            `json:"count"`
	Examples    []IssueExample `json:"examples,omitempty"`
}

// groupKey is the identity of a summarized issue: two issues are duplicates
// only when severity, code, dimension, and diagnostic text all match exactly.
type groupKey struct {
	severity    fhir.Severity
	code        string
	dimension   fhir.Dimension
	diagnostics string
}

// Summarize groups the issues from a resource type's validation results into
// counted summaries sorted by descending count; ties keep first-encountered
// order. Issues missing a severity or code are skipped; when every issue was
// malformed a single synthetic summary records the failure so the issue trail
// is never silently empty.
func Summarize(results []fhir.ValidationResult, resourceType string) []SummarizedIssue {
	groups := make(map[groupKey]*SummarizedIssue)
	var order []groupKey

	totalSeen := 0
	skipped := 0
	for i := range results {
		for _, issue := range results[i].Issues {
			totalSeen++
			if issue.Severity == "" || issue.Code == "" {
				skipped++
				continue
			}

			key := groupKey{issue.Severity, issue.Code, issue.Dimension, issue.Diagnostics}
			group, ok := groups[key]
			if !ok {
				group = &SummarizedIssue{
					Severity:    issue.Severity,
					Code:        issue.Code,
					Dimension:   issue.Dimension,
					Diagnostics: issue.Diagnostics,
				}
				groups[key] = group
				order = append(order, key)
			}
			group.Count++
			if len(group.Examples) < maxIssueExamples {
				group.Examples = append(group.Examples, IssueExample{
					ResourceID: results[i].ResourceID,
					Location:   issue.Location,
				})
			}
		}
	}

	if len(groups) == 0 && skipped > 0 {
		return []SummarizedIssue{{
			Severity:    fhir.SeverityWarning,
			Code:        "summarization-failed",
			Dimension:   fhir.DimensionConformity,
			Diagnostics: fmt.Sprintf("all %d issues for %s were malformed and could not be summarized", skipped, resourceType),
			Count:       skipped,
		}}
	}

	out := make([]SummarizedIssue, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
