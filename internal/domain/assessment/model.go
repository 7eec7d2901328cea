// Package assessment implements the data quality assessment engine: the
// batch orchestrator that fetches and validates resources per resource type,
// the dimension-weighted quality scorer, the issue summarizer, and the
// progress model polled by clients while a run is in flight.
package assessment

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
	"github.com/fhirspective/fhirspective/internal/platform/fhirclient"
)

// Status is the lifecycle state of an assessment run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal returns true for the final states. Terminal states are never left;
// a retry is a new assessment.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TypeStatus is the state of one resource type within a running assessment.
type TypeStatus string

const (
	TypePending    TypeStatus = "pending"
	TypeInProgress TypeStatus = "in-progress"
	TypeComplete   TypeStatus = "complete"
)

// SampleAll selects every resource the server returns for a type.
const SampleAll = 0

// Assessment identifies and configures one quality assessment run.
type Assessment struct {
	ID            uuid.UUID               `json:"id"`
	Server        fhirclient.ServerConfig `json:"server"`
	ResourceTypes []string                `json:"resourceTypes"`
	// SampleSize caps how many resources are fetched per type.
	// SampleAll (0) fetches everything.
	SampleSize int              `json:"sampleSize"`
	Dimensions []fhir.Dimension `json:"dimensions,omitempty"`
	// Validator and Framework are opaque strategy keys recorded with the run.
	Validator   string     `json:"validator,omitempty"`
	Framework   string     `json:"framework,omitempty"`
	Guide       string     `json:"implementationGuide,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Validate checks an assessment configuration before it is accepted.
func (a *Assessment) Validate() error {
	if len(a.ResourceTypes) == 0 {
		return fmt.Errorf("at least one resource type is required")
	}
	seen := make(map[string]bool, len(a.ResourceTypes))
	for _, rt := range a.ResourceTypes {
		if rt == "" {
			return fmt.Errorf("resource type names must not be empty")
		}
		if seen[rt] {
			return fmt.Errorf("duplicate resource type %q", rt)
		}
		seen[rt] = true
	}
	if a.SampleSize < 0 {
		return fmt.Errorf("sampleSize must be zero (all) or positive")
	}
	for _, d := range a.Dimensions {
		if !fhir.IsValidDimension(d) {
			return fmt.Errorf("unknown quality dimension %q", d)
		}
	}
	if !fhir.IsKnownGuide(a.Guide) {
		return fmt.Errorf("unknown implementation guide %q", a.Guide)
	}
	return a.Server.Validate()
}

// SelectedDimensions returns the assessment's dimension selection as a set,
// falling back to the mandatory dimensions when none were selected.
func (a *Assessment) SelectedDimensions() DimensionSet {
	if len(a.Dimensions) == 0 {
		return NewDimensionSet(fhir.MandatoryDimensions...)
	}
	return NewDimensionSet(a.Dimensions...)
}

// DimensionSet is an explicit finite set of quality dimensions. Membership
// decides whether an optional dimension is scored at all: an unselected
// dimension is excluded from the overall mean, never scored as zero.
type DimensionSet struct {
	members map[fhir.Dimension]bool
}

// NewDimensionSet builds a set holding exactly the given dimensions.
// Unrecognized dimensions are dropped.
func NewDimensionSet(dims ...fhir.Dimension) DimensionSet {
	s := DimensionSet{members: make(map[fhir.Dimension]bool, len(dims))}
	for _, d := range dims {
		if fhir.IsValidDimension(d) {
			s.members[d] = true
		}
	}
	return s
}

// Empty reports whether no dimension is selected.
func (s DimensionSet) Empty() bool {
	return len(s.members) == 0
}

// Contains reports set membership.
func (s DimensionSet) Contains(d fhir.Dimension) bool {
	return s.members[d]
}

// List returns the selected dimensions in canonical order.
func (s DimensionSet) List() []fhir.Dimension {
	var out []fhir.Dimension
	for _, d := range fhir.AllDimensions {
		if s.members[d] {
			out = append(out, d)
		}
	}
	return out
}

// AssessmentResult is the per-resource-type aggregate for one assessment.
// Immutable once persisted.
type AssessmentResult struct {
	AssessmentID       uuid.UUID         `json:"assessmentId"`
	ResourceType       string            `json:"resourceType"`
	ResourcesEvaluated int               `json:"resourcesEvaluated"`
	IssuesIdentified   int               `json:"issuesIdentified"`
	AutoFixed          int               `json:"autoFixed"`
	QualityScore       int               `json:"qualityScore"`
	CompletenessScore  int               `json:"completenessScore"`
	ConformityScore    int               `json:"conformityScore"`
	PlausibilityScore  int               `json:"plausibilityScore"`
	TimelinessScore    *int              `json:"timelinessScore,omitempty"`
	CalculabilityScore *int              `json:"calculabilityScore,omitempty"`
	Issues             []SummarizedIssue `json:"issues"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// LogEntry is one persisted line of an assessment's run log.
type LogEntry struct {
	AssessmentID uuid.UUID `json:"assessmentId"`
	Level        string    `json:"level"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// buildResult assembles an AssessmentResult from a resource type's
// accumulated validation outcomes.
func buildResult(a *Assessment, resourceType string, results []fhir.ValidationResult, now time.Time) *AssessmentResult {
	report := Score(results, a.SelectedDimensions())

	issueCount := 0
	fixedCount := 0
	for i := range results {
		issueCount += len(results[i].Issues)
		fixedCount += len(results[i].FixedIssues)
	}

	out := &AssessmentResult{
		AssessmentID:       a.ID,
		ResourceType:       resourceType,
		ResourcesEvaluated: len(results),
		IssuesIdentified:   issueCount,
		AutoFixed:          fixedCount,
		QualityScore:       report.Overall,
		CompletenessScore:  report.Dimensions[fhir.DimensionCompleteness],
		ConformityScore:    report.Dimensions[fhir.DimensionConformity],
		PlausibilityScore:  report.Dimensions[fhir.DimensionPlausibility],
		Issues:             Summarize(results, resourceType),
		CreatedAt:          now,
	}
	if score, ok := report.Dimensions[fhir.DimensionTimeliness]; ok {
		out.TimelinessScore = &score
	}
	if score, ok := report.Dimensions[fhir.DimensionCalculability]; ok {
		out.CalculabilityScore = &score
	}
	return out
}

// sortResultsByType orders results to match the assessment's configured
// resource type order, unknown types last by name.
func sortResultsByType(results []*AssessmentResult, order []string) {
	rank := make(map[string]int, len(order))
	for i, rt := range order {
		rank[rt] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		ri, iKnown := rank[results[i].ResourceType]
		rj, jKnown := rank[results[j].ResourceType]
		if iKnown && jKnown {
			return ri < rj
		}
		if iKnown != jKnown {
			return iKnown
		}
		return results[i].ResourceType < results[j].ResourceType
	})
}
