package assessment

import (
	"testing"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

// resultsWithIssues builds n validation results and distributes the given
// issues across the first result.
func resultsWithIssues(n int, issues ...fhir.ValidationIssue) []fhir.ValidationResult {
	out := make([]fhir.ValidationResult, n)
	for i := range out {
		out[i] = fhir.ValidationResult{ResourceType: "Patient", ResourceID: "p1", Valid: true}
	}
	if n > 0 && len(issues) > 0 {
		out[0].Issues = issues
		out[0].Valid = false
	}
	return out
}

func issuesOf(dim fhir.Dimension, count int) []fhir.ValidationIssue {
	out := make([]fhir.ValidationIssue, count)
	for i := range out {
		out[i] = fhir.ValidationIssue{
			Severity:  fhir.SeverityError,
			Code:      fhir.CodeRequired,
			Dimension: dim,
		}
	}
	return out
}

func TestScoreEmptyResultsIsVacuouslyPerfect(t *testing.T) {
	report := Score(nil, NewDimensionSet(fhir.MandatoryDimensions...))

	if report.Overall != 100 {
		t.Errorf("overall = %d, want 100", report.Overall)
	}
	for _, d := range fhir.MandatoryDimensions {
		if got := report.Dimensions[d]; got != 100 {
			t.Errorf("%s = %d, want 100", d, got)
		}
	}
}

func TestScoreMandatoryDimensions(t *testing.T) {
	results := resultsWithIssues(100, issuesOf(fhir.DimensionCompleteness, 30)...)
	report := Score(results, NewDimensionSet(fhir.MandatoryDimensions...))

	if got := report.Dimensions[fhir.DimensionCompleteness]; got != 70 {
		t.Errorf("completeness = %d, want 70", got)
	}
	if got := report.Dimensions[fhir.DimensionConformity]; got != 100 {
		t.Errorf("conformity = %d, want 100", got)
	}
	if got := report.Dimensions[fhir.DimensionPlausibility]; got != 100 {
		t.Errorf("plausibility = %d, want 100", got)
	}
	// mean of 70, 100, 100
	if report.Overall != 90 {
		t.Errorf("overall = %d, want 90", report.Overall)
	}
}

// A handful of resources with many issues each can push the raw score below
// zero; the clamp must bring it back to exactly zero rather than erroring or
// going negative.
func TestScoreClampsBelowZero(t *testing.T) {
	results := resultsWithIssues(2, issuesOf(fhir.DimensionConformity, 5)...)
	report := Score(results, NewDimensionSet(fhir.MandatoryDimensions...))

	if got := report.Dimensions[fhir.DimensionConformity]; got != 0 {
		t.Errorf("conformity = %d, want 0 after clamping", got)
	}
}

func TestScoreRoundsHalfUp(t *testing.T) {
	// 1 issue over 3 resources: 100 - 33.33 = 66.67 -> 67
	results := resultsWithIssues(3, issuesOf(fhir.DimensionPlausibility, 1)...)
	report := Score(results, NewDimensionSet(fhir.MandatoryDimensions...))

	if got := report.Dimensions[fhir.DimensionPlausibility]; got != 67 {
		t.Errorf("plausibility = %d, want 67", got)
	}
}

func TestScoreOptionalDimensionSelected(t *testing.T) {
	results := resultsWithIssues(10, issuesOf(fhir.DimensionTimeliness, 2)...)
	selected := NewDimensionSet(
		fhir.DimensionCompleteness, fhir.DimensionConformity,
		fhir.DimensionPlausibility, fhir.DimensionTimeliness,
	)
	report := Score(results, selected)

	got, ok := report.Dimensions[fhir.DimensionTimeliness]
	if !ok {
		t.Fatal("timeliness missing from report")
	}
	if got != 80 {
		t.Errorf("timeliness = %d, want 80", got)
	}
	if _, ok := report.Dimensions[fhir.DimensionCalculability]; ok {
		t.Error("calculability scored despite not being selected")
	}
	// mean of 100, 100, 100, 80
	if report.Overall != 95 {
		t.Errorf("overall = %d, want 95", report.Overall)
	}
}

func TestScoreUnselectedOptionalExcludedFromOverall(t *testing.T) {
	// Timeliness issues exist but timeliness is not selected: they must not
	// drag the overall score down.
	results := resultsWithIssues(10, issuesOf(fhir.DimensionTimeliness, 9)...)
	report := Score(results, NewDimensionSet(fhir.MandatoryDimensions...))

	if report.Overall != 100 {
		t.Errorf("overall = %d, want 100", report.Overall)
	}
}

func TestScoreEmptySelectionFallsBackToMandatory(t *testing.T) {
	results := resultsWithIssues(4, issuesOf(fhir.DimensionCompleteness, 2)...)
	report := Score(results, NewDimensionSet())

	// mean of 50, 100, 100
	if report.Overall != 83 {
		t.Errorf("overall = %d, want 83", report.Overall)
	}
	if len(report.Dimensions) != 3 {
		t.Errorf("scored %d dimensions, want the 3 mandatory ones", len(report.Dimensions))
	}
}
