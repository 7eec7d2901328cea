package assessment

import (
	"math"

	"github.com/fhirspective/fhirspective/internal/platform/fhir"
)

// ScoreReport holds the dimension scores and the overall quality score for
// one resource type. Dimensions contains the three mandatory dimensions plus
// any optional ones the assessment selected; unselected optional dimensions
// are absent, not zero.
type ScoreReport struct {
	Overall    int
	Dimensions map[fhir.Dimension]int
}

// Score converts a resource type's validation outcomes into dimension scores
// and one weighted overall score.
//
// Each dimension score is round(clamp(0, 100, 100 - 100*issues/resources))
// where issues is the total issue count tagged with that dimension across all
// results, not the count of affected resources. A single resource with many
// issues in one dimension can push the pre-clamp value below zero; clamping
// happens after the formula.
//
// With zero resources every score is vacuously 100. The overall score is the
// arithmetic mean over exactly the selected dimensions; an empty selection
// falls back to the mandatory three.
func Score(results []fhir.ValidationResult, selected DimensionSet) ScoreReport {
	if selected.Empty() {
		selected = NewDimensionSet(fhir.MandatoryDimensions...)
	}

	report := ScoreReport{Dimensions: make(map[fhir.Dimension]int, 5)}

	scored := make([]fhir.Dimension, 0, 5)
	scored = append(scored, fhir.MandatoryDimensions...)
	for _, d := range fhir.OptionalDimensions {
		if selected.Contains(d) {
			scored = append(scored, d)
		}
	}

	counts := make(map[fhir.Dimension]int, len(scored))
	for i := range results {
		for _, issue := range results[i].Issues {
			counts[issue.Dimension]++
		}
	}

	total := len(results)
	for _, d := range scored {
		report.Dimensions[d] = dimensionScore(counts[d], total)
	}

	sum := 0
	weight := 0
	for _, d := range selected.List() {
		score, ok := report.Dimensions[d]
		if !ok {
			// Selection normally covers only scored dimensions; guard anyway.
			score = dimensionScore(counts[d], total)
			report.Dimensions[d] = score
		}
		sum += score
		weight++
	}
	report.Overall = int(math.Round(float64(sum) / float64(weight)))

	return report
}

// dimensionScore applies the scoring formula for one dimension.
func dimensionScore(issues, resources int) int {
	if resources == 0 {
		return 100
	}
	raw := 100 - 100*float64(issues)/float64(resources)
	return int(math.Round(clamp(raw, 0, 100)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
