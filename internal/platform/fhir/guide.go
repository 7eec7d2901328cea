package fhir

import "fmt"

// Implementation guide selector keys.
const (
	GuideNone    = "none"
	GuideUSCore  = "us-core"
	GuideCarinBB = "carin-bb"
)

// GuideFunc applies the extra rules an implementation guide layers on top of
// base validation for one resource type.
type GuideFunc func(resourceType string, r Resource) []ValidationIssue

// guides maps guide selector keys to their rule functions.
var guides = map[string]GuideFunc{
	GuideUSCore:  checkUSCore,
	GuideCarinBB: checkCarinBB,
}

// IsKnownGuide returns true for "none" and every registered guide key.
func IsKnownGuide(guide string) bool {
	if guide == "" || guide == GuideNone {
		return true
	}
	_, ok := guides[guide]
	return ok
}

// usCorePatientExtensions are the Patient extensions US Core expects.
var usCorePatientExtensions = map[string]string{
	"http://hl7.org/fhir/us/core/StructureDefinition/us-core-race":      "race",
	"http://hl7.org/fhir/us/core/StructureDefinition/us-core-ethnicity": "ethnicity",
	"http://hl7.org/fhir/us/core/StructureDefinition/us-core-birthsex":  "birthsex",
}

// checkUSCore applies US Core profile rules.
func checkUSCore(resourceType string, r Resource) []ValidationIssue {
	var issues []ValidationIssue

	switch resourceType {
	case "Patient":
		present := extensionURLs(r)
		for url, name := range usCorePatientExtensions {
			if present[url] {
				continue
			}
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeExtension,
				Diagnostics: fmt.Sprintf("US Core Patient is missing the %s extension", name),
				Location:    "extension",
				Dimension:   DimensionCompleteness,
			})
		}
	case "Observation":
		// US Core requires a category on every Observation.
		if len(r.List("category")) == 0 {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeRequired,
				Diagnostics: "US Core Observation must have a category",
				Location:    "category",
				Dimension:   DimensionCompleteness,
			})
		}
	case "Condition":
		if r.Map("clinicalStatus") == nil && r.Map("verificationStatus") == nil {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeRequired,
				Diagnostics: "US Core Condition must have a clinicalStatus or verificationStatus",
				Location:    "clinicalStatus",
				Dimension:   DimensionCompleteness,
			})
		}
	}

	return issues
}

// checkCarinBB applies CARIN Blue Button profile rules.
func checkCarinBB(resourceType string, r Resource) []ValidationIssue {
	var issues []ValidationIssue

	switch resourceType {
	case "Coverage":
		coverageType := r.Map("type")
		if coverageType == nil || len(coverageType.List("coding")) == 0 {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityError,
				Code:        CodeRequired,
				Diagnostics: "CARIN BB Coverage must have type.coding",
				Location:    "type.coding",
				Dimension:   DimensionConformity,
			})
		}
		if len(r.List("identifier")) == 0 {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeRequired,
				Diagnostics: "CARIN BB Coverage should carry a member identifier",
				Location:    "identifier",
				Dimension:   DimensionCompleteness,
			})
		}
	case "ExplanationOfBenefit":
		for _, field := range []string{"type", "patient", "insurer", "provider"} {
			if present(r, field) {
				continue
			}
			issues = append(issues, ValidationIssue{
				Severity:    SeverityError,
				Code:        CodeRequired,
				Diagnostics: fmt.Sprintf("CARIN BB ExplanationOfBenefit must have %s", field),
				Location:    field,
				Dimension:   DimensionCompleteness,
			})
		}
	}

	return issues
}

// extensionURLs collects the url of every top-level extension on a resource.
func extensionURLs(r Resource) map[string]bool {
	urls := make(map[string]bool)
	for _, e := range r.List("extension") {
		ext, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		if url := Resource(ext).Str("url"); url != "" {
			urls[url] = true
		}
	}
	return urls
}
