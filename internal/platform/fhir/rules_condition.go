package fhir

import "time"

// validConditionClinicalStatuses lists the condition-clinical codes.
var validConditionClinicalStatuses = []string{
	"active", "recurrence", "relapse", "inactive", "remission", "resolved",
}

// validConditionVerificationStatuses lists the condition-ver-status codes.
var validConditionVerificationStatuses = []string{
	"unconfirmed", "provisional", "differential", "confirmed", "refuted", "entered-in-error",
}

// checkCondition applies the quality rules for Condition resources.
func checkCondition(r Resource, now time.Time) []ValidationIssue {
	issues := checkGeneric(r, now)

	// Completeness: what the condition is and who has it.
	issues = requireField(r, "code", issues)
	issues = requireField(r, "subject", issues)

	// Conformity: clinical and verification status bindings. Both are
	// CodeableConcepts wrapping a single code.
	if cs := r.Map("clinicalStatus"); cs != nil {
		issues = checkEnumAt(Resource{"code": firstCodingCode(cs)}, "code",
			"clinicalStatus.coding.code", validConditionClinicalStatuses, issues)
	}
	if vs := r.Map("verificationStatus"); vs != nil {
		issues = checkEnumAt(Resource{"code": firstCodingCode(vs)}, "code",
			"verificationStatus.coding.code", validConditionVerificationStatuses, issues)
	}

	// Plausibility: onset and abatement ordering.
	issues = checkNotFuture(r, "onsetDateTime", SeverityError, now, issues)
	issues = checkNotFuture(r, "recordedDate", SeverityError, now, issues)
	if abatement := r.Str("abatementDateTime"); abatement != "" {
		abated, okAbated := ParseDate(abatement)
		onset, okOnset := ParseDate(r.Str("onsetDateTime"))
		if okAbated && okOnset && abated.Before(onset) {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityError,
				Code:        CodePeriodOrder,
				Diagnostics: "abatementDateTime precedes onsetDateTime",
				Location:    "abatementDateTime",
				Dimension:   DimensionPlausibility,
			})
		}
	}

	return checkMetaFreshness(r, now, issues)
}

// firstCodingCode extracts the first coding code from a CodeableConcept map.
// Returns nil (not "") when no coding is present so enum checks treat the
// concept as absent rather than invalid.
func firstCodingCode(concept Resource) interface{} {
	for _, c := range concept.List("coding") {
		coding, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if code, ok := coding["code"]; ok {
			return code
		}
	}
	return nil
}
