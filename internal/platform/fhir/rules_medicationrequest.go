package fhir

import "time"

// validMedicationRequestStatuses lists the medicationrequest-status codes.
var validMedicationRequestStatuses = []string{
	"active", "on-hold", "cancelled", "completed",
	"entered-in-error", "stopped", "draft", "unknown",
}

// validMedicationRequestIntents lists the medicationrequest-intent codes.
var validMedicationRequestIntents = []string{
	"proposal", "plan", "order", "original-order",
	"reflex-order", "filler-order", "instance-order", "option",
}

// checkMedicationRequest applies the quality rules for MedicationRequest
// resources.
func checkMedicationRequest(r Resource, now time.Time) []ValidationIssue {
	issues := checkGeneric(r, now)

	// Completeness: status, intent, the medication itself, and the subject.
	issues = requireField(r, "status", issues)
	issues = requireField(r, "intent", issues)
	issues = requireField(r, "subject", issues)
	if !present(r, "medicationCodeableConcept") && !present(r, "medicationReference") {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "MedicationRequest must have a medicationCodeableConcept or medicationReference",
			Location:    "medication",
			Dimension:   DimensionCompleteness,
		})
	}

	// Conformity: status and intent bindings.
	issues = checkEnum(r, "status", validMedicationRequestStatuses, issues)
	issues = checkEnum(r, "intent", validMedicationRequestIntents, issues)

	// Plausibility: a prescription cannot be authored in the future.
	issues = checkNotFuture(r, "authoredOn", SeverityError, now, issues)

	return checkMetaFreshness(r, now, issues)
}
