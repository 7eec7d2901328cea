package fhir

import "time"

// validEncounterStatuses lists the Encounter.status codes per FHIR R4.
var validEncounterStatuses = []string{
	"planned", "arrived", "triaged", "in-progress", "onleave",
	"finished", "cancelled", "entered-in-error", "unknown",
}

// validEncounterClasses lists the ActCode encounter class codes.
var validEncounterClasses = []string{
	"AMB", "EMER", "FLD", "HH", "IMP", "ACUTE", "NONAC",
	"OBSENC", "PRENC", "SS", "VR",
}

// checkEncounter applies the quality rules for Encounter resources.
func checkEncounter(r Resource, now time.Time) []ValidationIssue {
	issues := checkGeneric(r, now)

	// Completeness: status and class are mandatory in R4.
	issues = requireField(r, "status", issues)
	issues = requireField(r, "class", issues)

	// Conformity: status binding; class code binding when class is a Coding.
	issues = checkEnum(r, "status", validEncounterStatuses, issues)
	if class := r.Map("class"); class != nil {
		issues = checkEnumAt(class, "code", "class.code", validEncounterClasses, issues)
	}

	// Plausibility: period ordering and future starts.
	status := r.Str("status")
	if period := r.Map("period"); period != nil {
		start, okStart := ParseDate(period.Str("start"))
		end, okEnd := ParseDate(period.Str("end"))

		if okStart && okEnd && end.Before(start) {
			severity := SeverityWarning
			if status == "finished" {
				// A completed encounter that ends before it starts is a hard
				// violation.
				severity = SeverityError
			}
			issues = append(issues, ValidationIssue{
				Severity:    severity,
				Code:        CodePeriodOrder,
				Diagnostics: "period.end precedes period.start",
				Location:    "period",
				Dimension:   DimensionPlausibility,
			})
		}
		if okStart && start.After(now) && status != "planned" {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeFutureDate,
				Diagnostics: "period.start is in the future for a non-planned encounter",
				Location:    "period.start",
				Dimension:   DimensionPlausibility,
			})
		}
	}

	// Completeness: finished encounters should record when they ended.
	if status == "finished" {
		period := r.Map("period")
		if period == nil || period.Str("end") == "" {
			issues = append(issues, ValidationIssue{
				Severity:    SeverityWarning,
				Code:        CodeRequired,
				Diagnostics: "finished Encounter has no period.end",
				Location:    "period.end",
				Dimension:   DimensionCompleteness,
			})
		}
	}

	return checkMetaFreshness(r, now, issues)
}
