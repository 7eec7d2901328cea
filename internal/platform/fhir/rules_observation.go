package fhir

import (
	"fmt"
	"time"
)

// validObservationStatuses lists the Observation.status codes per FHIR R4.
var validObservationStatuses = []string{
	"registered", "preliminary", "final", "amended",
	"corrected", "cancelled", "entered-in-error", "unknown",
}

// checkObservation applies the quality rules for Observation resources.
func checkObservation(r Resource, now time.Time) []ValidationIssue {
	issues := checkGeneric(r, now)

	// Completeness: status, code, subject, and a result of some form.
	issues = requireField(r, "status", issues)
	issues = requireField(r, "code", issues)
	issues = requireField(r, "subject", issues)
	if !r.HasAnyKeyPrefix("value") && !present(r, "component") && !present(r, "dataAbsentReason") {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "Observation must have a value[x], component, or dataAbsentReason",
			Location:    "value",
			Dimension:   DimensionCompleteness,
		})
	}

	// Conformity: status code binding.
	issues = checkEnum(r, "status", validObservationStatuses, issues)

	// Plausibility: observations cannot be taken in the future.
	issues = checkNotFuture(r, "effectiveDateTime", SeverityError, now, issues)
	issues = checkNotFuture(r, "issued", SeverityError, now, issues)

	// Plausibility + calculability: quantity values.
	issues = checkQuantity(r, r.Map("valueQuantity"), "valueQuantity", issues)
	for i, comp := range r.List("component") {
		c, ok := comp.(map[string]interface{})
		if !ok {
			continue
		}
		loc := fmt.Sprintf("component[%d].valueQuantity", i)
		issues = checkQuantity(Resource(c), Resource(c).Map("valueQuantity"), loc, issues)
	}

	return checkMetaFreshness(r, now, issues)
}

// checkQuantity range-checks a Quantity against the physiological bounds for
// the observation's coding, and flags values unusable for computation.
// owner is the element holding the coding (the Observation itself, or one of
// its components).
func checkQuantity(owner Resource, quantity Resource, location string, issues []ValidationIssue) []ValidationIssue {
	if quantity == nil {
		return issues
	}

	unit := quantity.Str("unit")
	if unit == "" {
		unit = quantity.Str("code")
	}

	value, numeric := quantity.Num("value")
	if quantity.Has("value") && !numeric {
		return append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeNotNumeric,
			Diagnostics: fmt.Sprintf("%s.value is not numeric and cannot be used in calculations", location),
			Location:    location + ".value",
			Dimension:   DimensionCalculability,
		})
	}
	if !quantity.Has("value") {
		return append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeRequired,
			Diagnostics: fmt.Sprintf("%s has no value", location),
			Location:    location + ".value",
			Dimension:   DimensionCompleteness,
		})
	}
	if unit == "" {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeMissingUnit,
			Diagnostics: fmt.Sprintf("%s has a value but no unit", location),
			Location:    location + ".unit",
			Dimension:   DimensionCalculability,
		})
	}

	code := primaryCode(owner)
	if code == "" {
		return issues
	}

	if value < 0 && !negativeAllowed[code] {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeOutOfRange,
			Diagnostics: fmt.Sprintf("%s value %g is negative for code %s", location, value, code),
			Location:    location + ".value",
			Dimension:   DimensionPlausibility,
		})
		return issues
	}

	bounds, ok := rangeFor(code, unit)
	if !ok {
		return issues
	}
	if value < bounds.Min || value > bounds.Max {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeOutOfRange,
			Diagnostics: fmt.Sprintf("%s value %g %s is outside the plausible range %g-%g for code %s", location, value, unit, bounds.Min, bounds.Max, code),
			Location:    location + ".value",
			Dimension:   DimensionPlausibility,
		})
	}
	return issues
}

// primaryCode returns the first coding code from an element's code field.
func primaryCode(owner Resource) string {
	code := owner.Map("code")
	if code == nil {
		return ""
	}
	for _, c := range code.List("coding") {
		coding, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if v := Resource(coding).Str("code"); v != "" {
			return v
		}
	}
	return ""
}
