package fhir

import (
	"fmt"
	"strings"
	"time"
)

// CatalogFunc applies the quality rules for one resource type. Catalog
// functions are pure: they never mutate the resource and never panic on
// malformed input; a missing or wrong-typed field is itself an issue.
type CatalogFunc func(r Resource, now time.Time) []ValidationIssue

// catalog maps resource types to their rule functions. Types without an
// entry fall back to checkGeneric.
var catalog = map[string]CatalogFunc{
	"Patient":           checkPatient,
	"Observation":       checkObservation,
	"Encounter":         checkEncounter,
	"Condition":         checkCondition,
	"MedicationRequest": checkMedicationRequest,
}

// CatalogFor returns the rule function for a resource type, falling back to
// the generic id/resourceType check for unsupported types.
func CatalogFor(resourceType string) CatalogFunc {
	if fn, ok := catalog[resourceType]; ok {
		return fn
	}
	return checkGeneric
}

// SupportedResourceTypes lists the resource types with a dedicated rule set.
func SupportedResourceTypes() []string {
	return []string{"Patient", "Observation", "Encounter", "Condition", "MedicationRequest"}
}

// checkGeneric validates only the fields every FHIR resource must carry.
func checkGeneric(r Resource, _ time.Time) []ValidationIssue {
	var issues []ValidationIssue

	if r.Str("resourceType") == "" {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "resourceType is required",
			Location:    "resourceType",
			Dimension:   DimensionCompleteness,
		})
	}
	if r.Str("id") == "" {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "id is required",
			Location:    "id",
			Dimension:   DimensionCompleteness,
		})
	}

	return issues
}

// requireField appends a completeness error when the field is absent or empty.
func requireField(r Resource, field string, issues []ValidationIssue) []ValidationIssue {
	if present(r, field) {
		return issues
	}
	return append(issues, ValidationIssue{
		Severity:    SeverityError,
		Code:        CodeRequired,
		Diagnostics: fmt.Sprintf("%s is required", field),
		Location:    field,
		Dimension:   DimensionCompleteness,
	})
}

// present reports whether a field carries a usable value: non-empty string,
// non-empty array, non-nil object, or any number/boolean.
func present(r Resource, field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	switch tv := v.(type) {
	case string:
		return tv != ""
	case []interface{}:
		return len(tv) > 0
	case map[string]interface{}:
		return len(tv) > 0
	}
	return true
}

// checkEnum appends a conformity issue when the field holds a string outside
// the valid set. Enum violations are fixable: the validator may pair them
// with a recommended default value.
func checkEnum(r Resource, field string, valid []string, issues []ValidationIssue) []ValidationIssue {
	return checkEnumAt(r, field, field, valid, issues)
}

// checkEnumAt is checkEnum with an explicit issue location, for enum fields
// nested below the resource root.
func checkEnumAt(r Resource, field, location string, valid []string, issues []ValidationIssue) []ValidationIssue {
	raw, ok := r[field]
	if !ok || raw == nil {
		return issues
	}

	s, isStr := raw.(string)
	if !isStr {
		return append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeValue,
			Diagnostics: fmt.Sprintf("%s must be a string", location),
			Location:    location,
			Dimension:   DimensionConformity,
		})
	}

	for _, v := range valid {
		if v == s {
			return issues
		}
	}
	return append(issues, ValidationIssue{
		Severity:    SeverityError,
		Code:        CodeCodeInvalid,
		Diagnostics: fmt.Sprintf("invalid %s '%s'; valid values: %s", location, s, strings.Join(valid, ", ")),
		Location:    location,
		Dimension:   DimensionConformity,
		Fixable:     true,
	})
}

// checkNotFuture appends a plausibility issue when the date field lies in the
// future. Severity is chosen by the caller: hard violations are errors, soft
// ones warnings.
func checkNotFuture(r Resource, field string, severity Severity, now time.Time, issues []ValidationIssue) []ValidationIssue {
	raw := r.Str(field)
	if raw == "" {
		return issues
	}
	t, ok := ParseDate(raw)
	if !ok {
		return append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeValue,
			Diagnostics: fmt.Sprintf("%s '%s' is not a valid FHIR date", field, raw),
			Location:    field,
			Dimension:   DimensionConformity,
		})
	}
	if t.After(now) {
		return append(issues, ValidationIssue{
			Severity:    severity,
			Code:        CodeFutureDate,
			Diagnostics: fmt.Sprintf("%s '%s' is in the future", field, raw),
			Location:    field,
			Dimension:   DimensionPlausibility,
		})
	}
	return issues
}

// staleAfter is how old meta.lastUpdated may be before a record is flagged
// as stale on the timeliness dimension.
const staleAfter = 2 * 365 * 24 * time.Hour

// checkMetaFreshness flags resources whose meta.lastUpdated is older than the
// staleness window.
func checkMetaFreshness(r Resource, now time.Time, issues []ValidationIssue) []ValidationIssue {
	meta := r.Map("meta")
	if meta == nil {
		return issues
	}
	raw := meta.Str("lastUpdated")
	if raw == "" {
		return issues
	}
	t, ok := ParseDate(raw)
	if !ok {
		return issues
	}
	if now.Sub(t) > staleAfter {
		return append(issues, ValidationIssue{
			Severity:    SeverityWarning,
			Code:        CodeStaleData,
			Diagnostics: fmt.Sprintf("meta.lastUpdated '%s' is older than %d days", raw, int(staleAfter.Hours()/24)),
			Location:    "meta.lastUpdated",
			Dimension:   DimensionTimeliness,
		})
	}
	return issues
}
