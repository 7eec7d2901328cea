package fhir

import (
	"fmt"
	"time"
)

// validGenders lists the AdministrativeGender codes per FHIR R4.
var validGenders = []string{"male", "female", "other", "unknown"}

// maxPlausibleAge is the age in years beyond which a birthDate is flagged.
const maxPlausibleAge = 130

// checkPatient applies the quality rules for Patient resources.
func checkPatient(r Resource, now time.Time) []ValidationIssue {
	issues := checkGeneric(r, now)

	// Completeness: at least one identifier and one name.
	if len(r.List("identifier")) == 0 {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "Patient must have at least one identifier",
			Location:    "identifier",
			Dimension:   DimensionCompleteness,
		})
	}
	if len(r.List("name")) == 0 {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeRequired,
			Diagnostics: "Patient must have at least one name",
			Location:    "name",
			Dimension:   DimensionCompleteness,
		})
	}

	// Conformity: gender code binding.
	issues = checkEnum(r, "gender", validGenders, issues)

	// Plausibility: birthDate must not be in the future, and the implied age
	// must be believable.
	issues = checkNotFuture(r, "birthDate", SeverityError, now, issues)
	if raw := r.Str("birthDate"); raw != "" {
		if born, ok := ParseDate(raw); ok && !born.After(now) {
			age := now.Sub(born).Hours() / 24 / 365.25
			if age > maxPlausibleAge {
				issues = append(issues, ValidationIssue{
					Severity:    SeverityWarning,
					Code:        CodeAgeImplausible,
					Diagnostics: fmt.Sprintf("birthDate '%s' implies an age over %d years", raw, maxPlausibleAge),
					Location:    "birthDate",
					Dimension:   DimensionPlausibility,
				})
			}
		}
	}

	// Plausibility: a recorded death must not precede birth.
	if deceased := r.Str("deceasedDateTime"); deceased != "" {
		if died, ok := ParseDate(deceased); ok {
			if born, okBorn := ParseDate(r.Str("birthDate")); okBorn && died.Before(born) {
				issues = append(issues, ValidationIssue{
					Severity:    SeverityError,
					Code:        CodePeriodOrder,
					Diagnostics: "deceasedDateTime precedes birthDate",
					Location:    "deceasedDateTime",
					Dimension:   DimensionPlausibility,
				})
			}
		}
	}

	return checkMetaFreshness(r, now, issues)
}
