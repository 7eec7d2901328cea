package fhir

import (
	"fmt"
	"strings"
	"time"
)

// fixDefaults maps fixable enum locations to the safe default value the
// validator recommends. The fix is a recommendation carried on the result; the
// source resource is never modified.
var fixDefaults = map[string]string{
	"gender": "unknown",
	"status": "unknown",
	"intent": "order",
}

// Validator applies the rule catalog and optional implementation guide rules
// to resources, one at a time, with per-resource fault isolation.
type Validator struct {
	// now supplies the reference time for date plausibility checks.
	// Overridable in tests; validation has no other time dependency, so a
	// fixed clock makes issue lists reproducible.
	now func() time.Time
}

// NewValidator creates a Validator using the system clock.
func NewValidator() *Validator {
	return &Validator{now: func() time.Time { return time.Now().UTC() }}
}

// Validate runs the full rule set for one resource and returns its
// ValidationResult. An unexpected fault while validating the resource is
// contained: the result carries a single synthetic processing-error issue and
// the caller can keep validating sibling resources.
func (v *Validator) Validate(r Resource, resourceType, guide string) (result ValidationResult) {
	result = ValidationResult{
		ResourceType: resourceType,
		ResourceID:   r.ID(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			result.Issues = []ValidationIssue{{
				Severity:    SeverityError,
				Code:        CodeProcessingError,
				Diagnostics: fmt.Sprintf("unexpected fault while validating resource: %v", rec),
				Dimension:   DimensionConformity,
			}}
			result.FixedIssues = nil
			result.Valid = false
		}
	}()

	now := v.now()
	var issues []ValidationIssue

	if declared := r.Type(); declared != "" && declared != resourceType {
		issues = append(issues, ValidationIssue{
			Severity:    SeverityError,
			Code:        CodeTypeMismatch,
			Diagnostics: fmt.Sprintf("resource declares type %s but was fetched as %s", declared, resourceType),
			Location:    "resourceType",
			Dimension:   DimensionConformity,
		})
	}

	issues = append(issues, CatalogFor(resourceType)(r, now)...)

	if guide != "" && guide != GuideNone {
		if fn, ok := guides[guide]; ok {
			issues = append(issues, fn(resourceType, r)...)
		}
	}

	result.Issues = issues
	result.FixedIssues = v.applyFixes(result.Issues)
	result.Valid = !result.HasErrors()
	return result
}

// applyFixes pairs fixable enum violations on well-known fields with an
// informational issue recommending a safe default, marking the original issue
// Fixed in the same pass.
func (v *Validator) applyFixes(issues []ValidationIssue) []ValidationIssue {
	var fixed []ValidationIssue
	for i := range issues {
		if !issues[i].Fixable || issues[i].Code != CodeCodeInvalid {
			continue
		}
		field := issues[i].Location
		if idx := strings.LastIndex(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		def, ok := fixDefaults[field]
		if !ok {
			continue
		}
		issues[i].Fixed = true
		fixed = append(fixed, ValidationIssue{
			Severity:    SeverityInformation,
			Code:        CodeValueFixed,
			Diagnostics: fmt.Sprintf("replaced invalid %s with default value '%s'", field, def),
			Location:    issues[i].Location,
			Dimension:   DimensionConformity,
		})
	}
	return fixed
}
