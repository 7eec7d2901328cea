package fhir

// Severity represents the severity of a validation issue.
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
)

// Dimension represents a data quality dimension.
type Dimension string

const (
	DimensionCompleteness  Dimension = "completeness"
	DimensionConformity    Dimension = "conformity"
	DimensionPlausibility  Dimension = "plausibility"
	DimensionTimeliness    Dimension = "timeliness"
	DimensionCalculability Dimension = "calculability"
)

// MandatoryDimensions are always scored regardless of assessment selection.
var MandatoryDimensions = []Dimension{
	DimensionCompleteness,
	DimensionConformity,
	DimensionPlausibility,
}

// OptionalDimensions are scored only when the assessment selects them.
var OptionalDimensions = []Dimension{
	DimensionTimeliness,
	DimensionCalculability,
}

// AllDimensions lists every quality dimension in canonical order.
var AllDimensions = []Dimension{
	DimensionCompleteness,
	DimensionConformity,
	DimensionPlausibility,
	DimensionTimeliness,
	DimensionCalculability,
}

// IsValidDimension returns true if d is a recognized quality dimension.
func IsValidDimension(d Dimension) bool {
	for _, known := range AllDimensions {
		if d == known {
			return true
		}
	}
	return false
}

// Machine codes for validation issues.
const (
	CodeRequired        = "required"
	CodeValue           = "value"
	CodeCodeInvalid     = "code-invalid"
	CodeTypeMismatch    = "type-mismatch"
	CodeFutureDate      = "future-date"
	CodePeriodOrder     = "period-order"
	CodeAgeImplausible  = "age-implausible"
	CodeOutOfRange      = "out-of-range"
	CodeStaleData       = "stale-data"
	CodeNotNumeric      = "value-not-numeric"
	CodeMissingUnit     = "missing-unit"
	CodeExtension       = "required-extension"
	CodeValueFixed      = "value-fixed"
	CodeProcessingError = "processing-error"
)

// ValidationIssue represents one detected data quality problem. Issues are
// immutable once emitted except for the Fixed flag, which the Validator sets
// in the same pass that emits the paired fix recommendation.
type ValidationIssue struct {
	Severity    Severity  `json:"severity"`
	Code        string    `json:"code"`
	Diagnostics string    `json:"diagnostics"`
	Location    string    `json:"location,omitempty"`
	Dimension   Dimension `json:"dimension"`
	Fixable     bool      `json:"fixable,omitempty"`
	Fixed       bool      `json:"fixed,omitempty"`
}

// ValidationResult holds the validation outcome for a single resource.
type ValidationResult struct {
	ResourceType string            `json:"resourceType"`
	ResourceID   string            `json:"resourceId"`
	Valid        bool              `json:"valid"`
	Issues       []ValidationIssue `json:"issues"`
	FixedIssues  []ValidationIssue `json:"fixedIssues,omitempty"`
}

// HasErrors returns true if any issue carries error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}
