package fhir

import (
	"strings"
	"testing"
)

func issueAt(issues []ValidationIssue, location, code string) *ValidationIssue {
	for i := range issues {
		if issues[i].Location == location && issues[i].Code == code {
			return &issues[i]
		}
	}
	return nil
}

func TestCheckPatient_FutureBirthDate(t *testing.T) {
	issues := checkPatient(Resource{
		"resourceType": "Patient",
		"id":           "p1",
		"identifier":   []interface{}{map[string]interface{}{"value": "mrn"}},
		"name":         []interface{}{map[string]interface{}{"family": "Doe"}},
		"birthDate":    "2030-01-01",
	}, fixedNow)

	issue := issueAt(issues, "birthDate", CodeFutureDate)
	if issue == nil {
		t.Fatalf("expected future-date issue, got %+v", issues)
	}
	if issue.Severity != SeverityError || issue.Dimension != DimensionPlausibility {
		t.Errorf("unexpected issue: %+v", issue)
	}
}

func TestCheckPatient_ImplausibleAge(t *testing.T) {
	issues := checkPatient(Resource{
		"resourceType": "Patient",
		"id":           "p1",
		"identifier":   []interface{}{map[string]interface{}{"value": "mrn"}},
		"name":         []interface{}{map[string]interface{}{"family": "Doe"}},
		"birthDate":    "1880-01-01",
	}, fixedNow)

	issue := issueAt(issues, "birthDate", CodeAgeImplausible)
	if issue == nil {
		t.Fatalf("expected age-implausible issue, got %+v", issues)
	}
	if issue.Severity != SeverityWarning {
		t.Errorf("age issues are soft violations, got severity %s", issue.Severity)
	}
}

func TestCheckPatient_DeceasedBeforeBirth(t *testing.T) {
	issues := checkPatient(Resource{
		"resourceType":     "Patient",
		"id":               "p1",
		"identifier":       []interface{}{map[string]interface{}{"value": "mrn"}},
		"name":             []interface{}{map[string]interface{}{"family": "Doe"}},
		"birthDate":        "1990-05-01",
		"deceasedDateTime": "1985-01-01",
	}, fixedNow)

	if issueAt(issues, "deceasedDateTime", CodePeriodOrder) == nil {
		t.Errorf("expected period-order issue, got %+v", issues)
	}
}

func TestCheckObservation_MissingValueComponentAndReason(t *testing.T) {
	issues := checkObservation(Resource{
		"resourceType": "Observation",
		"id":           "o1",
		"status":       "final",
		"code":         map[string]interface{}{"text": "x"},
		"subject":      map[string]interface{}{"reference": "Patient/1"},
	}, fixedNow)

	issue := issueAt(issues, "value", CodeRequired)
	if issue == nil {
		t.Fatalf("expected missing-value issue, got %+v", issues)
	}
	if issue.Dimension != DimensionCompleteness {
		t.Errorf("expected completeness dimension, got %s", issue.Dimension)
	}
}

func TestCheckObservation_DataAbsentReasonSatisfiesValue(t *testing.T) {
	issues := checkObservation(Resource{
		"resourceType":     "Observation",
		"id":               "o1",
		"status":           "final",
		"code":             map[string]interface{}{"text": "x"},
		"subject":          map[string]interface{}{"reference": "Patient/1"},
		"dataAbsentReason": map[string]interface{}{"text": "not asked"},
	}, fixedNow)

	if issueAt(issues, "value", CodeRequired) != nil {
		t.Errorf("dataAbsentReason should satisfy the value requirement, got %+v", issues)
	}
}

func TestCheckObservation_SystolicOutOfRange(t *testing.T) {
	issues := checkObservation(Resource{
		"resourceType": "Observation",
		"id":           "o1",
		"status":       "final",
		"code": map[string]interface{}{
			"coding": []interface{}{map[string]interface{}{"code": "8480-6"}},
		},
		"subject":       map[string]interface{}{"reference": "Patient/1"},
		"valueQuantity": map[string]interface{}{"value": float64(400), "unit": "mmHg"},
	}, fixedNow)

	issue := issueAt(issues, "valueQuantity.value", CodeOutOfRange)
	if issue == nil {
		t.Fatalf("expected out-of-range issue, got %+v", issues)
	}
	if issue.Severity != SeverityWarning || issue.Dimension != DimensionPlausibility {
		t.Errorf("unexpected issue: %+v", issue)
	}
}

func TestCheckObservation_NegativeValueFlaggedUnlessAllowed(t *testing.T) {
	base := Resource{
		"resourceType":  "Observation",
		"id":            "o1",
		"status":        "final",
		"subject":       map[string]interface{}{"reference": "Patient/1"},
		"valueQuantity": map[string]interface{}{"value": float64(-3), "unit": "mmol/L"},
	}

	base["code"] = map[string]interface{}{
		"coding": []interface{}{map[string]interface{}{"code": "8867-4"}},
	}
	if issueAt(checkObservation(base, fixedNow), "valueQuantity.value", CodeOutOfRange) == nil {
		t.Error("negative heart rate should be flagged")
	}

	base["code"] = map[string]interface{}{
		"coding": []interface{}{map[string]interface{}{"code": "11555-0"}},
	}
	if issueAt(checkObservation(base, fixedNow), "valueQuantity.value", CodeOutOfRange) != nil {
		t.Error("base excess is legitimately negative and must not be flagged")
	}
}

func TestCheckObservation_NonNumericValueIsCalculabilityIssue(t *testing.T) {
	issues := checkObservation(Resource{
		"resourceType":  "Observation",
		"id":            "o1",
		"status":        "final",
		"code":          map[string]interface{}{"text": "x"},
		"subject":       map[string]interface{}{"reference": "Patient/1"},
		"valueQuantity": map[string]interface{}{"value": "high", "unit": "mmHg"},
	}, fixedNow)

	issue := issueAt(issues, "valueQuantity.value", CodeNotNumeric)
	if issue == nil {
		t.Fatalf("expected value-not-numeric issue, got %+v", issues)
	}
	if issue.Dimension != DimensionCalculability {
		t.Errorf("expected calculability dimension, got %s", issue.Dimension)
	}
}

func TestCheckObservation_ComponentQuantityChecked(t *testing.T) {
	issues := checkObservation(Resource{
		"resourceType": "Observation",
		"id":           "bp",
		"status":       "final",
		"code":         map[string]interface{}{"text": "BP panel"},
		"subject":      map[string]interface{}{"reference": "Patient/1"},
		"component": []interface{}{
			map[string]interface{}{
				"code": map[string]interface{}{
					"coding": []interface{}{map[string]interface{}{"code": "8462-4"}},
				},
				"valueQuantity": map[string]interface{}{"value": float64(500), "unit": "mmHg"},
			},
		},
	}, fixedNow)

	found := false
	for _, issue := range issues {
		if issue.Code == CodeOutOfRange && strings.HasPrefix(issue.Location, "component[0]") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected out-of-range issue on component, got %+v", issues)
	}
}

func TestCheckEncounter_EndBeforeStart(t *testing.T) {
	base := Resource{
		"resourceType": "Encounter",
		"id":           "e1",
		"class":        map[string]interface{}{"code": "AMB"},
		"period": map[string]interface{}{
			"start": "2024-05-02T10:00:00Z",
			"end":   "2024-05-01T10:00:00Z",
		},
	}

	base["status"] = "finished"
	issue := issueAt(checkEncounter(base, fixedNow), "period", CodePeriodOrder)
	if issue == nil || issue.Severity != SeverityError {
		t.Errorf("finished encounter with end before start must be an error, got %+v", issue)
	}

	base["status"] = "in-progress"
	issue = issueAt(checkEncounter(base, fixedNow), "period", CodePeriodOrder)
	if issue == nil || issue.Severity != SeverityWarning {
		t.Errorf("non-finished encounter gets a warning, got %+v", issue)
	}
}

func TestCheckEncounter_FinishedWithoutEnd(t *testing.T) {
	issues := checkEncounter(Resource{
		"resourceType": "Encounter",
		"id":           "e1",
		"status":       "finished",
		"class":        map[string]interface{}{"code": "IMP"},
	}, fixedNow)

	if issueAt(issues, "period.end", CodeRequired) == nil {
		t.Errorf("expected missing period.end warning, got %+v", issues)
	}
}

func TestCheckCondition_AbatementBeforeOnset(t *testing.T) {
	issues := checkCondition(Resource{
		"resourceType":      "Condition",
		"id":                "c1",
		"code":              map[string]interface{}{"text": "dx"},
		"subject":           map[string]interface{}{"reference": "Patient/1"},
		"onsetDateTime":     "2024-03-01",
		"abatementDateTime": "2024-01-01",
	}, fixedNow)

	if issueAt(issues, "abatementDateTime", CodePeriodOrder) == nil {
		t.Errorf("expected period-order issue, got %+v", issues)
	}
}

func TestCheckCondition_InvalidClinicalStatus(t *testing.T) {
	issues := checkCondition(Resource{
		"resourceType": "Condition",
		"id":           "c1",
		"code":         map[string]interface{}{"text": "dx"},
		"subject":      map[string]interface{}{"reference": "Patient/1"},
		"clinicalStatus": map[string]interface{}{
			"coding": []interface{}{map[string]interface{}{"code": "kind-of-active"}},
		},
	}, fixedNow)

	issue := issueAt(issues, "clinicalStatus.coding.code", CodeCodeInvalid)
	if issue == nil {
		t.Fatalf("expected code-invalid issue, got %+v", issues)
	}
	if !issue.Fixable {
		t.Error("enum violations should be fixable")
	}
}

func TestCheckMedicationRequest_MissingMedication(t *testing.T) {
	issues := checkMedicationRequest(Resource{
		"resourceType": "MedicationRequest",
		"id":           "m1",
		"status":       "active",
		"intent":       "order",
		"subject":      map[string]interface{}{"reference": "Patient/1"},
	}, fixedNow)

	if issueAt(issues, "medication", CodeRequired) == nil {
		t.Errorf("expected medication requirement, got %+v", issues)
	}
}

func TestCheckGeneric_MalformedFieldTypesDoNotPanic(t *testing.T) {
	// Wrong-typed fields are quality issues, not faults.
	weird := Resource{
		"resourceType": 42,
		"id":           []interface{}{"not", "a", "string"},
		"status":       map[string]interface{}{"nested": true},
	}
	for _, rt := range append(SupportedResourceTypes(), "Unknown") {
		issues := CatalogFor(rt)(weird, fixedNow)
		if len(issues) == 0 {
			t.Errorf("%s: expected issues for malformed resource", rt)
		}
	}
}

func TestCheckMetaFreshness_Stale(t *testing.T) {
	issues := checkMetaFreshness(Resource{
		"meta": map[string]interface{}{"lastUpdated": "2019-01-01T00:00:00Z"},
	}, fixedNow, nil)

	if issueAt(issues, "meta.lastUpdated", CodeStaleData) == nil {
		t.Fatalf("expected stale-data issue, got %+v", issues)
	}
	if issues[0].Dimension != DimensionTimeliness {
		t.Errorf("expected timeliness dimension, got %s", issues[0].Dimension)
	}
}
