package fhir

// QuantityRange bounds a physiologically plausible quantity value.
type QuantityRange struct {
	Min float64
	Max float64
}

// quantityRanges holds known physiological bounds keyed by LOINC code and
// unit. Values outside the range are flagged as plausibility warnings, not
// errors: extreme values occur in real data and the assessment must surface,
// not reject, them.
var quantityRanges = map[string]map[string]QuantityRange{
	"8480-6":  {"mmHg": {Min: 40, Max: 300}},   // systolic blood pressure
	"8462-4":  {"mmHg": {Min: 20, Max: 200}},   // diastolic blood pressure
	"8867-4":  {"/min": {Min: 20, Max: 300}},   // heart rate
	"9279-1":  {"/min": {Min: 4, Max: 80}},     // respiratory rate
	"8310-5":  {"Cel": {Min: 30, Max: 45}},     // body temperature
	"29463-7": {"kg": {Min: 0.2, Max: 500}},    // body weight
	"8302-2":  {"cm": {Min: 20, Max: 280}},     // body height
	"2339-0":  {"mg/dL": {Min: 10, Max: 1200}}, // glucose
	"2708-6":  {"%": {Min: 0, Max: 100}},       // oxygen saturation
	"39156-5": {"kg/m2": {Min: 5, Max: 120}},   // body mass index
}

// negativeAllowed lists codes whose values are legitimately negative, such as
// base excess in blood. Negative values for any other code are flagged.
var negativeAllowed = map[string]bool{
	"11555-0": true, // base excess in blood by calculation
	"1925-7":  true, // base excess in arterial blood
	"8328-7":  true, // axillary temperature delta (device-reported offsets)
}

// rangeFor returns the plausible range for a code/unit pair. Unit matching
// falls back to the code's sole range when only one unit is registered, so a
// missing unit string still gets a range check against the canonical unit.
func rangeFor(code, unit string) (QuantityRange, bool) {
	units, ok := quantityRanges[code]
	if !ok {
		return QuantityRange{}, false
	}
	if r, ok := units[unit]; ok {
		return r, true
	}
	if unit == "" && len(units) == 1 {
		for _, r := range units {
			return r, true
		}
	}
	return QuantityRange{}, false
}
