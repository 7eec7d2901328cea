package fhir

import (
	"regexp"
	"time"
)

// Resource is a FHIR resource decoded from JSON. Rule catalog functions read
// it through the typed accessors below; a missing or wrong-typed field reads
// as the zero value and is reported as a quality issue, never a fault.
type Resource map[string]interface{}

// Type returns the resourceType field, or "" when missing or not a string.
func (r Resource) Type() string {
	return r.Str("resourceType")
}

// ID returns the id field, or "" when missing or not a string.
func (r Resource) ID() string {
	return r.Str("id")
}

// Str returns the string value at key, or "" for missing/non-string values.
func (r Resource) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Has returns true if key is present, whatever its type.
func (r Resource) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Map returns the object value at key, or nil.
func (r Resource) Map(key string) Resource {
	m, _ := r[key].(map[string]interface{})
	return m
}

// List returns the array value at key, or nil.
func (r Resource) List(key string) []interface{} {
	l, _ := r[key].([]interface{})
	return l
}

// Num returns the numeric value at key. JSON numbers decode as float64;
// ok reports whether the value was actually numeric.
func (r Resource) Num(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// HasAnyKeyPrefix returns true if any top-level key starts with prefix.
// FHIR choice elements (value[x], deceased[x], ...) are matched this way.
func (r Resource) HasAnyKeyPrefix(prefix string) bool {
	for k := range r {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

// datePattern matches FHIR date and dateTime values at any precision.
var datePattern = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2}(T\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?)?)?)?$`)

// dateLayouts are tried in order when parsing a FHIR date/dateTime string.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses a FHIR date or dateTime string at any of the precisions
// the standard allows. ok is false for empty or malformed values.
func ParseDate(value string) (time.Time, bool) {
	if value == "" || !datePattern.MatchString(value) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
