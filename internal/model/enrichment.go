package model

import (
	"reflect"
	"strings"
	"time"
)

// EnrichmentStatus is the outcome of one enrichment attempt.
type EnrichmentStatus string

const (
	StatusNotStarted EnrichmentStatus = "Not Started"
	StatusInProgress EnrichmentStatus = "In Progress"
	StatusCompleted  EnrichmentStatus = "Completed"
	StatusPartial    EnrichmentStatus = "Partial"
	StatusFailed     EnrichmentStatus = "Failed"
)

// ConfidenceLevel is a coarse trust bucket derived from verification and
// depth signals.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "Low"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceHigh   ConfidenceLevel = "High"
)

// Rank orders confidence levels so Low < Medium < High.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// RawResult is one element of a provider's result dataset.
type RawResult map[string]any

// NormalizedResult maps canonical field names to values for one provider.
// An empty result means the provider produced no data.
type NormalizedResult map[string]any

// Empty reports whether the result carries no fields.
func (r NormalizedResult) Empty() bool { return len(r) == 0 }

// Filled reports whether key holds a non-empty value.
func (r NormalizedResult) Filled(key string) bool {
	v, ok := r[key]
	if !ok {
		return false
	}
	return IsFilled(v)
}

// String returns the value at key as a string, or "" when absent.
func (r NormalizedResult) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the value at key as an int. JSON numbers decode as float64, so
// both are accepted.
func (r NormalizedResult) Int(key string) int {
	switch v := r[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	default:
		return 0
	}
}

// Bool returns the value at key as a bool.
func (r NormalizedResult) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// IsFilled reports whether v counts as populated: non-nil, a non-blank
// string, a non-empty collection, a non-zero number or true.
func IsFilled(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return !rv.IsZero()
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// EnrichmentRecord is the merged, scored output of one enrichment attempt.
// Records are append-only; a re-run creates a new record.
type EnrichmentRecord struct {
	ID                string                        `json:"id,omitempty" yaml:"id,omitempty"`
	PersonID          string                        `json:"person_id" yaml:"person_id"`
	PersonName        string                        `json:"person_name" yaml:"person_name"`
	Results           map[Provider]NormalizedResult `json:"results,omitempty" yaml:"results,omitempty"`
	Fields            NormalizedResult              `json:"fields,omitempty" yaml:"fields,omitempty"`
	DataSources       []string                      `json:"data_sources" yaml:"data_sources"`
	CompletenessScore int                           `json:"completeness_score" yaml:"completeness_score"`
	Confidence        ConfidenceLevel               `json:"confidence" yaml:"confidence"`
	Status            EnrichmentStatus              `json:"status" yaml:"status"`
	Errors            []string                      `json:"errors" yaml:"errors"`
	CreatedAt         time.Time                     `json:"created_at" yaml:"created_at"`
}

// Result returns the normalized result for p, or nil when p produced no data.
func (r *EnrichmentRecord) Result(p Provider) NormalizedResult {
	if r == nil || r.Results == nil {
		return nil
	}
	return r.Results[p]
}

// HasData reports whether any provider contributed fields.
func (r *EnrichmentRecord) HasData() bool {
	if r == nil {
		return false
	}
	for _, res := range r.Results {
		if !res.Empty() {
			return true
		}
	}
	return false
}

// AddError appends a non-fatal error message.
func (r *EnrichmentRecord) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// StoredRecord is an enrichment record read back from the enrichment store
// along with the raw last-modified timestamp used by the staleness check.
type StoredRecord struct {
	Record       EnrichmentRecord `json:"record"`
	LastModified string           `json:"last_modified"`
}
