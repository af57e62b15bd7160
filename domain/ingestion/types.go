package ingestion

import (
	"time"
)

// RawRow represents a row of raw tabular data as string key-value pairs,
// keyed by column header.
type RawRow map[string]string

// RawTable is the shape-agnostic input handed to the schema normalizer.
// It may be wide-dated (dates as column headers) or long (a timestamp
// column per row); the normalizer decides which.
type RawTable struct {
	Name    string   // source name for diagnostics ("simulated", "measured", a file name)
	Headers []string // column headers in original order
	Rows    []RawRow // data rows
}

// ValueType defines the storage type for coerced values
type ValueType string

const (
	ValueTypeNumeric   ValueType = "numeric"
	ValueTypeTimestamp ValueType = "timestamp"
	ValueTypeMissing   ValueType = "missing"
)

// Value represents a typed value produced by deterministic coercion at
// the ingestion boundary. Mixed-type columns fail fast here instead of
// leaking into aggregation or metric arithmetic.
type Value struct {
	Type         ValueType  `json:"type"`
	NumericVal   *float64   `json:"numeric_val,omitempty"`
	TimestampVal *time.Time `json:"timestamp_val,omitempty"`
	IsMissing    bool       `json:"is_missing"`
}

// NewNumericValue creates a numeric value
func NewNumericValue(n float64) Value {
	return Value{Type: ValueTypeNumeric, NumericVal: &n}
}

// NewTimestampValue creates a timestamp value
func NewTimestampValue(t time.Time) Value {
	return Value{Type: ValueTypeTimestamp, TimestampVal: &t}
}

// NewMissingValue creates a missing value marker
func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing, IsMissing: true}
}

// Float returns the numeric payload, false if the value is not numeric.
func (v Value) Float() (float64, bool) {
	if v.Type != ValueTypeNumeric || v.NumericVal == nil {
		return 0, false
	}
	return *v.NumericVal, true
}

// Time returns the timestamp payload, false if the value is not a timestamp.
func (v Value) Time() (time.Time, bool) {
	if v.Type != ValueTypeTimestamp || v.TimestampVal == nil {
		return time.Time{}, false
	}
	return *v.TimestampVal, true
}
