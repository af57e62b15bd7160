package series

import (
	"fmt"
	"time"

	"emcal/domain/core"
)

// KeyMode selects how alignment keys are built.
type KeyMode string

const (
	// KeyModeCalendar keys on the exact calendar instant (date, or
	// date+hour for sub-daily data).
	KeyModeCalendar KeyMode = "calendar"
	// KeyModeYearAgnostic keys on (month, day[, hour]), dropping the
	// year so a representative-year simulation can be compared against
	// measurements from a different metered year.
	KeyModeYearAgnostic KeyMode = "year_agnostic"
)

// MatchKey is the join key used to align simulated and measured points.
// Within one alignment all keys use the same mode; modes are never mixed.
type MatchKey struct {
	Mode  KeyMode `json:"mode"`
	Year  int     `json:"year,omitempty"` // zero in year-agnostic mode
	Month int     `json:"month"`
	Day   int     `json:"day"`
	Hour  int     `json:"hour"` // -1 when the resolution is daily or coarser
}

// NewMatchKey builds the key for a timestamp at the given resolution and mode.
func NewMatchKey(t time.Time, freq Frequency, mode KeyMode) MatchKey {
	k := MatchKey{
		Mode:  mode,
		Month: int(t.Month()),
		Day:   t.Day(),
		Hour:  -1,
	}
	if freq == FrequencyHourly {
		k.Hour = t.Hour()
	}
	if freq == FrequencyMonthly {
		k.Day = 1
	}
	if mode == KeyModeCalendar {
		k.Year = t.Year()
	}
	return k
}

// IsLeapDay reports whether the key falls on February 29.
func (k MatchKey) IsLeapDay() bool {
	return k.Month == 2 && k.Day == 29
}

// String renders a stable sortable representation.
func (k MatchKey) String() string {
	if k.Mode == KeyModeCalendar {
		if k.Hour >= 0 {
			return fmt.Sprintf("%04d-%02d-%02dT%02d", k.Year, k.Month, k.Day, k.Hour)
		}
		return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
	}
	if k.Hour >= 0 {
		return fmt.Sprintf("--%02d-%02dT%02d", k.Month, k.Day, k.Hour)
	}
	return fmt.Sprintf("--%02d-%02d", k.Month, k.Day)
}

// MatchedPoint is one joined observation pair.
type MatchedPoint struct {
	Key      MatchKey `json:"key"`
	SimValue float64  `json:"sim_value"`
	Measured float64  `json:"measured_value"`
}

// AlignmentResult is the matched intersection of a simulated and a
// measured canonical series for one (entity, canonical variable).
//
// A matched count of zero is a distinct, explicitly reported condition
// (NoOverlap) and is never treated as a valid zero-length comparison.
type AlignmentResult struct {
	EntityID          core.EntityID   `json:"entity_id"`
	VariableID        core.VariableID `json:"variable_id"`
	Mode              KeyMode         `json:"mode"`
	Matched           []MatchedPoint  `json:"matched"`
	CountSimOnly      int             `json:"count_sim_only"`
	CountMeasuredOnly int             `json:"count_measured_only"`
	CountMatched      int             `json:"count_matched"`
}

// SimValues returns the simulated side of the matched pairs.
func (r *AlignmentResult) SimValues() []float64 {
	out := make([]float64, len(r.Matched))
	for i, m := range r.Matched {
		out[i] = m.SimValue
	}
	return out
}

// MeasuredValues returns the measured side of the matched pairs.
func (r *AlignmentResult) MeasuredValues() []float64 {
	out := make([]float64, len(r.Matched))
	for i, m := range r.Matched {
		out[i] = m.Measured
	}
	return out
}
