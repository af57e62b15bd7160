package series

import (
	"sort"
	"time"

	"emcal/domain/core"
)

// Frequency is the temporal resolution of a canonical series.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyMonthly Frequency = "monthly"
	FrequencyUnknown Frequency = "unknown"
)

// rank orders frequencies from finest to coarsest; unknown is unranked.
func (f Frequency) rank() int {
	switch f {
	case FrequencyHourly:
		return 0
	case FrequencyDaily:
		return 1
	case FrequencyMonthly:
		return 2
	default:
		return -1
	}
}

// Coarser reports whether f is a coarser resolution than other.
func (f Frequency) Coarser(other Frequency) bool {
	return f.rank() >= 0 && other.rank() >= 0 && f.rank() > other.rank()
}

// IsKnown reports whether f is one of the three concrete resolutions.
func (f Frequency) IsKnown() bool {
	return f.rank() >= 0
}

// Point is a single (timestamp, value) observation.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// CanonicalSeries is the one shape every input is normalized into:
// an ordered sequence of observations for one (entity, canonical variable).
//
// Invariant: Points are strictly increasing and unique by timestamp, and
// Frequency matches the actual spacing of the contained timestamps.
type CanonicalSeries struct {
	EntityID   core.EntityID   `json:"entity_id"`
	VariableID core.VariableID `json:"variable_id"`
	Unit       string          `json:"unit,omitempty"`
	Frequency  Frequency       `json:"frequency"`
	Points     []Point         `json:"points"`
}

// Len returns the number of observations
func (s *CanonicalSeries) Len() int {
	return len(s.Points)
}

// SortPoints orders observations chronologically in place.
func (s *CanonicalSeries) SortPoints() {
	sort.Slice(s.Points, func(i, j int) bool {
		return s.Points[i].Timestamp.Before(s.Points[j].Timestamp)
	})
}

