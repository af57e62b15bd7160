package temporal

import (
	"sort"
	"time"

	"emcal/domain/core"
	"emcal/domain/mapping"
	"emcal/domain/series"
)

// Aggregate resamples a series to the target resolution. Only
// resolution-reducing aggregation is permitted (hourly→daily→monthly);
// disaggregation fails with a frequency mismatch. Aggregating a series
// already at the target resolution returns it unchanged: re-aggregating
// already-daily data must not alter it or collapse points.
//
// The resolution is always re-detected from the actual spacing; a stale
// or wrong Frequency tag never drives the bucketing.
//
// The reducer is variable-kind-dependent: additive quantities sum,
// intensive quantities average. The caller supplies the kind from the
// dictionary lookup; it is never inferred from value magnitudes.
func Aggregate(s *series.CanonicalSeries, target series.Frequency, reducer mapping.ReducerKind) (*series.CanonicalSeries, error) {
	detected := DetectFrequency(s)
	if !detected.IsKnown() {
		return nil, core.NewFrequencyMismatchError(string(detected), string(target))
	}
	if detected == target {
		if s.Frequency == target {
			return s, nil
		}
		// Mislabeled but already at the target spacing: fix the tag only.
		out := *s
		out.Frequency = target
		return &out, nil
	}
	if !target.Coarser(detected) {
		return nil, core.NewFrequencyMismatchError(string(detected), string(target))
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, p := range s.Points {
		bt := truncateToBucket(p.Timestamp, target)
		b, ok := buckets[bt]
		if !ok {
			b = &bucket{}
			buckets[bt] = b
		}
		b.sum += p.Value
		b.count++
	}

	points := make([]series.Point, 0, len(buckets))
	for bt, b := range buckets {
		v := b.sum
		if reducer == mapping.ReducerMean {
			v = b.sum / float64(b.count)
		}
		points = append(points, series.Point{Timestamp: bt, Value: v})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return &series.CanonicalSeries{
		EntityID:   s.EntityID,
		VariableID: s.VariableID,
		Unit:       s.Unit,
		Frequency:  target,
		Points:     points,
	}, nil
}

// truncateToBucket rounds a timestamp down to its bucket boundary.
func truncateToBucket(t time.Time, target series.Frequency) time.Time {
	switch target {
	case series.FrequencyHourly:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case series.FrequencyDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case series.FrequencyMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return t
	}
}
