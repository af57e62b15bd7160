package temporal

import (
	"sort"
	"time"

	"emcal/domain/series"
)

// Frequency detection tolerances. Hourly data from real meters drifts by
// seconds; daily data crosses DST boundaries; monthly spacing varies
// between 28 and 31 days.
const (
	hourlyTolerance = 5 * time.Minute
	dailyTolerance  = time.Hour
	monthMin        = 28*24*time.Hour - 2*time.Hour
	monthMax        = 31*24*time.Hour + 2*time.Hour
)

// DetectFrequency infers the true resolution of a series from the mode
// of successive timestamp deltas over the sorted unique timestamps. The
// mode (not merely the first two points) resists irregular gaps. The
// detected resolution governs behavior even when an external hint (a
// file name, a sheet label) claims otherwise.
func DetectFrequency(s *series.CanonicalSeries) series.Frequency {
	times := uniqueSortedTimestamps(s)
	if len(times) < 2 {
		return series.FrequencyUnknown
	}

	counts := make(map[time.Duration]int)
	for i := 1; i < len(times); i++ {
		counts[times[i].Sub(times[i-1])]++
	}

	var modal time.Duration
	best := 0
	for d, c := range counts {
		if c > best || (c == best && d < modal) {
			modal = d
			best = c
		}
	}

	return classifyDelta(modal, times)
}

// classifyDelta maps a modal spacing to the nearest resolution bucket.
func classifyDelta(d time.Duration, times []time.Time) series.Frequency {
	switch {
	case within(d, time.Hour, hourlyTolerance):
		return series.FrequencyHourly
	case within(d, 24*time.Hour, dailyTolerance):
		return series.FrequencyDaily
	case d >= monthMin && d <= monthMax:
		// Monthly series sit on first-of-month boundaries.
		if onMonthBoundaries(times) {
			return series.FrequencyMonthly
		}
		return series.FrequencyUnknown
	default:
		return series.FrequencyUnknown
	}
}

func within(d, target, tolerance time.Duration) bool {
	diff := d - target
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

func onMonthBoundaries(times []time.Time) bool {
	for _, t := range times {
		if t.Day() != 1 {
			return false
		}
	}
	return true
}

func uniqueSortedTimestamps(s *series.CanonicalSeries) []time.Time {
	times := make([]time.Time, 0, len(s.Points))
	seen := make(map[int64]struct{}, len(s.Points))
	for _, p := range s.Points {
		key := p.Timestamp.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		times = append(times, p.Timestamp)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}
