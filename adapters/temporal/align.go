package temporal

import (
	"sort"

	"emcal/domain/core"
	"emcal/domain/run"
	"emcal/domain/series"
)

// Align computes the matched intersection of a simulated and a measured
// canonical series for the same (entity, canonical variable) at the same
// resolution. In calendar mode the key is the timestamp itself; in
// year-agnostic mode the key drops the year so a representative-year
// simulation can be compared against a different metered year.
//
// A zero matched count is returned as-is: the caller decides whether
// that is the NoOverlap condition. It is never an error here and never
// conflated with an unmapped variable.
func Align(sim, measured *series.CanonicalSeries, cfg *run.Config) (*series.AlignmentResult, error) {
	if sim.Frequency != measured.Frequency {
		return nil, core.NewFrequencyMismatchError(string(sim.Frequency), string(measured.Frequency))
	}

	mode := cfg.KeyMode()
	simSide := buildKeySide(sim, mode, cfg)
	measSide := buildKeySide(measured, mode, cfg)

	result := &series.AlignmentResult{
		EntityID:   sim.EntityID,
		VariableID: sim.VariableID,
		Mode:       mode,
	}

	keys := make([]series.MatchKey, 0, len(simSide))
	for k := range simSide {
		if _, ok := measSide[k]; ok {
			keys = append(keys, k)
		} else {
			result.CountSimOnly++
		}
	}
	for k := range measSide {
		if _, ok := simSide[k]; !ok {
			result.CountMeasuredOnly++
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		result.Matched = append(result.Matched, series.MatchedPoint{
			Key:      k,
			SimValue: simSide[k].resolve(cfg.YearTieBreak),
			Measured: measSide[k].resolve(cfg.YearTieBreak),
		})
	}
	result.CountMatched = len(result.Matched)
	return result, nil
}

// keyValues accumulates the per-year candidates that collide on one key.
// Calendar-exact keys carry the year, so they never collide; collisions
// happen only under year-agnostic matching across measured years.
type keyValues struct {
	years  []int
	values []float64
}

func (kv *keyValues) add(year int, value float64) {
	kv.years = append(kv.years, year)
	kv.values = append(kv.values, value)
}

// resolve applies the per-run tie-break policy deterministically, never
// leaving the choice to input order.
func (kv *keyValues) resolve(policy run.YearTieBreak) float64 {
	if len(kv.values) == 1 {
		return kv.values[0]
	}
	switch policy {
	case run.TieBreakEarliest:
		best := 0
		for i := 1; i < len(kv.years); i++ {
			if kv.years[i] < kv.years[best] {
				best = i
			}
		}
		return kv.values[best]
	case run.TieBreakAverage:
		sum := 0.0
		for _, v := range kv.values {
			sum += v
		}
		return sum / float64(len(kv.values))
	default: // latest
		best := 0
		for i := 1; i < len(kv.years); i++ {
			if kv.years[i] > kv.years[best] {
				best = i
			}
		}
		return kv.values[best]
	}
}

func buildKeySide(s *series.CanonicalSeries, mode series.KeyMode, cfg *run.Config) map[series.MatchKey]*keyValues {
	out := make(map[series.MatchKey]*keyValues, len(s.Points))
	for _, p := range s.Points {
		k := series.NewMatchKey(p.Timestamp, s.Frequency, mode)
		if mode == series.KeyModeYearAgnostic && k.IsLeapDay() {
			switch cfg.LeapDay {
			case run.LeapDayDrop:
				continue
			case run.LeapDayFeb28:
				k.Day = 28
			}
		}
		kv, ok := out[k]
		if !ok {
			kv = &keyValues{}
			out[k] = kv
		}
		kv.add(p.Timestamp.Year(), p.Value)
	}
	return out
}
