package validation

import (
	"emcal/domain/core"
)

// MetricKind identifies one agreement metric.
type MetricKind string

const (
	MetricCVRMSE MetricKind = "cvrmse"
	MetricNMBE   MetricKind = "nmbe"
	MetricMBE    MetricKind = "mbe"
)

// AllMetricKinds lists the supported metrics in reporting order.
func AllMetricKinds() []MetricKind {
	return []MetricKind{MetricCVRMSE, MetricNMBE, MetricMBE}
}

// ValidationMetric is one computed agreement metric for one
// (entity, canonical variable) pair, evaluated against its threshold.
type ValidationMetric struct {
	EntityID   core.EntityID   `json:"entity_id"`
	VariableID core.VariableID `json:"variable_id"`
	Kind       MetricKind      `json:"metric_kind"`
	Value      float64         `json:"value"`
	Threshold  float64         `json:"threshold"` // zero means no threshold configured
	Passed     bool            `json:"passed"`
	NPoints    int             `json:"n_points"`
}

// ResidualProfile summarizes the sim-minus-measured residuals over the
// matched window, attached to scored pairs for diagnostics.
type ResidualProfile struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// Stage is a step in the per-pair pipeline.
type Stage string

const (
	StageMapped     Stage = "mapped"
	StageNormalized Stage = "normalized"
	StageAggregated Stage = "aggregated"
	StageAligned    Stage = "aligned"
	StageScored     Stage = "scored"
)

// SkipReason explains why a pair terminated before scoring. The taxonomy
// deliberately keeps NoMapping (never resolved to a canonical id) apart
// from NoOverlap (resolved and normalized, zero shared keys).
type SkipReason string

const (
	SkipNoMapping         SkipReason = "no_mapping"
	SkipDataFormatError   SkipReason = "data_format_error"
	SkipFrequencyMismatch SkipReason = "frequency_mismatch"
	SkipNoOverlap         SkipReason = "no_overlap"
	SkipInsufficientData  SkipReason = "insufficient_data"
	SkipDivisionUndefined SkipReason = "division_undefined"
	SkipCancelled         SkipReason = "cancelled"
	SkipTimedOut          SkipReason = "timed_out"
)

// Status is the terminal state of a pair.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// PairResult is the terminal record for one (entity, canonical variable)
// pair: either scored metrics or a skip with its specific reason.
type PairResult struct {
	EntityID   core.EntityID   `json:"entity_id"`
	VariableID core.VariableID `json:"variable_id,omitempty"` // empty for NoMapping skips
	RawLabel   string          `json:"raw_label,omitempty"`

	Status     Status     `json:"status"`
	LastStage  Stage      `json:"last_stage"`
	SkipReason SkipReason `json:"skip_reason,omitempty"`
	SkipDetail string     `json:"skip_detail,omitempty"`

	Metrics   []ValidationMetric `json:"metrics,omitempty"`
	Residuals *ResidualProfile   `json:"residuals,omitempty"`
}

// Scored reports whether the pair reached the scoring stage.
func (r PairResult) Scored() bool {
	return r.Status == StatusPassed || r.Status == StatusFailed
}

// RunReport is the ordered output of one validation run, consumed by
// external reporters.
type RunReport struct {
	RunID        core.RunID   `json:"run_id"`
	Pairs        []PairResult `json:"pairs"`
	CountPassed  int          `json:"count_passed"`
	CountFailed  int          `json:"count_failed"`
	CountSkipped int          `json:"count_skipped"`
	DurationMs   int64        `json:"duration_ms"`
}

// Tally recomputes the summary counters from the pair list.
func (r *RunReport) Tally() {
	r.CountPassed, r.CountFailed, r.CountSkipped = 0, 0, 0
	for _, p := range r.Pairs {
		switch p.Status {
		case StatusPassed:
			r.CountPassed++
		case StatusFailed:
			r.CountFailed++
		case StatusSkipped:
			r.CountSkipped++
		}
	}
}
