package run

import (
	"fmt"
	"time"

	"emcal/domain/core"
	"emcal/domain/series"
	"emcal/domain/validation"
)

// YearTieBreak resolves collisions when year-agnostic matching finds
// values from multiple measured years under the same month-day key.
type YearTieBreak string

const (
	TieBreakLatest   YearTieBreak = "latest"
	TieBreakEarliest YearTieBreak = "earliest"
	TieBreakAverage  YearTieBreak = "average"
)

// LeapDayPolicy decides what happens to February 29 keys under
// year-agnostic matching when the other series has no leap year.
type LeapDayPolicy string

const (
	// LeapDayDrop discards Feb 29 points before joining.
	LeapDayDrop LeapDayPolicy = "drop"
	// LeapDayFeb28 folds Feb 29 onto the Feb 28 key.
	LeapDayFeb28 LeapDayPolicy = "feb28"
)

// Config is the immutable per-run configuration, constructed once and
// passed by reference to every component. There is no mutation after
// Validate succeeds.
type Config struct {
	TargetFrequency     series.Frequency                    `json:"target_frequency"`
	YearAgnosticMatch   bool                                `json:"year_agnostic_matching"`
	YearTieBreak        YearTieBreak                        `json:"year_tie_break"`
	LeapDay             LeapDayPolicy                       `json:"leap_day_policy"`
	VariablesToValidate []core.VariableID                   `json:"variables_to_validate"` // empty = all mappable
	Thresholds          map[validation.MetricKind]float64   `json:"thresholds"`
	MetricKinds         []validation.MetricKind             `json:"metric_kinds"`
	MinAlignedPoints    int                                 `json:"min_aligned_points"`
	ConfidenceThreshold float64                             `json:"confidence_threshold"`
	Workers             int                                 `json:"workers"`
	PairTimeout         time.Duration                       `json:"pair_timeout"`
}

// DefaultConfig returns the per-run defaults: daily comparison, calendar
// matching, ASHRAE-style thresholds (CVRMSE 25%, NMBE 8%).
func DefaultConfig() Config {
	return Config{
		TargetFrequency:   series.FrequencyDaily,
		YearAgnosticMatch: false,
		YearTieBreak:      TieBreakLatest,
		LeapDay:           LeapDayDrop,
		Thresholds: map[validation.MetricKind]float64{
			validation.MetricCVRMSE: 25.0,
			validation.MetricNMBE:   8.0,
		},
		MetricKinds:         validation.AllMetricKinds(),
		MinAlignedPoints:    1,
		ConfidenceThreshold: 0.6,
		Workers:             4,
		PairTimeout:         30 * time.Second,
	}
}

// Validate checks the configuration before any pair is processed.
// Configuration errors are the only fatal errors in a run.
func (c *Config) Validate() error {
	if !c.TargetFrequency.IsKnown() {
		return core.NewConfigError("target_frequency",
			fmt.Sprintf("must be hourly, daily or monthly, got %q", c.TargetFrequency))
	}
	switch c.YearTieBreak {
	case TieBreakLatest, TieBreakEarliest, TieBreakAverage:
	default:
		return core.NewConfigError("year_tie_break", fmt.Sprintf("unknown policy %q", c.YearTieBreak))
	}
	switch c.LeapDay {
	case LeapDayDrop, LeapDayFeb28:
	default:
		return core.NewConfigError("leap_day_policy", fmt.Sprintf("unknown policy %q", c.LeapDay))
	}
	if c.MinAlignedPoints < 1 {
		return core.NewConfigError("min_aligned_points", "must be at least 1")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return core.NewConfigError("confidence_threshold", "must be in [0,1]")
	}
	if c.Workers < 1 {
		return core.NewConfigError("workers", "must be at least 1")
	}
	if c.PairTimeout <= 0 {
		return core.NewConfigError("pair_timeout", "must be positive")
	}
	for kind, v := range c.Thresholds {
		switch kind {
		case validation.MetricCVRMSE, validation.MetricNMBE, validation.MetricMBE:
		default:
			return core.NewConfigError("thresholds", fmt.Sprintf("unknown metric kind %q", kind))
		}
		if v <= 0 {
			return core.NewConfigError("thresholds", fmt.Sprintf("%s threshold must be positive", kind))
		}
	}
	if len(c.MetricKinds) == 0 {
		return core.NewConfigError("metric_kinds", "at least one metric kind required")
	}
	for _, kind := range c.MetricKinds {
		switch kind {
		case validation.MetricCVRMSE, validation.MetricNMBE, validation.MetricMBE:
		default:
			return core.NewConfigError("metric_kinds", fmt.Sprintf("unknown metric kind %q", kind))
		}
	}
	return nil
}

// WantsVariable reports whether the run validates the given canonical id.
// An empty selection means all mappable variables.
func (c *Config) WantsVariable(id core.VariableID) bool {
	if len(c.VariablesToValidate) == 0 {
		return true
	}
	for _, v := range c.VariablesToValidate {
		if v == id {
			return true
		}
	}
	return false
}

// KeyMode returns the alignment key mode implied by the configuration.
func (c *Config) KeyMode() series.KeyMode {
	if c.YearAgnosticMatch {
		return series.KeyModeYearAgnostic
	}
	return series.KeyModeCalendar
}
