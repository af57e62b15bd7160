package run

import (
	"errors"
	"testing"

	"emcal/domain/core"
	"emcal/domain/series"
	"emcal/domain/validation"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown target frequency", func(c *Config) { c.TargetFrequency = series.FrequencyUnknown }},
		{"unknown tie break", func(c *Config) { c.YearTieBreak = "newest" }},
		{"unknown leap day policy", func(c *Config) { c.LeapDay = "interpolate" }},
		{"zero min aligned points", func(c *Config) { c.MinAlignedPoints = 0 }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative confidence", func(c *Config) { c.ConfidenceThreshold = -0.1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero pair timeout", func(c *Config) { c.PairTimeout = 0 }},
		{"unknown threshold kind", func(c *Config) { c.Thresholds = map[validation.MetricKind]float64{"r2": 0.9} }},
		{"non-positive threshold", func(c *Config) { c.Thresholds = map[validation.MetricKind]float64{validation.MetricNMBE: 0} }},
		{"no metric kinds", func(c *Config) { c.MetricKinds = nil }},
		{"unknown metric kind", func(c *Config) { c.MetricKinds = []validation.MetricKind{"r2"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a config error")
			}
			if !errors.Is(err, core.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWantsVariable(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.WantsVariable("electricity_facility") {
		t.Error("empty selection should accept any variable")
	}

	cfg.VariablesToValidate = []core.VariableID{"gas_facility"}
	if cfg.WantsVariable("electricity_facility") {
		t.Error("unselected variable accepted")
	}
	if !cfg.WantsVariable("gas_facility") {
		t.Error("selected variable rejected")
	}
}

func TestKeyModeFollowsYearAgnosticFlag(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.KeyMode() != series.KeyModeCalendar {
		t.Errorf("mode = %s, want calendar", cfg.KeyMode())
	}
	cfg.YearAgnosticMatch = true
	if cfg.KeyMode() != series.KeyModeYearAgnostic {
		t.Errorf("mode = %s, want year_agnostic", cfg.KeyMode())
	}
}
