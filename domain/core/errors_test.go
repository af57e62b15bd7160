package core

import (
	"errors"
	"strings"
	"testing"
)

func TestConstructorsWrapTheirSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"data format", NewDataFormatError("no timestamp column"), ErrDataFormat},
		{"coercion", NewCoercionError("value", "abc", errors.New("bad syntax")), ErrValueCoercion},
		{"no mapping", NewNoMappingError("Pump Energy", "", 0), ErrNoMapping},
		{"frequency mismatch", NewFrequencyMismatchError("monthly", "daily"), ErrFrequencyMismatch},
		{"config", NewConfigError("workers", "must be at least 1"), ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tc.err, tc.sentinel)
			}
		})
	}
}

func TestNoMappingErrorCarriesCandidateDiagnostics(t *testing.T) {
	err := NewNoMappingError("Pump Energy", "district_heating_energy", 0.14)
	for _, want := range []string{"Pump Energy", "district_heating_energy", "0.14"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	bare := NewNoMappingError("Pump Energy", "", 0)
	if strings.Contains(bare.Error(), "candidate") {
		t.Errorf("error %q should not mention a candidate", bare)
	}
}

func TestErrorClassHelpers(t *testing.T) {
	cases := []struct {
		name    string
		helper  func(error) bool
		covered []error
	}{
		{"data format", IsDataFormatError, []error{ErrDataFormat, ErrValueCoercion}},
		{"mapping", IsMappingError, []error{ErrNoMapping}},
		{"temporal", IsTemporalError, []error{ErrFrequencyMismatch, ErrNoOverlap}},
		{"metric", IsMetricError, []error{ErrInsufficientData, ErrDivisionUndefined}},
	}
	all := []error{
		ErrDataFormat, ErrValueCoercion, ErrNoMapping, ErrFrequencyMismatch,
		ErrNoOverlap, ErrInsufficientData, ErrDivisionUndefined,
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := make(map[error]bool, len(tc.covered))
			for _, err := range tc.covered {
				in[err] = true
			}
			for _, err := range all {
				if got := tc.helper(err); got != in[err] {
					t.Errorf("%v classified as %v, want %v", err, got, in[err])
				}
			}
		})
	}
}
