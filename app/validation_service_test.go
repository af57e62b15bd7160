package app

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emcal/adapters/mapper"
	"emcal/domain/core"
	"emcal/domain/ingestion"
	"emcal/domain/run"
	"emcal/domain/series"
	"emcal/domain/validation"
)

// longTable builds a long-format table of daily observations for one
// entity and one raw variable label.
func longTable(name, entity, label string, year int, value float64) *ingestion.RawTable {
	t := &ingestion.RawTable{
		Name:    name,
		Headers: []string{"timestamp", "entity_id", "variable_label", "value"},
	}
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		t.Rows = append(t.Rows, ingestion.RawRow{
			"timestamp":      d.Format("2006-01-02"),
			"entity_id":      entity,
			"variable_label": label,
			"value":          fmt.Sprintf("%g", value),
		})
	}
	return t
}

func newService(t *testing.T, cfg *run.Config) *ValidationService {
	t.Helper()
	svc, err := NewValidationService(cfg, mapper.DefaultDictionary(), nil, nil)
	require.NoError(t, err)
	return svc
}

func TestRun_EndToEndConstantBias(t *testing.T) {
	cfg := run.DefaultConfig()
	svc := newService(t, &cfg)

	sim := longTable("sim", "4136733", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "4136733", "Zone Air System Sensible Heating Energy", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, validation.StatusPassed, pair.Status)
	assert.Equal(t, "4136733", string(pair.EntityID))
	assert.Equal(t, "heating_energytransfer", string(pair.VariableID))
	assert.Equal(t, validation.StageScored, pair.LastStage)

	require.Len(t, pair.Metrics, 3)
	for _, m := range pair.Metrics {
		assert.Equal(t, 365, m.NPoints)
		assert.True(t, m.Passed, "%s value %v", m.Kind, m.Value)
		// Constant +5 bias against a 100 baseline: every metric reads 5.
		assert.InDelta(t, 5.0, m.Value, 1e-9, "metric %s", m.Kind)
	}

	require.NotNil(t, pair.Residuals)
	assert.InDelta(t, 5.0, pair.Residuals.Mean, 1e-9)
	assert.InDelta(t, 0.0, pair.Residuals.StdDev, 1e-9)

	assert.Equal(t, 1, report.CountPassed)
	assert.Equal(t, 0, report.CountFailed)
	assert.Equal(t, 0, report.CountSkipped)
}

func TestRun_UnmappableLabelReportedAsNoMapping(t *testing.T) {
	cfg := run.DefaultConfig()
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Chilled Water Loop Pump Energy", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	var noMapping *validation.PairResult
	for i := range report.Pairs {
		if report.Pairs[i].SkipReason == validation.SkipNoMapping {
			noMapping = &report.Pairs[i]
		}
	}
	require.NotNil(t, noMapping, "unresolved label should surface as a NoMapping skip")
	assert.Equal(t, "Chilled Water Loop Pump Energy", noMapping.RawLabel)
	assert.Equal(t, validation.StatusSkipped, noMapping.Status)
	assert.Equal(t, validation.StageMapped, noMapping.LastStage)
	assert.NotEmpty(t, noMapping.SkipDetail)
}

func TestRun_CalendarMismatchIsNoOverlapNotNoMapping(t *testing.T) {
	cfg := run.DefaultConfig()
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2013, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, validation.StatusSkipped, pair.Status)
	assert.Equal(t, validation.SkipNoOverlap, pair.SkipReason)
	assert.Equal(t, validation.StageAligned, pair.LastStage)
}

func TestRun_YearAgnosticRecoversDisjointYears(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.YearAgnosticMatch = true
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2013, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	require.Equal(t, validation.StatusPassed, pair.Status)
	assert.Equal(t, 365, pair.Metrics[0].NPoints)
}

func TestRun_MalformedTableBecomesDataFormatSkip(t *testing.T) {
	cfg := run.DefaultConfig()
	svc := newService(t, &cfg)

	bad := &ingestion.RawTable{
		Name:    "opaque",
		Headers: []string{"colA", "colB"},
		Rows:    []ingestion.RawRow{{"colA": "x", "colB": "y"}},
	}
	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim, bad}, nil)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, validation.StatusSkipped, pair.Status)
	assert.Equal(t, validation.SkipDataFormatError, pair.SkipReason)
	assert.Equal(t, "opaque", string(pair.EntityID))
}

func TestRun_CancelledContextSkipsPendingPairs(t *testing.T) {
	cfg := run.DefaultConfig()
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, validation.SkipCancelled, report.Pairs[0].SkipReason)
	assert.Equal(t, 1, report.CountSkipped)
}

func TestRun_PairDeadlineProducesTimedOutSkip(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.PairTimeout = time.Nanosecond
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, validation.StatusSkipped, pair.Status)
	assert.Equal(t, validation.SkipTimedOut, pair.SkipReason)
	assert.Equal(t, validation.StageAggregated, pair.LastStage)
	// The run itself completes; only the pair is marked.
	assert.Equal(t, 1, report.CountSkipped)
}

func TestRun_VariableSelectionFiltersPairs(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.VariablesToValidate = []core.VariableID{"electricity_facility"}
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
}

func TestRun_MonthlyTargetAggregatesDailyInput(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.TargetFrequency = series.FrequencyMonthly
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	require.Equal(t, validation.StatusPassed, pair.Status)
	assert.Equal(t, 12, pair.Metrics[0].NPoints)
	// Sum-reduced constant bias scales with days per month but the
	// normalized metrics stay at 5%.
	for _, m := range pair.Metrics {
		if m.Kind == validation.MetricMBE {
			continue
		}
		assert.InDelta(t, 5.0, m.Value, 0.2, "metric %s", m.Kind)
	}
}

func TestRun_HourlyTargetWithDailyInputIsFrequencyMismatch(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.TargetFrequency = series.FrequencyHourly
	svc := newService(t, &cfg)

	sim := longTable("sim", "b1", "Heating:EnergyTransfer", 2021, 105)
	measured := longTable("measured", "b1", "Heating:EnergyTransfer", 2021, 100)

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{sim}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, validation.SkipFrequencyMismatch, report.Pairs[0].SkipReason)
}

func TestNewValidationService_RejectsInvalidConfig(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.Workers = 0

	_, err := NewValidationService(&cfg, mapper.DefaultDictionary(), nil, nil)
	require.Error(t, err)
}

func TestRun_WideDatedTableNormalizes(t *testing.T) {
	cfg := run.DefaultConfig()
	cfg.TargetFrequency = series.FrequencyMonthly
	svc := newService(t, &cfg)

	wide := &ingestion.RawTable{
		Name:    "annual",
		Headers: []string{"building_id", "variable", "2021-01", "2021-02", "2021-03"},
		Rows: []ingestion.RawRow{{
			"building_id": "b1",
			"variable":    "Electricity:Facility",
			"2021-01":     "300",
			"2021-02":     "310",
			"2021-03":     "290",
		}},
	}
	measured := &ingestion.RawTable{
		Name:    "metered",
		Headers: []string{"building_id", "variable", "2021-01", "2021-02", "2021-03"},
		Rows: []ingestion.RawRow{{
			"building_id": "b1",
			"variable":    "Electricity:Facility",
			"2021-01":     "300",
			"2021-02":     "310",
			"2021-03":     "290",
		}},
	}

	report, err := svc.Run(context.Background(), []*ingestion.RawTable{wide}, []*ingestion.RawTable{measured})
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	require.Equal(t, validation.StatusPassed, pair.Status)
	assert.Equal(t, "electricity_facility", string(pair.VariableID))
	assert.Equal(t, 3, pair.Metrics[0].NPoints)
	assert.True(t, math.Abs(pair.Metrics[0].Value) < 1e-9)
}
