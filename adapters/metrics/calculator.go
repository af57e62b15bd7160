package metrics

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"emcal/domain/core"
	"emcal/domain/run"
	"emcal/domain/series"
	"emcal/domain/validation"
)

// Calculator computes agreement metrics on an aligned pair and evaluates
// them against the per-run thresholds.
type Calculator struct {
	cfg *run.Config
}

// New creates a calculator bound to the run configuration.
func New(cfg *run.Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Score computes one ValidationMetric per requested metric kind over the
// matched points, with d_i = sim_i − measured_i and m̄ = mean(measured):
//
//	MBE        = mean(d_i)
//	NMBE (%)   = 100 · mean(d_i) / m̄
//	CVRMSE (%) = 100 · sqrt(mean(d_i²)) / m̄
//
// Fewer matched points than the configured minimum is InsufficientData;
// m̄ = 0 is DivisionUndefined for the normalized metrics rather than an
// infinity leaking into pass/fail arithmetic.
func (c *Calculator) Score(aligned *series.AlignmentResult) ([]validation.ValidationMetric, *validation.ResidualProfile, error) {
	n := aligned.CountMatched
	if n < c.cfg.MinAlignedPoints {
		return nil, nil, fmt.Errorf("%w: %d matched, minimum %d",
			core.ErrInsufficientData, n, c.cfg.MinAlignedPoints)
	}

	sim := aligned.SimValues()
	measured := aligned.MeasuredValues()
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = sim[i] - measured[i]
	}

	measuredMean := stat.Mean(measured, nil)
	biasMean := stat.Mean(residuals, nil)

	sumSq := 0.0
	for _, d := range residuals {
		sumSq += d * d
	}
	rmse := math.Sqrt(sumSq / float64(n))

	out := make([]validation.ValidationMetric, 0, len(c.cfg.MetricKinds))
	for _, kind := range c.cfg.MetricKinds {
		var value float64
		switch kind {
		case validation.MetricMBE:
			value = biasMean
		case validation.MetricNMBE:
			if measuredMean == 0 {
				return nil, nil, fmt.Errorf("%w: NMBE over %d points", core.ErrDivisionUndefined, n)
			}
			value = 100 * biasMean / measuredMean
		case validation.MetricCVRMSE:
			if measuredMean == 0 {
				return nil, nil, fmt.Errorf("%w: CVRMSE over %d points", core.ErrDivisionUndefined, n)
			}
			value = 100 * rmse / measuredMean
		default:
			return nil, nil, core.NewConfigError("metric_kinds", fmt.Sprintf("unknown metric kind %q", kind))
		}

		threshold, hasThreshold := c.cfg.Thresholds[kind]
		passed := true
		if hasThreshold {
			passed = math.Abs(value) <= threshold
		}
		out = append(out, validation.ValidationMetric{
			EntityID:   aligned.EntityID,
			VariableID: aligned.VariableID,
			Kind:       kind,
			Value:      value,
			Threshold:  threshold,
			Passed:     passed,
			NPoints:    n,
		})
	}

	return out, profileResiduals(residuals), nil
}

// profileResiduals summarizes the residual distribution for diagnostics.
func profileResiduals(residuals []float64) *validation.ResidualProfile {
	median, _ := stats.Median(residuals)
	minVal, _ := stats.Min(residuals)
	maxVal, _ := stats.Max(residuals)
	q25, _ := stats.Percentile(residuals, 25)
	q75, _ := stats.Percentile(residuals, 75)
	mean, variance := stat.MeanVariance(residuals, nil)

	return &validation.ResidualProfile{
		Mean:   mean,
		Median: median,
		StdDev: math.Sqrt(variance),
		Min:    minVal,
		Max:    maxVal,
		Q25:    q25,
		Q75:    q75,
	}
}
