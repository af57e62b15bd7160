package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"emcal/adapters/mapper"
	"emcal/adapters/metrics"
	"emcal/adapters/schema"
	"emcal/adapters/temporal"
	"emcal/domain/core"
	"emcal/domain/ingestion"
	"emcal/domain/mapping"
	"emcal/domain/run"
	"emcal/domain/series"
	"emcal/domain/validation"
	"emcal/internal"
	"emcal/ports"
)

// ValidationService reconciles simulated series against measured series
// and scores their agreement. Pairs of (entity, canonical variable) are
// mutually independent once the mapping cache is populated, so they are
// processed by a fixed-size worker pool.
type ValidationService struct {
	cfg      *run.Config
	mapper   *mapper.SemanticMapper
	calc     *metrics.Calculator
	observer ports.Observer
	logger   *internal.Logger
}

// NewValidationService wires a service for one configuration. The
// configuration is validated here, before any pair is touched; config
// errors are the only fatal errors in a run.
func NewValidationService(cfg *run.Config, specs []mapping.VariableSpec, observer ports.Observer, logger *internal.Logger) (*ValidationService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &ValidationService{
		cfg:      cfg,
		mapper:   mapper.New(specs, cfg.ConfidenceThreshold),
		calc:     metrics.New(cfg),
		observer: observer,
		logger:   logger,
	}, nil
}

// pair is one unit of work: both sides normalized to canonical series.
type pair struct {
	entity   core.EntityID
	variable core.VariableID
	sim      *series.CanonicalSeries
	measured *series.CanonicalSeries
}

// Run executes a full validation: map, normalize, then score every pair.
// Per-pair failures become Skipped outcomes with their specific reason
// and never abort the run.
func (s *ValidationService) Run(ctx context.Context, simTables, measuredTables []*ingestion.RawTable) (*validation.RunReport, error) {
	started := time.Now()
	report := &validation.RunReport{RunID: core.RunID(core.NewID())}
	cache := mapping.NewCache()
	normalizer := schema.New(s.mapper, cache)

	simSeries := s.normalizeAll(normalizer, simTables, report)
	measSeries := s.normalizeAll(normalizer, measuredTables, report)

	// The cache is read-only from here on; unresolved labels become
	// NoMapping records so "never mapped" stays diagnosable apart from
	// "mapped but no temporal overlap".
	for _, m := range cache.All() {
		if m.Resolved() {
			continue
		}
		report.Pairs = append(report.Pairs, validation.PairResult{
			RawLabel:   m.RawLabel,
			Status:     validation.StatusSkipped,
			LastStage:  validation.StageMapped,
			SkipReason: validation.SkipNoMapping,
			SkipDetail: skipDetailForMapping(m),
		})
		s.observer.PairDone(validation.StatusSkipped, validation.SkipNoMapping, 0)
	}

	pairs := s.buildPairs(simSeries, measSeries)
	s.logger.Info("run %s: %d pairs across %d sim and %d measured series",
		report.RunID, len(pairs), len(simSeries), len(measSeries))

	var mu sync.Mutex
	results := make([]validation.PairResult, 0, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, p := range pairs {
		p := p
		g.Go(func() error {
			// Cancellation is cooperative and polled between pairs:
			// completed pairs are retained, the remainder is skipped.
			var result validation.PairResult
			if err := ctx.Err(); err != nil {
				result = skipResult(p, validation.StageMapped, validation.SkipCancelled, core.ErrCancelled.Error())
			} else {
				result = s.processPair(p)
			}
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic output order regardless of worker interleaving.
	sort.Slice(results, func(i, j int) bool {
		if results[i].EntityID != results[j].EntityID {
			return results[i].EntityID < results[j].EntityID
		}
		return results[i].VariableID < results[j].VariableID
	})
	report.Pairs = append(report.Pairs, results...)
	report.Tally()
	report.DurationMs = time.Since(started).Milliseconds()
	return report, nil
}

// normalizeAll converts each table, recording table-level format failures
// as skip records attributed to the table name.
func (s *ValidationService) normalizeAll(normalizer *schema.Normalizer, tables []*ingestion.RawTable, report *validation.RunReport) map[pairKey]*series.CanonicalSeries {
	out := make(map[pairKey]*series.CanonicalSeries)
	for _, table := range tables {
		normalized, err := normalizer.Normalize(table)
		if err != nil {
			s.logger.Warn("table %q rejected: %v", table.Name, err)
			report.Pairs = append(report.Pairs, validation.PairResult{
				EntityID:   core.EntityID(table.Name),
				Status:     validation.StatusSkipped,
				LastStage:  validation.StageNormalized,
				SkipReason: validation.SkipDataFormatError,
				SkipDetail: err.Error(),
			})
			s.observer.PairDone(validation.StatusSkipped, validation.SkipDataFormatError, 0)
			continue
		}
		for i := range normalized {
			cs := &normalized[i]
			out[pairKey{cs.EntityID, cs.VariableID}] = cs
		}
	}
	return out
}

type pairKey struct {
	entity   core.EntityID
	variable core.VariableID
}

// buildPairs intersects the two sides, honoring the variable selection.
func (s *ValidationService) buildPairs(sim, measured map[pairKey]*series.CanonicalSeries) []pair {
	pairs := make([]pair, 0, len(sim))
	for k, simSeries := range sim {
		if !s.cfg.WantsVariable(k.variable) {
			continue
		}
		measSeries, ok := measured[k]
		if !ok {
			continue
		}
		pairs = append(pairs, pair{
			entity:   k.entity,
			variable: k.variable,
			sim:      simSeries,
			measured: measSeries,
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].entity != pairs[j].entity {
			return pairs[i].entity < pairs[j].entity
		}
		return pairs[i].variable < pairs[j].variable
	})
	return pairs
}

// processPair walks one pair through
// Aggregated → Aligned → Scored → Passed/Failed, terminating in Skipped
// with the specific reason at whichever stage fails. Work is CPU-bound
// with no suspension points, so the pair timeout is polled between
// stages.
func (s *ValidationService) processPair(p pair) validation.PairResult {
	started := time.Now()
	deadline := started.Add(s.cfg.PairTimeout)
	finish := func(r validation.PairResult) validation.PairResult {
		s.observer.PairDone(r.Status, r.SkipReason, time.Since(started).Milliseconds())
		return r
	}

	reducer := s.mapper.Reducer(p.variable)
	simAgg, err := temporal.Aggregate(p.sim, s.cfg.TargetFrequency, reducer)
	if err != nil {
		return finish(skipForError(p, validation.StageNormalized, err))
	}
	measAgg, err := temporal.Aggregate(p.measured, s.cfg.TargetFrequency, reducer)
	if err != nil {
		return finish(skipForError(p, validation.StageNormalized, err))
	}
	if time.Now().After(deadline) {
		return finish(skipResult(p, validation.StageAggregated, validation.SkipTimedOut, core.ErrTimedOut.Error()))
	}

	aligned, err := temporal.Align(simAgg, measAgg, s.cfg)
	if err != nil {
		return finish(skipForError(p, validation.StageAggregated, err))
	}
	if aligned.CountMatched == 0 {
		return finish(skipResult(p, validation.StageAligned, validation.SkipNoOverlap,
			core.ErrNoOverlap.Error()))
	}
	if time.Now().After(deadline) {
		return finish(skipResult(p, validation.StageAligned, validation.SkipTimedOut, core.ErrTimedOut.Error()))
	}

	scored, residuals, err := s.calc.Score(aligned)
	if err != nil {
		return finish(skipForError(p, validation.StageAligned, err))
	}

	status := validation.StatusPassed
	for _, m := range scored {
		if !m.Passed {
			status = validation.StatusFailed
			break
		}
	}
	return finish(validation.PairResult{
		EntityID:   p.entity,
		VariableID: p.variable,
		Status:     status,
		LastStage:  validation.StageScored,
		Metrics:    scored,
		Residuals:  residuals,
	})
}

// skipForError maps the error taxonomy onto skip reasons.
func skipForError(p pair, stage validation.Stage, err error) validation.PairResult {
	reason := validation.SkipDataFormatError
	switch {
	case errors.Is(err, core.ErrFrequencyMismatch):
		reason = validation.SkipFrequencyMismatch
	case errors.Is(err, core.ErrNoOverlap):
		reason = validation.SkipNoOverlap
	case errors.Is(err, core.ErrInsufficientData):
		reason = validation.SkipInsufficientData
	case errors.Is(err, core.ErrDivisionUndefined):
		reason = validation.SkipDivisionUndefined
	case errors.Is(err, core.ErrNoMapping):
		reason = validation.SkipNoMapping
	}
	return skipResult(p, stage, reason, err.Error())
}

func skipResult(p pair, stage validation.Stage, reason validation.SkipReason, detail string) validation.PairResult {
	return validation.PairResult{
		EntityID:   p.entity,
		VariableID: p.variable,
		Status:     validation.StatusSkipped,
		LastStage:  stage,
		SkipReason: reason,
		SkipDetail: detail,
	}
}

func skipDetailForMapping(m mapping.VariableMapping) string {
	return core.NewNoMappingError(m.RawLabel, m.BestCandidate, m.BestCandidateScore).Error()
}
