// Package ports declares the capability contracts between the validation
// core and its external collaborators. Components state the operations
// they require up front; nothing is discovered at call time.
package ports

import (
	"context"

	"emcal/domain/core"
	"emcal/domain/ingestion"
	"emcal/domain/validation"
)

// TableSource supplies raw tabular data, already materialized; the core
// itself performs no network or disk I/O. Simulated and measured
// providers both satisfy this interface.
type TableSource interface {
	// Name identifies the source for diagnostics.
	Name() string
	// Tables returns the raw tables in either wide-dated or long shape.
	Tables(ctx context.Context) ([]*ingestion.RawTable, error)
}

// ResultSink persists a finished run report. Persistence format is the
// sink's concern, not the core's.
type ResultSink interface {
	SaveReport(ctx context.Context, report *validation.RunReport) error
}

// ResultStore is a sink that can also load reports back, so runs stay
// retrievable after a process restart.
type ResultStore interface {
	ResultSink
	GetReport(ctx context.Context, runID core.RunID) (*validation.RunReport, error)
}

// Reporter renders a run report for human consumption.
type Reporter interface {
	Render(report *validation.RunReport) ([]byte, error)
}

// Observer receives per-pair completion events for instrumentation.
type Observer interface {
	PairDone(status validation.Status, reason validation.SkipReason, durationMs int64)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) PairDone(validation.Status, validation.SkipReason, int64) {}
