package schema

import (
	"fmt"
	"sort"
	"strings"

	"emcal/adapters/mapper"
	"emcal/adapters/temporal"
	"emcal/domain/core"
	"emcal/domain/ingestion"
	"emcal/domain/mapping"
	"emcal/domain/series"
)

// TableShape is the detected storage shape of a raw table.
type TableShape string

const (
	// ShapeWideDated carries dates as column headers, one row per entity.
	ShapeWideDated TableShape = "wide_dated"
	// ShapeLong carries an explicit per-row timestamp column.
	ShapeLong TableShape = "long"
)

// Column header conventions recognized in long-format tables.
var (
	timestampHeaders = []string{"timestamp", "datetime", "date", "observed_at", "time"}
	entityHeaders    = []string{"entity_id", "entity", "building_id", "meter_id"}
	labelHeaders     = []string{"variable_label", "variable", "label", "field", "measurement"}
	valueHeaders     = []string{"value", "reading", "amount"}
)

// Normalizer converts either storage shape into canonical long-format
// series keyed by (entity, canonical variable). It owns shape detection;
// an undecidable table is a DataFormatError, never a silent "unknown".
type Normalizer struct {
	mapper *mapper.SemanticMapper
	cache  *mapping.Cache
}

// New creates a normalizer bound to a mapper and the run-scoped
// mapping cache.
func New(m *mapper.SemanticMapper, cache *mapping.Cache) *Normalizer {
	return &Normalizer{mapper: m, cache: cache}
}

// DetectShape classifies a table. A table is wide-dated when at least
// two column headers parse as `YYYY-MM` or `YYYY-MM-DD`; requiring two
// keeps an incidental year-like field from being read as a date axis.
// A table with an explicit timestamp column is long. Anything else fails.
func DetectShape(table *ingestion.RawTable) (TableShape, error) {
	dateCols := 0
	for _, h := range table.Headers {
		if _, ok := parseDateHeader(h); ok {
			dateCols++
		}
	}
	if dateCols >= 2 {
		return ShapeWideDated, nil
	}
	if _, ok := findHeader(table.Headers, timestampHeaders); ok {
		return ShapeLong, nil
	}
	return "", core.NewDataFormatError(fmt.Sprintf(
		"table %q has %d date-like columns and no timestamp column", table.Name, dateCols))
}

// Normalize converts a raw table into zero or more canonical series.
// Labels that fail to map are recorded in the mapping cache and produce
// no series; the caller reports them as NoMapping pairs.
func (n *Normalizer) Normalize(table *ingestion.RawTable) ([]series.CanonicalSeries, error) {
	shape, err := DetectShape(table)
	if err != nil {
		return nil, err
	}

	var points map[seriesKey][]series.Point
	switch shape {
	case ShapeWideDated:
		points, err = n.unpivotWide(table)
	case ShapeLong:
		points, err = n.collectLong(table)
	}
	if err != nil {
		return nil, err
	}

	return n.assemble(points)
}

type seriesKey struct {
	entity core.EntityID
	varID  core.VariableID
}

// unpivotWide turns each (row, date column) cell into one observation.
func (n *Normalizer) unpivotWide(table *ingestion.RawTable) (map[seriesKey][]series.Point, error) {
	entityCol, ok := findHeader(table.Headers, entityHeaders)
	if !ok {
		return nil, core.NewDataFormatError(fmt.Sprintf("table %q: no entity column", table.Name))
	}
	labelCol, ok := findHeader(table.Headers, labelHeaders)
	if !ok {
		return nil, core.NewDataFormatError(fmt.Sprintf("table %q: no variable label column", table.Name))
	}

	out := make(map[seriesKey][]series.Point)
	for _, row := range table.Rows {
		entity := core.EntityID(strings.TrimSpace(row[entityCol]))
		if entity == "" {
			continue
		}
		m := n.mapper.MapCached(n.cache, row[labelCol])
		if !m.Resolved() {
			continue
		}
		for _, header := range table.Headers {
			ts, isDate := parseDateHeader(header)
			if !isDate {
				continue
			}
			val, err := coerceNumeric(header, row[header])
			if err != nil {
				return nil, err
			}
			f, present := val.Float()
			if !present {
				continue
			}
			key := seriesKey{entity: entity, varID: m.VariableID}
			out[key] = append(out[key], series.Point{Timestamp: ts, Value: f})
		}
	}
	return out, nil
}

// collectLong passes a long table through with a per-row mapper lookup.
func (n *Normalizer) collectLong(table *ingestion.RawTable) (map[seriesKey][]series.Point, error) {
	tsCol, _ := findHeader(table.Headers, timestampHeaders)
	entityCol, ok := findHeader(table.Headers, entityHeaders)
	if !ok {
		return nil, core.NewDataFormatError(fmt.Sprintf("table %q: no entity column", table.Name))
	}
	labelCol, ok := findHeader(table.Headers, labelHeaders)
	if !ok {
		return nil, core.NewDataFormatError(fmt.Sprintf("table %q: no variable label column", table.Name))
	}
	valueCol, ok := findHeader(table.Headers, valueHeaders)
	if !ok {
		return nil, core.NewDataFormatError(fmt.Sprintf("table %q: no value column", table.Name))
	}

	out := make(map[seriesKey][]series.Point)
	for _, row := range table.Rows {
		entity := core.EntityID(strings.TrimSpace(row[entityCol]))
		if entity == "" {
			continue
		}
		m := n.mapper.MapCached(n.cache, row[labelCol])
		if !m.Resolved() {
			continue
		}
		tsVal, err := coerceTimestamp(tsCol, row[tsCol])
		if err != nil {
			return nil, err
		}
		ts, present := tsVal.Time()
		if !present {
			continue
		}
		val, err := coerceNumeric(valueCol, row[valueCol])
		if err != nil {
			return nil, err
		}
		f, present := val.Float()
		if !present {
			continue
		}
		key := seriesKey{entity: entity, varID: m.VariableID}
		out[key] = append(out[key], series.Point{Timestamp: ts, Value: f})
	}
	return out, nil
}

// assemble sorts each point set, enforces the unique-timestamp invariant
// and tags the detected frequency.
func (n *Normalizer) assemble(points map[seriesKey][]series.Point) ([]series.CanonicalSeries, error) {
	keys := make([]seriesKey, 0, len(points))
	for k := range points {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].entity != keys[j].entity {
			return keys[i].entity < keys[j].entity
		}
		return keys[i].varID < keys[j].varID
	})

	out := make([]series.CanonicalSeries, 0, len(keys))
	for _, k := range keys {
		s := series.CanonicalSeries{
			EntityID:   k.entity,
			VariableID: k.varID,
			Points:     points[k],
		}
		if spec, ok := n.mapper.Spec(k.varID); ok {
			s.Unit = spec.Unit
		}
		s.SortPoints()
		for i := 1; i < len(s.Points); i++ {
			if s.Points[i].Timestamp.Equal(s.Points[i-1].Timestamp) {
				return nil, core.NewDataFormatError(fmt.Sprintf(
					"duplicate timestamp %s for entity %s variable %s",
					s.Points[i].Timestamp.Format("2006-01-02T15:04"), k.entity, k.varID))
			}
		}
		s.Frequency = temporal.DetectFrequency(&s)
		out = append(out, s)
	}
	return out, nil
}

func findHeader(headers []string, wanted []string) (string, bool) {
	for _, w := range wanted {
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), w) {
				return h, true
			}
		}
	}
	return "", false
}
