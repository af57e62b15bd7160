package schema

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"emcal/domain/core"
	"emcal/domain/ingestion"
)

var errNoTimestampLayout = errors.New("no supported timestamp layout matched")

// Deterministic value typing at the ingestion boundary. Mixed or
// unparseable cells fail fast with a typed error instead of propagating
// into aggregation or metric arithmetic.

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006-01",
}

// coerceNumeric parses a cell into a numeric value. Empty cells are
// missing, not zero. Thousands separators are tolerated.
func coerceNumeric(column, raw string) (ingestion.Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ingestion.NewMissingValue(), nil
	}
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ingestion.Value{}, core.NewCoercionError(column, raw, err)
	}
	return ingestion.NewNumericValue(f), nil
}

// coerceTimestamp parses a cell into a timestamp, trying the supported
// layouts from most to least specific. All timestamps land in UTC.
func coerceTimestamp(column, raw string) (ingestion.Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ingestion.NewMissingValue(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return ingestion.NewTimestampValue(t.UTC()), nil
		}
	}
	return ingestion.Value{}, core.NewCoercionError(column, raw, errNoTimestampLayout)
}

// parseDateHeader parses a wide-dated column header (`YYYY-MM` or
// `YYYY-MM-DD`) into the timestamp the column's values belong to.
// Month-only headers resolve to the first of the month.
func parseDateHeader(header string) (time.Time, bool) {
	s := strings.TrimSpace(header)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
