package schema

import (
	"errors"
	"testing"
	"time"

	"emcal/adapters/mapper"
	"emcal/domain/core"
	"emcal/domain/ingestion"
	"emcal/domain/mapping"
	"emcal/domain/series"
)

func newTestNormalizer() (*Normalizer, *mapping.Cache) {
	cache := mapping.NewCache()
	m := mapper.New(mapper.DefaultDictionary(), 0.6)
	return New(m, cache), cache
}

func wideTable(name string, dates []string, rows []ingestion.RawRow) *ingestion.RawTable {
	headers := append([]string{"entity_id", "variable_label"}, dates...)
	return &ingestion.RawTable{Name: name, Headers: headers, Rows: rows}
}

func TestDetectShape(t *testing.T) {
	cases := []struct {
		name    string
		headers []string
		want    TableShape
		wantErr bool
	}{
		{"wide monthly", []string{"entity_id", "variable_label", "2013-01", "2013-02"}, ShapeWideDated, false},
		{"wide daily", []string{"entity_id", "variable_label", "2013-01-01", "2013-01-02", "2013-01-03"}, ShapeWideDated, false},
		{"long", []string{"entity_id", "variable_label", "timestamp", "value"}, ShapeLong, false},
		// One incidental year-like field must not classify as a date axis.
		{"single date col, no timestamp", []string{"entity_id", "variable_label", "2013-01"}, "", true},
		{"no temporal columns at all", []string{"entity_id", "variable_label", "value"}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			table := &ingestion.RawTable{Name: tc.name, Headers: tc.headers}
			shape, err := DetectShape(table)
			if tc.wantErr {
				if !errors.Is(err, core.ErrDataFormat) {
					t.Fatalf("expected DataFormatError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectShape failed: %v", err)
			}
			if shape != tc.want {
				t.Errorf("shape = %q, want %q", shape, tc.want)
			}
		})
	}
}

func TestNormalize_WideUnpivotRoundTrip(t *testing.T) {
	n, _ := newTestNormalizer()
	dates := []string{"2013-01-01", "2013-01-02", "2013-01-03"}
	original := map[string]float64{"2013-01-01": 10.5, "2013-01-02": 0, "2013-01-03": 99.25}

	table := wideTable("sim", dates, []ingestion.RawRow{{
		"entity_id":      "4136733",
		"variable_label": "Electricity:Facility",
		"2013-01-01":     "10.5",
		"2013-01-02":     "0",
		"2013-01-03":     "99.25",
	}})

	out, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d series, want 1", len(out))
	}
	s := out[0]
	if s.EntityID != "4136733" || s.VariableID != "electricity_facility" {
		t.Fatalf("unexpected series identity: %s/%s", s.EntityID, s.VariableID)
	}
	if len(s.Points) != len(dates) {
		t.Fatalf("got %d points, want %d", len(s.Points), len(dates))
	}

	// Re-pivot: every original date-column cell must be reconstructed exactly.
	repivoted := make(map[string]float64)
	for _, p := range s.Points {
		repivoted[p.Timestamp.Format("2006-01-02")] = p.Value
	}
	for date, want := range original {
		got, ok := repivoted[date]
		if !ok {
			t.Errorf("date %s missing after unpivot", date)
			continue
		}
		if got != want {
			t.Errorf("date %s = %v, want %v", date, got, want)
		}
	}
}

func TestNormalize_LongPassthrough(t *testing.T) {
	n, _ := newTestNormalizer()
	table := &ingestion.RawTable{
		Name:    "measured",
		Headers: []string{"entity_id", "variable_label", "timestamp", "value"},
		Rows: []ingestion.RawRow{
			{"entity_id": "b1", "variable_label": "Electricity:Facility [J](Hourly)", "timestamp": "2020-03-01T00:00:00Z", "value": "12"},
			{"entity_id": "b1", "variable_label": "Electricity:Facility [J](Hourly)", "timestamp": "2020-03-01T01:00:00Z", "value": "14"},
		},
	}

	out, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d series, want 1", len(out))
	}
	s := out[0]
	if s.VariableID != "electricity_facility" {
		t.Errorf("variable = %q, want electricity_facility", s.VariableID)
	}
	if s.Frequency != series.FrequencyHourly {
		t.Errorf("frequency = %q, want hourly", s.Frequency)
	}
	if !s.Points[0].Timestamp.Equal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first timestamp = %v", s.Points[0].Timestamp)
	}
}

func TestNormalize_UnmappableLabelRecordedNotFatal(t *testing.T) {
	n, cache := newTestNormalizer()
	table := &ingestion.RawTable{
		Name:    "measured",
		Headers: []string{"entity_id", "variable_label", "timestamp", "value"},
		Rows: []ingestion.RawRow{
			{"entity_id": "b1", "variable_label": "Mystery Meter 7", "timestamp": "2020-03-01", "value": "1"},
		},
	}

	out, err := n.Normalize(table)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d series, want 0", len(out))
	}
	m, ok := cache.Get("Mystery Meter 7")
	if !ok {
		t.Fatal("unmapped label missing from cache")
	}
	if m.Resolved() {
		t.Errorf("label unexpectedly resolved to %q", m.VariableID)
	}
}

func TestNormalize_DuplicateTimestampFails(t *testing.T) {
	n, _ := newTestNormalizer()
	table := &ingestion.RawTable{
		Name:    "measured",
		Headers: []string{"entity_id", "variable_label", "timestamp", "value"},
		Rows: []ingestion.RawRow{
			{"entity_id": "b1", "variable_label": "Electricity:Facility", "timestamp": "2020-03-01", "value": "1"},
			{"entity_id": "b1", "variable_label": "Electricity:Facility", "timestamp": "2020-03-01", "value": "2"},
		},
	}

	_, err := n.Normalize(table)
	if !errors.Is(err, core.ErrDataFormat) {
		t.Fatalf("expected DataFormatError for duplicate timestamps, got %v", err)
	}
}

func TestNormalize_BadNumericCellFailsFast(t *testing.T) {
	n, _ := newTestNormalizer()
	table := wideTable("sim", []string{"2013-01", "2013-02"}, []ingestion.RawRow{{
		"entity_id":      "b1",
		"variable_label": "Electricity:Facility",
		"2013-01":        "100",
		"2013-02":        "not-a-number",
	}})

	_, err := n.Normalize(table)
	if !errors.Is(err, core.ErrValueCoercion) {
		t.Fatalf("expected coercion error, got %v", err)
	}
}
