// Package influx loads measured meter series from InfluxDB into the raw
// long-format table shape.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"emcal/domain/ingestion"
	apperrors "emcal/internal/errors"
)

// Reader queries one bucket for measured observations. Each returned
// record becomes one long-format row with the field name as the raw
// variable label, so the semantic mapper sees the labels exactly as the
// metering system wrote them.
type Reader struct {
	client influxdb2.Client
	query  api.QueryAPI
	bucket string
	window Window
}

// Window bounds the query time range.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// NewReader connects a reader to a bucket.
func NewReader(url, token, org, bucket string, window Window) *Reader {
	client := influxdb2.NewClient(url, token)
	return &Reader{
		client: client,
		query:  client.QueryAPI(org),
		bucket: bucket,
		window: window,
	}
}

// Name identifies the source.
func (r *Reader) Name() string { return "influx:" + r.bucket }

// Tables runs the flux query and shapes the records into one long table.
func (r *Reader) Tables(ctx context.Context) ([]*ingestion.RawTable, error) {
	flux := fmt.Sprintf(`from(bucket: %q)
  |> range(start: %s, stop: %s)
  |> filter(fn: (r) => exists r.entity_id)`,
		r.bucket,
		r.window.Start.UTC().Format(time.RFC3339),
		r.window.Stop.UTC().Format(time.RFC3339))

	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeSource, err)
	}

	table := &ingestion.RawTable{
		Name:    r.Name(),
		Headers: []string{"entity_id", "variable_label", "timestamp", "value"},
	}
	for result.Next() {
		record := result.Record()
		entity, _ := record.ValueByKey("entity_id").(string)
		value, ok := record.Value().(float64)
		if entity == "" || !ok {
			continue
		}
		table.Rows = append(table.Rows, ingestion.RawRow{
			"entity_id":      entity,
			"variable_label": record.Field(),
			"timestamp":      record.Time().UTC().Format(time.RFC3339),
			"value":          fmt.Sprintf("%g", value),
		})
	}
	if result.Err() != nil {
		return nil, apperrors.WithCode(apperrors.CodeSource, result.Err())
	}
	return []*ingestion.RawTable{table}, nil
}

// Close releases the underlying HTTP client.
func (r *Reader) Close() {
	r.client.Close()
}
