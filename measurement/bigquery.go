package measurement

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/pfx"
)

// WrappedBigQuery carries the client and destination of an export.
type WrappedBigQuery struct {
	Context  context.Context
	Client   *bigquery.Client
	Project  string
	Database string
}

// AggregateSchema describes the table written by ExportBigQuery.
var AggregateSchema = bigquery.Schema{
	{Name: "inchi", Type: bigquery.StringFieldType, Required: true},
	{Name: "rt", Type: bigquery.FloatFieldType, Required: true},
	{Name: "system", Type: bigquery.StringFieldType, Required: true},
	{Name: "n_rep", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "spread_pct", Type: bigquery.FloatFieldType, Required: true},
}

// ExportBigQuery replaces BQ.Database.table with the aggregates.
func ExportBigQuery(BQ *WrappedBigQuery, table string, aggs []Aggregate) error {
	if BQ.Client == nil {
		var err error
		BQ.Client, err = bigquery.NewClient(BQ.Context, BQ.Project)
		if err != nil {
			return fmt.Errorf("connecting to BigQuery: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := WriteAggregatesDetailed(&buf, aggs); err != nil {
		return pfx.Err(err)
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.CSV
	src.SkipLeadingRows = 1
	src.Schema = AggregateSchema

	loader := BQ.Client.Dataset(BQ.Database).Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(BQ.Context)
	if err != nil {
		return pfx.Err(err)
	}

	status, err := job.Wait(BQ.Context)
	if err != nil {
		return pfx.Err(err)
	}

	if err := status.Err(); err != nil {
		return pfx.Err(fmt.Errorf("%s.%s.%s: %w", BQ.Project, BQ.Database, table, err))
	}

	return nil
}
