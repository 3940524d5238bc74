// Package combine gathers the result files of one parameterization of the
// evaluation into a single table per result category.
package combine

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"

	"github.com/carbocation/pfx"
	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/manifest"
	"github.com/carbocation/rtorder/results"
	"github.com/montanaflynn/stats"
)

// SourceColumn holds the manifest path of the file each row came from.
const SourceColumn = "source"

// Flavor turns the build flag settings into a manifest constraint. Empty
// values are left out, except FEATSCAL, which falls back to noscaling.
// Unknown flags are an error.
func Flavor(flags map[string]string) (manifest.Params, error) {
	known := make(map[string]struct{}, len(manifest.BuildFlags))
	for _, f := range manifest.BuildFlags {
		known[f] = struct{}{}
	}

	out := manifest.Params{}
	for k, v := range flags {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("unknown build flag %q", k)
		}
		if v != "" {
			out[k] = v
		}
	}

	return out.WithDefaults(), nil
}

// Combined is the concatenation of the files of one category.
type Combined struct {
	Table results.Table

	// KeyColumns are the source and flavor columns that lead every row.
	KeyColumns []string
	Files      int
}

// Category concatenates every file of the category whose flavor contains
// flavor. Each row is prefixed by its source path and the flavor of its file;
// the file columns are aligned by name.
func Category(ctx context.Context, l results.Loader, category string, flavor manifest.Params) (Combined, error) {
	recs, err := l.Manifest.Find(manifest.Query{Category: category, Flavor: flavor})
	if err != nil {
		return Combined{}, err
	}

	for i := range recs {
		recs[i].Flavor = recs[i].Flavor.WithDefaults()
	}
	prefixCols := append([]string{SourceColumn}, manifest.FlavorKeys(recs)...)

	out := results.Table{Header: append([]string{}, prefixCols...)}
	for _, rec := range recs {
		t, err := l.ReadRecord(ctx, rec)
		if err != nil {
			return Combined{}, err
		}

		values := []string{rec.Path}
		for _, k := range prefixCols[1:] {
			values = append(values, rec.Flavor[k])
		}

		out.Append(results.Prefix(t, prefixCols, values))
	}

	return Combined{Table: out, KeyColumns: prefixCols, Files: len(recs)}, nil
}

// ColumnSummary describes one numeric column. SD is NaN with fewer than two
// values.
type ColumnSummary struct {
	Column string
	N      int
	Mean   float64
	SD     float64
}

// Summarize describes every numeric column of t that is not named in skip.
func Summarize(t results.Table, skip ...string) ([]ColumnSummary, error) {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}

	out := []ColumnSummary{}
	for _, name := range t.Header {
		if _, ok := skipped[name]; ok || !t.IsNumeric(name) {
			continue
		}

		vals, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		data := stats.Float64Data(results.Valid(vals))

		s := ColumnSummary{Column: name, N: data.Len(), SD: math.NaN()}
		if s.Mean, err = data.Mean(); err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %w", name, err))
		}
		if s.N > 1 {
			if s.SD, err = stats.StandardDeviationSample(data); err != nil {
				return nil, pfx.Err(fmt.Errorf("%s: %w", name, err))
			}
		}

		out = append(out, s)
	}

	return out, nil
}

// WriteSummary writes the summaries as a tab-delimited table. Undefined
// values are written as NA.
func WriteSummary(w io.Writer, summaries []ColumnSummary) error {
	t := results.Table{Header: []string{"column", "n", "mean", "sd"}}
	for _, s := range summaries {
		t.Rows = append(t.Rows, []string{s.Column, strconv.Itoa(s.N), formatStat(s.Mean), formatStat(s.SD)})
	}

	return results.WriteTable(w, t, '\t')
}

func formatStat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}

	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Run combines each category and writes <outDir>/<category>.csv and
// <outDir>/<category>_summary.tsv. Categories without files are logged and
// skipped. It returns the categories that were written.
func Run(ctx context.Context, l results.Loader, categories []string, flavor manifest.Params, outDir string) ([]string, error) {
	written := []string{}

	for _, category := range categories {
		if !manifest.ValidCategory(category) {
			return written, fmt.Errorf("%w: %q", manifest.ErrUnknownCategory, category)
		}

		c, err := Category(ctx, l, category, flavor)
		if err != nil {
			return written, err
		}
		if c.Files == 0 {
			log.Printf("No %s files match %s; skipping\n", category, flavor)
			continue
		}
		log.Printf("Combined %d %s files into %d rows\n", c.Files, category, len(c.Table.Rows))

		if err := rtorder.WriteOutput(ctx, rtorder.JoinPath(outDir, category+".csv"), l.Storage, func(w io.Writer) error {
			return results.WriteTable(w, c.Table, ',')
		}); err != nil {
			return written, err
		}

		summaries, err := Summarize(c.Table, c.KeyColumns...)
		if err != nil {
			return written, err
		}
		if err := rtorder.WriteOutput(ctx, rtorder.JoinPath(outDir, category+"_summary.tsv"), l.Storage, func(w io.Writer) error {
			return WriteSummary(w, summaries)
		}); err != nil {
			return written, err
		}

		written = append(written, category)
	}

	return written, nil
}
