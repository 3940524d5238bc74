// Package report summarizes loaded result tables and renders them as
// spreadsheets, charts and significance tests.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/rtorder/results"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the values of one group. SD is NaN for a single value.
type Summary struct {
	Group []string
	N     int
	Mean  float64
	SD    float64
}

// Label joins the group values for display.
func (s Summary) Label() string {
	return strings.Join(s.Group, " ")
}

// Summarize groups the rows of t by the groupBy columns and describes the
// numeric value column in each group. Missing values are skipped; groups with
// no values are left out. Groups are sorted by their values.
func Summarize(t results.Table, groupBy []string, value string) ([]Summary, error) {
	idx := make([]int, 0, len(groupBy))
	for _, name := range groupBy {
		i := t.Index(name)
		if i < 0 {
			return nil, fmt.Errorf("no column named %q", name)
		}
		idx = append(idx, i)
	}

	vals, err := t.Floats(value)
	if err != nil {
		return nil, err
	}

	type group struct {
		key  []string
		vals []float64
	}
	groups := map[string]*group{}
	for i, row := range t.Rows {
		if !vals[i].Valid {
			continue
		}

		key := make([]string, 0, len(idx))
		for _, c := range idx {
			key = append(key, row[c])
		}

		// The unit separator cannot occur in a table cell
		id := strings.Join(key, "\x1f")
		g, exists := groups[id]
		if !exists {
			g = &group{key: key}
			groups[id] = g
		}
		g.vals = append(g.vals, vals[i].Float64)
	}

	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		s := Summary{Group: g.key, N: len(g.vals), SD: math.NaN()}
		if s.N > 1 {
			s.Mean, s.SD = stat.MeanStdDev(g.vals, nil)
		} else {
			s.Mean = g.vals[0]
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Group, out[j].Group
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	return out, nil
}

// SummaryTable lays out summaries with one column per group key followed by
// n, mean and sd.
func SummaryTable(groupBy []string, summaries []Summary) results.Table {
	t := results.Table{Header: append(append([]string{}, groupBy...), "n", "mean", "sd")}
	for _, s := range summaries {
		row := append([]string{}, s.Group...)
		row = append(row, strconv.Itoa(s.N), formatFloat(s.Mean), formatFloat(s.SD))
		t.Rows = append(t.Rows, row)
	}

	return t
}

// WriteSummaries writes SummaryTable tab-delimited.
func WriteSummaries(w io.Writer, groupBy []string, summaries []Summary) error {
	return results.WriteTable(w, SummaryTable(groupBy, summaries), '\t')
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}

	return strconv.FormatFloat(v, 'g', 6, 64)
}
