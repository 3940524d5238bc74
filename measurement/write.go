package measurement

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// FormatFloat renders retention times with the shortest representation that
// round-trips, so identical inputs always produce identical bytes.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SortAggregates orders aggregates by system, then molecule.
func SortAggregates(aggs []Aggregate) {
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].System != aggs[j].System {
			return aggs[i].System < aggs[j].System
		}
		return aggs[i].InChI < aggs[j].InChI
	})
}

// WriteAggregates writes the comma-delimited inchi,rt,system table consumed by
// the model training code. Rows are emitted in SortAggregates order; the input
// slice is not modified.
func WriteAggregates(w io.Writer, aggs []Aggregate) error {
	sorted := make([]Aggregate, len(aggs))
	copy(sorted, aggs)
	SortAggregates(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"inchi", "rt", "system"}); err != nil {
		return err
	}

	for _, v := range sorted {
		if err := cw.Write([]string{v.InChI, FormatFloat(v.RT), v.System}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteAggregatesDetailed additionally emits the replicate count and spread.
func WriteAggregatesDetailed(w io.Writer, aggs []Aggregate) error {
	sorted := make([]Aggregate, len(aggs))
	copy(sorted, aggs)
	SortAggregates(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"inchi", "rt", "system", "n_rep", "spread_pct"}); err != nil {
		return err
	}

	for _, v := range sorted {
		if err := cw.Write([]string{v.InChI, FormatFloat(v.RT), v.System, strconv.Itoa(v.NRep), FormatFloat(v.SpreadPct)}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCounts writes the tab-delimited per-system molecule counts, sorted by
// system.
func WriteCounts(w io.Writer, counts []SystemCount) error {
	sorted := make([]SystemCount, len(counts))
	copy(sorted, counts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].System < sorted[j].System })

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"system", "n"}); err != nil {
		return err
	}

	for _, v := range sorted {
		if err := cw.Write([]string{v.System, strconv.Itoa(v.N)}); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
