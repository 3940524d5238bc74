package preprocess

import (
	"math"
	"sort"

	"github.com/carbocation/rtorder/measurement"
	"github.com/montanaflynn/stats"
)

// Tally counts what each stage removed.
type Tally struct {
	Input          int
	WrongSystem    int
	Undated        int
	AfterCutoff    int
	Suspect        int
	BelowThreshold int

	Groups             int
	InconsistentGroups int
	Output             int
}

type Result struct {
	Aggregates []measurement.Aggregate
	Counts     []measurement.SystemCount
	Tally      Tally
}

// Run validates cfg and applies the full transform: Filter, Aggregate,
// DropInconsistent and CountBySystem. The returned aggregates are sorted by
// system and molecule.
func Run(cfg Config, ms []measurement.Measurement) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	kept, tally := Filter(cfg, ms)

	aggs := Aggregate(kept)
	tally.Groups = len(aggs)

	aggs, dropped := DropInconsistent(aggs, cfg.MaxSpreadPct)
	tally.InconsistentGroups = dropped
	tally.Output = len(aggs)

	return Result{
		Aggregates: aggs,
		Counts:     CountBySystem(aggs),
		Tally:      tally,
	}, nil
}

// Filter keeps allow-listed, dated, pre-cutoff (inclusive), non-suspect rows
// whose retention time is not below their system's threshold. Each removed
// row is counted under the first check it fails, in that order.
func Filter(cfg Config, ms []measurement.Measurement) ([]measurement.Measurement, Tally) {
	allowed := cfg.allowed()
	tally := Tally{Input: len(ms)}

	out := make([]measurement.Measurement, 0, len(ms))
	for _, m := range ms {
		if _, ok := allowed[m.System]; !ok {
			tally.WrongSystem++
			continue
		}

		if !m.DateAdded.IsValid() {
			tally.Undated++
			continue
		}

		if m.DateAdded.After(cfg.Cutoff) {
			tally.AfterCutoff++
			continue
		}

		if m.Suspect {
			tally.Suspect++
			continue
		}

		if m.RecordedRT < cfg.Threshold(m.System) {
			tally.BelowThreshold++
			continue
		}

		out = append(out, m)
	}

	return out, tally
}

// Aggregate reduces each (molecule, system) group to its minimum retention
// time, replicate count, and max-min spread as a percentage of the minimum.
func Aggregate(ms []measurement.Measurement) []measurement.Aggregate {
	groups := make(map[measurement.Key][]float64)
	for _, m := range ms {
		groups[m.Key()] = append(groups[m.Key()], m.RecordedRT)
	}

	out := make([]measurement.Aggregate, 0, len(groups))
	for key, rts := range groups {
		// The groups are never empty, so stats cannot fail here.
		lo, _ := stats.Min(rts)
		hi, _ := stats.Max(rts)

		out = append(out, measurement.Aggregate{
			InChI:     key.InChI,
			System:    key.System,
			RT:        lo,
			NRep:      len(rts),
			SpreadPct: SpreadPct(lo, hi),
		})
	}

	measurement.SortAggregates(out)

	return out
}

// SpreadPct is (max-min)/min*100. Identical values have no spread, even at
// zero; any spread above a zero minimum is infinite.
func SpreadPct(lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	if lo == 0 {
		return math.Inf(1)
	}

	return (hi - lo) / lo * 100
}

// DropInconsistent removes groups with more than one replicate whose spread
// exceeds maxSpreadPct. It returns the kept groups and the number removed.
func DropInconsistent(aggs []measurement.Aggregate, maxSpreadPct float64) ([]measurement.Aggregate, int) {
	out := make([]measurement.Aggregate, 0, len(aggs))
	for _, v := range aggs {
		if v.NRep > 1 && v.SpreadPct > maxSpreadPct {
			continue
		}
		out = append(out, v)
	}

	return out, len(aggs) - len(out)
}

// CountBySystem counts retained molecules per system, sorted by system.
func CountBySystem(aggs []measurement.Aggregate) []measurement.SystemCount {
	counts := make(map[string]int)
	order := []string{}
	for _, v := range aggs {
		if _, exists := counts[v.System]; !exists {
			order = append(order, v.System)
		}
		counts[v.System]++
	}

	out := make([]measurement.SystemCount, 0, len(order))
	for _, system := range order {
		out = append(out, measurement.SystemCount{System: system, N: counts[system]})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].System < out[j].System })

	return out
}
