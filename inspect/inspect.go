// Package inspect describes a raw retention-time dataset per chromatographic
// system. It is a diagnostic aid kept apart from the deterministic
// pre-processing transform.
package inspect

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/rtorder/measurement"
	"github.com/carbocation/runningvariance"
	"gopkg.in/guregu/null.v3"
)

// SystemStats summarizes the retention times recorded for one system.
type SystemStats struct {
	System    string     `json:"system"`
	N         int        `json:"n"`
	Molecules int        `json:"molecules"`
	Suspect   int        `json:"suspect"`
	Undated   int        `json:"undated"`
	Mean      float64    `json:"mean_rt"`
	SD        null.Float `json:"sd_rt"`
	Min       float64    `json:"min_rt"`
	Max       float64    `json:"max_rt"`
}

type accumulator struct {
	runningvariance.RunningStat
	stats     SystemStats
	molecules map[string]struct{}
}

// Summarize returns one entry per system, sorted by system name.
func Summarize(ms []measurement.Measurement) []SystemStats {
	bySystem := map[string]*accumulator{}

	for _, m := range ms {
		acc, exists := bySystem[m.System]
		if !exists {
			acc = &accumulator{
				RunningStat: *runningvariance.NewRunningStat(),
				stats:       SystemStats{System: m.System, Min: math.Inf(1), Max: math.Inf(-1)},
				molecules:   map[string]struct{}{},
			}
			bySystem[m.System] = acc
		}

		acc.Push(m.RecordedRT)
		acc.stats.N++
		acc.stats.Min = math.Min(acc.stats.Min, m.RecordedRT)
		acc.stats.Max = math.Max(acc.stats.Max, m.RecordedRT)
		acc.molecules[m.InChI] = struct{}{}
		if m.Suspect {
			acc.stats.Suspect++
		}
		if !m.DateAdded.IsValid() {
			acc.stats.Undated++
		}
	}

	out := make([]SystemStats, 0, len(bySystem))
	for _, acc := range bySystem {
		s := acc.stats
		s.Molecules = len(acc.molecules)
		s.Mean = acc.Mean()
		if s.N > 1 {
			s.SD = null.FloatFrom(acc.StandardDeviation())
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].System < out[j].System })

	return out
}

// Fprint writes the summaries as an aligned text table.
func Fprint(w io.Writer, stats []SystemStats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "system\tn\tmolecules\tsuspect\tundated\tmean_rt\tsd_rt\tmin_rt\tmax_rt")
	for _, s := range stats {
		sd := "NA"
		if s.SD.Valid {
			sd = fmt.Sprintf("%.3f", s.SD.Float64)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.3f\t%s\t%.3f\t%.3f\n",
			s.System, s.N, s.Molecules, s.Suspect, s.Undated, s.Mean, sd, s.Min, s.Max)
	}

	return tw.Flush()
}

// RetentionTimes returns the retention times recorded for system.
func RetentionTimes(ms []measurement.Measurement, system string) []float64 {
	out := []float64{}
	for _, m := range ms {
		if m.System == system {
			out = append(out, m.RecordedRT)
		}
	}

	return out
}

// FprintHistogram draws a text histogram of the retention times of system.
// Low-threshold candidates show up as a cluster of early eluting molecules.
func FprintHistogram(w io.Writer, ms []measurement.Measurement, system string, bins int) error {
	rts := RetentionTimes(ms, system)
	if len(rts) == 0 {
		return fmt.Errorf("no measurements for system %q", system)
	}

	if _, err := fmt.Fprintf(w, "%s (%d measurements)\n", system, len(rts)); err != nil {
		return err
	}

	hist := histogram.Hist(bins, rts)

	return histogram.Fprint(w, hist, histogram.Linear(40))
}
