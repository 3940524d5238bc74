package rerank

import (
	"context"
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rtorder"
	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"
)

// Layout of a candidate directory:
//
//	<dir>/rts_msms.csv             inchikey,inchi,rt of every spectrum
//	<dir>/scorings/<inchikey>.csv  id1,score,wtx of the spectrum's candidates
const (
	SpectraFile = "rts_msms.csv"
	ScoringsDir = "scorings"
)

type spectrumRow struct {
	InChIKey string  `csv:"inchikey"`
	InChI    string  `csv:"inchi"`
	RT       float64 `csv:"rt"`
}

type scoringRow struct {
	ID         string  `csv:"id1"`
	Score      float64 `csv:"score"`
	OrderScore float64 `csv:"wtx"`
}

// LoadLayers reads the spectra of dir, sorted by retention time, together
// with their prepared candidate lists. Up to jobs candidate files are read at
// once.
func LoadLayers(ctx context.Context, dir string, client *storage.Client, jobs int) ([]Layer, error) {
	spectra := []*spectrumRow{}
	if err := readCSV(ctx, rtorder.JoinPath(dir, SpectraFile), client, &spectra); err != nil {
		return nil, err
	}
	if len(spectra) == 0 {
		return nil, fmt.Errorf("%w: %s lists no spectra", ErrInvalidInput, SpectraFile)
	}

	layers := make([]Layer, len(spectra))
	seen := make(map[string]struct{}, len(spectra))
	for i, s := range spectra {
		if _, exists := seen[s.InChIKey]; exists {
			return nil, fmt.Errorf("%w: spectrum %s is listed twice", ErrInvalidInput, s.InChIKey)
		}
		seen[s.InChIKey] = struct{}{}
		layers[i] = Layer{SpecID: s.InChIKey, RT: s.RT, CorrectID: s.InChI}
	}

	if jobs < 1 {
		jobs = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i := range layers {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rows := []*scoringRow{}
			path := rtorder.JoinPath(dir, ScoringsDir, layers[i].SpecID+".csv")
			if err := readCSV(ctx, path, client, &rows); err != nil {
				return err
			}

			cands := make([]Candidate, 0, len(rows))
			for _, r := range rows {
				cands = append(cands, Candidate{ID: r.ID, Score: r.Score, OrderScore: r.OrderScore})
			}
			layers[i].Candidates = cands

			return layers[i].Prepare()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	SortLayers(layers)
	log.Printf("Loaded %d spectra from %s\n", len(layers), dir)

	return layers, nil
}

func readCSV(ctx context.Context, path string, client *storage.Client, out interface{}) error {
	rc, err := rtorder.OpenInput(ctx, path, client)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := gocsv.Unmarshal(rc, out); err != nil {
		return pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return nil
}

type accuracyRow struct {
	K        int     `csv:"k"`
	D        float64 `csv:"D"`
	Accuracy float64 `csv:"topk_acc"`
}

// WriteAccuracies writes the top-k accuracies of each outcome, keyed by the D
// it was computed with, as CSV.
func WriteAccuracies(w io.Writer, ds []float64, outcomes []Outcome) error {
	if len(ds) != len(outcomes) {
		return fmt.Errorf("%d values of D but %d outcomes", len(ds), len(outcomes))
	}

	rows := []*accuracyRow{}
	for n, o := range outcomes {
		for k, acc := range o.TopKAccuracy {
			rows = append(rows, &accuracyRow{K: k + 1, D: ds[n], Accuracy: acc})
		}
	}

	return gocsv.Marshal(rows, w)
}

type assignmentRow struct {
	SpecID      string  `csv:"spec_id"`
	RT          float64 `csv:"rt"`
	Candidate   string  `csv:"candidate"`
	Score       float64 `csv:"score"`
	MSMSRank    int     `csv:"msms_rank"`
	CorrectRank int     `csv:"correct_rank"`
	IsTrue      bool    `csv:"is_true"`
}

// WriteAssignment writes the candidate chosen for each spectrum by the first
// path of o.
func WriteAssignment(w io.Writer, layers []Layer, o Outcome) error {
	if len(o.Paths) == 0 {
		return fmt.Errorf("no path to write")
	}

	rows := []*assignmentRow{}
	for t, cand := range o.Paths[0].Nodes {
		l := layers[o.Layers[0][t]]
		c := l.Candidates[cand]
		rows = append(rows, &assignmentRow{
			SpecID:      l.SpecID,
			RT:          l.RT,
			Candidate:   c.ID,
			Score:       c.Score,
			MSMSRank:    c.Rank,
			CorrectRank: l.CorrectRank,
			IsTrue:      c.IsTrue,
		})
	}

	return gocsv.Marshal(rows, w)
}
