package results

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rtorder"
	"github.com/carbocation/rtorder/manifest"
	"gopkg.in/guregu/null.v3"
)

// Finder is satisfied by *manifest.Manifest.
type Finder interface {
	Find(q manifest.Query) ([]manifest.Record, error)
}

// Request selects result files and the measures to extract from them.
// Measures names columns of the result files; when empty, every numeric
// column is a measure. A nil PairParams, an invalid FeatureType and an empty
// Flavor do not constrain the selection.
type Request struct {
	Category    string
	Measures    []string
	Predictor   string
	Kernel      string
	PairParams  manifest.Params
	FeatureType null.String
	Flavor      manifest.Params
}

// Loader resolves manifest records against BaseDir. Storage is only needed
// when BaseDir or a record path is a gs:// path.
type Loader struct {
	Manifest Finder
	BaseDir  string
	Storage  *storage.Client
}

// Load returns one long table with the columns
//
//	source, <flavor keys...>, <non-measure columns...>, measure, value
//
// holding one row per (file row, measure). Files are visited in path order.
func (l Loader) Load(ctx context.Context, req Request) (Table, error) {
	if !manifest.ValidCategory(req.Category) {
		return Table{}, fmt.Errorf("%w: %q", manifest.ErrUnknownCategory, req.Category)
	}

	recs, err := l.Manifest.Find(manifest.Query{
		Category:    req.Category,
		Predictor:   req.Predictor,
		Kernel:      req.Kernel,
		FeatureType: req.FeatureType,
		PairParams:  req.PairParams,
		Flavor:      req.Flavor,
	})
	if err != nil {
		return Table{}, err
	}

	for i := range recs {
		recs[i].Flavor = recs[i].Flavor.WithDefaults()
	}

	flavorKeys := manifest.FlavorKeys(recs)
	out := Table{Header: append(append([]string{"source"}, flavorKeys...), "measure", "value")}

	for _, rec := range recs {
		t, err := l.ReadRecord(ctx, rec)
		if err != nil {
			return Table{}, err
		}

		long, err := Melt(t, req.Measures)
		if err != nil {
			return Table{}, pfx.Err(fmt.Errorf("%s: %w", rec.Path, err))
		}

		prefix := []string{rec.Path}
		for _, k := range flavorKeys {
			prefix = append(prefix, rec.Flavor[k])
		}
		long = Prefix(long, append([]string{"source"}, flavorKeys...), prefix)

		out.Append(long)
	}

	// Keep measure and value as the last two columns
	return moveToEnd(out, "measure", "value"), nil
}

// ReadRecord reads the file behind rec.
func (l Loader) ReadRecord(ctx context.Context, rec manifest.Record) (Table, error) {
	path := rec.Path
	if !filepath.IsAbs(path) && !rtorder.IsGoogleStorage(path) && l.BaseDir != "" {
		path = rtorder.JoinPath(l.BaseDir, path)
	}

	rc, err := rtorder.OpenInput(ctx, path, l.Storage)
	if err != nil {
		return Table{}, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return Table{}, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	log.Printf("Loaded %d rows from %s\n", len(t.Rows), path)

	return t, nil
}

// Melt turns the measure columns of t into measure/value rows, keeping every
// other column as an identifier.
func Melt(t Table, measures []string) (Table, error) {
	if len(measures) == 0 {
		for _, name := range t.Header {
			if t.IsNumeric(name) {
				measures = append(measures, name)
			}
		}
	}

	isMeasure := make(map[string]struct{}, len(measures))
	measureIdx := make([]int, 0, len(measures))
	for _, m := range measures {
		idx := t.Index(m)
		if idx < 0 {
			return Table{}, fmt.Errorf("no column named %q", m)
		}
		isMeasure[m] = struct{}{}
		measureIdx = append(measureIdx, idx)
	}

	idCols := []int{}
	header := []string{}
	for i, name := range t.Header {
		if _, ok := isMeasure[name]; ok {
			continue
		}
		idCols = append(idCols, i)
		header = append(header, name)
	}

	out := Table{Header: append(UniqueNames(header, "measure", "value"), "measure", "value")}
	for _, row := range t.Rows {
		for k, idx := range measureIdx {
			newRow := make([]string, 0, len(out.Header))
			for _, c := range idCols {
				newRow = append(newRow, row[c])
			}
			newRow = append(newRow, measures[k], row[idx])
			out.Rows = append(out.Rows, newRow)
		}
	}

	return out, nil
}

// Prefix returns t with constant columns inserted before its own. Columns of
// t that share a name with an inserted column are renamed by UniqueNames.
func Prefix(t Table, names, values []string) Table {
	out := Table{
		Header: append(append([]string{}, names...), UniqueNames(t.Header, names...)...),
		Rows:   make([][]string, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, append(append([]string{}, values...), row...))
	}

	return out
}

func moveToEnd(t Table, names ...string) Table {
	order := []int{}
	last := []int{}
	for i, name := range t.Header {
		isLast := false
		for _, n := range names {
			if n == name {
				isLast = true
			}
		}
		if isLast {
			last = append(last, i)
		} else {
			order = append(order, i)
		}
	}
	order = append(order, last...)

	out := Table{Header: make([]string, 0, len(order)), Rows: make([][]string, 0, len(t.Rows))}
	for _, i := range order {
		out.Header = append(out.Header, t.Header[i])
	}
	for _, row := range t.Rows {
		newRow := make([]string, 0, len(order))
		for _, i := range order {
			newRow = append(newRow, row[i])
		}
		out.Rows = append(out.Rows, newRow)
	}

	return out
}
