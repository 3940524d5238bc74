package report

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/carbocation/rtorder/results"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrTooFewObservations = errors.New("not enough observations")
	ErrConstantData       = errors.New("data are essentially constant")
)

// TTestResult holds a two-sided t-test. Estimate is the mean, or the
// difference of means, that was tested against the null value.
type TTestResult struct {
	Estimate float64
	T        float64
	DF       float64
	P        float64
}

// OneSample tests H0: mean(x) = mu0.
func OneSample(x []float64, mu0 float64) (TTestResult, error) {
	if len(x) < 2 {
		return TTestResult{}, ErrTooFewObservations
	}

	mean, variance := stat.MeanVariance(x, nil)
	se := math.Sqrt(variance / float64(len(x)))
	if se == 0 {
		return TTestResult{}, ErrConstantData
	}

	t := (mean - mu0) / se

	return twoSided(mean, t, float64(len(x)-1)), nil
}

// TTest is the Welch two-sample test of H0: mean(x) - mean(y) = mu0.
func TTest(x, y []float64, mu0 float64) (TTestResult, error) {
	if len(x) < 2 || len(y) < 2 {
		return TTestResult{}, ErrTooFewObservations
	}

	mx, varX := stat.MeanVariance(x, nil)
	my, varY := stat.MeanVariance(y, nil)
	nx, ny := float64(len(x)), float64(len(y))

	seX := varX / nx
	seY := varY / ny
	se := math.Sqrt(seX + seY)
	if se == 0 {
		return TTestResult{}, ErrConstantData
	}

	df := (seX + seY) * (seX + seY) / (seX*seX/(nx-1) + seY*seY/(ny-1))
	t := (mx - my - mu0) / se

	return twoSided(mx-my, t, df), nil
}

func twoSided(estimate, t, df float64) TTestResult {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}

	return TTestResult{
		Estimate: estimate,
		T:        t,
		DF:       df,
		P:        2 * dist.CDF(-math.Abs(t)),
	}
}

// Comparison is the test of one group of rows, e.g. one target system,
// comparing the rows where the By column is A with those where it is B.
type Comparison struct {
	Group []string
	NA    int
	NB    int
	TTestResult
	Err error
}

// Compare runs TTest(values where by == a, values where by == b, mu0) for each
// group of rows. A group whose test cannot be computed keeps the reason in
// Err. Groups are sorted by their values.
func Compare(t results.Table, groupBy []string, by, a, b, value string, mu0 float64) ([]Comparison, error) {
	byCol, err := t.Column(by)
	if err != nil {
		return nil, err
	}

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

	type samples struct {
		key  []string
		x, y []float64
	}
	groups := map[string]*samples{}
	order := []string{}
	for i, row := range t.Rows {
		if !vals[i].Valid || (byCol[i] != a && byCol[i] != b) {
			continue
		}

		key := make([]string, 0, len(idx))
		for _, c := range idx {
			key = append(key, row[c])
		}
		id := strings.Join(key, "\x1f")
		g, exists := groups[id]
		if !exists {
			g = &samples{key: key}
			groups[id] = g
			order = append(order, id)
		}

		if byCol[i] == a {
			g.x = append(g.x, vals[i].Float64)
		} else {
			g.y = append(g.y, vals[i].Float64)
		}
	}
	sort.Strings(order)

	out := make([]Comparison, 0, len(groups))
	for _, id := range order {
		g := groups[id]
		c := Comparison{Group: g.key, NA: len(g.x), NB: len(g.y)}
		c.TTestResult, c.Err = TTest(g.x, g.y, mu0)
		out = append(out, c)
	}

	return out, nil
}

// ComparisonTable lays out comparisons with one column per group key. Tests
// that could not be computed have NA statistics.
func ComparisonTable(groupBy []string, comparisons []Comparison) results.Table {
	t := results.Table{Header: append(append([]string{}, groupBy...), "n_a", "n_b", "estimate", "t", "df", "p")}
	for _, c := range comparisons {
		row := append([]string{}, c.Group...)
		row = append(row, fmt.Sprint(c.NA), fmt.Sprint(c.NB))
		if c.Err != nil {
			row = append(row, "NA", "NA", "NA", "NA")
		} else {
			row = append(row, formatFloat(c.Estimate), formatFloat(c.T), formatFloat(c.DF), formatFloat(c.P))
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}
