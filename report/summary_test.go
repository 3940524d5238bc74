package report

import (
	"bytes"
	"math"
	"testing"

	"github.com/carbocation/rtorder/results"
	"github.com/stretchr/testify/require"
)

var longTable = results.Table{
	Header: []string{"source", "system", "measure", "value"},
	Rows: [][]string{
		{"a.csv", "RIKEN", "acc", "1"},
		{"a.csv", "RIKEN", "acc", "2"},
		{"a.csv", "RIKEN", "acc", "4"},
		{"a.csv", "FEM", "acc", "0.5"},
		{"a.csv", "FEM", "acc", "NA"},
		{"a.csv", "FEM", "tau", "NA"},
	},
}

func TestSummarize(t *testing.T) {
	got, err := Summarize(longTable, []string{"system", "measure"}, "value")
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, []string{"FEM", "acc"}, got[0].Group)
	require.Equal(t, 1, got[0].N)
	require.Equal(t, 0.5, got[0].Mean)
	require.True(t, math.IsNaN(got[0].SD))

	require.Equal(t, "RIKEN acc", got[1].Label())
	require.Equal(t, 3, got[1].N)
	require.InDelta(t, 7.0/3, got[1].Mean, 1e-12)
	require.InDelta(t, math.Sqrt(7.0/3), got[1].SD, 1e-12)

	_, err = Summarize(longTable, []string{"target"}, "value")
	require.Error(t, err)
	_, err = Summarize(longTable, []string{"system"}, "source")
	require.Error(t, err)
}

func TestWriteSummaries(t *testing.T) {
	summaries := []Summary{
		{Group: []string{"FEM"}, N: 1, Mean: 0.5, SD: math.NaN()},
		{Group: []string{"RIKEN"}, N: 2, Mean: 1.5, SD: 0.25},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummaries(&buf, []string{"system"}, summaries))
	require.Equal(t, "system\tn\tmean\tsd\nFEM\t1\t0.5\tNA\nRIKEN\t2\t1.5\t0.25\n", buf.String())
}
