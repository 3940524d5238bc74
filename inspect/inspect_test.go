package inspect

import (
	"bytes"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/carbocation/rtorder/measurement"
	"github.com/stretchr/testify/require"
)

var dated = civil.Date{Year: 2015, Month: 3, Day: 2}

func testMeasurements() []measurement.Measurement {
	return []measurement.Measurement{
		{InChI: "A", System: "RIKEN", RecordedRT: 1, DateAdded: dated, Line: 2},
		{InChI: "A", System: "RIKEN", RecordedRT: 3, DateAdded: dated, Line: 3},
		{InChI: "B", System: "RIKEN", RecordedRT: 5, Suspect: true, Line: 4},
		{InChI: "C", System: "FEM_long", RecordedRT: 2.5, DateAdded: dated, Line: 5},
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize(testMeasurements())
	require.Len(t, got, 2)

	fem := got[0]
	require.Equal(t, "FEM_long", fem.System)
	require.Equal(t, 1, fem.N)
	require.False(t, fem.SD.Valid)
	require.Equal(t, 2.5, fem.Min)
	require.Equal(t, 2.5, fem.Max)

	riken := got[1]
	require.Equal(t, "RIKEN", riken.System)
	require.Equal(t, 3, riken.N)
	require.Equal(t, 2, riken.Molecules)
	require.Equal(t, 1, riken.Suspect)
	require.Equal(t, 1, riken.Undated)
	require.InDelta(t, 3, riken.Mean, 1e-12)
	require.True(t, riken.SD.Valid)
	require.Greater(t, riken.SD.Float64, 1.5)
	require.LessOrEqual(t, riken.SD.Float64, 2.0+1e-12)
	require.Equal(t, 1.0, riken.Min)
	require.Equal(t, 5.0, riken.Max)
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, Summarize(testMeasurements())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "system"))
	require.Contains(t, lines[1], "NA")
	require.True(t, strings.HasPrefix(lines[2], "RIKEN"))
}

func TestFprintHistogram(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FprintHistogram(&buf, testMeasurements(), "RIKEN", 4))
	require.True(t, strings.HasPrefix(buf.String(), "RIKEN (3 measurements)\n"))

	require.Error(t, FprintHistogram(&buf, testMeasurements(), "HILIC_X", 4))
}

func TestRetentionTimes(t *testing.T) {
	require.Equal(t, []float64{1, 3, 5}, RetentionTimes(testMeasurements(), "RIKEN"))
	require.Empty(t, RetentionTimes(testMeasurements(), "HILIC_X"))
}
