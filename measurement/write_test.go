package measurement

import (
	"bytes"
	"testing"
)

func TestWriteAggregates(t *testing.T) {
	aggs := []Aggregate{
		{InChI: "InChI=1S/B", System: "RIKEN", RT: 4, NRep: 2, SpreadPct: 10},
		{InChI: "InChI=1S/B", System: "FEM_long", RT: 3.2, NRep: 1},
		{InChI: "InChI=1S/A,x", System: "FEM_long", RT: 1.0, NRep: 3, SpreadPct: 3},
	}

	var buf bytes.Buffer
	if err := WriteAggregates(&buf, aggs); err != nil {
		t.Fatal(err)
	}

	expected := "inchi,rt,system\n" +
		"\"InChI=1S/A,x\",1,FEM_long\n" +
		"InChI=1S/B,3.2,FEM_long\n" +
		"InChI=1S/B,4,RIKEN\n"
	if buf.String() != expected {
		t.Errorf("Expected\n%s\ngot\n%s", expected, buf.String())
	}

	// The caller's slice is left as is.
	if aggs[0].System != "RIKEN" {
		t.Errorf("WriteAggregates reordered its input")
	}

	buf.Reset()
	if err := WriteAggregatesDetailed(&buf, aggs[1:2]); err != nil {
		t.Fatal(err)
	}
	if expected := "inchi,rt,system,n_rep,spread_pct\nInChI=1S/B,3.2,FEM_long,1,0\n"; buf.String() != expected {
		t.Errorf("Expected\n%s\ngot\n%s", expected, buf.String())
	}
}

func TestWriteCounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCounts(&buf, []SystemCount{{System: "RIKEN", N: 2}, {System: "FEM_long", N: 10}}); err != nil {
		t.Fatal(err)
	}

	if expected := "system\tn\nFEM_long\t10\nRIKEN\t2\n"; buf.String() != expected {
		t.Errorf("Expected %q, got %q", expected, buf.String())
	}
}

func TestFormatFloat(t *testing.T) {
	cases := map[float64]string{
		1:       "1",
		1.03:    "1.03",
		0.1:     "0.1",
		12.3456: "12.3456",
	}

	for in, expected := range cases {
		if got := FormatFloat(in); got != expected {
			t.Errorf("FormatFloat(%v): expected %q, got %q", in, expected, got)
		}
	}
}
