package measurement

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
)

const rawHeader = `"id";"system";"inchi";"recorded_rt";"suspect";"date.added";"username"` + "\n"

func TestReadRaw(t *testing.T) {
	src := rawHeader +
		`"1";"FEM_long";"InChI=1S/CH4/h1H4";"1.25";"FALSE";"2015-03-02 10:12:44";"a"` + "\n" +
		`"2";"RIKEN";"InChI=1S/H2O/h1H2";"4";"TRUE";"2014-01-20";"b"` + "\n" +
		`"3";"RIKEN";"InChI=1S/H2O/h1H2";"4.5";"";"";"b"` + "\n"

	got, err := ReadRaw(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}

	expected := []Measurement{
		{InChI: "InChI=1S/CH4/h1H4", System: "FEM_long", RecordedRT: 1.25, DateAdded: civil.Date{Year: 2015, Month: 3, Day: 2}, Line: 2},
		{InChI: "InChI=1S/H2O/h1H2", System: "RIKEN", RecordedRT: 4, Suspect: true, DateAdded: civil.Date{Year: 2014, Month: 1, Day: 20}, Line: 3},
		{InChI: "InChI=1S/H2O/h1H2", System: "RIKEN", RecordedRT: 4.5, Line: 4},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("Measurements mismatch (-want +got):\n%s", diff)
	}

	if got[2].DateAdded.IsValid() {
		t.Errorf("Expected an empty date to be invalid")
	}
}

func TestReadRawMissingColumns(t *testing.T) {
	src := `"id";"system";"inchi";"suspect"` + "\n" + `"1";"FEM_long";"InChI=1S/CH4/h1H4";"FALSE"` + "\n"

	_, err := ReadRaw(strings.NewReader(src))
	if err == nil {
		t.Fatal("Expected an error for a header without recorded_rt and date.added")
	}
	if !strings.Contains(err.Error(), ColRecordedRT) || !strings.Contains(err.Error(), ColDateAdded) {
		t.Errorf("Expected the missing columns to be named, got %v", err)
	}
}

func TestReadRawReportsLine(t *testing.T) {
	cases := map[string]string{
		"empty rt":    `"1";"FEM_long";"InChI=1S/CH4/h1H4";"";"FALSE";"2015-03-02";"a"`,
		"bad rt":      `"1";"FEM_long";"InChI=1S/CH4/h1H4";"early";"FALSE";"2015-03-02";"a"`,
		"bad suspect": `"1";"FEM_long";"InChI=1S/CH4/h1H4";"1";"maybe";"2015-03-02";"a"`,
		"bad date":    `"1";"FEM_long";"InChI=1S/CH4/h1H4";"1";"FALSE";"not a date";"a"`,
	}

	for name, row := range cases {
		ok := `"0";"FEM_long";"InChI=1S/H2O/h1H2";"2";"FALSE";"2015-03-02";"a"`
		_, err := ReadRaw(strings.NewReader(rawHeader + ok + "\n" + row + "\n"))
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		if !strings.Contains(err.Error(), "line 3") {
			t.Errorf("%s: expected the error to name line 3, got %v", name, err)
		}
	}
}

func TestParseSuspect(t *testing.T) {
	cases := []struct {
		Input    string
		Expected bool
	}{
		{"", false},
		{"NA", false},
		{"FALSE", false},
		{"false", false},
		{"0", false},
		{"TRUE", true},
		{" true ", true},
		{"1", true},
	}

	for _, cs := range cases {
		got, err := ParseSuspect(cs.Input)
		if err != nil {
			t.Errorf("%q: %v", cs.Input, err)
			continue
		}
		if got != cs.Expected {
			t.Errorf("%q: expected %v, got %v", cs.Input, cs.Expected, got)
		}
	}

	if _, err := ParseSuspect("yes please"); err == nil {
		t.Errorf("Expected an error for an unknown boolean")
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		Input    string
		Expected civil.Date
	}{
		{"", civil.Date{}},
		{"NA", civil.Date{}},
		{"2016-11-07", civil.Date{Year: 2016, Month: 11, Day: 7}},
		{"2016-11-07 23:59:59", civil.Date{Year: 2016, Month: 11, Day: 7}},
	}

	for _, cs := range cases {
		got, err := ParseDate(cs.Input)
		if err != nil {
			t.Errorf("%q: %v", cs.Input, err)
			continue
		}
		if got != cs.Expected {
			t.Errorf("%q: expected %v, got %v", cs.Input, cs.Expected, got)
		}
	}
}

func TestOpenRawExample(t *testing.T) {
	got, err := OpenRaw(context.Background(), filepath.Join("..", "example", "raw.csv"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 10 {
		t.Fatalf("Expected 10 measurements, got %d", len(got))
	}

	systems := map[string]int{}
	for _, v := range got {
		systems[v.System]++
	}
	expected := map[string]int{"FEM_long": 4, "RIKEN": 3, "HILIC_X": 1, "LIFE_new": 2}
	if diff := cmp.Diff(expected, systems); diff != "" {
		t.Errorf("Systems mismatch (-want +got):\n%s", diff)
	}
}
