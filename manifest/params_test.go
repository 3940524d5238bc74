package manifest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseParams(t *testing.T) {
	cases := []struct {
		Input    string
		Expected Params
		Err      bool
	}{
		{"", Params{}, false},
		{"  ", Params{}, false},
		{"EMBSO=True", Params{"EMBSO": "True"}, false},
		{" EMBSO = True , SYSSET=10", Params{"EMBSO": "True", "SYSSET": "10"}, false},
		{"LTSO=", Params{"LTSO": ""}, false},
		{"a=b=c", Params{"a": "b=c"}, false},
		{"EMBSO", nil, true},
		{"=True", nil, true},
		{"a=1,a=2", nil, true},
	}

	for _, cs := range cases {
		got, err := ParseParams(cs.Input)
		if cs.Err {
			if err == nil {
				t.Errorf("%q: expected an error", cs.Input)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", cs.Input, err)
			continue
		}
		if diff := cmp.Diff(cs.Expected, got); diff != "" {
			t.Errorf("%q: mismatch (-want +got):\n%s", cs.Input, diff)
		}
	}
}

func TestParamsString(t *testing.T) {
	p := Params{"SYSSET": "10", "EMBSO": "True"}
	if got := p.String(); got != "EMBSO=True,SYSSET=10" {
		t.Errorf("Unexpected %q", got)
	}

	back, err := ParseParams(p.String())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, back); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestWithDefaults(t *testing.T) {
	var p Params
	if got := p.WithDefaults(); got[FlagFEATSCAL] != DefaultFeatureScaling {
		t.Errorf("Expected FEATSCAL to default to %s, got %v", DefaultFeatureScaling, got)
	}

	p = Params{FlagFEATSCAL: "minmax"}
	if got := p.WithDefaults(); got[FlagFEATSCAL] != "minmax" {
		t.Errorf("Expected an explicit FEATSCAL to be kept, got %v", got)
	}

	p = Params{FlagEMBSO: "True"}
	p.WithDefaults()
	if _, exists := p[FlagFEATSCAL]; exists {
		t.Errorf("WithDefaults modified its receiver")
	}
}

func TestContains(t *testing.T) {
	p := Params{"a": "1", "b": "2"}

	cases := []struct {
		Sub      Params
		Expected bool
	}{
		{nil, true},
		{Params{}, true},
		{Params{"a": "1"}, true},
		{Params{"a": "1", "b": "2"}, true},
		{Params{"a": "2"}, false},
		{Params{"c": "1"}, false},
	}

	for _, cs := range cases {
		if got := p.Contains(cs.Sub); got != cs.Expected {
			t.Errorf("Contains(%v): expected %v, got %v", cs.Sub, cs.Expected, got)
		}
	}
}
