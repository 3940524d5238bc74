package preprocess

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testHCL = `
base_dir = "/data/predret"
systems  = ["FEM_long", "RIKEN", "UFZ_Phenomenex"]
cutoff   = "2016-11-07"

threshold "FEM_long" {
  rt = 2.5
}

threshold "RIKEN" {
  rt = 0.8
}
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testHCL), "test.hcl")
	require.NoError(t, err)

	expected := Config{
		BaseDir:      "/data/predret",
		Systems:      []string{"FEM_long", "RIKEN", "UFZ_Phenomenex"},
		Cutoff:       civil.Date{Year: 2016, Month: 11, Day: 7},
		Thresholds:   map[string]float64{"FEM_long": 2.5, "RIKEN": 0.8},
		MaxSpreadPct: DefaultMaxSpreadPct,
	}
	if diff := cmp.Diff(expected, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, cfg.Validate())
	require.Equal(t, []string{"FEM_long", "RIKEN"}, cfg.ThresholdSystems())
	require.Equal(t, 0.0, cfg.Threshold("UFZ_Phenomenex"))
}

func TestParseConfigErrors(t *testing.T) {
	cases := map[string]string{
		"duplicate threshold": `
systems = ["A"]
cutoff  = "2016-11-07"
threshold "A" {
  rt = 1
}
threshold "A" {
  rt = 2
}
`,
		"bad cutoff": `
systems = ["A"]
cutoff  = "07/11/2016"
`,
		"missing systems": `
cutoff = "2016-11-07"
`,
		"syntax": `systems = [`,
	}

	for name, src := range cases {
		if _, err := ParseConfig([]byte(src), name+".hcl"); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadConfigFromExample(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "example", "preprocess.hcl"))
	require.NoError(t, err)

	// The example ships with a placeholder that must be replaced.
	require.Equal(t, BasePathPlaceholder, cfg.BaseDir)
	require.ErrorIs(t, cfg.Validate(), ErrBasePathUnset)

	cfg.BaseDir = t.TempDir()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := testConfig()
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"empty base":         func(c *Config) { c.BaseDir = " " },
		"no systems":         func(c *Config) { c.Systems = nil },
		"no cutoff":          func(c *Config) { c.Cutoff = civil.Date{} },
		"negative spread":    func(c *Config) { c.MaxSpreadPct = -1 },
		"unlisted threshold": func(c *Config) { c.Thresholds = map[string]float64{"HILIC_X": 1} },
	}

	for name, mutate := range cases {
		cfg := testConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestLoadThresholds(t *testing.T) {
	src := "# chosen from the rtinspect histograms\nsystem\tthreshold\nFEM_short\t0.3\nLIFE_old\t0.5\n"

	got, err := LoadThresholds(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"FEM_short": 0.3, "LIFE_old": 0.5}, got)

	_, err = LoadThresholds(strings.NewReader("system\tthreshold\nA\t1\nA\t2\n"))
	require.Error(t, err)
}

func TestLoadThresholdsFromExample(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "example", "thresholds.tsv"))
	require.NoError(t, err)
	defer f.Close()

	got, err := LoadThresholds(f)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestLoadThresholdsFileResolvesAgainstBaseDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "thresholds.tsv"), []byte("system\tthreshold\nRIKEN\t1.25\n"), 0o644))

	cfg := Config{BaseDir: base, Thresholds: map[string]float64{"FEM_long": 2.5}}
	path, n, err := cfg.LoadThresholdsFile(context.Background(), "thresholds.tsv", nil)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "thresholds.tsv"), path)
	require.Equal(t, 1, n)
	require.Equal(t, map[string]float64{"FEM_long": 2.5, "RIKEN": 1.25}, cfg.Thresholds)

	_, _, err = cfg.LoadThresholdsFile(context.Background(), "missing.tsv", nil)
	require.Error(t, err)
}

func TestMergeThresholds(t *testing.T) {
	cfg := Config{}
	cfg.MergeThresholds(map[string]float64{"A": 1})
	cfg.MergeThresholds(map[string]float64{"A": 2, "B": 3})

	require.Equal(t, map[string]float64{"A": 2, "B": 3}, cfg.Thresholds)
}

func TestResolve(t *testing.T) {
	cfg := Config{BaseDir: "/data/predret"}

	cases := map[string]string{
		"raw.csv":             "/data/predret/raw.csv",
		"sub/raw.csv.gz":      "/data/predret/sub/raw.csv.gz",
		"/elsewhere/raw.csv":  "/elsewhere/raw.csv",
		"gs://bucket/raw.csv": "gs://bucket/raw.csv",
	}

	for in, expected := range cases {
		got, err := cfg.Resolve(in)
		require.NoError(t, err)
		require.Equal(t, expected, got, in)
	}

	gs := Config{BaseDir: "gs://bucket/predret"}
	got, err := gs.Resolve("raw.csv")
	require.NoError(t, err)
	require.Equal(t, "gs://bucket/predret/raw.csv", got)
}
