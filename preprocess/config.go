// Package preprocess turns a raw retention-time dataset into the filtered,
// per-system aggregate table used for training retention order models.
//
// All dataset-specific choices (which systems are reversed phase, the cutoff
// date, the early-elution threshold of each system) live in Config, which is
// normally read from an HCL file, so that the transform itself is pure.
package preprocess

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/carbocation/rtorder"
	"github.com/gocarina/gocsv"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// BasePathPlaceholder is the value shipped in example configurations. It
// must be replaced before any data is processed.
const BasePathPlaceholder = "<SET_ME>"

// DefaultMaxSpreadPct is the largest relative spread, in percent, tolerated
// between replicate measurements.
const DefaultMaxSpreadPct = 5.0

// ErrBasePathUnset guards against silently processing no data.
var ErrBasePathUnset = errors.New("base path is unset")

type Config struct {
	BaseDir      string
	Systems      []string
	Cutoff       civil.Date
	Thresholds   map[string]float64
	MaxSpreadPct float64
}

// Validate checks that the configuration can be run. It is called by Run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" || c.BaseDir == BasePathPlaceholder {
		return ErrBasePathUnset
	}

	if len(c.Systems) == 0 {
		return fmt.Errorf("no systems are allow-listed")
	}

	if !c.Cutoff.IsValid() {
		return fmt.Errorf("cutoff date %q is not valid", c.Cutoff)
	}

	if c.MaxSpreadPct < 0 {
		return fmt.Errorf("max spread %v must not be negative", c.MaxSpreadPct)
	}

	allowed := c.allowed()
	for system := range c.Thresholds {
		if _, exists := allowed[system]; !exists {
			return fmt.Errorf("a threshold is set for system %q, which is not allow-listed", system)
		}
	}

	return nil
}

func (c Config) allowed() map[string]struct{} {
	out := make(map[string]struct{}, len(c.Systems))
	for _, v := range c.Systems {
		out[v] = struct{}{}
	}

	return out
}

// Resolve places a relative path under BaseDir. Absolute and gs:// paths are
// returned as is; ~ is expanded in both.
func (c Config) Resolve(path string) (string, error) {
	path, err := rtorder.ExpandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) || rtorder.IsGoogleStorage(path) {
		return path, nil
	}

	base, err := rtorder.ExpandHome(c.BaseDir)
	if err != nil {
		return "", err
	}

	return rtorder.JoinPath(base, path), nil
}

// Threshold returns the early-elution threshold for system, or 0 when none is
// configured.
func (c Config) Threshold(system string) float64 {
	return c.Thresholds[system]
}

// MergeThresholds overlays t onto the configured thresholds.
func (c *Config) MergeThresholds(t map[string]float64) {
	if c.Thresholds == nil {
		c.Thresholds = make(map[string]float64, len(t))
	}
	for k, v := range t {
		c.Thresholds[k] = v
	}
}

// ThresholdSystems lists the systems with a threshold, sorted.
func (c Config) ThresholdSystems() []string {
	out := make([]string, 0, len(c.Thresholds))
	for k := range c.Thresholds {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

type hclConfig struct {
	BaseDir      string         `hcl:"base_dir,optional"`
	Systems      []string       `hcl:"systems"`
	Cutoff       string         `hcl:"cutoff"`
	MaxSpreadPct *float64       `hcl:"max_spread_pct,optional"`
	Thresholds   []hclThreshold `hcl:"threshold,block"`
}

type hclThreshold struct {
	System string  `hcl:"system,label"`
	RT     float64 `hcl:"rt"`
}

// LoadConfig reads an HCL pre-processing configuration, e.g.:
//
//	base_dir = "~/data/predret"
//	systems  = ["FEM_long", "RIKEN"]
//	cutoff   = "2016-11-07"
//
//	threshold "FEM_long" {
//	  rt = 2.5
//	}
func LoadConfig(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	return decodeConfig(file.Body, path)
}

// ParseConfig is LoadConfig for in-memory sources.
func ParseConfig(src []byte, filename string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	return decodeConfig(file.Body, filename)
}

func decodeConfig(body hcl.Body, filename string) (Config, error) {
	var root hclConfig
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	cutoff, err := civil.ParseDate(root.Cutoff)
	if err != nil {
		return Config{}, fmt.Errorf("%s: cutoff: %w", filename, err)
	}

	cfg := Config{
		BaseDir:      root.BaseDir,
		Systems:      root.Systems,
		Cutoff:       cutoff,
		Thresholds:   make(map[string]float64, len(root.Thresholds)),
		MaxSpreadPct: DefaultMaxSpreadPct,
	}

	if root.MaxSpreadPct != nil {
		cfg.MaxSpreadPct = *root.MaxSpreadPct
	}

	for _, v := range root.Thresholds {
		if _, exists := cfg.Thresholds[v.System]; exists {
			return Config{}, fmt.Errorf("%s: threshold for system %q is declared twice", filename, v.System)
		}
		cfg.Thresholds[v.System] = v.RT
	}

	return cfg, nil
}

type thresholdRow struct {
	System    string  `csv:"system"`
	Threshold float64 `csv:"threshold"`
}

// LoadThresholds reads a tab-delimited system/threshold table. Lines starting
// with # are ignored.
func LoadThresholds(r io.Reader) (map[string]float64, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'

	rows := []*thresholdRow{}
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := make(map[string]float64, len(rows))
	for _, v := range rows {
		if v.System == "" {
			return nil, fmt.Errorf("threshold table contains an entry without a system")
		}
		if _, exists := out[v.System]; exists {
			return nil, fmt.Errorf("threshold for system %q is listed twice", v.System)
		}
		out[v.System] = v.Threshold
	}

	return out, nil
}

// LoadThresholdsFile reads the threshold table at path, resolved like every
// other configured path, and overlays it onto c. It returns the resolved path
// and the number of thresholds read.
func (c *Config) LoadThresholdsFile(ctx context.Context, path string, client *storage.Client) (string, int, error) {
	resolved, err := c.Resolve(path)
	if err != nil {
		return "", 0, err
	}

	rc, err := rtorder.OpenInput(ctx, resolved, client)
	if err != nil {
		return "", 0, err
	}
	defer rc.Close()

	thresholds, err := LoadThresholds(rc)
	if err != nil {
		return "", 0, pfx.Err(fmt.Errorf("%s: %w", resolved, err))
	}
	c.MergeThresholds(thresholds)

	return resolved, len(thresholds), nil
}
