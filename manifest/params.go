package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// Build flags that parameterize an evaluation run.
const (
	FlagAPFT     = "APFT"
	FlagEMBSO    = "EMBSO"
	FlagFEATSCAL = "FEATSCAL"
	FlagLTSO     = "LTSO"
	FlagPERC     = "PERC"
	FlagSYSSET   = "SYSSET"
)

// BuildFlags lists the flags in the order they are applied.
var BuildFlags = []string{FlagAPFT, FlagEMBSO, FlagFEATSCAL, FlagLTSO, FlagPERC, FlagSYSSET}

// DefaultFeatureScaling is assumed for FEATSCAL when a run does not state it.
const DefaultFeatureScaling = "noscaling"

// Params is a set of key/value settings, e.g. the flavor of a run or the
// parameters used to build learning pairs.
type Params map[string]string

// ParseParams reads "k=v,k=v". Whitespace around keys and values is dropped.
func ParseParams(s string) (Params, error) {
	out := Params{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[0]) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		key := strings.TrimSpace(kv[0])
		if _, exists := out[key]; exists {
			return nil, fmt.Errorf("key %q is given twice", key)
		}
		out[key] = strings.TrimSpace(kv[1])
	}

	return out, nil
}

// Keys returns the keys, sorted.
func (p Params) Keys() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}

// String is the inverse of ParseParams, with keys sorted.
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, k+"="+p[k])
	}

	return strings.Join(parts, ",")
}

// Clone returns a copy that can be modified independently. The copy of a nil
// Params is empty, not nil.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// WithDefaults fills in FEATSCAL when it is missing.
func (p Params) WithDefaults() Params {
	out := p.Clone()
	if _, exists := out[FlagFEATSCAL]; !exists {
		out[FlagFEATSCAL] = DefaultFeatureScaling
	}

	return out
}

// Contains reports whether every entry of sub is present in p with the same
// value.
func (p Params) Contains(sub Params) bool {
	for k, v := range sub {
		if got, exists := p[k]; !exists || got != v {
			return false
		}
	}

	return true
}
