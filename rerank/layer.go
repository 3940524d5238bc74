// Package rerank re-ranks the molecular candidates of a sequence of MS/MS
// spectra by combining their MS/MS scores with predicted retention orders.
//
// The spectra, sorted by retention time, are the layers of a graph whose
// nodes are the candidates of each spectrum. Every candidate of one layer is
// connected to every candidate of the next; the edge weight rewards a high
// MS/MS score and penalizes candidate pairs whose predicted order contradicts
// the observed order. The shortest path through the layers is the joint
// assignment of one candidate per spectrum.
package rerank

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidInput = errors.New("invalid candidate layers")
	ErrNoPath       = errors.New("no unblocked path through the candidate layers")
)

// Candidate is one molecular structure proposed for a spectrum.
type Candidate struct {
	ID string

	// Score is the MS/MS based score; higher is better.
	Score float64

	// OrderScore is the predicted retention order score. A candidate that
	// elutes earlier has a lower value.
	OrderScore float64

	// Rank is the dense rank by Score, 1 being the best.
	Rank int

	IsTrue  bool
	Blocked bool
}

// Layer holds the candidates of one spectrum.
type Layer struct {
	SpecID      string
	RT          float64
	CorrectID   string
	CorrectRank int
	Candidates  []Candidate
}

// Prepare sorts the candidates by descending score, assigns dense ranks and
// marks the correct candidate, which must be present exactly once.
func (l *Layer) Prepare() error {
	if len(l.Candidates) == 0 {
		return fmt.Errorf("%w: spectrum %s has no candidates", ErrInvalidInput, l.SpecID)
	}

	sort.SliceStable(l.Candidates, func(i, j int) bool {
		return l.Candidates[i].Score > l.Candidates[j].Score
	})

	nCorrect := 0
	rank := 0
	for i := range l.Candidates {
		c := &l.Candidates[i]
		if i == 0 || c.Score < l.Candidates[i-1].Score {
			rank++
		}
		c.Rank = rank
		c.IsTrue = c.ID == l.CorrectID
		if c.IsTrue {
			nCorrect++
			l.CorrectRank = rank
		}
	}

	if nCorrect != 1 {
		return fmt.Errorf("%w: spectrum %s lists its correct candidate %d times", ErrInvalidInput, l.SpecID, nCorrect)
	}

	return nil
}

// SortLayers orders layers by retention time, keeping the input order of
// spectra with equal retention times.
func SortLayers(layers []Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].RT < layers[j].RT
	})
}

func (l Layer) clone() Layer {
	out := l
	out.Candidates = append([]Candidate(nil), l.Candidates...)

	return out
}

// considered is the number of candidates of the layer within the cutoff. A
// cutoff of zero or less considers every candidate.
func (l Layer) considered(cutoff int) int {
	if cutoff > 0 && cutoff < len(l.Candidates) {
		return cutoff
	}

	return len(l.Candidates)
}

// exhausted reports whether every considered candidate is blocked.
func (l Layer) exhausted(cutoff int) bool {
	for _, c := range l.Candidates[:l.considered(cutoff)] {
		if !c.Blocked {
			return false
		}
	}

	return true
}

// checkLayers verifies the ordering that the path search relies on.
func checkLayers(layers []Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidInput)
	}

	for t, l := range layers {
		if len(l.Candidates) == 0 {
			return fmt.Errorf("%w: layer %d has no candidates", ErrInvalidInput, t)
		}
		if t > 0 && l.RT < layers[t-1].RT {
			return fmt.Errorf("%w: layer %d elutes before layer %d", ErrInvalidInput, t, t-1)
		}
		for i := 1; i < len(l.Candidates); i++ {
			if l.Candidates[i].Score > l.Candidates[i-1].Score {
				return fmt.Errorf("%w: scores of layer %d are not sorted", ErrInvalidInput, t)
			}
		}
	}

	return nil
}
