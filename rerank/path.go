package rerank

import (
	"fmt"
	"math"
)

// Weighter gives the weight of the edge from candidate i of layer u to
// candidate j of the following layer v.
type Weighter interface {
	Weight(u Layer, i int, v Layer, j int) float64
}

// MaxWeight penalizes a pair of candidates when the candidate of the later
// spectrum is predicted to elute before the candidate of the earlier one:
//
//	weight = -score(v, j) + D * max(0, order(u, i) - order(v, j))
//
// Layers whose retention times differ by at most EpsilonRT carry no order
// information. UseSign replaces the order difference by its sign; UseLog
// applies log(1 + penalty). With D = 0 the path simply follows the MS/MS
// scores.
type MaxWeight struct {
	D         float64
	UseSign   bool
	EpsilonRT float64
	UseLog    bool
}

func (w MaxWeight) Weight(u Layer, i int, v Layer, j int) float64 {
	dW := 0.0
	if math.Abs(u.RT-v.RT) > w.EpsilonRT {
		dW = u.Candidates[i].OrderScore - v.Candidates[j].OrderScore
	}

	if w.UseSign {
		dW = sign(dW)
	}

	penalty := math.Max(0, dW)
	if w.UseLog {
		penalty = math.Log1p(penalty)
	}

	return -v.Candidates[j].Score + w.D*penalty
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}

	return 0
}

// Path assigns one candidate to each layer.
type Path struct {
	// Nodes[t] is the candidate index chosen in layer t.
	Nodes  []int
	Length float64
}

// ShortestPath finds the assignment of one candidate per layer with the
// smallest total weight, where entering a candidate of the first layer costs
// its negated score. Only the first cutoff candidates of each layer are
// considered (all when cutoff <= 0). With excludeBlocked, blocked candidates
// are never visited. Ties keep the lower candidate index, both for the
// predecessor of a node and for the end of the path.
func ShortestPath(layers []Layer, w Weighter, cutoff int, excludeBlocked bool) (Path, error) {
	if err := checkLayers(layers); err != nil {
		return Path{}, err
	}

	skip := func(l Layer, i int) bool {
		return excludeBlocked && l.Candidates[i].Blocked
	}

	n := layers[0].considered(cutoff)
	cost := make([]float64, n)
	for i := 0; i < n; i++ {
		cost[i] = math.Inf(1)
		if !skip(layers[0], i) {
			cost[i] = -layers[0].Candidates[i].Score
		}
	}

	// parents[t][j] is the predecessor in layer t-1 of candidate j of layer t
	parents := make([][]int, len(layers))

	for t := 0; t < len(layers)-1; t++ {
		u, v := layers[t], layers[t+1]
		nNext := v.considered(cutoff)

		next := make([]float64, nNext)
		parents[t+1] = make([]int, nNext)
		for j := range next {
			next[j] = math.Inf(1)
			parents[t+1][j] = -1
		}

		for i, c := range cost {
			if math.IsInf(c, 1) {
				continue
			}
			for j := 0; j < nNext; j++ {
				if skip(v, j) {
					continue
				}
				if s := c + w.Weight(u, i, v, j); s < next[j] {
					next[j] = s
					parents[t+1][j] = i
				}
			}
		}

		cost = next
	}

	end := -1
	for j, c := range cost {
		if math.IsInf(c, 1) {
			continue
		}
		if end < 0 || c < cost[end] {
			end = j
		}
	}
	if end < 0 {
		return Path{}, ErrNoPath
	}

	path := Path{Nodes: make([]int, len(layers)), Length: cost[end]}
	path.Nodes[len(layers)-1] = end
	for t := len(layers) - 1; t > 0; t-- {
		path.Nodes[t-1] = parents[t][path.Nodes[t]]
	}

	return path, nil
}

// Outcome of re-ranking.
type Outcome struct {
	// TopKAccuracy[k-1] is the percentage of spectra whose correct candidate
	// lies on one of the first k paths.
	TopKAccuracy []float64

	Paths []Path

	// Layers[k][t] is the index, in the input, of the layer that Paths[k].Nodes[t]
	// belongs to.
	Layers [][]int
}

// Rerank extracts up to topK successive shortest paths. The candidates of
// each path are blocked before the next one is searched, and layers whose
// considered candidates are all blocked drop out. The input is not modified.
func Rerank(layers []Layer, topK, cutoff int, w Weighter) (Outcome, error) {
	if topK < 1 {
		return Outcome{}, fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidInput, topK)
	}
	if err := checkLayers(layers); err != nil {
		return Outcome{}, err
	}

	work := make([]Layer, len(layers))
	for t, l := range layers {
		work[t] = l.clone()
		for i := range work[t].Candidates {
			work[t].Candidates[i].Blocked = false
		}
	}

	out := Outcome{}
	correct := 0
	for k := 0; k < topK; k++ {
		active := []int{}
		for t := range work {
			if !work[t].exhausted(cutoff) {
				active = append(active, t)
			}
		}
		if len(active) == 0 {
			break
		}

		sub := make([]Layer, 0, len(active))
		for _, t := range active {
			sub = append(sub, work[t])
		}

		path, err := ShortestPath(sub, w, cutoff, true)
		if err != nil {
			return Outcome{}, err
		}

		for idx, cand := range path.Nodes {
			c := &work[active[idx]].Candidates[cand]
			if c.IsTrue {
				correct++
			}
			c.Blocked = true
		}

		out.Paths = append(out.Paths, path)
		out.Layers = append(out.Layers, active)
		out.TopKAccuracy = append(out.TopKAccuracy, float64(correct)/float64(len(work))*100)
	}

	return out, nil
}
