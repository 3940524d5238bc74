package rerank

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// twoSpectra returns two prepared layers in which MS/MS scores alone pick the
// wrong candidate for both spectra, while the retention order favors a and d.
func twoSpectra(t *testing.T) []Layer {
	t.Helper()

	layers := []Layer{
		{SpecID: "s0", RT: 1, CorrectID: "b", Candidates: []Candidate{
			{ID: "b", Score: 0.5, OrderScore: 1},
			{ID: "a", Score: 0.9, OrderScore: 2},
		}},
		{SpecID: "s1", RT: 2, CorrectID: "d", Candidates: []Candidate{
			{ID: "c", Score: 0.8, OrderScore: 0.5},
			{ID: "d", Score: 0.6, OrderScore: 3},
		}},
	}
	for i := range layers {
		require.NoError(t, layers[i].Prepare())
	}

	return layers
}

func ids(layers []Layer, p Path) []string {
	out := []string{}
	for t, cand := range p.Nodes {
		out = append(out, layers[t].Candidates[cand].ID)
	}
	return out
}

func TestPrepare(t *testing.T) {
	l := Layer{SpecID: "s", CorrectID: "y", Candidates: []Candidate{
		{ID: "w", Score: 0.5},
		{ID: "x", Score: 0.9},
		{ID: "y", Score: 0.5},
		{ID: "z", Score: 0.1},
	}}
	require.NoError(t, l.Prepare())

	got := []string{}
	ranks := []int{}
	for _, c := range l.Candidates {
		got = append(got, c.ID)
		ranks = append(ranks, c.Rank)
	}
	require.Equal(t, []string{"x", "w", "y", "z"}, got)
	require.Equal(t, []int{1, 2, 2, 3}, ranks)
	require.Equal(t, 2, l.CorrectRank)
	require.True(t, l.Candidates[2].IsTrue)

	missing := Layer{SpecID: "s", CorrectID: "q", Candidates: []Candidate{{ID: "w"}}}
	require.ErrorIs(t, missing.Prepare(), ErrInvalidInput)

	twice := Layer{SpecID: "s", CorrectID: "w", Candidates: []Candidate{{ID: "w"}, {ID: "w"}}}
	require.ErrorIs(t, twice.Prepare(), ErrInvalidInput)

	empty := Layer{SpecID: "s", CorrectID: "w"}
	require.ErrorIs(t, empty.Prepare(), ErrInvalidInput)
}

func TestMaxWeight(t *testing.T) {
	u := Layer{RT: 1, Candidates: []Candidate{{OrderScore: 2}}}
	v := Layer{RT: 2, Candidates: []Candidate{{Score: 0.8, OrderScore: 0.5}, {Score: 0.6, OrderScore: 3}}}

	cases := []struct {
		Name     string
		W        MaxWeight
		J        int
		Expected float64
	}{
		{"score only", MaxWeight{}, 0, -0.8},
		{"order violated", MaxWeight{D: 1}, 0, -0.8 + 1.5},
		{"order kept", MaxWeight{D: 1}, 1, -0.6},
		{"sign", MaxWeight{D: 2, UseSign: true}, 0, -0.8 + 2},
		{"log", MaxWeight{D: 1, UseLog: true}, 0, -0.8 + 0.9162907318741551},
		{"within epsilon", MaxWeight{D: 1, EpsilonRT: 1}, 0, -0.8},
		{"beyond epsilon", MaxWeight{D: 1, EpsilonRT: 0.5}, 0, -0.8 + 1.5},
	}

	for _, cs := range cases {
		require.InDelta(t, cs.Expected, cs.W.Weight(u, 0, v, cs.J), 1e-12, cs.Name)
	}
}

func TestShortestPath(t *testing.T) {
	layers := twoSpectra(t)

	p, err := ShortestPath(layers, MaxWeight{}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids(layers, p))
	require.InDelta(t, -1.7, p.Length, 1e-12)

	p, err = ShortestPath(layers, MaxWeight{D: 1}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "d"}, ids(layers, p))
	require.InDelta(t, -1.5, p.Length, 1e-12)

	p, err = ShortestPath(layers, MaxWeight{D: 1, UseSign: true}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "d"}, ids(layers, p))

	// With a cutoff of one, only the best scoring candidates remain.
	p, err = ShortestPath(layers, MaxWeight{D: 1}, 1, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, ids(layers, p))
}

func TestShortestPathBlocked(t *testing.T) {
	layers := twoSpectra(t)
	layers[0].Candidates[0].Blocked = true

	p, err := ShortestPath(layers, MaxWeight{D: 1}, 0, true)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "d"}, ids(layers, p))

	// Blocked candidates are only avoided on request
	p, err = ShortestPath(layers, MaxWeight{D: 1}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "d"}, ids(layers, p))

	layers[0].Candidates[1].Blocked = true
	_, err = ShortestPath(layers, MaxWeight{D: 1}, 0, true)
	require.ErrorIs(t, err, ErrNoPath)
}

func TestShortestPathTies(t *testing.T) {
	layers := []Layer{
		{RT: 1, Candidates: []Candidate{{ID: "x", Score: 1}, {ID: "y", Score: 1}}},
		{RT: 2, Candidates: []Candidate{{ID: "z", Score: 1}, {ID: "w", Score: 1}}},
	}

	p, err := ShortestPath(layers, MaxWeight{}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 0}, p.Nodes)
}

func TestShortestPathSingleLayer(t *testing.T) {
	layers := []Layer{{RT: 1, Candidates: []Candidate{{ID: "x", Score: 3}, {ID: "y", Score: 2}}}}

	p, err := ShortestPath(layers, MaxWeight{D: 10}, 0, false)
	require.NoError(t, err)
	require.Equal(t, []int{0}, p.Nodes)
	require.Equal(t, -3.0, p.Length)
}

func TestCheckLayers(t *testing.T) {
	_, err := ShortestPath(nil, MaxWeight{}, 0, false)
	require.ErrorIs(t, err, ErrInvalidInput)

	unordered := twoSpectra(t)
	unordered[0].RT = 3
	_, err = ShortestPath(unordered, MaxWeight{}, 0, false)
	require.ErrorIs(t, err, ErrInvalidInput)

	unsorted := twoSpectra(t)
	unsorted[1].Candidates[0], unsorted[1].Candidates[1] = unsorted[1].Candidates[1], unsorted[1].Candidates[0]
	_, err = ShortestPath(unsorted, MaxWeight{}, 0, false)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRerank(t *testing.T) {
	layers := twoSpectra(t)

	o, err := Rerank(layers, 3, 0, MaxWeight{D: 1})
	require.NoError(t, err)

	// The second path exhausts both layers, so there is no third.
	require.Equal(t, []float64{50, 100}, o.TopKAccuracy)
	require.Len(t, o.Paths, 2)
	require.Equal(t, []string{"a", "d"}, ids(layers, o.Paths[0]))
	require.Equal(t, []string{"b", "c"}, ids(layers, o.Paths[1]))
	require.Equal(t, [][]int{{0, 1}, {0, 1}}, o.Layers)

	o, err = Rerank(layers, 1, 0, MaxWeight{})
	require.NoError(t, err)
	require.Equal(t, []float64{0}, o.TopKAccuracy)

	o, err = Rerank(layers, 2, 1, MaxWeight{D: 1})
	require.NoError(t, err)
	require.Equal(t, []float64{0}, o.TopKAccuracy)

	for _, l := range layers {
		for _, c := range l.Candidates {
			require.False(t, c.Blocked, "Rerank modified its input")
		}
	}

	_, err = Rerank(layers, 0, 0, MaxWeight{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRerankDropsExhaustedLayers(t *testing.T) {
	layers := twoSpectra(t)
	layers = append(layers, Layer{SpecID: "s2", RT: 3, CorrectID: "e", Candidates: []Candidate{
		{ID: "e", Score: 0.7, OrderScore: 4},
	}})
	require.NoError(t, layers[2].Prepare())

	o, err := Rerank(layers, 2, 0, MaxWeight{D: 1})
	require.NoError(t, err)

	require.Equal(t, []int{0, 1, 2}, o.Layers[0])
	require.Equal(t, []int{0, 1}, o.Layers[1])
	require.InDelta(t, 200.0/3, o.TopKAccuracy[0], 1e-9)
	require.InDelta(t, 100, o.TopKAccuracy[1], 1e-9)
}
