package ml

import "math/rand"

// Forest is a bagging ensemble of regression trees. Each tree is grown on a
// bootstrap sample and predictions are mean-aggregated, trading bias for
// variance reduction.
type Forest struct {
	Trees    []*Tree `json:"trees"`
	NumTrees int     `json:"num_trees"`
	MaxDepth int     `json:"max_depth"`
	MinLeaf  int     `json:"min_leaf"`
	Seed     int64   `json:"seed"`
}

// NewForest creates an unfitted bagging ensemble. The seed makes training
// reproducible across runs.
func NewForest(numTrees, maxDepth, minLeaf int, seed int64) *Forest {
	return &Forest{
		NumTrees: numTrees,
		MaxDepth: maxDepth,
		MinLeaf:  minLeaf,
		Seed:     seed,
	}
}

// Fit trains the ensemble on the given data.
func (f *Forest) Fit(X [][]float64, y []float64) {
	f.Trees = make([]*Tree, 0, f.NumTrees)
	if len(X) == 0 || len(X) != len(y) {
		return
	}

	rng := rand.New(rand.NewSource(f.Seed))
	n := len(X)

	for t := 0; t < f.NumTrees; t++ {
		sampleX := make([][]float64, n)
		sampleY := make([]float64, n)
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleX[i] = X[j]
			sampleY[i] = y[j]
		}
		tree := NewTree(f.MaxDepth, f.MinLeaf)
		tree.Fit(sampleX, sampleY)
		f.Trees = append(f.Trees, tree)
	}
}

// Predict returns the mean prediction across all trees.
func (f *Forest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, tree := range f.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// PredictBatch predicts every row of X.
func (f *Forest) PredictBatch(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = f.Predict(x)
	}
	return out
}
