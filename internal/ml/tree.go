package ml

// Package ml provides the small regression toolkit behind the decision
// engines: a standard scaler, a CART regression tree, a bagging ensemble
// and a gradient booster. All model types carry exported fields so a fitted
// artifact can be JSON-serialized into the model store and reloaded without
// refitting.

import "sort"

// TreeNode is one node of a regression tree.
type TreeNode struct {
	SplitFeature int       `json:"f,omitempty"`
	SplitValue   float64   `json:"v,omitempty"`
	Left         *TreeNode `json:"l,omitempty"`
	Right        *TreeNode `json:"r,omitempty"`
	Value        float64   `json:"p"`
	IsLeaf       bool      `json:"leaf,omitempty"`
}

// Tree is a CART regression tree using variance-reduction splits.
type Tree struct {
	Root     *TreeNode `json:"root"`
	MaxDepth int       `json:"max_depth"`
	MinLeaf  int       `json:"min_leaf"`
}

// NewTree creates an unfitted regression tree.
func NewTree(maxDepth, minLeaf int) *Tree {
	if minLeaf < 1 {
		minLeaf = 1
	}
	return &Tree{MaxDepth: maxDepth, MinLeaf: minLeaf}
}

// Fit grows the tree on the given sample. X rows must share one width.
func (t *Tree) Fit(X [][]float64, y []float64) {
	if len(X) == 0 || len(X) != len(y) {
		t.Root = &TreeNode{IsLeaf: true}
		return
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.buildNode(X, y, idx, 0)
}

// Predict returns the leaf value for a single feature row.
func (t *Tree) Predict(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0
	}
	for !node.IsLeaf {
		if node.SplitFeature < len(x) && x[node.SplitFeature] < node.SplitValue {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// buildNode recursively grows the tree over the rows named by idx.
func (t *Tree) buildNode(X [][]float64, y []float64, idx []int, depth int) *TreeNode {
	if len(idx) <= t.MinLeaf || depth >= t.MaxDepth {
		return &TreeNode{IsLeaf: true, Value: meanAt(y, idx)}
	}

	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return &TreeNode{IsLeaf: true, Value: meanAt(y, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &TreeNode{IsLeaf: true, Value: meanAt(y, idx)}
	}

	return &TreeNode{
		SplitFeature: feature,
		SplitValue:   threshold,
		Left:         t.buildNode(X, y, left, depth+1),
		Right:        t.buildNode(X, y, right, depth+1),
		Value:        meanAt(y, idx),
	}
}

// bestSplit scans every feature for the threshold with the largest sum-of-
// squared-error reduction. Candidate thresholds are midpoints between
// consecutive distinct sorted values.
func (t *Tree) bestSplit(X [][]float64, y []float64, idx []int) (int, float64, bool) {
	numFeatures := len(X[idx[0]])
	total := sumAt(y, idx)
	totalSq := sumSqAt(y, idx)
	n := float64(len(idx))
	baseSSE := totalSq - total*total/n

	bestGain := 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(idx))
	for f := 0; f < numFeatures; f++ {
		copy(order, idx)
		sortByFeature(X, order, f)

		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < len(order)-1; k++ {
			yi := y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			cur := X[order[k]][f]
			next := X[order[k+1]][f]
			if next <= cur {
				continue
			}

			nl := float64(k + 1)
			nr := n - nl
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := baseSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func sortByFeature(X [][]float64, idx []int, f int) {
	sort.Slice(idx, func(a, b int) bool {
		return X[idx[a]][f] < X[idx[b]][f]
	})
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	return sumAt(y, idx) / float64(len(idx))
}

func sumAt(y []float64, idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += y[i]
	}
	return s
}

func sumSqAt(y []float64, idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += y[i] * y[i]
	}
	return s
}
