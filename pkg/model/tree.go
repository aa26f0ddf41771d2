package model

import "sort"

// Node is one flattened tree node. Leaves have Feature == -1. Flattening
// keeps artifacts a plain index-linked array instead of a pointer graph.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a single regression tree.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one tree greedily. splitTarget drives split selection
// (variance reduction); leafTarget feeds the leaf aggregator, which lets
// absolute-loss boosting split on sign pseudo-residuals while leaves hold
// the median raw residual.
type treeBuilder struct {
	x           [][]float64
	splitTarget []float64
	leafTarget  []float64
	maxDepth    int
	minLeaf     int
	// candidates returns the thresholds to score for one feature, given the
	// row indexes sorted by that feature's value.
	candidates func(values []float64) []int
	aggregate  func(values []float64) float64

	nodes []Node
}

func (b *treeBuilder) build(idx []int, depth int) int {
	if depth >= b.maxDepth || len(idx) < 2*b.minLeaf || constant(b.splitTarget, idx) {
		return b.leaf(idx)
	}

	feature, threshold, left, right, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}

	// Reserve the split node before recursing so child indexes are stable.
	i := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	b.nodes[i].Left = b.build(left, depth+1)
	b.nodes[i].Right = b.build(right, depth+1)
	return i
}

func (b *treeBuilder) leaf(idx []int) int {
	values := make([]float64, len(idx))
	for i, j := range idx {
		values[i] = b.leafTarget[j]
	}
	b.nodes = append(b.nodes, Node{Feature: -1, Value: b.aggregate(values)})
	return len(b.nodes) - 1
}

// bestSplit scores candidate thresholds per feature by variance reduction
// over splitTarget, using prefix sums over the feature-sorted rows.
func (b *treeBuilder) bestSplit(idx []int) (feature int, threshold float64, left, right []int, ok bool) {
	nFeatures := len(b.x[idx[0]])
	n := len(idx)

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, n)
	values := make([]float64, n)
	prefix := make([]float64, n+1)

	total := 0.0
	for _, j := range idx {
		total += b.splitTarget[j]
	}
	baseScore := total * total / float64(n)

	for f := 0; f < nFeatures; f++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})
		for i, j := range sorted {
			values[i] = b.x[j][f]
			prefix[i+1] = prefix[i] + b.splitTarget[j]
		}

		for _, k := range b.candidates(values) {
			if k < b.minLeaf || n-k < b.minLeaf {
				continue
			}
			if values[k-1] == values[k] {
				continue
			}
			leftSum := prefix[k]
			rightSum := total - leftSum
			// Maximizing the sum of (sum^2 / count) over both sides is
			// equivalent to minimizing within-node squared error.
			gain := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k) - baseScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (values[k-1] + values[k]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, nil, nil, false
	}

	for _, j := range idx {
		if b.x[j][bestFeature] <= bestThreshold {
			left = append(left, j)
		} else {
			right = append(right, j)
		}
	}
	return bestFeature, bestThreshold, left, right, true
}

// exactCandidates scores every boundary between distinct adjacent values.
func exactCandidates(values []float64) []int {
	out := make([]int, 0, len(values)-1)
	for k := 1; k < len(values); k++ {
		out = append(out, k)
	}
	return out
}

// histogramCandidates scores only quantile-bin boundaries, the histogram
// split strategy.
func histogramCandidates(bins int) func(values []float64) []int {
	return func(values []float64) []int {
		n := len(values)
		if n <= bins {
			return exactCandidates(values)
		}
		out := make([]int, 0, bins-1)
		for i := 1; i < bins; i++ {
			out = append(out, n*i/bins)
		}
		return out
	}
}

func constant(target []float64, idx []int) bool {
	first := target[idx[0]]
	for _, j := range idx[1:] {
		if target[j] != first {
			return false
		}
	}
	return true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
