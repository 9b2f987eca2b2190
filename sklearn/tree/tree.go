// Package tree provides a CART regression tree.
package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/stackgo/core/model"
	"github.com/YuminosukeSato/stackgo/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Node is a single node of a fitted tree. Children are indices into
// Tree.Nodes; leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
	Impurity  float64
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.Left == -1 && n.Right == -1
}

// DecisionTreeRegressor grows a binary tree that minimizes squared error.
type DecisionTreeRegressor struct {
	*model.StateManager

	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int

	Nodes []Node
	Depth int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MinSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) {
		t.MinSamplesLeaf = n
	}
}

// NewDecisionTreeRegressor creates a regression tree with sklearn defaults.
func NewDecisionTreeRegressor(options ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		StateManager:    model.NewStateManager(),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

type builder struct {
	X    mat.Matrix
	y    []float64
	tree *DecisionTreeRegressor
}

// Fit builds the tree on X and y.
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	if t.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", t.MinSamplesSplit)
	}
	if t.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", t.MinSamplesLeaf)
	}
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.ErrEmptyData
	}
	if rows != yRows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", 1, yCols, 1)
	}

	b := &builder{X: X, y: make([]float64, rows), tree: t}
	for i := range b.y {
		b.y[i] = y.At(i, 0)
	}

	t.Nodes = t.Nodes[:0]
	t.Depth = 0
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	b.build(indices, 0)

	t.SetFitted(cols, rows)
	return nil
}

func (b *builder) build(indices []int, depth int) int {
	t := b.tree
	mean, sse := meanSSE(b.y, indices)
	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    mean,
		Samples:  len(indices),
		Impurity: sse / float64(len(indices)),
	})
	if depth > t.Depth {
		t.Depth = depth
	}

	if (t.MaxDepth > 0 && depth >= t.MaxDepth) ||
		len(indices) < t.MinSamplesSplit ||
		len(indices) < 2*t.MinSamplesLeaf ||
		sse == 0 {
		return nodeIdx
	}

	best, ok := b.bestSplit(indices, sse)
	if !ok {
		return nodeIdx
	}

	var left, right []int
	for _, idx := range indices {
		if b.X.At(idx, best.feature) <= best.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	t.Nodes[nodeIdx].Feature = best.feature
	t.Nodes[nodeIdx].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.Nodes[nodeIdx].Left = l
	t.Nodes[nodeIdx].Right = r
	return nodeIdx
}

// bestSplit scans every feature in order and keeps the first split with the
// largest reduction in squared error.
func (b *builder) bestSplit(indices []int, parentSSE float64) (split, bool) {
	_, cols := b.X.Dims()
	minLeaf := b.tree.MinSamplesLeaf
	n := len(indices)

	type pair struct {
		value float64
		y     float64
	}
	values := make([]pair, n)

	best := split{gain: 0}
	found := false
	for j := 0; j < cols; j++ {
		for i, idx := range indices {
			values[i] = pair{value: b.X.At(idx, j), y: b.y[idx]}
		}
		sort.SliceStable(values, func(a, c int) bool { return values[a].value < values[c].value })

		var total, totalSq float64
		for _, v := range values {
			total += v.y
			totalSq += v.y * v.y
		}

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			leftSum += values[i].y
			leftSq += values[i].y * values[i].y
			if values[i].value == values[i+1].value {
				continue
			}
			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			gain := parentSSE - sse
			if gain > best.gain+1e-12 {
				best = split{
					feature:   j,
					threshold: (values[i].value + values[i+1].value) / 2,
					gain:      gain,
				}
				found = true
			}
		}
	}
	return best, found
}

func meanSSE(y []float64, indices []int) (float64, float64) {
	var sum float64
	for _, idx := range indices {
		sum += y[idx]
	}
	mean := sum / float64(len(indices))
	var sse float64
	for _, idx := range indices {
		d := y[idx] - mean
		sse += d * d
	}
	return mean, sse
}

// Predict walks the tree for every row of X.
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, cols := X.Dims()
	if err := t.CheckPredictInput("DecisionTreeRegressor", cols); err != nil {
		return nil, err
	}
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, t.predictRow(X, i))
	}
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	node := 0
	for {
		n := &t.Nodes[node]
		if n.IsLeaf() {
			return n.Value
		}
		v := X.At(i, n.Feature)
		if v <= n.Threshold || math.IsNaN(v) {
			node = n.Left
		} else {
			node = n.Right
		}
	}
}

// NumLeaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeRegressor) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// Clone returns an unfitted tree with the same hyperparameters.
func (t *DecisionTreeRegressor) Clone() model.Estimator {
	return NewDecisionTreeRegressor(
		WithMaxDepth(t.MaxDepth),
		WithMinSamplesSplit(t.MinSamplesSplit),
		WithMinSamplesLeaf(t.MinSamplesLeaf),
	)
}

// Name returns the type name used for column naming.
func (t *DecisionTreeRegressor) Name() string { return "DecisionTreeRegressor" }

// Family returns the capability tag.
func (t *DecisionTreeRegressor) Family() model.Family { return model.FamilyTree }

func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, min_samples_split=%d, min_samples_leaf=%d)",
		t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf)
}
