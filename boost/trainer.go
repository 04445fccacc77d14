package boost

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Params contains the training parameters
type Params struct {
	NumRound       int       // Number of boosting rounds
	LearningRate   float64   // Shrinkage applied to each tree
	MaxDepth       int       // Maximum tree depth
	MinDataInLeaf  int       // Minimum samples per leaf
	Lambda         float64   // L2 regularization on leaf values
	MinGainToSplit float64   // Minimum gain required to split a node
	Objective      Objective // regression or binary
	EvalMetric     string    // rmse, mae, logloss or error; empty picks the objective default
	Seed           int       // Seed for fold shuffling in CV
}

// DefaultParams returns recommended parameters. Train and CV fill zero
// NumRound, LearningRate, MaxDepth, MinDataInLeaf and Objective fields from
// it; Lambda is used as given.
func DefaultParams() Params {
	return Params{
		NumRound:      10,
		LearningRate:  0.3,
		MaxDepth:      6,
		MinDataInLeaf: 1,
		Lambda:        1.0,
		Objective:     Regression,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.NumRound == 0 {
		p.NumRound = d.NumRound
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = d.MinDataInLeaf
	}
	if p.Objective == "" {
		p.Objective = d.Objective
	}
	if p.EvalMetric == "" {
		p.EvalMetric = defaultMetric(p.Objective)
	}
	return p
}

func (p Params) validate() error {
	if p.NumRound < 0 {
		return errors.NewValueError("Params", fmt.Sprintf("NumRound must be >= 0, got %d", p.NumRound))
	}
	if p.LearningRate <= 0 {
		return errors.NewValueError("Params", fmt.Sprintf("LearningRate must be > 0, got %v", p.LearningRate))
	}
	if p.MaxDepth < 1 {
		return errors.NewValueError("Params", fmt.Sprintf("MaxDepth must be >= 1, got %d", p.MaxDepth))
	}
	if p.Lambda < 0 {
		return errors.NewValueError("Params", fmt.Sprintf("Lambda must be >= 0, got %v", p.Lambda))
	}
	if p.Objective != Regression && p.Objective != Binary {
		return errors.NewValueError("Params", fmt.Sprintf("unknown objective %q", p.Objective))
	}
	if _, ok := evalMetrics[p.EvalMetric]; !ok {
		return errors.NewValueError("Params", fmt.Sprintf("unknown eval metric %q", p.EvalMetric))
	}
	return nil
}

// Dataset holds a feature matrix and its labels
type Dataset struct {
	X            *mat.Dense
	Y            *mat.VecDense
	FeatureNames []string
}

// NewDataset validates and wraps training data. featureNames may be nil.
func NewDataset(X mat.Matrix, y []float64, featureNames []string) (*Dataset, error) {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.ErrEmptyData
	}
	if len(y) != rows {
		return nil, errors.NewDimensionError("NewDataset", rows, len(y), 0)
	}
	if featureNames != nil && len(featureNames) != cols {
		return nil, errors.NewDimensionError("NewDataset", cols, len(featureNames), 1)
	}
	return &Dataset{
		X:            mat.DenseCopyOf(X),
		Y:            mat.NewVecDense(rows, append([]float64(nil), y...)),
		FeatureNames: featureNames,
	}, nil
}

// NumRows returns the number of samples
func (d *Dataset) NumRows() int {
	r, _ := d.X.Dims()
	return r
}

// NumFeatures returns the number of feature columns
func (d *Dataset) NumFeatures() int {
	_, c := d.X.Dims()
	return c
}

func (d *Dataset) subset(indices []int) *Dataset {
	cols := d.NumFeatures()
	x := mat.NewDense(len(indices), cols, nil)
	y := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		x.SetRow(i, d.X.RawRowView(idx))
		y.SetVec(i, d.Y.AtVec(idx))
	}
	return &Dataset{X: x, Y: y, FeatureNames: d.FeatureNames}
}

// splitInfo describes a candidate split
type splitInfo struct {
	Feature   int
	Threshold float64
	Gain      float64
}

// trainer grows one ensemble round by round and caches raw scores on its
// training data.
type trainer struct {
	params    Params
	data      *Dataset
	objective objectiveFunction
	model     *Model

	scores    []float64
	gradients []float64
	hessians  []float64
}

func newTrainer(params Params, data *Dataset) *trainer {
	n := data.NumRows()
	obj := newObjective(params.Objective)

	init := obj.initScore(data.Y.RawVector().Data)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = init
	}

	return &trainer{
		params:    params,
		data:      data,
		objective: obj,
		model: &Model{
			Objective:    params.Objective,
			NumFeatures:  data.NumFeatures(),
			FeatureNames: data.FeatureNames,
			InitScore:    init,
		},
		scores:    scores,
		gradients: make([]float64, n),
		hessians:  make([]float64, n),
	}
}

// boostOne adds one tree to the model
func (t *trainer) boostOne() {
	for i := range t.scores {
		y := t.data.Y.AtVec(i)
		t.gradients[i] = t.objective.gradient(t.scores[i], y)
		t.hessians[i] = t.objective.hessian(t.scores[i], y)
	}

	tree := Tree{
		TreeIndex:     len(t.model.Trees),
		ShrinkageRate: t.params.LearningRate,
	}
	root := make([]int, t.data.NumRows())
	for i := range root {
		root[i] = i
	}
	t.buildNode(&tree, root, -1, 0)
	for _, n := range tree.Nodes {
		if n.IsLeaf() {
			tree.NumLeaves++
		}
	}

	t.model.Trees = append(t.model.Trees, tree)
	for i := range t.scores {
		t.scores[i] += tree.Predict(t.data.X.RawRowView(i))
	}
}

// buildNode recursively builds tree nodes and returns the index of the node
// it created.
func (t *trainer) buildNode(tree *Tree, indices []int, parentIdx int, depth int) int {
	nodeIdx := len(tree.Nodes)

	if depth >= t.params.MaxDepth || len(indices) < 2*t.params.MinDataInLeaf {
		return t.addLeaf(tree, indices, parentIdx)
	}

	best := t.findBestSplit(indices)
	if best.Feature < 0 || best.Gain <= t.params.MinGainToSplit {
		return t.addLeaf(tree, indices, parentIdx)
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeIdx,
		ParentID:     parentIdx,
		NodeType:     NumericalNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		Gain:         best.Gain,
		Count:        len(indices),
	})

	leftIndices, rightIndices := t.splitData(indices, best)
	leftChild := t.buildNode(tree, leftIndices, nodeIdx, depth+1)
	rightChild := t.buildNode(tree, rightIndices, nodeIdx, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (t *trainer) addLeaf(tree *Tree, indices []int, parentIdx int) int {
	nodeIdx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{
		NodeID:     nodeIdx,
		ParentID:   parentIdx,
		NodeType:   LeafNode,
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.calculateLeafValue(indices),
		Count:      len(indices),
	})
	return nodeIdx
}

// findBestSplit finds the best split over all features. Feature is -1 when
// no valid split exists.
func (t *trainer) findBestSplit(indices []int) splitInfo {
	best := splitInfo{Feature: -1, Gain: -math.MaxFloat64}
	for j := 0; j < t.data.NumFeatures(); j++ {
		split := t.findBestSplitForFeature(indices, j)
		if split.Feature >= 0 && split.Gain > best.Gain {
			best = split
		}
	}
	return best
}

// findBestSplitForFeature scans sorted values of one feature
func (t *trainer) findBestSplitForFeature(indices []int, feature int) splitInfo {
	type sample struct {
		value float64
		idx   int
	}
	values := make([]sample, len(indices))
	for i, idx := range indices {
		values[i] = sample{value: t.data.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range indices {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	best := splitInfo{Feature: -1, Gain: -math.MaxFloat64}
	leftGrad, leftHess := 0.0, 0.0
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]

		if values[i].value == values[i+1].value {
			continue
		}
		leftCount := i + 1
		rightCount := len(values) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.Gain {
			best = splitInfo{
				Feature:   feature,
				Threshold: (values[i].value + values[i+1].value) / 2,
				Gain:      gain,
			}
		}
	}
	return best
}

func (t *trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda
	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)
	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *trainer) splitData(indices []int, split splitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.data.X.At(idx, split.Feature) <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

// calculateLeafValue returns the optimal leaf value with L2 regularization
func (t *trainer) calculateLeafValue(indices []int) float64 {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	const epsilon = 1e-10
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}
