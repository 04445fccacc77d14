// Package boost is a small gradient-boosting engine that drives a callback
// protocol once per boosting round.
//
// It trains regression trees with second-order gradient statistics (exact
// greedy splits), supports squared-error regression and binary logistic
// objectives, and offers single-model training (Train) and k-fold
// cross-validation (CV). Callbacks receive a CallbackEnv after every round;
// the final round is the one where Iteration+1 == EndIteration.
package boost

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with a numerical "<=" split
	NumericalNode
)

// Node represents a single node in a regression tree
type Node struct {
	NodeID     int      // Index of the node in Tree.Nodes
	ParentID   int      // Parent node ID (-1 for root)
	LeftChild  int      // Left child node ID (-1 if leaf)
	RightChild int      // Right child node ID (-1 if leaf)
	NodeType   NodeType // Type of the node

	// Split information (for non-leaf nodes)
	SplitFeature int     // Feature index used for splitting
	Threshold    float64 // Samples with value <= Threshold go left
	Gain         float64 // Split gain (reduction in loss)

	LeafValue float64 // Raw leaf output, before shrinkage
	Count     int     // Number of training samples that reached the node
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     // Index of the tree in ensemble
	NumLeaves     int     // Number of leaf nodes
	ShrinkageRate float64 // Learning rate applied to this tree
	Nodes         []Node  // Nodes[0] is the root
}

// Predict returns the shrunk leaf value reached by features.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	return walk(0)
}

// Objective names the training loss
type Objective string

const (
	// Regression is squared-error regression
	Regression Objective = "regression"
	// Binary is binary classification with logistic loss
	Binary Objective = "binary"
)

// Model is a trained boosting ensemble
type Model struct {
	Objective    Objective
	NumFeatures  int
	FeatureNames []string
	InitScore    float64
	Trees        []Tree
}

// NumTrees returns the number of trees in the ensemble
func (m *Model) NumTrees() int {
	return len(m.Trees)
}

// Tree returns tree i or ErrTreeIndexOutOfRange.
func (m *Model) Tree(i int) (*Tree, error) {
	if i < 0 || i >= len(m.Trees) {
		return nil, errors.Wrapf(errors.ErrTreeIndexOutOfRange, "tree %d (model has %d trees)", i, len(m.Trees))
	}
	return &m.Trees[i], nil
}

// FeatureName returns the display name of feature i. Unnamed features are
// called f0, f1, ...
func (m *Model) FeatureName(i int) string {
	if i >= 0 && i < len(m.FeatureNames) && m.FeatureNames[i] != "" {
		return m.FeatureNames[i]
	}
	return "f" + strconv.Itoa(i)
}

// PredictRaw returns the untransformed ensemble score for one sample
func (m *Model) PredictRaw(features []float64) float64 {
	score := m.InitScore
	for i := range m.Trees {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// Predict returns one prediction per row of X. Binary models return the
// probability of the positive class.
func (m *Model) Predict(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.ErrEmptyData
	}
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Predict", m.NumFeatures, cols, 1)
	}

	out := mat.NewVecDense(rows, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		out.SetVec(i, m.transform(m.PredictRaw(row)))
	}
	return out, nil
}

func (m *Model) transform(raw float64) float64 {
	if m.Objective == Binary {
		return sigmoid(raw)
	}
	return raw
}

// FeatureImportance returns one score per feature. "split" counts how many
// times the feature is used to split; "gain" sums the split gains. Scores are
// not normalized.
func (m *Model) FeatureImportance(importanceType string) ([]float64, error) {
	if importanceType != "split" && importanceType != "gain" {
		return nil, errors.NewValueError("FeatureImportance",
			fmt.Sprintf("importance type must be \"split\" or \"gain\", got %q", importanceType))
	}

	importance := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			if importanceType == "split" {
				importance[node.SplitFeature]++
			} else {
				importance[node.SplitFeature] += node.Gain
			}
		}
	}
	return importance, nil
}

// SaveModel writes the model in text format to path
func (m *Model) SaveModel(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create model file %s", path)
	}
	if _, err := m.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}

// WriteTo writes the text model format to w
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	sb.WriteString("tree\n")
	sb.WriteString("version=v1\n")
	fmt.Fprintf(&sb, "objective=%s\n", m.Objective)
	fmt.Fprintf(&sb, "max_feature_idx=%d\n", m.NumFeatures-1)
	names := make([]string, m.NumFeatures)
	for i := range names {
		names[i] = m.FeatureName(i)
	}
	fmt.Fprintf(&sb, "feature_names=%s\n", strings.Join(names, " "))
	fmt.Fprintf(&sb, "init_score=%s\n", formatFloat(m.InitScore))
	fmt.Fprintf(&sb, "tree_count=%d\n", len(m.Trees))

	for i, tree := range m.Trees {
		fmt.Fprintf(&sb, "\nTree=%d\n", i)
		fmt.Fprintf(&sb, "num_leaves=%d\n", tree.NumLeaves)
		fmt.Fprintf(&sb, "shrinkage=%s\n", formatFloat(tree.ShrinkageRate))
		writeColumn(&sb, "split_feature", tree.Nodes, func(n Node) string { return strconv.Itoa(n.SplitFeature) })
		writeColumn(&sb, "threshold", tree.Nodes, func(n Node) string { return formatFloat(n.Threshold) })
		writeColumn(&sb, "left_child", tree.Nodes, func(n Node) string { return strconv.Itoa(n.LeftChild) })
		writeColumn(&sb, "right_child", tree.Nodes, func(n Node) string { return strconv.Itoa(n.RightChild) })
		writeColumn(&sb, "split_gain", tree.Nodes, func(n Node) string { return formatFloat(n.Gain) })
		writeColumn(&sb, "leaf_value", tree.Nodes, func(n Node) string { return formatFloat(n.LeafValue) })
		writeColumn(&sb, "count", tree.Nodes, func(n Node) string { return strconv.Itoa(n.Count) })
	}

	bw := bufio.NewWriter(w)
	n, err := bw.WriteString(sb.String())
	if err != nil {
		return int64(n), errors.WithStack(err)
	}
	return int64(n), errors.WithStack(bw.Flush())
}

func writeColumn(sb *strings.Builder, key string, nodes []Node, field func(Node) string) {
	values := make([]string, len(nodes))
	for i, n := range nodes {
		values[i] = field(n)
	}
	fmt.Fprintf(sb, "%s=%s\n", key, strings.Join(values, " "))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
