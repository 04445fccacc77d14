package plotting

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/boost"
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// nodeLabel is the text shown for a node in drawings and DOT output
func nodeLabel(model *boost.Model, tree *boost.Tree, n *boost.Node) string {
	if n.IsLeaf() {
		return "leaf=" + formatFloat(n.LeafValue*tree.ShrinkageRate)
	}
	return model.FeatureName(n.SplitFeature) + "<" + formatFloat(n.Threshold)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.6g", v)
}

// layout assigns every node a (rank, depth) position. Leaves get
// consecutive ranks left to right; internal nodes sit midway between their
// children.
func layout(tree *boost.Tree) []plotter.XY {
	pos := make([]plotter.XY, len(tree.Nodes))
	next := 0.0
	var walk func(id, depth int) float64
	walk = func(id, depth int) float64 {
		n := &tree.Nodes[id]
		if n.IsLeaf() {
			pos[id] = plotter.XY{X: next, Y: float64(depth)}
			next++
			return pos[id].X
		}
		l := walk(n.LeftChild, depth+1)
		r := walk(n.RightChild, depth+1)
		pos[id] = plotter.XY{X: (l + r) / 2, Y: float64(depth)}
		return pos[id].X
	}
	if len(tree.Nodes) > 0 {
		walk(0, 0)
	}
	return pos
}

// orient maps a (rank, depth) position to plot coordinates
func orient(p plotter.XY, rankdir string) plotter.XY {
	if rankdir == "LR" {
		return plotter.XY{X: p.Y, Y: -p.X}
	}
	return plotter.XY{X: p.X, Y: -p.Y}
}

// TreePlot draws tree index of model. Branches taken when the split test
// holds use YesColor, the others NoColor.
func TreePlot(model *boost.Model, index int, opts Options) (*plot.Plot, error) {
	if model == nil {
		return nil, errors.NewValueError("TreePlot", "model is nil")
	}
	tree, err := model.Tree(index)
	if err != nil {
		return nil, err
	}
	if len(tree.Nodes) == 0 {
		return nil, errors.NewValueError("TreePlot", fmt.Sprintf("tree %d has no nodes", index))
	}
	yes, err := parseHexColor(opts.YesColor)
	if err != nil {
		return nil, errors.Wrap(err, "yes_color")
	}
	no, err := parseHexColor(opts.NoColor)
	if err != nil {
		return nil, errors.Wrap(err, "no_color")
	}

	raw := layout(tree)
	xys := make(plotter.XYs, len(raw))
	for i := range raw {
		xys[i] = orient(raw[i], opts.RankDir)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("tree %d", index)
	p.HideAxes()

	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if n.IsLeaf() {
			continue
		}
		left, err := plotter.NewLine(plotter.XYs{xys[i], xys[n.LeftChild]})
		if err != nil {
			return nil, errors.Wrap(err, "build edge")
		}
		left.LineStyle.Color = yes
		left.LineStyle.Width = vg.Points(1.5)

		right, err := plotter.NewLine(plotter.XYs{xys[i], xys[n.RightChild]})
		if err != nil {
			return nil, errors.Wrap(err, "build edge")
		}
		right.LineStyle.Color = no
		right.LineStyle.Width = vg.Points(1.5)

		p.Add(left, right)
	}

	nodes, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, errors.Wrap(err, "build nodes")
	}
	nodes.GlyphStyle.Shape = draw.CircleGlyph{}
	nodes.GlyphStyle.Radius = vg.Points(3)
	p.Add(nodes)

	texts := make([]string, len(tree.Nodes))
	for i := range tree.Nodes {
		texts[i] = nodeLabel(model, tree, &tree.Nodes[i])
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, errors.Wrap(err, "build node labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
	}
	labels.Offset = vg.Point{Y: vg.Points(5)}
	p.Add(labels)

	// Leave room for labels around the outermost nodes.
	p.X.Min, p.X.Max = p.X.Min-0.5, p.X.Max+0.5
	p.Y.Min, p.Y.Max = p.Y.Min-0.5, p.Y.Max+0.5

	return p, nil
}

// RenderTree draws tree index of model and saves it as <dir>/<name>.png.
// It returns the path of the written image.
func RenderTree(model *boost.Model, index int, dir, name string, opts Options) (string, error) {
	p, err := TreePlot(model, index, opts)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".png")
	w, h := opts.size()
	if err := p.Save(w, h, path); err != nil {
		return "", errors.Wrapf(err, "save tree %d", index)
	}
	return path, nil
}

// TreeDOT returns Graphviz source for tree index of model
func TreeDOT(model *boost.Model, index int, opts Options) (string, error) {
	if model == nil {
		return "", errors.NewValueError("TreeDOT", "model is nil")
	}
	tree, err := model.Tree(index)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("digraph {\n")
	fmt.Fprintf(&sb, "    graph [ rankdir=%s ]\n", opts.RankDir)
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		fmt.Fprintf(&sb, "    %d [ label=%q ]\n", i, nodeLabel(model, tree, n))
		if n.IsLeaf() {
			continue
		}
		fmt.Fprintf(&sb, "    %d -> %d [label=\"yes\" color=%q]\n", i, n.LeftChild, opts.YesColor)
		fmt.Fprintf(&sb, "    %d -> %d [label=\"no\" color=%q]\n", i, n.RightChild, opts.NoColor)
	}
	sb.WriteString("}\n")
	return sb.String(), nil
}
