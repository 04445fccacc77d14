package plotting

import (
	"bytes"
	"fmt"
	"image/color"
	"sort"

	"github.com/YuminosukeSato/scigo-neptune/boost"
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// featureScore pairs a feature name with its importance
type featureScore struct {
	name  string
	score float64
}

// Importance builds a horizontal bar chart of feature importance, largest
// bar on top. Features that are never used to split are omitted. When
// maxFeatures is non-nil and positive only the top maxFeatures features are
// drawn; nil or zero draws all of them.
func Importance(model *boost.Model, maxFeatures *int, opts Options) (*plot.Plot, error) {
	if model == nil {
		return nil, errors.NewValueError("Importance", "model is nil")
	}
	if maxFeatures != nil && *maxFeatures < 0 {
		return nil, errors.NewInvalidConfigError("max_num_features", "a non-negative integer", *maxFeatures)
	}

	scores, err := model.FeatureImportance(opts.ImportanceType)
	if err != nil {
		return nil, err
	}

	var used []featureScore
	for i, s := range scores {
		if s > 0 {
			used = append(used, featureScore{name: model.FeatureName(i), score: s})
		}
	}
	if len(used) == 0 {
		return nil, errors.NewValueError("Importance", "model has no feature with non-zero importance; was it trained?")
	}

	// Ascending so that the bar drawn last (at the top) is the largest.
	sort.SliceStable(used, func(i, j int) bool { return used[i].score < used[j].score })
	if maxFeatures != nil && *maxFeatures > 0 && *maxFeatures < len(used) {
		used = used[len(used)-*maxFeatures:]
	}

	values := make(plotter.Values, len(used))
	names := make([]string, len(used))
	for i, fs := range used {
		values[i] = fs.score
		names[i] = fs.name
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel
	p.X.Min = 0

	if opts.Grid {
		p.Add(plotter.NewGrid())
	}

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, errors.Wrap(err, "build importance bars")
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	p.Add(bars)
	p.NominalY(names...)

	labels := make([]string, len(used))
	xys := make(plotter.XYs, len(used))
	for i, fs := range used {
		labels[i] = formatScore(fs.score)
		xys[i].X = fs.score
		xys[i].Y = float64(i)
	}
	valueLabels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, errors.Wrap(err, "build importance labels")
	}
	p.Add(valueLabels)

	return p, nil
}

// EncodePNG renders p into an in-memory PNG of the configured size
func EncodePNG(p *plot.Plot, opts Options) ([]byte, error) {
	w, h := opts.size()
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, errors.Wrap(err, "create png writer")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3g", v)
}
