// Package plotting draws boost models for upload: a feature-importance bar
// chart, per-tree drawings and Graphviz DOT source.
package plotting

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"gonum.org/v1/plot/vg"
)

// Options controls chart appearance. Unset fields take their value from
// DefaultOptions through WithDefaults.
type Options struct {
	ImportanceType string  // "split" or "gain"
	Title          string  // chart title
	XLabel         string  // x axis label of the importance chart
	YLabel         string  // y axis label of the importance chart
	Grid           bool    // draw grid lines on the importance chart
	WidthCm        float64 // image width
	HeightCm       float64 // image height
	RankDir        string  // tree layout direction, "TB" or "LR"
	YesColor       string  // "#RRGGBB" color of the branch taken when the split test holds
	NoColor        string  // "#RRGGBB" color of the other branch
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		ImportanceType: "split",
		Title:          "Feature importance",
		XLabel:         "F score",
		YLabel:         "Features",
		Grid:           true,
		WidthCm:        16,
		HeightCm:       12,
		RankDir:        "TB",
		YesColor:       "#0000FF",
		NoColor:        "#FF0000",
	}
}

// WithDefaults fills every unset field from DefaultOptions. The zero Options
// is the defaults, Grid included; otherwise Grid is kept as given.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o == (Options{}) {
		return d
	}
	if o.ImportanceType == "" {
		o.ImportanceType = d.ImportanceType
	}
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.XLabel == "" {
		o.XLabel = d.XLabel
	}
	if o.YLabel == "" {
		o.YLabel = d.YLabel
	}
	if o.WidthCm == 0 {
		o.WidthCm = d.WidthCm
	}
	if o.HeightCm == 0 {
		o.HeightCm = d.HeightCm
	}
	if o.RankDir == "" {
		o.RankDir = d.RankDir
	}
	if o.YesColor == "" {
		o.YesColor = d.YesColor
	}
	if o.NoColor == "" {
		o.NoColor = d.NoColor
	}
	return o
}

// optionPrefix names plot options in InvalidConfig errors
const optionPrefix = "plot_options."

// ParseOptions builds Options from a loosely typed map, such as one decoded
// from YAML or JSON, on top of DefaultOptions. Unknown keys and values of
// the wrong type are rejected with an InvalidConfigError.
func ParseOptions(m map[string]any) (Options, error) {
	opts := DefaultOptions()

	// Sorted so that the reported error does not depend on map order.
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := m[key]
		var err error
		switch key {
		case "importance_type":
			opts.ImportanceType, err = asString(key, v)
		case "title":
			opts.Title, err = asString(key, v)
		case "xlabel":
			opts.XLabel, err = asString(key, v)
		case "ylabel":
			opts.YLabel, err = asString(key, v)
		case "grid":
			b, ok := v.(bool)
			if !ok {
				err = errors.NewInvalidConfigError(optionPrefix+key, "a bool", v)
			}
			opts.Grid = b
		case "width_cm":
			opts.WidthCm, err = asNumber(key, v)
		case "height_cm":
			opts.HeightCm, err = asNumber(key, v)
		case "rankdir":
			opts.RankDir, err = asString(key, v)
		case "yes_color":
			opts.YesColor, err = asString(key, v)
		case "no_color":
			opts.NoColor, err = asString(key, v)
		default:
			err = errors.NewInvalidConfigError(optionPrefix+key, "one of "+strings.Join(knownKeys, ", "), v)
		}
		if err != nil {
			return Options{}, err
		}
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

var knownKeys = []string{
	"importance_type", "title", "xlabel", "ylabel", "grid",
	"width_cm", "height_cm", "rankdir", "yes_color", "no_color",
}

// Validate checks value ranges
func (o Options) Validate() error {
	if o.ImportanceType != "split" && o.ImportanceType != "gain" {
		return errors.NewInvalidConfigError(optionPrefix+"importance_type", `"split" or "gain"`, o.ImportanceType)
	}
	if o.WidthCm <= 0 {
		return errors.NewInvalidConfigError(optionPrefix+"width_cm", "a positive number", o.WidthCm)
	}
	if o.HeightCm <= 0 {
		return errors.NewInvalidConfigError(optionPrefix+"height_cm", "a positive number", o.HeightCm)
	}
	if o.RankDir != "TB" && o.RankDir != "LR" {
		return errors.NewInvalidConfigError(optionPrefix+"rankdir", `"TB" or "LR"`, o.RankDir)
	}
	if _, err := parseHexColor(o.YesColor); err != nil {
		return errors.NewInvalidConfigError(optionPrefix+"yes_color", "a #RRGGBB color", o.YesColor)
	}
	if _, err := parseHexColor(o.NoColor); err != nil {
		return errors.NewInvalidConfigError(optionPrefix+"no_color", "a #RRGGBB color", o.NoColor)
	}
	return nil
}

func (o Options) size() (vg.Length, vg.Length) {
	return vg.Length(o.WidthCm) * vg.Centimeter, vg.Length(o.HeightCm) * vg.Centimeter
}

func asString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewInvalidConfigError(optionPrefix+key, "a string", v)
	}
	return s, nil
}

func asNumber(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, errors.NewInvalidConfigError(optionPrefix+key, "a number", v)
	}
}

func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
