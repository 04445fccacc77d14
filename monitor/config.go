package monitor

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/plotting"
)

// TreeFailurePolicy decides what happens when a tree drawing fails
type TreeFailurePolicy int

const (
	// ContinueOnTreeError renders the remaining trees and returns every
	// failure combined into one error.
	ContinueOnTreeError TreeFailurePolicy = iota
	// AbortOnTreeError stops at the first failing tree.
	AbortOnTreeError
)

func (p TreeFailurePolicy) String() string {
	switch p {
	case ContinueOnTreeError:
		return "continue"
	case AbortOnTreeError:
		return "abort"
	default:
		return fmt.Sprintf("TreeFailurePolicy(%d)", int(p))
	}
}

// Config selects what is exported on the final boosting round
type Config struct {
	// LogModel uploads the trained model, one artifact per fold in CV mode.
	LogModel bool
	// LogImportance uploads the feature-importance chart.
	LogImportance bool
	// MaxFeatures limits the chart to the top features. Nil or zero shows
	// all features.
	MaxFeatures *int
	// TreeIndices lists the trees to draw. Empty draws none.
	TreeIndices []int
	// PlotOptions controls the chart and tree drawings.
	PlotOptions plotting.Options
	// TempDir is the parent of the scoped temporary directory. Empty means
	// the current directory.
	TempDir string
	// TreeFailure decides how tree drawing failures are handled.
	TreeFailure TreeFailurePolicy
}

// DefaultConfig exports the model, the importance chart and the first tree
func DefaultConfig() Config {
	return Config{
		LogModel:      true,
		LogImportance: true,
		TreeIndices:   []int{0},
		PlotOptions:   plotting.DefaultOptions(),
		TempDir:       ".",
		TreeFailure:   ContinueOnTreeError,
	}
}

// Validate checks value ranges
func (c Config) Validate() error {
	if c.MaxFeatures != nil && *c.MaxFeatures < 0 {
		return errors.NewInvalidConfigError("max_num_features", "a non-negative int", *c.MaxFeatures)
	}
	for _, i := range c.TreeIndices {
		if i < 0 {
			return errors.NewInvalidConfigError("log_tree", "a list of non-negative int", c.TreeIndices)
		}
	}
	if c.TreeFailure != ContinueOnTreeError && c.TreeFailure != AbortOnTreeError {
		return errors.NewInvalidConfigError("tree_failure", `"continue" or "abort"`, c.TreeFailure)
	}
	return c.PlotOptions.Validate()
}

// ConfigFromMap builds a Config from loosely typed options on top of
// DefaultConfig. Recognized keys:
//
//	log_model         bool
//	log_importance    bool
//	max_num_features  int or nil
//	log_tree          list of int, or nil for no trees
//	temp_dir          string
//	tree_failure      "continue" or "abort"
//	plot_options      map of plotting options
//
// Numbers decoded from JSON arrive as float64 and are accepted when
// integral.
func ConfigFromMap(m map[string]any) (Config, error) {
	cfg := DefaultConfig()

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := m[key]
		switch key {
		case "log_model", "log_importance":
			b, ok := v.(bool)
			if !ok {
				return Config{}, errors.NewInvalidConfigError(key, "bool", v)
			}
			if key == "log_model" {
				cfg.LogModel = b
			} else {
				cfg.LogImportance = b
			}
		case "max_num_features":
			if v == nil {
				cfg.MaxFeatures = nil
				continue
			}
			n, ok := asInt(v)
			if !ok {
				return Config{}, errors.NewInvalidConfigError(key, "int", v)
			}
			cfg.MaxFeatures = &n
		case "log_tree":
			trees, err := asIntList(key, v)
			if err != nil {
				return Config{}, err
			}
			cfg.TreeIndices = trees
		case "temp_dir":
			s, ok := v.(string)
			if !ok {
				return Config{}, errors.NewInvalidConfigError(key, "string", v)
			}
			cfg.TempDir = s
		case "tree_failure":
			s, _ := v.(string)
			switch s {
			case "continue":
				cfg.TreeFailure = ContinueOnTreeError
			case "abort":
				cfg.TreeFailure = AbortOnTreeError
			default:
				return Config{}, errors.NewInvalidConfigError(key, `"continue" or "abort"`, v)
			}
		case "plot_options":
			pm, ok := v.(map[string]any)
			if !ok {
				return Config{}, errors.NewInvalidConfigError(key, "map of plotting options", v)
			}
			opts, err := plotting.ParseOptions(pm)
			if err != nil {
				return Config{}, err
			}
			cfg.PlotOptions = opts
		default:
			return Config{}, errors.NewInvalidConfigError(key, "a known exporter option", v)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n), true
		}
	}
	return 0, false
}

// asIntList accepts nil (no trees), []int and []any holding integers.
func asIntList(key string, v any) ([]int, error) {
	switch list := v.(type) {
	case nil:
		return nil, nil
	case []int:
		return append([]int(nil), list...), nil
	case []any:
		out := make([]int, len(list))
		for i, item := range list {
			n, ok := asInt(item)
			if !ok {
				return nil, errors.NewInvalidConfigError(fmt.Sprintf("%s[%d]", key, i), "int", item)
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, errors.NewInvalidConfigError(key, "list of int", v)
	}
}
