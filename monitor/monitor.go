// Package monitor exports boost training to a tracking session.
//
// The callback returned by New logs every evaluation result after every
// boosting round. On the final round it also uploads the trained model, a
// feature-importance chart and drawings of selected trees:
//
//	session, _ := tracking.NewDirSession(afero.NewOsFs(), "runs")
//	cb, err := monitor.New(session, monitor.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	model, err := boost.Train(params, dtrain, evals, cb)
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/scigo-neptune/boost"
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
	"github.com/YuminosukeSato/scigo-neptune/plotting"
	"github.com/YuminosukeSato/scigo-neptune/tracking"
	"go.uber.org/multierr"
)

// Channel and artifact names used on the final round
const (
	ModelArtifact     = "bst.model"
	ImportanceChannel = "feature_importance"
	ImportanceImage   = "feature_importance"
	TreeChannel       = "trees"
)

// CVModelArtifact names the artifact of fold i
func CVModelArtifact(i int) string {
	return fmt.Sprintf("cv-fold-%d-bst.model", i)
}

// TreeImage names the image of tree i
func TreeImage(i int) string {
	return fmt.Sprintf("tree_%d", i)
}

// Option configures the exporter
type Option func(*exporter)

// WithLogger sets the logger. The default is the package logger named
// "monitor".
func WithLogger(l log.Logger) Option {
	return func(e *exporter) { e.logger = l }
}

type exporter struct {
	session   tracking.Session
	cfg       Config
	logger    log.Logger
	removeAll func(path string) error
}

// New returns a callback that exports training to session. It fails with a
// NoActiveSessionError when session is nil or not running, and with an
// InvalidConfigError when cfg does not validate. Unset plot options and an
// empty TempDir take their defaults. No tracking call is made
// in either case.
func New(session tracking.Session, cfg Config, opts ...Option) (boost.Callback, error) {
	if session == nil || !session.Running() {
		return nil, errors.NewNoActiveSessionError("monitor.New")
	}
	if cfg.TempDir == "" {
		cfg.TempDir = "."
	}
	cfg.PlotOptions = cfg.PlotOptions.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.TreeIndices = append([]int(nil), cfg.TreeIndices...)

	e := &exporter{
		session:   session,
		cfg:       cfg,
		logger:    log.GetLoggerWithName("monitor"),
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(log.SessionIDKey, session.ID())
	return e.callback, nil
}

// NewFromMap is New with options parsed by ConfigFromMap
func NewFromMap(session tracking.Session, options map[string]any, opts ...Option) (boost.Callback, error) {
	if session == nil || !session.Running() {
		return nil, errors.NewNoActiveSessionError("monitor.NewFromMap")
	}
	cfg, err := ConfigFromMap(options)
	if err != nil {
		return nil, err
	}
	return New(session, cfg, opts...)
}

func (e *exporter) callback(env *boost.CallbackEnv) error {
	for _, r := range env.EvaluationResults {
		if err := e.session.LogMetric(r.Name, r.Value); err != nil {
			return errors.NewUploadError(errors.UploadMetric, r.Name, err)
		}
	}
	e.logger.Debug("Logged evaluation results",
		log.IterationKey, env.Iteration,
		log.EndIterationKey, env.EndIteration,
		log.MetricsKey, len(env.EvaluationResults),
	)

	if !env.IsFinal() {
		return nil
	}
	return e.exportFinal(env)
}

// exportFinal uploads models, the importance chart and trees. Files live in
// one temporary directory that is removed before returning.
func (e *exporter) exportFinal(env *boost.CallbackEnv) error {
	start := time.Now()
	if !e.cfg.LogModel && !e.cfg.LogImportance && len(e.cfg.TreeIndices) == 0 {
		return nil
	}

	dir, err := os.MkdirTemp(e.cfg.TempDir, "neptune-boost-")
	if err != nil {
		return errors.Wrapf(err, "create temporary directory in %s", e.cfg.TempDir)
	}
	defer func() {
		if rmErr := e.removeAll(dir); rmErr != nil {
			errors.Warn(errors.NewCleanupWarning(dir, rmErr))
		}
	}()

	if e.cfg.LogModel {
		if err := e.logModels(env, dir); err != nil {
			return err
		}
	}
	if e.cfg.LogImportance {
		if err := e.logImportance(env.Model); err != nil {
			return err
		}
	}
	if len(e.cfg.TreeIndices) > 0 {
		if err := e.logTrees(env.Model, dir); err != nil {
			return err
		}
	}

	e.logger.Info("Exported final training state",
		log.IterationKey, env.Iteration,
		log.TempDirKey, dir,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *exporter) logModels(env *boost.CallbackEnv, dir string) error {
	if len(env.CVFolds) == 0 {
		return e.logModel(env.Model, dir, ModelArtifact)
	}
	for i, fold := range env.CVFolds {
		if err := e.logModel(fold.Model, dir, CVModelArtifact(i)); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) logModel(model *boost.Model, dir, name string) error {
	if model == nil {
		return errors.NewValueError("monitor", "no model to export as "+name)
	}
	path := filepath.Join(dir, name)
	if err := model.SaveModel(path); err != nil {
		return errors.Wrapf(err, "save %s", name)
	}
	if err := e.session.LogArtifact(path, name); err != nil {
		return errors.NewUploadError(errors.UploadArtifact, name, err)
	}
	e.logger.Info("Exported model", log.ArtifactKey, name)
	return nil
}

func (e *exporter) logImportance(model *boost.Model) error {
	var png []byte
	err := errors.SafeExecute("importance chart", func() error {
		p, err := plotting.Importance(model, e.cfg.MaxFeatures, e.cfg.PlotOptions)
		if err != nil {
			return err
		}
		png, err = plotting.EncodePNG(p, e.cfg.PlotOptions)
		return err
	})
	if err != nil {
		return errors.NewRenderError("feature importance", -1, err)
	}

	img := tracking.Image{Name: ImportanceImage, Data: png}
	if err := e.session.LogImage(ImportanceChannel, img); err != nil {
		return errors.NewUploadError(errors.UploadImage, ImportanceImage, err)
	}
	e.logger.Info("Exported feature importance",
		log.ImageChannelKey, ImportanceChannel,
		log.ImageNameKey, ImportanceImage,
	)
	return nil
}

// logTrees renders and uploads each configured tree. Render failures follow
// cfg.TreeFailure; upload failures always stop.
func (e *exporter) logTrees(model *boost.Model, dir string) error {
	var renderErrs error
	for _, i := range e.cfg.TreeIndices {
		name := TreeImage(i)

		var path string
		err := errors.SafeExecute("tree drawing", func() error {
			var err error
			path, err = plotting.RenderTree(model, i, dir, name, e.cfg.PlotOptions)
			return err
		})
		if err != nil {
			renderErr := errors.NewRenderError("tree", i, err)
			if e.cfg.TreeFailure == AbortOnTreeError {
				return renderErr
			}
			e.logger.Error("Tree drawing failed", renderErr, log.TreeIndexKey, i)
			renderErrs = multierr.Append(renderErrs, renderErr)
			continue
		}

		if err := e.session.LogImage(TreeChannel, tracking.Image{Name: name, Path: path}); err != nil {
			return multierr.Append(renderErrs, errors.NewUploadError(errors.UploadImage, name, err))
		}
		e.logger.Debug("Exported tree", log.TreeIndexKey, i, log.ImageNameKey, name)
	}
	return renderErrs
}
