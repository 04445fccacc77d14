package boost

import (
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
)

// EvalResult is one named evaluation value, e.g. "train-rmse".
type EvalResult struct {
	Name  string
	Value float64
}

// CVPack is one cross-validation fold
type CVPack struct {
	Model *Model
	Train *Dataset
	Test  *Dataset
}

// CallbackEnv contains the environment passed to callbacks after each round.
// Callbacks must treat it as read-only.
type CallbackEnv struct {
	// Model is the model being trained. In CV mode it is fold 0's model.
	Model *Model
	// CVFolds is non-empty only in cross-validation mode
	CVFolds []CVPack

	Iteration      int // 0-based round that just finished
	BeginIteration int
	EndIteration   int // total number of rounds

	// EvaluationResults in evaluation-set order
	EvaluationResults []EvalResult
}

// IsFinal reports whether this is the last round of training
func (env *CallbackEnv) IsFinal() bool {
	return env.Iteration+1 == env.EndIteration
}

// Models returns the models that exist at this round: one per fold in CV
// mode, otherwise the single model.
func (env *CallbackEnv) Models() []*Model {
	if len(env.CVFolds) == 0 {
		return []*Model{env.Model}
	}
	models := make([]*Model, len(env.CVFolds))
	for i := range env.CVFolds {
		models[i] = env.CVFolds[i].Model
	}
	return models
}

// Callback is called after each boosting round. A non-nil error aborts
// training.
type Callback func(env *CallbackEnv) error

// RecordEvaluation appends every evaluation value to history
func RecordEvaluation(history map[string][]float64) Callback {
	return func(env *CallbackEnv) error {
		for _, r := range env.EvaluationResults {
			history[r.Name] = append(history[r.Name], r.Value)
		}
		return nil
	}
}

// LogEvaluation logs evaluation results every period rounds and on the final
// round.
func LogEvaluation(logger log.Logger, period int) Callback {
	if period < 1 {
		period = 1
	}
	return func(env *CallbackEnv) error {
		if env.Iteration%period != 0 && !env.IsFinal() {
			return nil
		}
		fields := []any{log.IterationKey, env.Iteration, log.EndIterationKey, env.EndIteration}
		for _, r := range env.EvaluationResults {
			fields = append(fields, r.Name, r.Value)
		}
		logger.Info("Evaluation", fields...)
		return nil
	}
}
