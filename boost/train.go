package boost

import (
	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
)

// EvalSet names a dataset evaluated after every round
type EvalSet struct {
	Name string
	Data *Dataset
}

// Train fits a model on dtrain for params.NumRound rounds.
//
// After each round every EvalSet is scored with params.EvalMetric and the
// results, named "<set>-<metric>" in evals order, are passed to each callback
// in order. The first callback error stops training and is returned wrapped.
//
// Example:
//
//	model, err := boost.Train(params, dtrain,
//	    []boost.EvalSet{{Name: "train", Data: dtrain}, {Name: "test", Data: dtest}},
//	    cb)
func Train(params Params, dtrain *Dataset, evals []EvalSet, callbacks ...Callback) (*Model, error) {
	if dtrain == nil {
		return nil, errors.ErrEmptyData
	}
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}
	for _, ev := range evals {
		if ev.Data == nil {
			return nil, errors.NewValueError("Train", "eval set "+ev.Name+" has no data")
		}
		if ev.Data.NumFeatures() != dtrain.NumFeatures() {
			return nil, errors.NewDimensionError("Train", dtrain.NumFeatures(), ev.Data.NumFeatures(), 1)
		}
	}

	logger := log.GetLoggerWithName("boost")
	tr := newTrainer(params, dtrain)

	for iter := 0; iter < params.NumRound; iter++ {
		tr.boostOne()

		results := make([]EvalResult, 0, len(evals))
		for _, ev := range evals {
			v, err := evaluate(tr.model, ev.Data, params.EvalMetric)
			if err != nil {
				return nil, errors.Wrapf(err, "evaluate %s at iteration %d", ev.Name, iter)
			}
			results = append(results, EvalResult{Name: ev.Name + "-" + params.EvalMetric, Value: v})
		}

		env := &CallbackEnv{
			Model:             tr.model,
			Iteration:         iter,
			BeginIteration:    0,
			EndIteration:      params.NumRound,
			EvaluationResults: results,
		}
		if err := runCallbacks(callbacks, env); err != nil {
			return nil, err
		}
		logger.Debug("Boosting round finished", log.IterationKey, iter, log.EndIterationKey, params.NumRound)
	}

	return tr.model, nil
}

func runCallbacks(callbacks []Callback, env *CallbackEnv) error {
	for _, cb := range callbacks {
		if err := cb(env); err != nil {
			return errors.Wrapf(err, "callback failed at iteration %d", env.Iteration)
		}
	}
	return nil
}
