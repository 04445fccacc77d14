package boost

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/scigo-neptune/pkg/errors"
	"github.com/YuminosukeSato/scigo-neptune/pkg/log"
)

// Fold holds the train/test row indices of one fold
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits rows into NSplits contiguous folds, optionally shuffled.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// Split generates train/test indices for each fold. The first n%NSplits
// folds get one extra test row.
func (kf KFold) Split(nSamples int) []Fold {
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := rand.New(rand.NewPCG(uint64(kf.RandomSeed), uint64(kf.RandomSeed)))
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits

	start := 0
	for i := 0; i < kf.NSplits; i++ {
		testSize := foldSize
		if i < remainder {
			testSize++
		}
		end := start + testSize

		test := append([]int(nil), indices[start:end]...)
		train := make([]int, 0, nSamples-testSize)
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)

		folds[i] = Fold{TrainIndices: train, TestIndices: test}
		start = end
	}
	return folds
}

// CVResult holds the per-round aggregated metrics of a CV run
type CVResult struct {
	// Names lists the metric names in reporting order
	Names []string
	// History maps a metric name to one value per round
	History map[string][]float64
	// Folds holds the trained fold models
	Folds []CVPack
}

// CV trains one model per fold in lock step. After each round the callbacks
// receive "train-<metric>-mean", "train-<metric>-std", "test-<metric>-mean"
// and "test-<metric>-std", with Model set to fold 0's model and CVFolds set
// to every fold.
func CV(params Params, dtrain *Dataset, nfold int, callbacks ...Callback) (*CVResult, error) {
	if dtrain == nil {
		return nil, errors.ErrEmptyData
	}
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}
	if nfold < 2 || nfold > dtrain.NumRows() {
		return nil, errors.NewValueError("CV",
			fmt.Sprintf("nfold must be in [2, %d], got %d", dtrain.NumRows(), nfold))
	}

	logger := log.GetLoggerWithName("boost")
	splits := KFold{NSplits: nfold, Shuffle: true, RandomSeed: params.Seed}.Split(dtrain.NumRows())

	trainers := make([]*trainer, nfold)
	packs := make([]CVPack, nfold)
	for i, f := range splits {
		trainSet := dtrain.subset(f.TrainIndices)
		testSet := dtrain.subset(f.TestIndices)
		trainers[i] = newTrainer(params, trainSet)
		packs[i] = CVPack{Model: trainers[i].model, Train: trainSet, Test: testSet}
	}

	result := &CVResult{History: make(map[string][]float64), Folds: packs}
	for _, set := range []string{"train", "test"} {
		base := set + "-" + params.EvalMetric
		result.Names = append(result.Names, base+"-mean", base+"-std")
	}

	for iter := 0; iter < params.NumRound; iter++ {
		trainScores := make([]float64, nfold)
		testScores := make([]float64, nfold)
		for i, tr := range trainers {
			tr.boostOne()
			var err error
			if trainScores[i], err = evaluate(tr.model, packs[i].Train, params.EvalMetric); err != nil {
				return nil, errors.Wrapf(err, "evaluate fold %d at iteration %d", i, iter)
			}
			if testScores[i], err = evaluate(tr.model, packs[i].Test, params.EvalMetric); err != nil {
				return nil, errors.Wrapf(err, "evaluate fold %d at iteration %d", i, iter)
			}
		}

		trainMean, trainStd := meanStd(trainScores)
		testMean, testStd := meanStd(testScores)
		results := []EvalResult{
			{Name: result.Names[0], Value: trainMean},
			{Name: result.Names[1], Value: trainStd},
			{Name: result.Names[2], Value: testMean},
			{Name: result.Names[3], Value: testStd},
		}
		for _, r := range results {
			result.History[r.Name] = append(result.History[r.Name], r.Value)
		}

		env := &CallbackEnv{
			Model:             packs[0].Model,
			CVFolds:           packs,
			Iteration:         iter,
			BeginIteration:    0,
			EndIteration:      params.NumRound,
			EvaluationResults: results,
		}
		if err := runCallbacks(callbacks, env); err != nil {
			return nil, err
		}
		logger.Debug("CV round finished", log.IterationKey, iter, log.EndIterationKey, params.NumRound)
	}

	return result, nil
}

// meanStd returns the mean and population standard deviation
func meanStd(values []float64) (float64, float64) {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
