package boost

import (
	"github.com/YuminosukeSato/scigo-neptune/metrics"
	"gonum.org/v1/gonum/mat"
)

type metricFunc func(yTrue, yPred *mat.VecDense) (float64, error)

var evalMetrics = map[string]metricFunc{
	"rmse":    metrics.RMSE,
	"mae":     metrics.MAE,
	"logloss": metrics.LogLoss,
	"error":   metrics.ErrorRate,
}

func defaultMetric(o Objective) string {
	if o == Binary {
		return "logloss"
	}
	return "rmse"
}

// evaluate scores model on data with the named metric
func evaluate(model *Model, data *Dataset, metric string) (float64, error) {
	pred, err := model.Predict(data.X)
	if err != nil {
		return 0, err
	}
	return evalMetrics[metric](data.Y, pred)
}
