package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// logLossEps は確率を [eps, 1-eps] にクリップしてlog(0)を避けるための値
const logLossEps = 1e-15

// LogLoss は二値分類の交差エントロピー損失を計算する。
// yPredは陽性クラスの確率。
func LogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("LogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := math.Min(math.Max(yPred.AtVec(i), logLossEps), 1-logLossEps)
		y := yTrue.AtVec(i)
		sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return sum / float64(n), nil
}

// ErrorRate は確率を0.5で二値化したときの誤分類率を計算する
func ErrorRate(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ErrorRate", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	wrong := 0
	for i := 0; i < n; i++ {
		label := 0.0
		if yPred.AtVec(i) > 0.5 {
			label = 1.0
		}
		if label != yTrue.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}
