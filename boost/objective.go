package boost

import (
	"math"
)

// objectiveFunction supplies first and second order gradients of a loss
type objectiveFunction interface {
	// gradient of the loss at raw score prediction
	gradient(prediction, target float64) float64
	// hessian of the loss at raw score prediction
	hessian(prediction, target float64) float64
	// initScore is the constant raw score the ensemble starts from
	initScore(targets []float64) float64
}

func newObjective(o Objective) objectiveFunction {
	if o == Binary {
		return logisticObjective{}
	}
	return l2Objective{}
}

// l2Objective implements squared error
type l2Objective struct{}

func (l2Objective) gradient(prediction, target float64) float64 {
	return prediction - target
}

func (l2Objective) hessian(_, _ float64) float64 {
	return 1.0
}

func (l2Objective) initScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

// logisticObjective implements binary log loss on raw scores
type logisticObjective struct{}

func (logisticObjective) gradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (logisticObjective) hessian(prediction, _ float64) float64 {
	p := sigmoid(prediction)
	// Keep the hessian away from zero for saturated scores
	return math.Max(p*(1.0-p), 1e-16)
}

func (logisticObjective) initScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	pos := 0.0
	for _, t := range targets {
		pos += t
	}
	p := pos / float64(len(targets))
	p = math.Min(math.Max(p, 1e-15), 1-1e-15)
	return math.Log(p / (1 - p))
}
