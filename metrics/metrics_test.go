package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRegressionMetrics(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(yTrue, yPred *mat.VecDense) (float64, error)
		yTrue     *mat.VecDense
		yPred     *mat.VecDense
		want      float64
		tolerance float64
		wantErr   bool
	}{
		{
			name:      "MSE simple case",
			fn:        MSE,
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.25,
			tolerance: 1e-10,
		},
		{
			name:      "RMSE simple case",
			fn:        RMSE,
			yTrue:     mat.NewVecDense(4, []float64{1.0, 2.0, 3.0, 4.0}),
			yPred:     mat.NewVecDense(4, []float64{1.5, 2.5, 2.5, 3.5}),
			want:      0.5,
			tolerance: 1e-10,
		},
		{
			name:      "MAE larger errors",
			fn:        MAE,
			yTrue:     mat.NewVecDense(3, []float64{10.0, 20.0, 30.0}),
			yPred:     mat.NewVecDense(3, []float64{12.0, 18.0, 33.0}),
			want:      7.0 / 3.0,
			tolerance: 1e-10,
		},
		{
			name:    "dimension mismatch",
			fn:      RMSE,
			yTrue:   mat.NewVecDense(3, []float64{1.0, 2.0, 3.0}),
			yPred:   mat.NewVecDense(2, []float64{1.0, 2.0}),
			wantErr: true,
		},
		{
			name:    "empty vectors",
			fn:      MAE,
			yTrue:   &mat.VecDense{},
			yPred:   &mat.VecDense{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLoss(t *testing.T) {
	yTrue := mat.NewVecDense(2, []float64{1, 0})
	yPred := mat.NewVecDense(2, []float64{0.9, 0.2})

	got, err := LogLoss(yTrue, yPred)
	if err != nil {
		t.Fatalf("LogLoss failed: %v", err)
	}
	want := -(math.Log(0.9) + math.Log(0.8)) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("LogLoss = %v, want %v", got, want)
	}

	// 確率0や1でも有限値になること
	clipped, err := LogLoss(mat.NewVecDense(1, []float64{1}), mat.NewVecDense(1, []float64{0}))
	if err != nil {
		t.Fatalf("LogLoss failed: %v", err)
	}
	if math.IsInf(clipped, 0) || math.IsNaN(clipped) {
		t.Errorf("LogLoss should be finite, got %v", clipped)
	}
}

func TestErrorRate(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 0, 1, 0})
	yPred := mat.NewVecDense(4, []float64{0.8, 0.3, 0.4, 0.6})

	got, err := ErrorRate(yTrue, yPred)
	if err != nil {
		t.Fatalf("ErrorRate failed: %v", err)
	}
	if got != 0.5 {
		t.Errorf("ErrorRate = %v, want 0.5", got)
	}
}
