package model

import (
	"gonum.org/v1/gonum/stat"
)

// Linear is a fitted one-feature least squares line.
type Linear struct {
	Intercept float64 `json:"intercept"`
	Slope     float64 `json:"slope"`
}

func (l Linear) Predict(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// FitLinear fits y = a + b·x. A constant feature has no defined slope, so
// the fit degrades to the mean of y with slope 0.
func FitLinear(x, y []float64) (Linear, error) {
	if len(x) != len(y) {
		return Linear{}, ErrLengthMismatch
	}
	if len(x) == 0 {
		return Linear{}, ErrNoTrainingData
	}

	_, variance := stat.MeanVariance(x, nil)
	if len(x) < 2 || variance == 0 {
		return Linear{Intercept: stat.Mean(y, nil)}, nil
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	return Linear{Intercept: alpha, Slope: beta}, nil
}
