// Package model fits the two per-request models used for sales-loss risk:
// an L2-regularised logistic classifier for loss probability and an
// ordinary least squares line for revenue, both over a single sentiment
// feature.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Logistic is a fitted one-feature logistic model.
type Logistic struct {
	Intercept float64 `json:"intercept"`
	Coef      float64 `json:"coef"`
}

// Probability returns P(y=1 | x).
func (l Logistic) Probability(x float64) float64 {
	return sigmoid(l.Intercept + l.Coef*x)
}

// FitLogistic minimises C*Σ logloss + ½w² with C = 1. The intercept is not
// penalised. Labels must be 0 or 1 and contain both classes.
func FitLogistic(x, y []float64) (Logistic, error) {
	if len(x) != len(y) {
		return Logistic{}, ErrLengthMismatch
	}
	if len(x) == 0 {
		return Logistic{}, ErrNoTrainingData
	}

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			b, w := p[0], p[1]
			loss := 0.5 * w * w
			for i := range x {
				z := b + w*x[i]
				loss += softplus(z) - y[i]*z
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			b, w := p[0], p[1]
			grad[0], grad[1] = 0, w
			for i := range x {
				r := sigmoid(b+w*x[i]) - y[i]
				grad[0] += r
				grad[1] += r * x[i]
			}
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-8,
		MajorIterations:   500,
	}

	result, err := optimize.Minimize(problem, []float64{0, 0}, settings, &optimize.BFGS{})
	if result == nil {
		return Logistic{}, fmt.Errorf("logistic fit: %w", err)
	}
	b, w := result.X[0], result.X[1]
	if math.IsNaN(b) || math.IsNaN(w) || math.IsInf(b, 0) || math.IsInf(w, 0) {
		return Logistic{}, errors.New("logistic fit diverged")
	}
	// A line-search stall near the optimum still leaves a usable location.
	if err != nil && (len(result.Gradient) < 2 || math.Hypot(result.Gradient[0], result.Gradient[1]) > 1e-3) {
		return Logistic{}, fmt.Errorf("logistic fit: %w", err)
	}
	return Logistic{Intercept: b, Coef: w}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
