// Package linearmodel fits ordinary least squares regressions with the inference statistics needed
// to read a regression summary: standard errors, t and p-values, confidence intervals and model
// level fit measures.
package linearmodel

import (
	"gonum.org/v1/gonum/mat"
)

// Model is a linear regression that can be fit and used for inference
type Model interface {
	Fit(x, y mat.Matrix) error
	Predict(x mat.Matrix) ([]float64, error)
	Score(x, y mat.Matrix) (float64, error)
	Intercept() float64
	Coef() []float64
}

var _ Model = (*OLSRegression)(nil)
