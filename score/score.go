// Package score evaluates predictions against held out actuals
package score

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-olsdiag/errs"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrResLenMismatch = fmt.Errorf("predicted and actual have different lengths, %w", errs.ErrShape)
	ErrEmpty          = fmt.Errorf("no values to score, %w", errs.ErrShape)
	ErrNonFinite      = fmt.Errorf("scored values must be finite, %w", errs.ErrData)
)

// Scores tracks the evaluation scores of a prediction
type Scores struct {
	MAE  float64 `json:"mean_absolute_error"`
	MSE  float64 `json:"mean_squared_error"`
	RMSE float64 `json:"root_mean_squared_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates every score given the predicted and actual values
func NewScores(predicted, actual []float64) (*Scores, error) {
	mae, err := MAE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute error, %w", err)
	}
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MAE:  mae,
		MSE:  mse,
		RMSE: math.Sqrt(mse),
		R2:   rs,
	}, nil
}

func validate(predicted, actual []float64) error {
	if len(predicted) != len(actual) {
		return fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	if len(actual) == 0 {
		return ErrEmpty
	}
	if !finite(predicted) || !finite(actual) {
		return ErrNonFinite
	}
	return nil
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MAE computes the mean absolute error, sum(|y-yhat|)/n. A score of 0 means a perfect match.
func MAE(predicted, actual []float64) (float64, error) {
	if err := validate(predicted, actual); err != nil {
		return 0, err
	}
	return floats.Distance(predicted, actual, 1) / float64(len(actual)), nil
}

// MSE computes the mean squared error, sum((y-yhat)^2)/n. A score of 0 means a perfect match.
func MSE(predicted, actual []float64) (float64, error) {
	if err := validate(predicted, actual); err != nil {
		return 0, err
	}
	mse := 0.0
	for i := 0; i < len(actual); i++ {
		d := actual[i] - predicted[i]
		mse += d * d
	}
	return mse / float64(len(actual)), nil
}

// RMSE is the square root of MSE in the units of the target
func RMSE(predicted, actual []float64) (float64, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// RSquared computes 1 - SS_res/SS_tot where 1.0 means a perfect fit and a negative value means the
// prediction is worse than the mean of actual. A constant actual scores 1 when matched exactly and
// -Inf otherwise.
func RSquared(predicted, actual []float64) (float64, error) {
	if err := validate(predicted, actual); err != nil {
		return 0, err
	}

	mean := floats.Sum(actual) / float64(len(actual))
	var ssRes, ssTot float64
	for i := 0; i < len(actual); i++ {
		d := actual[i] - predicted[i]
		ssRes += d * d
		c := actual[i] - mean
		ssTot += c * c
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1.0, nil
		}
		return math.Inf(-1), nil
	}
	return 1 - ssRes/ssTot, nil
}
