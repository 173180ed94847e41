// Package diagnostics tests the residuals of a fitted regression for heteroscedasticity,
// autocorrelation and departures from normality. Every test is a pure function of the residuals and
// optionally the design matrix, so tests can run in any order.
package diagnostics

import (
	"errors"
	"fmt"
	"math"

	"github.com/aouyang1/go-olsdiag/errs"
)

// DefaultAlpha is the significance level of every decision unless set otherwise
const DefaultAlpha = 0.05

var (
	ErrInvalidAlpha       = errors.New("alpha must be in (0, 1)")
	ErrResidLenMismatch   = fmt.Errorf("residuals and design have different lengths, %w", errs.ErrShape)
	ErrFittedLenMismatch  = fmt.Errorf("residuals and fitted values have different lengths, %w", errs.ErrShape)
	ErrNoRegressors       = fmt.Errorf("auxiliary regression needs at least one non-constant regressor, %w", errs.ErrShape)
	ErrTooFewObservations = fmt.Errorf("not enough residuals for the test, %w", errs.ErrUnderdetermined)
	ErrConstantResiduals  = fmt.Errorf("residuals have zero variance, %w", errs.ErrNumeric)
	ErrInvalidLags        = errors.New("number of lags must be at least 1 and less than the number of residuals")
	ErrUnknownLagPolicy   = errors.New("unknown lag policy")
	ErrNonFiniteResiduals = fmt.Errorf("residuals must be finite, %w", errs.ErrData)
)

// Test names
const (
	NameBreuschPagan = "Breusch-Pagan"
	NameWhite        = "White"
	NameLjungBox     = "Ljung-Box"
	NameNormality    = "Anderson-Darling"
	NameJarqueBera   = "Jarque-Bera"
)

// Result is the outcome of a single hypothesis test against alpha. FStatistic and FPValue are NaN
// for tests without an F form.
type Result struct {
	Test       string
	Null       string
	Statistic  float64
	PValue     float64
	FStatistic float64
	FPValue    float64
	DF         int
	Alpha      float64
	Reject     bool
	Conclusion string
}

// Decide rejects the null hypothesis when p <= alpha. A p-value exactly at alpha rejects.
func Decide(p, alpha float64) bool {
	return p <= alpha
}

type hypothesis struct {
	test     string
	null     string
	accepted string
	rejected string
}

var (
	hypHomoscedastic = hypothesis{
		null:     "residual variance is constant",
		accepted: "no heteroscedasticity",
		rejected: "heteroscedasticity present",
	}
	hypIndependent = hypothesis{
		test:     NameLjungBox,
		null:     "residuals are independently distributed",
		accepted: "no autocorrelation",
		rejected: "autocorrelation present",
	}
	hypNormal = hypothesis{
		null:     "residuals are normally distributed",
		accepted: "residuals consistent with normal",
		rejected: "residuals not normal",
	}
)

func (h hypothesis) named(test string) hypothesis {
	h.test = test
	return h
}

func (h hypothesis) result(stat, pval float64, df int, alpha float64) Result {
	res := Result{
		Test:       h.test,
		Null:       h.null,
		Statistic:  stat,
		PValue:     pval,
		FStatistic: math.NaN(),
		FPValue:    math.NaN(),
		DF:         df,
		Alpha:      alpha,
		Reject:     Decide(pval, alpha),
	}
	if res.Reject {
		res.Conclusion = fmt.Sprintf("p-value %.4g <= %.3g, reject H0: %s", pval, alpha, h.rejected)
	} else {
		res.Conclusion = fmt.Sprintf("p-value %.4g > %.3g, fail to reject H0: %s", pval, alpha, h.accepted)
	}
	return res
}

func validateAlpha(alpha float64) (float64, error) {
	if alpha == 0 {
		return DefaultAlpha, nil
	}
	if alpha < 0 || alpha >= 1 || math.IsNaN(alpha) {
		return 0, fmt.Errorf("got %.3f, %w", alpha, ErrInvalidAlpha)
	}
	return alpha, nil
}

func validateResiduals(resid []float64, minObs int) error {
	if len(resid) < minObs {
		return fmt.Errorf("got %d, need at least %d, %w", len(resid), minObs, ErrTooFewObservations)
	}
	for _, r := range resid {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return ErrNonFiniteResiduals
		}
	}
	return nil
}
