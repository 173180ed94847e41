package diagnostics

import (
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-olsdiag/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// BreuschPagan runs the studentized (Koenker) Breusch-Pagan test. The squared residuals are
// regressed on the design and LM = n*R^2 is compared against chi-square with rank-1 degrees of
// freedom. A constant is added to the auxiliary regressors when the design has none.
func BreuschPagan(resid []float64, design mat.Matrix, alpha float64) (*Result, error) {
	aux, err := auxiliaryDesign(resid, design)
	if err != nil {
		return nil, err
	}
	return auxiliaryLM(hypHomoscedastic.named(NameBreuschPagan), resid, aux, alpha)
}

// White runs White's general heteroscedasticity test. The auxiliary regressors are every product
// x_i*x_j with i <= j of the design columns including the constant, which covers the levels, the
// squares and the cross products. Duplicated products only reduce the rank of the auxiliary
// regression, and with it the degrees of freedom.
func White(resid []float64, design mat.Matrix, alpha float64) (*Result, error) {
	aux, err := auxiliaryDesign(resid, design)
	if err != nil {
		return nil, err
	}
	return auxiliaryLM(hypHomoscedastic.named(NameWhite), resid, mat_.ColumnProducts(aux), alpha)
}

func auxiliaryDesign(resid []float64, design mat.Matrix) (*mat.Dense, error) {
	m, _ := design.Dims()
	if len(resid) != m {
		return nil, fmt.Errorf("got %d residuals for %d rows, %w", len(resid), m, ErrResidLenMismatch)
	}
	if err := validateResiduals(resid, 3); err != nil {
		return nil, err
	}
	if mat_.HasConstant(design) {
		return mat.DenseCopyOf(design), nil
	}
	return mat_.AddConstant(design), nil
}

// auxiliaryLM regresses the squared residuals on x which must hold a constant column
func auxiliaryLM(h hypothesis, resid []float64, x mat.Matrix, alpha float64) (*Result, error) {
	alpha, err := validateAlpha(alpha)
	if err != nil {
		return nil, err
	}

	m := len(resid)
	e2 := make([]float64, m)
	for i, r := range resid {
		e2[i] = r * r
	}

	ls, err := mat_.LeastSquares(x, e2)
	if err != nil {
		return nil, fmt.Errorf("unable to fit auxiliary regression, %w", err)
	}
	dfModel := ls.Rank - 1
	if dfModel < 1 {
		return nil, ErrNoRegressors
	}
	dfResid := m - ls.Rank

	// constant squared residuals leave no variance to explain
	r2 := 0.0
	if floats.Max(e2) != floats.Min(e2) {
		r2 = math.Max(ls.RSquared(e2, true), 0)
	}

	lm := float64(m) * r2
	lmP := distuv.ChiSquared{K: float64(dfModel)}.Survival(lm)
	res := h.result(lm, lmP, dfModel, alpha)

	if dfResid > 0 {
		f := (r2 / float64(dfModel)) / ((1 - r2) / float64(dfResid))
		res.FStatistic = f
		res.FPValue = distuv.F{D1: float64(dfModel), D2: float64(dfResid)}.Survival(f)
	}
	return &res, nil
}
