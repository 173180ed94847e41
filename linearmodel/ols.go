package linearmodel

import (
	"errors"
	"fmt"
	"math"

	mat_ "github.com/aouyang1/go-olsdiag/mat"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// singularTol bounds |R_ii| relative to the norm of column i. Below it column i is treated as a
// linear combination of the columns before it.
const singularTol = 1e-10

// OLSRegression computes ordinary least squares using QR factorization
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64

	design  *mat.Dense
	summary *Summary
}

// NewOLSRegression initializes an ordinary least squares model ready for fitting
func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

// Fit the model according to the given training data. y is read from its first column. A rank
// deficient design fails with ErrSingularDesign rather than returning an arbitrary split of the
// coefficients between collinear columns.
func (o *OLSRegression) Fit(x, y mat.Matrix) error {
	if o.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()

	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}

	yVals := mat.Col(nil, 0, y)
	if !finite(x, yVals) {
		return ErrNonFinite
	}

	design := mat.DenseCopyOf(x)
	if o.opt.FitIntercept {
		design = mat_.AddConstant(x)
		_, n = design.Dims()
	}
	if m <= n {
		return fmt.Errorf("%d observations for %d parameters, %w", m, n, ErrTooFewObservations)
	}

	qr := new(mat.QR)
	qr.Factorize(design)

	q := new(mat.Dense)
	r := new(mat.Dense)

	qr.QTo(q)
	qr.RTo(r)

	if col := deficientColumn(design, r); col >= 0 {
		return fmt.Errorf("column %d lies in the span of the preceding columns, %w", col, ErrSingularDesign)
	}

	yT := mat.NewDense(1, m, yVals)
	yq := new(mat.Dense)
	yq.Mul(yT, q)

	c := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		c[i] = yq.At(0, i)
		for j := i + 1; j < n; j++ {
			c[i] -= c[j] * r.At(i, j)
		}
		c[i] /= r.At(i, i)
	}

	summary, err := newSummary(design, yVals, c, r, o.opt)
	if err != nil {
		return err
	}

	if o.opt.FitIntercept {
		o.intercept = c[0]
		o.coef = c[1:]
	} else {
		o.intercept = 0
		o.coef = c
	}
	o.design = design
	o.summary = summary

	return nil
}

// deficientColumn returns the first column whose diagonal entry of R is negligible against the
// column norm, or -1 if the design has full column rank
func deficientColumn(design mat.Matrix, r mat.Matrix) int {
	m, n := design.Dims()
	col := make([]float64, m)
	for i := 0; i < n; i++ {
		mat.Col(col, i, design)
		norm := floats.Norm(col, 2)
		if norm == 0 || math.Abs(r.At(i, i)) <= singularTol*norm {
			return i
		}
	}
	return -1
}

func finite(x mat.Matrix, y []float64) bool {
	m, n := x.Dims()
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			v := x.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// newSummary derives the inference statistics of a full rank fit. r is the upper triangular factor
// of the design so (X'X)^-1 = R^-1 R^-T.
func newSummary(design *mat.Dense, y, c []float64, r *mat.Dense, opt *OLSOptions) (*Summary, error) {
	m, k := design.Dims()

	fittedVec := mat.NewVecDense(m, nil)
	fittedVec.MulVec(design, mat.NewVecDense(k, c))
	fitted := fittedVec.RawVector().Data

	resid := make([]float64, m)
	floats.SubTo(resid, y, fitted)

	ssr := floats.Dot(resid, resid)
	dfResid := m - k
	sigma2 := ssr / float64(dfResid)

	rTri := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			rTri.SetTri(i, j, r.At(i, j))
		}
	}
	var rInv mat.TriDense
	if err := rInv.InverseTri(rTri); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("unable to invert triangular factor, %w: %w", ErrSingularDesign, err)
		}
	}
	var xtxInv mat.Dense
	xtxInv.Mul(&rInv, rInv.T())

	var cov mat.Dense
	switch opt.CovType {
	case CovHC1:
		var xe mat.Dense
		xe.Apply(func(i, _ int, v float64) float64 {
			return v * resid[i] * resid[i]
		}, design)

		var meat, bread mat.Dense
		meat.Mul(design.T(), &xe)
		bread.Mul(&xtxInv, &meat)
		cov.Mul(&bread, &xtxInv)
		cov.Scale(float64(m)/float64(dfResid), &cov)
	default:
		cov.Scale(sigma2, &xtxInv)
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
	tCrit := tDist.Quantile(1 - (1-opt.ConfidenceLevel)/2)

	se := make([]float64, k)
	tVals := make([]float64, k)
	pVals := make([]float64, k)
	lower := make([]float64, k)
	upper := make([]float64, k)
	for i := 0; i < k; i++ {
		se[i] = math.Sqrt(cov.At(i, i))
		tVals[i] = c[i] / se[i]
		pVals[i] = 2 * tDist.Survival(math.Abs(tVals[i]))
		lower[i] = c[i] - tCrit*se[i]
		upper[i] = c[i] + tCrit*se[i]
	}

	constIdx := 0
	if !opt.FitIntercept {
		constIdx = mat_.ConstantColumn(design)
	}
	kConst := 0
	if constIdx >= 0 {
		kConst = 1
	}
	r2 := mat_.RSquared(y, fitted, constIdx >= 0)
	adjR2 := 1 - float64(m-kConst)/float64(dfResid)*(1-r2)
	dfModel := k - kConst
	fVal, fPVal := waldF(c, &cov, constIdx, dfResid)

	ll := -float64(m) / 2.0 * (1 + math.Log(2*math.Pi*ssr/float64(m)))

	labels := make([]string, k)
	offset := 0
	if opt.FitIntercept {
		labels[0] = LabelConst
		offset = 1
	}
	for i := offset; i < k; i++ {
		labels[i] = fmt.Sprintf("x%d", i-offset+1)
	}

	return &Summary{
		Labels:          labels,
		Coef:            c,
		StdErr:          se,
		TValues:         tVals,
		PValues:         pVals,
		ConfLower:       lower,
		ConfUpper:       upper,
		Residuals:       resid,
		Fitted:          fitted,
		NObs:            m,
		DFModel:         dfModel,
		DFResid:         dfResid,
		Sigma2:          sigma2,
		RSquared:        r2,
		AdjRSquared:     adjR2,
		FValue:          fVal,
		FPValue:         fPVal,
		LogLikelihood:   ll,
		AIC:             -2*ll + 2*float64(k),
		BIC:             -2*ll + float64(k)*math.Log(float64(m)),
		CondNumber:      mat.Cond(design, 2),
		CovType:         opt.CovType,
		ConfidenceLevel: opt.ConfidenceLevel,
		HasIntercept:    constIdx >= 0,
	}, nil
}

// waldF tests that every coefficient other than the constant is zero using the supplied
// covariance. Under the non-robust covariance this is the classic regression F statistic.
func waldF(c []float64, cov mat.Matrix, constIdx, dfResid int) (float64, float64) {
	idx := make([]int, 0, len(c))
	for i := range c {
		if i != constIdx {
			idx = append(idx, i)
		}
	}
	q := len(idx)
	if q == 0 || dfResid <= 0 {
		return math.NaN(), math.NaN()
	}

	b := mat.NewVecDense(q, nil)
	v := mat.NewDense(q, q, nil)
	for i, ii := range idx {
		b.SetVec(i, c[ii])
		for j, jj := range idx {
			v.Set(i, j, cov.At(ii, jj))
		}
	}

	var vInv mat.Dense
	if err := vInv.Inverse(v); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return math.NaN(), math.NaN()
		}
	}

	var vb mat.VecDense
	vb.MulVec(&vInv, b)
	f := mat.Dot(b, &vb) / float64(q)
	if math.IsNaN(f) || f < 0 {
		return math.NaN(), math.NaN()
	}

	fDist := distuv.F{D1: float64(q), D2: float64(dfResid)}
	return f, fDist.Survival(f)
}

// Predict using the OLS model
func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if o.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	if o.summary == nil {
		return nil, ErrNotFitted
	}
	return PredictLinear(x, o.intercept, o.coef, o.opt.FitIntercept)
}

// PredictLinear computes intercept + x*coef. When fitIntercept is false the intercept is ignored
// and x is expected to carry its own constant column if any. Every predictor in this module goes
// through here so that equal coefficients always yield bit-identical predictions.
func PredictLinear(x mat.Matrix, intercept float64, coef []float64, fitIntercept bool) ([]float64, error) {
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	if fitIntercept {
		coef = append([]float64{intercept}, coef...)
		x = mat_.AddConstant(x)
	}
	n := len(coef)

	xT := x.T()
	xn, _ := xT.Dims()
	if xn != n {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, n, ErrFeatureLenMismatch)
	}
	coefMx := mat.NewDense(1, n, coef)

	var res mat.Dense
	res.Mul(coefMx, xT)
	return res.RawRowView(0), nil
}

// Score computes the coefficient of determination of the prediction
func (o *OLSRegression) Score(x, y mat.Matrix) (float64, error) {
	if o.opt == nil {
		return 0.0, ErrNoOptions
	}
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()

	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)

	return stat.RSquaredFrom(res, ySlice, nil), nil
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// Options returns a copy of the validated options the model was built with
func (o *OLSRegression) Options() OLSOptions {
	if o.opt == nil {
		return OLSOptions{}
	}
	return *o.opt
}

// Design returns a copy of the matrix the model was fit on, including the prepended constant
// column when FitIntercept is set
func (o *OLSRegression) Design() (*mat.Dense, error) {
	if o.design == nil {
		return nil, ErrNotFitted
	}
	return mat.DenseCopyOf(o.design), nil
}

// Residuals returns a copy of y - yhat over the training rows
func (o *OLSRegression) Residuals() ([]float64, error) {
	if o.summary == nil {
		return nil, ErrNotFitted
	}
	return copyFloats(o.summary.Residuals), nil
}

// Summary returns a snapshot of the fit statistics. The snapshot shares no memory with the model.
func (o *OLSRegression) Summary() (*Summary, error) {
	if o.summary == nil {
		return nil, ErrNotFitted
	}
	return o.summary.Copy(), nil
}
