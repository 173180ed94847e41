package diagnostics

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// LagPolicy decides how many lags the Ljung-Box test covers for a residual series of length n
type LagPolicy string

const (
	// LagRuleOfThumb uses min(10, n/5)
	LagRuleOfThumb LagPolicy = "rule_of_thumb"

	// LagLibraryDefault uses min(n/2-2, 40)
	LagLibraryDefault LagPolicy = "library_default"

	// LagFixed uses the configured number of lags
	LagFixed LagPolicy = "fixed"
)

// Lags resolves the number of lags for n residuals. fixed is only read by LagFixed.
func (p LagPolicy) Lags(n, fixed int) (int, error) {
	var lags int
	switch p {
	case LagRuleOfThumb, "":
		lags = min(10, n/5)
	case LagLibraryDefault:
		lags = min(n/2-2, 40)
	case LagFixed:
		lags = fixed
	default:
		return 0, fmt.Errorf("%q, %w", p, ErrUnknownLagPolicy)
	}
	if lags < 1 || lags >= n {
		return 0, fmt.Errorf("%s policy gives %d lags for %d residuals, %w", p, lags, n, ErrInvalidLags)
	}
	return lags, nil
}

// LagStat is the Ljung-Box statistic accumulated up to a single lag
type LagStat struct {
	Lag    int
	ACF    float64
	Q      float64
	PValue float64
}

// LjungBoxResult holds the decision over all tested lags along with the per lag statistics. The
// embedded Result reports the lag with the smallest p-value.
type LjungBoxResult struct {
	Result
	Lags []LagStat
}

// LjungBox tests the residuals for autocorrelation up to lags. For each h in 1..lags
// Q_h = n(n+2) sum_{k<=h} acf_k^2/(n-k) is compared against chi-square with h degrees of freedom.
// The null of independence is rejected when the smallest p-value across lags is at or below alpha.
func LjungBox(resid []float64, lags int, alpha float64) (*LjungBoxResult, error) {
	alpha, err := validateAlpha(alpha)
	if err != nil {
		return nil, err
	}
	if err := validateResiduals(resid, 2); err != nil {
		return nil, err
	}
	n := len(resid)
	if lags < 1 || lags >= n {
		return nil, fmt.Errorf("got %d lags for %d residuals, %w", lags, n, ErrInvalidLags)
	}

	acf, err := autocorrelation(resid, lags)
	if err != nil {
		return nil, err
	}

	stats := make([]LagStat, lags)
	minIdx := 0
	q := 0.0
	for k := 1; k <= lags; k++ {
		q += acf[k] * acf[k] / float64(n-k)
		qk := q * float64(n*(n+2))
		stats[k-1] = LagStat{
			Lag:    k,
			ACF:    acf[k],
			Q:      qk,
			PValue: distuv.ChiSquared{K: float64(k)}.Survival(qk),
		}
		if stats[k-1].PValue < stats[minIdx].PValue {
			minIdx = k - 1
		}
	}

	best := stats[minIdx]
	return &LjungBoxResult{
		Result: hypIndependent.result(best.Q, best.PValue, best.Lag, alpha),
		Lags:   stats,
	}, nil
}

// autocorrelation returns the sample autocorrelation of the demeaned series for lags 0..maxLag
func autocorrelation(x []float64, maxLag int) ([]float64, error) {
	n := len(x)
	mean := floats.Sum(x) / float64(n)
	dev := make([]float64, n)
	copy(dev, x)
	floats.AddConst(-mean, dev)

	variance := floats.Dot(dev, dev)
	if variance == 0 {
		return nil, ErrConstantResiduals
	}

	acf := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		acf[k] = floats.Dot(dev[k:], dev[:n-k]) / variance
	}
	return acf, nil
}

// DurbinWatson computes sum((e_t - e_{t-1})^2)/sum(e_t^2). Values near 2 indicate no first order
// autocorrelation, below 2 positive and above 2 negative autocorrelation.
func DurbinWatson(resid []float64) (float64, error) {
	if err := validateResiduals(resid, 2); err != nil {
		return 0, err
	}

	num := 0.0
	for i := 1; i < len(resid); i++ {
		d := resid[i] - resid[i-1]
		num += d * d
	}
	den := floats.Dot(resid, resid)
	if den == 0 {
		return 0, ErrConstantResiduals
	}
	return num / den, nil
}
