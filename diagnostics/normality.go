package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// QQPoint pairs a theoretical standard normal quantile with the sample quantile at the same
// plotting position
type QQPoint struct {
	Theoretical float64
	Sample      float64
}

// NormalityResult is the Anderson-Darling decision together with the points of a normal QQ plot.
// QQCorrelation near 1 means the points lie on a straight line.
type NormalityResult struct {
	Result
	QQ            []QQPoint
	QQCorrelation float64
}

// Normality runs the Anderson-Darling test for a normal distribution with estimated mean and
// variance. The p-value follows D'Agostino and Stephens using the small sample adjusted statistic.
func Normality(resid []float64, alpha float64) (*NormalityResult, error) {
	alpha, err := validateAlpha(alpha)
	if err != nil {
		return nil, err
	}
	if err := validateResiduals(resid, 3); err != nil {
		return nil, err
	}

	n := len(resid)
	sorted := make([]float64, n)
	copy(sorted, resid)
	sort.Float64s(sorted)

	mean, sd := stat.MeanStdDev(sorted, nil)
	if sd == 0 {
		return nil, ErrConstantResiduals
	}

	a2 := 0.0
	for i := 0; i < n; i++ {
		lo := (sorted[i] - mean) / sd
		hi := (sorted[n-1-i] - mean) / sd
		a2 += float64(2*i+1) * (logCDF(lo) + logCDF(-hi))
	}
	a2 = -float64(n) - a2/float64(n)

	res := &NormalityResult{
		Result: hypNormal.named(NameNormality).result(a2, andersonDarlingPValue(a2, n), 0, alpha),
		QQ:     make([]QQPoint, n),
	}

	theoretical := make([]float64, n)
	for i := 0; i < n; i++ {
		theoretical[i] = distuv.UnitNormal.Quantile(float64(i+1) / float64(n+1))
		res.QQ[i] = QQPoint{Theoretical: theoretical[i], Sample: sorted[i]}
	}
	res.QQCorrelation = stat.Correlation(theoretical, sorted, nil)
	return res, nil
}

// logCDF is log(Phi(z)) evaluated on the tail that keeps precision
func logCDF(z float64) float64 {
	if z > 0 {
		return math.Log1p(-distuv.UnitNormal.Survival(z))
	}
	return math.Log(distuv.UnitNormal.CDF(z))
}

func andersonDarlingPValue(a2 float64, n int) float64 {
	nf := float64(n)
	a := a2 * (1 + 0.75/nf + 2.25/(nf*nf))

	var p float64
	switch {
	case a >= 0.6:
		p = math.Exp(1.2937 - 5.709*a + 0.0186*a*a)
	case a > 0.34:
		p = math.Exp(0.9177 - 4.279*a - 1.38*a*a)
	case a > 0.2:
		p = 1 - math.Exp(-8.318+42.796*a-59.938*a*a)
	default:
		p = 1 - math.Exp(-13.436+101.14*a-223.73*a*a)
	}
	return math.Min(math.Max(p, 0), 1)
}

// JarqueBeraResult adds the sample moments behind the Jarque-Bera statistic
type JarqueBeraResult struct {
	Result
	Skew     float64
	Kurtosis float64
}

// JarqueBera tests normality from the sample skewness S and kurtosis K,
// JB = n/6 (S^2 + (K-3)^2/4), against chi-square with 2 degrees of freedom
func JarqueBera(resid []float64, alpha float64) (*JarqueBeraResult, error) {
	alpha, err := validateAlpha(alpha)
	if err != nil {
		return nil, err
	}
	if err := validateResiduals(resid, 3); err != nil {
		return nil, err
	}

	n := float64(len(resid))
	mean := floats.Sum(resid) / n
	var m2, m3, m4 float64
	for _, r := range resid {
		d := r - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	m2 /= n
	m3 /= n
	m4 /= n
	if m2 == 0 {
		return nil, ErrConstantResiduals
	}

	skew := m3 / math.Pow(m2, 1.5)
	kurt := m4 / (m2 * m2)
	jb := n / 6 * (skew*skew + (kurt-3)*(kurt-3)/4)
	p := distuv.ChiSquared{K: 2}.Survival(jb)

	return &JarqueBeraResult{
		Result:   hypNormal.named(NameJarqueBera).result(jb, p, 2, alpha),
		Skew:     skew,
		Kurtosis: kurt,
	}, nil
}

// meanTolerance bounds |mean| relative to the residual root mean square
const meanTolerance = 1e-8

// roundoffFactor scales n·eps·max(|ŷ|, |e|), the rounding floor of a residual sum, to absorb
// the error of the least squares solve itself
const roundoffFactor = 1e3

// MeanResult reports the residual mean. An OLS fit with an intercept has residuals that sum to
// zero, so a mean beyond tolerance points to a fitting fault rather than a property of the data.
// Tolerance is the larger of meanTolerance·RMS and the rounding floor set by the fitted values.
type MeanResult struct {
	Mean         float64
	RMS          float64
	Tolerance    float64
	HasIntercept bool
	Fault        bool
	Conclusion   string
}

// ResidualMean computes the mean of the residuals. fitted carries the fitted values of the same
// observations and sets the scale of the rounding tolerance, nil falls back to the residuals.
func ResidualMean(resid, fitted []float64, hasIntercept bool) (*MeanResult, error) {
	if err := validateResiduals(resid, 1); err != nil {
		return nil, err
	}
	if fitted != nil && len(fitted) != len(resid) {
		return nil, fmt.Errorf("got %d fitted values for %d residuals, %w", len(fitted), len(resid), ErrFittedLenMismatch)
	}
	n := float64(len(resid))
	res := &MeanResult{
		Mean:         floats.Sum(resid) / n,
		RMS:          math.Sqrt(floats.Dot(resid, resid) / n),
		HasIntercept: hasIntercept,
	}

	scale := maxAbs(resid)
	if s := maxAbs(fitted); s > scale {
		scale = s
	}
	res.Tolerance = math.Max(meanTolerance*res.RMS, roundoffFactor*n*epsilon*scale)

	switch {
	case !hasIntercept:
		res.Conclusion = fmt.Sprintf("mean %.4g, no intercept so a non-zero mean is expected", res.Mean)
	case math.Abs(res.Mean) > res.Tolerance:
		res.Fault = true
		res.Conclusion = fmt.Sprintf("mean %.4g is not zero for a fit with intercept, estimator fault", res.Mean)
	default:
		res.Conclusion = fmt.Sprintf("mean %.4g is zero within tolerance", res.Mean)
	}
	return res, nil
}

// epsilon is the float64 machine epsilon
var epsilon = math.Nextafter(1, 2) - 1

func maxAbs(x []float64) float64 {
	var m float64
	for _, v := range x {
		if a := math.Abs(v); a > m && !math.IsInf(a, 0) {
			m = a
		}
	}
	return m
}
