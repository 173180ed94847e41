// Package stats screens a feature matrix for multicollinearity. It only reports pairwise
// correlations and variance inflation factors; removing columns is left to the caller.
package stats

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/aouyang1/go-olsdiag/errs"
	mat_ "github.com/aouyang1/go-olsdiag/mat"
	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

// LabelConst names the constant column added by WithConstant
const LabelConst = "const"

// collinearTol is the smallest 1-R^2 treated as a finite VIF
const collinearTol = 1e-10

var (
	ErrMinimumFeatures    = errors.New("need at least 2 features to compute VIF")
	ErrFeatureLen         = fmt.Errorf("must have at least 2 points per feature, %w", errs.ErrShape)
	ErrFeatureLenMismatch = fmt.Errorf("number of labels does not match number of features, %w", errs.ErrShape)
	ErrUnknownLabel       = errors.New("unknown feature label")
)

// CollinearityError lists the columns that are exact linear combinations of the other columns.
// Their VIF is reported as +Inf.
type CollinearityError struct {
	Labels []string
}

func (e *CollinearityError) Error() string {
	return fmt.Sprintf("perfect collinearity in columns [%s], %s", strings.Join(e.Labels, ", "), errs.ErrNumeric)
}

// Is matches the numeric error class
func (e *CollinearityError) Is(target error) bool {
	return target == errs.ErrNumeric
}

// WithConstant prepends a column of ones labeled const
func WithConstant(x mat.Matrix, labels []string) (*mat.Dense, []string) {
	out := make([]string, 0, len(labels)+1)
	out = append(out, LabelConst)
	out = append(out, labels...)
	return mat_.AddConstant(x), out
}

// VIF is the variance inflation factor of a single column
type VIF struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// VIFResult holds the VIF of every column in input order
type VIFResult struct {
	Factors []VIF `json:"factors"`
}

// Get returns the VIF of a labeled column
func (v *VIFResult) Get(label string) (float64, bool) {
	for _, f := range v.Factors {
		if f.Label == label {
			return f.Value, true
		}
	}
	return 0, false
}

// Above returns the columns whose VIF exceeds threshold sorted from the largest VIF. The constant
// column is skipped since its VIF only reflects the centering of the other columns.
func (v *VIFResult) Above(threshold float64) []VIF {
	var out []VIF
	for _, f := range v.Factors {
		if f.Label == LabelConst {
			continue
		}
		if f.Value > threshold {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// TablePrint writes one row per column
func (v *VIFResult) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sVariance Inflation Factors:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sLabel\tVIF\t\n", prefix, indent); err != nil {
		return err
	}
	for _, f := range v.Factors {
		val := fmt.Sprintf("%.3f", f.Value)
		if math.IsInf(f.Value, 1) {
			val = "inf"
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n", prefix, indent, f.Label, val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// VarianceInflationFactor computes 1/(1-R^2_i) for each column i of x where R^2_i comes from
// regressing column i on every other column. Pass x through WithConstant first to regress with an
// intercept. R^2 is centered when the other columns hold a constant and uncentered otherwise, which
// is what gives the constant column itself a VIF.
//
// Columns lying in the span of the others get +Inf. In that case the complete result is returned
// together with a *CollinearityError naming those columns.
func VarianceInflationFactor(x mat.Matrix, labels []string) (*VIFResult, error) {
	m, n := x.Dims()
	if n < 2 {
		return nil, ErrMinimumFeatures
	}
	if m < 2 {
		return nil, ErrFeatureLen
	}
	if len(labels) != n {
		return nil, fmt.Errorf("got %d labels for %d features, %w", len(labels), n, ErrFeatureLenMismatch)
	}

	res := &VIFResult{Factors: make([]VIF, n)}
	var collinear []string

	target := make([]float64, m)
	others := mat.NewDense(m, n-1, nil)
	for i := 0; i < n; i++ {
		mat.Col(target, i, x)
		c := 0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			for r := 0; r < m; r++ {
				others.Set(r, c, x.At(r, j))
			}
			c++
		}

		ls, err := mat_.LeastSquares(others, target)
		if err != nil {
			return nil, fmt.Errorf("unable to regress %s on remaining features, %w", labels[i], err)
		}
		r2 := math.Max(ls.RSquared(target, mat_.HasConstant(others)), 0)

		vif := math.Inf(1)
		if 1-r2 > collinearTol {
			vif = 1 / (1 - r2)
		} else {
			collinear = append(collinear, labels[i])
		}
		res.Factors[i] = VIF{Label: labels[i], Value: vif}
	}

	if len(collinear) > 0 {
		return res, &CollinearityError{Labels: collinear}
	}
	return res, nil
}

// Correlation is a symmetric matrix of pairwise Pearson correlations
type Correlation struct {
	Labels []string
	Matrix *mat.SymDense
}

// CorrelationMatrix computes the Pearson correlation of every pair of columns of x. Columns with
// zero variance correlate as NaN.
func CorrelationMatrix(x mat.Matrix, labels []string) (*Correlation, error) {
	m, n := x.Dims()
	if m < 2 {
		return nil, ErrFeatureLen
	}
	if len(labels) != n {
		return nil, fmt.Errorf("got %d labels for %d features, %w", len(labels), n, ErrFeatureLenMismatch)
	}

	cols := make([]mstats.Float64Data, n)
	constant := make([]bool, n)
	for j := 0; j < n; j++ {
		cols[j] = mat.Col(nil, j, x)
		sd, err := mstats.StandardDeviationPopulation(cols[j])
		if err != nil {
			return nil, fmt.Errorf("unable to compute deviation of %s, %w", labels[j], err)
		}
		constant[j] = sd == 0
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if constant[i] || constant[j] {
				corr.SetSym(i, j, math.NaN())
				continue
			}
			if i == j {
				corr.SetSym(i, j, 1.0)
				continue
			}
			r, err := mstats.Correlation(cols[i], cols[j])
			if err != nil {
				return nil, fmt.Errorf("unable to correlate %s and %s, %w", labels[i], labels[j], err)
			}
			corr.SetSym(i, j, r)
		}
	}

	out := make([]string, n)
	copy(out, labels)
	return &Correlation{Labels: out, Matrix: corr}, nil
}

// At returns the correlation between two labeled columns
func (c *Correlation) At(a, b string) (float64, error) {
	i, j := c.index(a), c.index(b)
	if i < 0 {
		return 0, fmt.Errorf("%s, %w", a, ErrUnknownLabel)
	}
	if j < 0 {
		return 0, fmt.Errorf("%s, %w", b, ErrUnknownLabel)
	}
	return c.Matrix.At(i, j), nil
}

func (c *Correlation) index(label string) int {
	for i, l := range c.Labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Pair is a pair of distinct columns and their correlation
type Pair struct {
	A, B  string
	Value float64
}

// Pairs returns the column pairs with |r| >= threshold sorted by decreasing |r|
func (c *Correlation) Pairs(threshold float64) []Pair {
	var out []Pair
	n := len(c.Labels)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := c.Matrix.At(i, j)
			if math.Abs(r) >= threshold {
				out = append(out, Pair{A: c.Labels[i], B: c.Labels[j], Value: r})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Value) > math.Abs(out[j].Value)
	})
	return out
}

// TablePrint writes the correlation matrix
func (c *Correlation) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sCorrelation:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%s\t%s\t\n", prefix, indent, strings.Join(c.Labels, "\t")); err != nil {
		return err
	}
	for i, label := range c.Labels {
		vals := make([]string, len(c.Labels))
		for j := range c.Labels {
			vals[j] = fmt.Sprintf("%.3f", c.Matrix.At(i, j))
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n", prefix, indent, label, strings.Join(vals, "\t")); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
