// Package mat collects the dense matrix helpers shared by the fitter, the collinearity screener
// and the diagnostic auxiliary regressions.
package mat

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-olsdiag/errs"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmpty       = fmt.Errorf("empty matrix, %w", errs.ErrShape)
	ErrColMismatch = fmt.Errorf("column size mismatch, %w", errs.ErrShape)
	ErrRowMismatch = fmt.Errorf("row size mismatch, %w", errs.ErrShape)
	ErrSVDFailed   = fmt.Errorf("singular value decomposition did not converge, %w", errs.ErrNumeric)
)

// NewDenseFromArray converts row major nested slices into a dense matrix. Every row must have the
// same number of columns.
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)
	if m == 0 {
		return nil, ErrEmpty
	}

	n := len(x[0])
	for i, row := range x {
		if len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
	}
	if n == 0 {
		return nil, ErrEmpty
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// AddConstant returns a copy of x with a column of ones prepended
func AddConstant(x mat.Matrix) *mat.Dense {
	m, _ := x.Dims()
	ones := make([]float64, m)
	floats.AddConst(1.0, ones)
	onesMx := mat.NewDense(m, 1, ones)

	var xWithOnes mat.Dense
	xWithOnes.Augment(onesMx, x)
	return &xWithOnes
}

// HasConstant reports whether any column of x holds the same non-zero value in every row
func HasConstant(x mat.Matrix) bool {
	return ConstantColumn(x) >= 0
}

// ConstantColumn returns the index of the first column holding the same non-zero value in every
// row or -1 if there is none
func ConstantColumn(x mat.Matrix) int {
	m, n := x.Dims()
	for j := 0; j < n; j++ {
		first := x.At(0, j)
		if first == 0 {
			continue
		}
		constant := true
		for i := 1; i < m; i++ {
			if x.At(i, j) != first {
				constant = false
				break
			}
		}
		if constant {
			return j
		}
	}
	return -1
}

// ColumnProducts returns every product x_i*x_j for i <= j in upper triangular order. When x holds
// a constant column this yields the levels, squares and cross products of the remaining columns.
func ColumnProducts(x mat.Matrix) *mat.Dense {
	m, n := x.Dims()
	nProd := n * (n + 1) / 2
	out := mat.NewDense(m, nProd, nil)

	c := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			for r := 0; r < m; r++ {
				out.Set(r, c, x.At(r, i)*x.At(r, j))
			}
			c++
		}
	}
	return out
}

// LstSq is a rank aware least squares solution
type LstSq struct {
	Coef   []float64
	Fitted []float64
	Rank   int
}

// LeastSquares solves min ||y - x*b|| with the thin singular value decomposition, discarding
// singular values below the numerical rank threshold. Unlike the QR fit this never fails on a
// rank deficient matrix, which auxiliary regressions need.
func LeastSquares(x mat.Matrix, y []float64) (*LstSq, error) {
	m, n := x.Dims()
	if m == 0 || n == 0 {
		return nil, ErrEmpty
	}
	if len(y) != m {
		return nil, fmt.Errorf("matrix has %d rows and target has %d, %w", m, len(y), ErrRowMismatch)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, ErrSVDFailed
	}
	s := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := s[0] * float64(max(m, n)) * epsilon
	rank := 0
	for _, sv := range s {
		if sv > tol {
			rank++
		}
	}

	coef := make([]float64, n)
	fitted := make([]float64, m)
	uCol := make([]float64, m)
	vCol := make([]float64, n)
	for j := 0; j < rank; j++ {
		mat.Col(uCol, j, &u)
		mat.Col(vCol, j, &v)
		proj := floats.Dot(uCol, y)
		floats.AddScaled(fitted, proj, uCol)
		floats.AddScaled(coef, proj/s[j], vCol)
	}

	return &LstSq{
		Coef:   coef,
		Fitted: fitted,
		Rank:   rank,
	}, nil
}

// epsilon is the float64 machine epsilon
var epsilon = math.Nextafter(1, 2) - 1

// RSquared computes the coefficient of determination of the fitted values against y. Centered uses
// the deviation from the mean as the total sum of squares, otherwise the raw sum of squares.
func (l *LstSq) RSquared(y []float64, centered bool) float64 {
	return RSquared(y, l.Fitted, centered)
}

// RSquared computes 1 - SSR/TSS for y against fitted
func RSquared(y, fitted []float64, centered bool) float64 {
	var mean float64
	if centered {
		mean = floats.Sum(y) / float64(len(y))
	}
	var ssr, tss float64
	for i := range y {
		res := y[i] - fitted[i]
		ssr += res * res
		dev := y[i] - mean
		tss += dev * dev
	}
	if tss == 0 {
		if ssr == 0 {
			return 1.0
		}
		return math.Inf(-1)
	}
	return 1 - ssr/tss
}
