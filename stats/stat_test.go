package stats

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/aouyang1/go-olsdiag/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func columns(cols ...[]float64) *mat.Dense {
	m, n := len(cols[0]), len(cols)
	x := mat.NewDense(m, n, nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	return x
}

func TestVarianceInflationFactor(t *testing.T) {
	testData := map[string]struct {
		x         *mat.Dense
		labels    []string
		expected  []float64
		collinear []string
		err       error
	}{
		"orthogonal": {
			x: columns(
				[]float64{1, -1, 1, -1},
				[]float64{1, 1, -1, -1},
			),
			labels:   []string{"a", "b"},
			expected: []float64{1, 1},
		},
		"perfectly correlated": {
			x: columns(
				[]float64{1, 2, 3, 4, 5},
				[]float64{2, 4, 6, 8, 10},
			),
			labels:    []string{"a", "b"},
			expected:  []float64{math.Inf(1), math.Inf(1)},
			collinear: []string{"a", "b"},
		},
		"underlying sum": {
			x: columns(
				[]float64{1, 0, 2, 5, 3},
				[]float64{0, 1, 4, 1, 2},
				[]float64{1, 1, 6, 6, 5},
			),
			labels:    []string{"a", "b", "c"},
			expected:  []float64{math.Inf(1), math.Inf(1), math.Inf(1)},
			collinear: []string{"a", "b", "c"},
		},
		"single feature": {
			x:      columns([]float64{1, 2, 3}),
			labels: []string{"a"},
			err:    ErrMinimumFeatures,
		},
		"single observation": {
			x:      columns([]float64{1}, []float64{2}),
			labels: []string{"a", "b"},
			err:    ErrFeatureLen,
		},
		"label mismatch": {
			x:      columns([]float64{1, 2}, []float64{2, 1}),
			labels: []string{"a"},
			err:    ErrFeatureLenMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := VarianceInflationFactor(td.x, td.labels)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			if td.collinear != nil {
				var cerr *CollinearityError
				require.True(t, errors.As(err, &cerr))
				assert.ErrorIs(t, err, errs.ErrNumeric)
				assert.Equal(t, td.collinear, cerr.Labels)
			} else {
				require.Nil(t, err)
			}

			require.Len(t, res.Factors, len(td.expected))
			for i, f := range res.Factors {
				assert.Equal(t, td.labels[i], f.Label)
				if math.IsInf(td.expected[i], 1) {
					assert.True(t, math.IsInf(f.Value, 1), "%s vif %f", f.Label, f.Value)
					continue
				}
				assert.InDelta(t, td.expected[i], f.Value, 1e-9)
			}
		})
	}
}

func TestVarianceInflationFactorWithConstant(t *testing.T) {
	a := []float64{1.2, 2.5, 2.9, 4.1, 5.3, 5.8, 7.4, 8.0}
	b := []float64{3.1, 1.7, 4.4, 2.0, 5.9, 3.3, 6.2, 4.8}
	x, labels := WithConstant(columns(a, b), []string{"a", "b"})
	assert.Equal(t, []string{LabelConst, "a", "b"}, labels)

	res, err := VarianceInflationFactor(x, labels)
	require.Nil(t, err)

	// with two regressors each vif is 1/(1-r^2) of their correlation
	corr, err := CorrelationMatrix(columns(a, b), []string{"a", "b"})
	require.Nil(t, err)
	r, err := corr.At("a", "b")
	require.Nil(t, err)

	vifA, ok := res.Get("a")
	require.True(t, ok)
	vifB, ok := res.Get("b")
	require.True(t, ok)
	assert.InDelta(t, 1/(1-r*r), vifA, 1e-9)
	assert.InDelta(t, 1/(1-r*r), vifB, 1e-9)

	for _, f := range res.Factors {
		assert.GreaterOrEqual(t, f.Value, 1.0, f.Label)
	}

	above := res.Above(1.0)
	require.Len(t, above, 2)
	for _, f := range above {
		assert.NotEqual(t, LabelConst, f.Label)
	}
	assert.Empty(t, res.Above(1e6))

	_, ok = res.Get("missing")
	assert.False(t, ok)
}

func TestCorrelationMatrix(t *testing.T) {
	x := columns(
		[]float64{1, 2, 3, 4},
		[]float64{2, 4, 6, 8},
		[]float64{4, 3, 2, 1},
		[]float64{5, 5, 5, 5},
	)
	corr, err := CorrelationMatrix(x, []string{"a", "b", "c", "d"})
	require.Nil(t, err)

	testData := map[string]struct {
		a, b     string
		expected float64
	}{
		"diagonal":      {"a", "a", 1},
		"positive":      {"a", "b", 1},
		"negative":      {"a", "c", -1},
		"symmetric":     {"c", "a", -1},
		"zero variance": {"a", "d", math.NaN()},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			r, err := corr.At(td.a, td.b)
			require.Nil(t, err)
			if math.IsNaN(td.expected) {
				assert.True(t, math.IsNaN(r))
				return
			}
			assert.InDelta(t, td.expected, r, 1e-12)
		})
	}

	_, err = corr.At("a", "missing")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	pairs := corr.Pairs(0.99)
	require.Len(t, pairs, 3)
	for _, p := range pairs {
		assert.InDelta(t, 1.0, math.Abs(p.Value), 1e-12)
	}

	_, err = CorrelationMatrix(x, []string{"a"})
	assert.ErrorIs(t, err, errs.ErrShape)
}

func TestTablePrint(t *testing.T) {
	x := columns(
		[]float64{1, 2, 3, 4, 5},
		[]float64{2, 4, 6, 8, 10},
	)
	res, err := VarianceInflationFactor(x, []string{"a", "b"})
	require.Error(t, err)

	var buf bytes.Buffer
	require.Nil(t, res.TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "Variance Inflation Factors:")
	assert.Contains(t, buf.String(), "inf")

	corr, err := CorrelationMatrix(x, []string{"a", "b"})
	require.Nil(t, err)
	buf.Reset()
	require.Nil(t, corr.TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "1.000")
}
