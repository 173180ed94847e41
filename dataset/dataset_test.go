package dataset

import (
	"bytes"
	"math"
	"testing"

	"github.com/aouyang1/go-olsdiag/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annual(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New(
		[]int{1970, 1971, 1972, 1973, 1974},
		[]string{"gdp", "cpi", "unemployment"},
		[][]float64{
			{1.0, 2.0, 3.0, 4.0, 5.0},
			{10.0, math.NaN(), 12.0, 13.0, 14.0},
			{5.5, 5.1, 4.9, 4.2, 4.0},
		},
	)
	require.Nil(t, err)
	return ds
}

func TestNew(t *testing.T) {
	testData := map[string]struct {
		index   []int
		names   []string
		columns [][]float64
		err     error
	}{
		"valid":             {[]int{1, 2}, []string{"a"}, [][]float64{{1, 2}}, nil},
		"empty":             {nil, []string{"a"}, [][]float64{{}}, ErrNoData},
		"non-monotonic":     {[]int{2, 1}, []string{"a"}, [][]float64{{1, 2}}, ErrNonMonotonic},
		"repeated index":    {[]int{1, 1}, []string{"a"}, [][]float64{{1, 2}}, ErrNonMonotonic},
		"duplicate column":  {[]int{1, 2}, []string{"a", "a"}, [][]float64{{1, 2}, {3, 4}}, ErrDuplicateColumn},
		"short column":      {[]int{1, 2}, []string{"a"}, [][]float64{{1}}, ErrColumnLenMismatch},
		"names and columns": {[]int{1, 2}, []string{"a", "b"}, [][]float64{{1, 2}}, ErrColumnLenMismatch},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := New(td.index, td.names, td.columns)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
		})
	}
}

func TestRename(t *testing.T) {
	ds := annual(t)

	testData := map[string]struct {
		mapping  map[string]string
		strict   bool
		expected []string
		err      error
	}{
		"rename":          {map[string]string{"gdp": "GDP"}, true, []string{"GDP", "cpi", "unemployment"}, nil},
		"strict unknown":  {map[string]string{"gdp": "GDP", "rates": "r"}, true, nil, ErrUnknownColumn},
		"lenient unknown": {map[string]string{"gdp": "GDP", "rates": "r"}, false, []string{"GDP", "cpi", "unemployment"}, nil},
		"collision":       {map[string]string{"gdp": "cpi"}, true, nil, ErrDuplicateColumn},
		"swap":            {map[string]string{"gdp": "cpi", "cpi": "gdp"}, true, []string{"cpi", "gdp", "unemployment"}, nil},
		"empty mapping":   {map[string]string{}, true, []string{"gdp", "cpi", "unemployment"}, nil},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ds.Rename(td.mapping, td.strict)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.ErrorIs(t, err, errs.ErrData)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, res.Columns())
		})
	}
	assert.Equal(t, []string{"gdp", "cpi", "unemployment"}, ds.Columns())
}

func TestFilterRange(t *testing.T) {
	ds := annual(t)

	res, err := ds.FilterRange(1971, 1973)
	require.Nil(t, err)
	assert.Equal(t, []int{1971, 1972, 1973}, res.Index())
	gdp, err := res.Column("gdp")
	require.Nil(t, err)
	assert.Equal(t, []float64{2, 3, 4}, gdp)

	_, err = ds.FilterRange(1980, 1990)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = ds.FilterRange(1973, 1971)
	assert.ErrorIs(t, err, ErrInvalidRange)

	assert.Equal(t, 5, ds.Len())
}

func TestSelectDrop(t *testing.T) {
	ds := annual(t)

	res, err := ds.Select("unemployment", "gdp")
	require.Nil(t, err)
	assert.Equal(t, []string{"unemployment", "gdp"}, res.Columns())

	res, err = ds.Drop("cpi")
	require.Nil(t, err)
	assert.Equal(t, []string{"gdp", "unemployment"}, res.Columns())

	_, err = ds.Select("missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = ds.Drop("missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
	_, err = ds.Drop("gdp", "cpi", "unemployment")
	assert.ErrorIs(t, err, ErrNoColumns)
	_, err = ds.Select()
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestDropMissing(t *testing.T) {
	ds := annual(t)

	res, err := ds.DropMissing()
	require.Nil(t, err)
	assert.Equal(t, []int{1970, 1972, 1973, 1974}, res.Index())

	res, err = ds.DropMissing("gdp")
	require.Nil(t, err)
	assert.Equal(t, 5, res.Len())

	_, err = ds.DropMissing("missing")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestDesignTarget(t *testing.T) {
	ds := annual(t)

	x, err := ds.Design([]string{"gdp", "unemployment"})
	require.Nil(t, err)
	m, n := x.Dims()
	assert.Equal(t, 5, m)
	assert.Equal(t, 2, n)
	assert.Equal(t, 4.9, x.At(2, 1))

	y, err := ds.Target("gdp")
	require.Nil(t, err)
	m, n = y.Dims()
	assert.Equal(t, 5, m)
	assert.Equal(t, 1, n)

	_, err = ds.Design([]string{"gdp", "cpi"})
	assert.ErrorIs(t, err, ErrMissingValues)
	assert.ErrorContains(t, err, "cpi at index 1971")

	_, err = ds.Target("cpi")
	assert.ErrorIs(t, err, errs.ErrData)

	_, err = ds.Design(nil)
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestRows(t *testing.T) {
	ds := annual(t)

	res, err := ds.Rows([]int{4, 0, 2})
	require.Nil(t, err)
	assert.Equal(t, []int{1970, 1972, 1974}, res.Index())

	_, err = ds.Rows([]int{5})
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = ds.Rows([]int{1, 1})
	assert.ErrorIs(t, err, ErrRowOutOfRange)
	_, err = ds.Rows(nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestColumnIsCopy(t *testing.T) {
	ds := annual(t)
	gdp, err := ds.Column("gdp")
	require.Nil(t, err)
	gdp[0] = 100

	gdp, err = ds.Column("gdp")
	require.Nil(t, err)
	assert.Equal(t, 1.0, gdp[0])

	cp := ds.Copy()
	assert.Equal(t, ds.Index(), cp.Index())
	assert.Equal(t, ds.Columns(), cp.Columns())
	assert.True(t, cp.HasColumn("cpi"))
	assert.False(t, cp.HasColumn("rates"))
}

func TestDescribe(t *testing.T) {
	ds := annual(t)
	summary, err := ds.Describe()
	require.Nil(t, err)
	require.Len(t, summary, 3)

	cpi := summary[1]
	assert.Equal(t, "cpi", cpi.Name)
	assert.Equal(t, 4, cpi.Count)
	assert.Equal(t, 1, cpi.Missing)
	assert.InDelta(t, 12.25, cpi.Mean, 1e-12)
	assert.InDelta(t, 12.5, cpi.P50, 1e-12)
	assert.InDelta(t, 10.0, cpi.Min, 1e-12)
	assert.InDelta(t, 14.0, cpi.Max, 1e-12)
	assert.InDelta(t, math.Sqrt(35.0/12.0), cpi.Std, 1e-12)

	empty, err := New([]int{1, 2}, []string{"a"}, [][]float64{{math.NaN(), math.NaN()}})
	require.Nil(t, err)
	summary, err = empty.Describe()
	require.Nil(t, err)
	assert.Equal(t, 0, summary[0].Count)
	assert.True(t, math.IsNaN(summary[0].Mean))

	var buf bytes.Buffer
	require.Nil(t, summary.TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "Describe:")
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(48, 0.2, 42)
	require.Nil(t, err)
	assert.Len(t, test, 10)
	assert.Len(t, train, 38)

	seen := make(map[int]bool)
	for _, p := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[p], "position %d repeated", p)
		seen[p] = true
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 48)
	}
	assert.Len(t, seen, 48)
	assert.IsIncreasing(t, train)
	assert.IsIncreasing(t, test)

	train2, test2, err := TrainTestSplit(48, 0.2, 42)
	require.Nil(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	testData := map[string]struct {
		n        int
		testSize float64
	}{
		"zero size":  {48, 0},
		"whole set":  {48, 1},
		"single row": {1, 0.5},
		"no train":   {2, 0.9},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, _, err := TrainTestSplit(td.n, td.testSize, 1)
			assert.ErrorIs(t, err, ErrInvalidTestSize)
		})
	}
}

func TestSplit(t *testing.T) {
	ds := annual(t)
	train, test, err := ds.Split(0.4, 7)
	require.Nil(t, err)
	assert.Equal(t, 3, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.ElementsMatch(t, ds.Index(), append(train.Index(), test.Index()...))
}
