// Package dataset holds an annual table of numeric indicators keyed by an integer index, typically
// the year. Missing cells are NaN. Every transformation returns a new Dataset and leaves the
// receiver untouched.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/aouyang1/go-olsdiag/errs"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoData            = fmt.Errorf("no rows in dataset, %w", errs.ErrData)
	ErrNonMonotonic      = fmt.Errorf("index is not strictly increasing, %w", errs.ErrData)
	ErrColumnLenMismatch = fmt.Errorf("column has a different length than the index, %w", errs.ErrShape)
	ErrUnknownColumn     = fmt.Errorf("unknown column, %w", errs.ErrData)
	ErrDuplicateColumn   = fmt.Errorf("duplicate column, %w", errs.ErrData)
	ErrMissingValues     = fmt.Errorf("column has missing or non-finite values, %w", errs.ErrData)
	ErrRowOutOfRange     = fmt.Errorf("row position out of range, %w", errs.ErrShape)
	ErrInvalidRange      = errors.New("range start is after range end")
	ErrNoColumns         = errors.New("no columns requested")
)

// Dataset is an ordered table of float64 columns sharing a strictly increasing integer index
type Dataset struct {
	index   []int
	names   []string
	columns [][]float64
}

// New returns a Dataset copying the given index and columns. The index must be strictly increasing
// and every column must have one value per index entry.
func New(index []int, names []string, columns [][]float64) (*Dataset, error) {
	if len(index) == 0 {
		return nil, ErrNoData
	}
	if len(names) != len(columns) {
		return nil, fmt.Errorf("got %d names for %d columns, %w", len(names), len(columns), ErrColumnLenMismatch)
	}
	for i := 1; i < len(index); i++ {
		if index[i] <= index[i-1] {
			return nil, fmt.Errorf("non-monotonic at %d, %w", index[i], ErrNonMonotonic)
		}
	}

	seen := make(map[string]struct{}, len(names))
	ds := &Dataset{
		index:   slices.Clone(index),
		names:   slices.Clone(names),
		columns: make([][]float64, len(columns)),
	}
	for j, col := range columns {
		if _, exists := seen[names[j]]; exists {
			return nil, fmt.Errorf("%s, %w", names[j], ErrDuplicateColumn)
		}
		seen[names[j]] = struct{}{}
		if len(col) != len(index) {
			return nil, fmt.Errorf("%s has %d values for %d rows, %w", names[j], len(col), len(index), ErrColumnLenMismatch)
		}
		ds.columns[j] = slices.Clone(col)
	}
	return ds, nil
}

// Len is the number of rows
func (d *Dataset) Len() int {
	return len(d.index)
}

// Index returns a copy of the row index
func (d *Dataset) Index() []int {
	return slices.Clone(d.index)
}

// Columns returns the column names in order
func (d *Dataset) Columns() []string {
	return slices.Clone(d.names)
}

// HasColumn reports whether the dataset holds the named column
func (d *Dataset) HasColumn(name string) bool {
	return d.position(name) >= 0
}

// Column returns a copy of the named column
func (d *Dataset) Column(name string) ([]float64, error) {
	j := d.position(name)
	if j < 0 {
		return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
	}
	return slices.Clone(d.columns[j]), nil
}

func (d *Dataset) position(name string) int {
	return slices.Index(d.names, name)
}

// Copy returns a deep copy of the dataset
func (d *Dataset) Copy() *Dataset {
	cols := make([][]float64, len(d.columns))
	for j, col := range d.columns {
		cols[j] = slices.Clone(col)
	}
	return &Dataset{
		index:   slices.Clone(d.index),
		names:   slices.Clone(d.names),
		columns: cols,
	}
}

// Rename returns a dataset with columns renamed by mapping. When strict, a key naming no column
// fails, otherwise it is skipped. Renaming onto a name that is already taken fails.
func (d *Dataset) Rename(mapping map[string]string, strict bool) (*Dataset, error) {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := d.Copy()
	for _, from := range keys {
		j := d.position(from)
		if j < 0 {
			if strict {
				return nil, fmt.Errorf("cannot rename %s, %w", from, ErrUnknownColumn)
			}
			continue
		}
		out.names[j] = mapping[from]
	}

	seen := make(map[string]struct{}, len(out.names))
	for _, name := range out.names {
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("rename produces %s twice, %w", name, ErrDuplicateColumn)
		}
		seen[name] = struct{}{}
	}
	return out, nil
}

// FilterRange keeps the rows whose index lies within [from, to]
func (d *Dataset) FilterRange(from, to int) (*Dataset, error) {
	if from > to {
		return nil, fmt.Errorf("%d > %d, %w", from, to, ErrInvalidRange)
	}
	var rows []int
	for i, idx := range d.index {
		if idx >= from && idx <= to {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("nothing between %d and %d, %w", from, to, ErrNoData)
	}
	return d.Rows(rows)
}

// Select keeps only the named columns in the given order
func (d *Dataset) Select(cols ...string) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	columns := make([][]float64, len(cols))
	for i, name := range cols {
		j := d.position(name)
		if j < 0 {
			return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
		}
		columns[i] = d.columns[j]
	}
	return New(d.index, cols, columns)
}

// Drop removes the named columns
func (d *Dataset) Drop(cols ...string) (*Dataset, error) {
	for _, name := range cols {
		if d.position(name) < 0 {
			return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
		}
	}
	var keep []string
	for _, name := range d.names {
		if !slices.Contains(cols, name) {
			keep = append(keep, name)
		}
	}
	if len(keep) == 0 {
		return nil, ErrNoColumns
	}
	return d.Select(keep...)
}

// DropMissing removes the rows holding NaN in any of the named columns, or in any column when none
// are named
func (d *Dataset) DropMissing(cols ...string) (*Dataset, error) {
	if len(cols) == 0 {
		cols = d.names
	}
	check := make([][]float64, len(cols))
	for i, name := range cols {
		j := d.position(name)
		if j < 0 {
			return nil, fmt.Errorf("%s, %w", name, ErrUnknownColumn)
		}
		check[i] = d.columns[j]
	}

	var rows []int
	for r := range d.index {
		complete := true
		for _, col := range check {
			if math.IsNaN(col[r]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("every row has missing values, %w", ErrNoData)
	}
	return d.Rows(rows)
}

// Rows builds a dataset from the given row positions. Positions are taken in ascending order so the
// index stays increasing.
func (d *Dataset) Rows(pos []int) (*Dataset, error) {
	if len(pos) == 0 {
		return nil, ErrNoData
	}
	sorted := slices.Clone(pos)
	sort.Ints(sorted)
	for i, p := range sorted {
		if p < 0 || p >= len(d.index) {
			return nil, fmt.Errorf("position %d with %d rows, %w", p, len(d.index), ErrRowOutOfRange)
		}
		if i > 0 && p == sorted[i-1] {
			return nil, fmt.Errorf("position %d repeated, %w", p, ErrRowOutOfRange)
		}
	}

	index := make([]int, len(sorted))
	for i, p := range sorted {
		index[i] = d.index[p]
	}
	columns := make([][]float64, len(d.columns))
	for j, col := range d.columns {
		columns[j] = make([]float64, len(sorted))
		for i, p := range sorted {
			columns[j][i] = col[p]
		}
	}
	return New(index, d.names, columns)
}

// Design builds an n x k feature matrix from the named columns. Every value must be finite.
func (d *Dataset) Design(features []string) (*mat.Dense, error) {
	if len(features) == 0 {
		return nil, ErrNoColumns
	}
	x := mat.NewDense(len(d.index), len(features), nil)
	for j, name := range features {
		col, err := d.finiteColumn(name)
		if err != nil {
			return nil, err
		}
		x.SetCol(j, col)
	}
	return x, nil
}

// Target builds an n x 1 matrix from the named column. Every value must be finite.
func (d *Dataset) Target(name string) (*mat.Dense, error) {
	col, err := d.finiteColumn(name)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(col), 1, col), nil
}

func (d *Dataset) finiteColumn(name string) ([]float64, error) {
	col, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	for i, v := range col {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%s at index %d, %w", name, d.index[i], ErrMissingValues)
		}
	}
	return col, nil
}
