package dataset

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/aouyang1/go-olsdiag/errs"
)

var (
	ErrNoHeader       = fmt.Errorf("source needs a header row and at least one data row, %w", errs.ErrData)
	ErrParseIndex     = fmt.Errorf("unable to parse index, %w", errs.ErrData)
	ErrParseValue     = fmt.Errorf("unable to parse value, %w", errs.ErrData)
	ErrDuplicateIndex = fmt.Errorf("duplicate index, %w", errs.ErrData)
)

// DefaultMissingTokens mark a missing cell in World Bank style exports. Blank cells are always
// missing.
var DefaultMissingTokens = []string{".."}

// ParseOptions describes the layout of a raw table
type ParseOptions struct {
	// IndexColumn names the integer index column, defaults to the first column. Ignored when
	// Transpose is set.
	IndexColumn string

	// MissingTokens are cell values read as NaN, defaults to DefaultMissingTokens
	MissingTokens []string

	// DropColumns are ignored while parsing
	DropColumns []string

	// Transpose reads a wide table holding one indicator per row and one index value per column.
	// LabelColumn names the column holding the indicator names.
	Transpose   bool
	LabelColumn string
}

// Parse builds a Dataset from raw rows where the first row is the header. Missing tokens become
// NaN before any numeric conversion. Index cells accept a leading integer followed by any suffix,
// so "1969 [YR1969]" reads as 1969. Rows are sorted by index and any duplicate fails.
func Parse(rows [][]string, opt *ParseOptions) (*Dataset, error) {
	if opt == nil {
		opt = &ParseOptions{}
	}
	if len(rows) < 2 {
		return nil, ErrNoHeader
	}
	if opt.Transpose {
		var err error
		if rows, err = transpose(rows, opt.LabelColumn, opt.DropColumns); err != nil {
			return nil, err
		}
	}

	missing := opt.MissingTokens
	if missing == nil {
		missing = DefaultMissingTokens
	}

	header := trimAll(rows[0])
	indexCol := 0
	if opt.IndexColumn != "" && !opt.Transpose {
		indexCol = slices.Index(header, opt.IndexColumn)
		if indexCol < 0 {
			return nil, fmt.Errorf("index column %s, %w", opt.IndexColumn, ErrUnknownColumn)
		}
	}

	var valueCols []int
	var names []string
	for j, name := range header {
		if j == indexCol || (!opt.Transpose && slices.Contains(opt.DropColumns, name)) {
			continue
		}
		valueCols = append(valueCols, j)
		names = append(names, name)
	}

	type record struct {
		index  int
		values []float64
	}
	var records []record
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := r + 2
		idx, err := parseIndex(cell(row, indexCol))
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", line, err)
		}

		values := make([]float64, len(valueCols))
		for i, j := range valueCols {
			v, err := parseValue(cell(row, j), missing)
			if err != nil {
				return nil, fmt.Errorf("column %s row %d, %w", names[i], line, err)
			}
			values[i] = v
		}
		records = append(records, record{index: idx, values: values})
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].index < records[b].index
	})
	index := make([]int, len(records))
	columns := make([][]float64, len(names))
	for j := range columns {
		columns[j] = make([]float64, len(records))
	}
	for i, rec := range records {
		if i > 0 && rec.index == records[i-1].index {
			return nil, fmt.Errorf("%d, %w", rec.index, ErrDuplicateIndex)
		}
		index[i] = rec.index
		for j, v := range rec.values {
			columns[j][i] = v
		}
	}
	return New(index, names, columns)
}

// transpose turns a wide table with one labeled indicator per row into a tall one with an index
// column followed by one column per indicator. Rows without a label, such as export footers, are
// skipped.
func transpose(rows [][]string, labelColumn string, drop []string) ([][]string, error) {
	header := trimAll(rows[0])
	labelCol := 0
	if labelColumn != "" {
		labelCol = slices.Index(header, labelColumn)
		if labelCol < 0 {
			return nil, fmt.Errorf("label column %s, %w", labelColumn, ErrUnknownColumn)
		}
	}

	var indexCols []int
	for j, name := range header {
		if j == labelCol || slices.Contains(drop, name) {
			continue
		}
		indexCols = append(indexCols, j)
	}

	labels := []string{"index"}
	var series [][]string
	for _, row := range rows[1:] {
		label := cell(row, labelCol)
		if label == "" {
			continue
		}
		labels = append(labels, label)
		series = append(series, row)
	}
	if len(series) == 0 {
		return nil, ErrNoData
	}

	out := make([][]string, 0, len(indexCols)+1)
	out = append(out, labels)
	for _, j := range indexCols {
		row := make([]string, 0, len(series)+1)
		row = append(row, header[j])
		for _, s := range series {
			row = append(row, cell(s, j))
		}
		out = append(out, row)
	}
	return out, nil
}

func cell(row []string, j int) string {
	if j >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[j])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func parseIndex(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%q, %w", s, ErrParseIndex)
	}
	idx, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("%q, %w", s, ErrParseIndex)
	}
	return idx, nil
}

func parseValue(s string, missing []string) (float64, error) {
	if s == "" || slices.Contains(missing, s) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q, %w", s, ErrParseValue)
	}
	return v, nil
}
