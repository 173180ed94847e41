package dataset

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	mstats "github.com/montanaflynn/stats"
)

// ColumnSummary holds the descriptive statistics of one column over its non-missing values
type ColumnSummary struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	P25     float64
	P50     float64
	P75     float64
	Max     float64
}

// Summary describes every column of a dataset
type Summary []ColumnSummary

// Describe summarizes each column. A column without values reports NaN statistics.
func (d *Dataset) Describe() (Summary, error) {
	out := make(Summary, len(d.names))
	for j, name := range d.names {
		var data mstats.Float64Data
		for _, v := range d.columns[j] {
			if !math.IsNaN(v) {
				data = append(data, v)
			}
		}
		s := ColumnSummary{
			Name:    name,
			Count:   len(data),
			Missing: len(d.columns[j]) - len(data),
		}
		if len(data) == 0 {
			n := math.NaN()
			s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max = n, n, n, n, n, n, n
			out[j] = s
			continue
		}

		var err error
		if s.Mean, err = data.Mean(); err != nil {
			return nil, fmt.Errorf("mean of %s, %w", name, err)
		}
		s.Std = math.NaN()
		if len(data) > 1 {
			if s.Std, err = data.StandardDeviationSample(); err != nil {
				return nil, fmt.Errorf("deviation of %s, %w", name, err)
			}
		}
		if s.Min, err = data.Min(); err != nil {
			return nil, fmt.Errorf("min of %s, %w", name, err)
		}
		if s.Max, err = data.Max(); err != nil {
			return nil, fmt.Errorf("max of %s, %w", name, err)
		}
		if s.P25, err = data.Percentile(25); err != nil {
			return nil, fmt.Errorf("25th percentile of %s, %w", name, err)
		}
		if s.P50, err = data.Median(); err != nil {
			return nil, fmt.Errorf("median of %s, %w", name, err)
		}
		if s.P75, err = data.Percentile(75); err != nil {
			return nil, fmt.Errorf("75th percentile of %s, %w", name, err)
		}
		out[j] = s
	}
	return out, nil
}

// TablePrint writes one row per column
func (s Summary) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sDescribe:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sColumn\tCount\tMissing\tMean\tStd\tMin\t25%%\t50%%\t75%%\tMax\t\n", prefix, indent); err != nil {
		return err
	}
	for _, c := range s {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%d\t%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t\n",
			prefix, indent, c.Name, c.Count, c.Missing, c.Mean, c.Std, c.Min, c.P25, c.P50, c.P75, c.Max,
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
