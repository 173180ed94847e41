package olsdiag

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var ErrNothingToPlot = errors.New("analysis has no fitted results to plot")

// LineSeries generates an echart line chart with one series per entry of y over the x labels
func LineSeries(title string, seriesName []string, x []string, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	line = line.SetXAxis(x)
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			lineData = append(lineData, opts.LineData{Value: v})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

func indexLabels(index []int) []string {
	labels := make([]string, len(index))
	for i, v := range index {
		labels[i] = fmt.Sprintf("%d", v)
	}
	return labels
}

// plotCharts builds the fit, residual, normal probability and held out prediction charts
func (r *Analysis) plotCharts() ([]components.Charter, error) {
	if r == nil || r.Full == nil {
		return nil, ErrNothingToPlot
	}
	index := indexLabels(r.Full.Index)
	out := []components.Charter{
		LineSeries(
			"Regression Fit",
			[]string{"Actual", "Fitted"},
			index,
			[][]float64{r.Full.Actual, r.Full.Summary.Fitted},
		),
		LineSeries(
			"Regression Residual",
			[]string{"Residual"},
			index,
			[][]float64{r.Full.Summary.Residuals},
		),
	}

	if r.Diagnostics != nil && r.Diagnostics.Normality != nil {
		qq := r.Diagnostics.Normality.QQ
		theoretical := make([]string, len(qq))
		sample := make([]float64, len(qq))
		for i, p := range qq {
			theoretical[i] = fmt.Sprintf("%.3f", p.Theoretical)
			sample[i] = p.Sample
		}
		out = append(out, LineSeries(
			fmt.Sprintf("Residual Q-Q (r=%.3f)", r.Diagnostics.Normality.QQCorrelation),
			[]string{"Residual"},
			theoretical,
			[][]float64{sample},
		))
	}

	if len(r.Predicted) > 0 {
		out = append(out, LineSeries(
			"Test Prediction",
			[]string{"Actual", "Predicted"},
			indexLabels(r.TestIndex),
			[][]float64{r.Actual, r.Predicted},
		))
	}
	return out, nil
}

// Plot renders every analysis chart into one html page
func (r *Analysis) Plot(w io.Writer) error {
	c, err := r.plotCharts()
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.AddCharts(c...)
	return page.Render(w)
}

// PlotAnalysis writes the analysis charts to an html file at path
func PlotAnalysis(path string, r *Analysis) error {
	if _, err := r.plotCharts(); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return r.Plot(file)
}
