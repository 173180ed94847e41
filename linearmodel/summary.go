package linearmodel

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
)

// LabelConst names the prepended intercept column
const LabelConst = "const"

// Summary is a snapshot of a fit's inference statistics. Coefficient indexed slices share the order
// of Labels which starts with the constant when the intercept was fit.
type Summary struct {
	Labels    []string  `json:"labels"`
	Coef      []float64 `json:"coefficients"`
	StdErr    []float64 `json:"std_err"`
	TValues   []float64 `json:"t_values"`
	PValues   []float64 `json:"p_values"`
	ConfLower []float64 `json:"conf_lower"`
	ConfUpper []float64 `json:"conf_upper"`

	Residuals []float64 `json:"residuals"`
	Fitted    []float64 `json:"fitted"`

	NObs    int `json:"n_obs"`
	DFModel int `json:"df_model"`
	DFResid int `json:"df_resid"`

	Sigma2        float64 `json:"sigma2"`
	RSquared      float64 `json:"r_squared"`
	AdjRSquared   float64 `json:"adj_r_squared"`
	FValue        float64 `json:"f_value"`
	FPValue       float64 `json:"f_p_value"`
	LogLikelihood float64 `json:"log_likelihood"`
	AIC           float64 `json:"aic"`
	BIC           float64 `json:"bic"`
	CondNumber    float64 `json:"cond_number"`

	CovType         CovType `json:"cov_type"`
	ConfidenceLevel float64 `json:"confidence_level"`
	HasIntercept    bool    `json:"has_intercept"`
}

// Copy returns a deep copy of the summary
func (s *Summary) Copy() *Summary {
	if s == nil {
		return nil
	}
	out := *s
	out.Labels = append([]string(nil), s.Labels...)
	out.Coef = copyFloats(s.Coef)
	out.StdErr = copyFloats(s.StdErr)
	out.TValues = copyFloats(s.TValues)
	out.PValues = copyFloats(s.PValues)
	out.ConfLower = copyFloats(s.ConfLower)
	out.ConfUpper = copyFloats(s.ConfUpper)
	out.Residuals = copyFloats(s.Residuals)
	out.Fitted = copyFloats(s.Fitted)
	return &out
}

// WithFeatureLabels returns a copy of the summary naming the feature coefficients. The constant
// keeps its label.
func (s *Summary) WithFeatureLabels(features []string) (*Summary, error) {
	offset := 0
	if len(s.Labels) > 0 && s.Labels[0] == LabelConst {
		offset = 1
	}
	if len(features) != len(s.Labels)-offset {
		return nil, fmt.Errorf("got %d labels for %d features, %w", len(features), len(s.Labels)-offset, ErrLabelLenMismatch)
	}
	out := s.Copy()
	copy(out.Labels[offset:], features)
	return out, nil
}

// Coefficient looks up the fitted value of a labeled coefficient
func (s *Summary) Coefficient(label string) (float64, bool) {
	for i, l := range s.Labels {
		if l == label {
			return s.Coef[i], true
		}
	}
	return 0, false
}

// TablePrint writes a regression summary table with a coefficient row per label
func (s *Summary) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sOLS Regression:\n", prefix); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sObservations: %d    DF Model: %d    DF Residuals: %d    Covariance: %s\n",
		prefix, indent, s.NObs, s.DFModel, s.DFResid, s.CovType); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sR2: %.3f    Adj R2: %.3f    F: %.3f    Prob(F): %.3g\n",
		prefix, indent, s.RSquared, s.AdjRSquared, s.FValue, s.FPValue); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sLog-Likelihood: %.3f    AIC: %.3f    BIC: %.3f    Cond. No.: %.3g\n",
		prefix, indent, s.LogLikelihood, s.AIC, s.BIC, s.CondNumber); err != nil {
		return err
	}

	lowerPct := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", (1-s.ConfidenceLevel)/2), "0"), ".")
	upperPct := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", 1-(1-s.ConfidenceLevel)/2), "0"), ".")

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sLabel\tCoef\tStd Err\tt\tP>|t|\t[%s\t%s]\t\n",
		prefix, indent, lowerPct, upperPct); err != nil {
		return err
	}
	for i, label := range s.Labels {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			prefix, indent, label,
			formatStat(s.Coef[i]), formatStat(s.StdErr[i]), formatStat(s.TValues[i]),
			formatStat(s.PValues[i]), formatStat(s.ConfLower[i]), formatStat(s.ConfUpper[i]),
		); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-3 || abs >= 1e6) {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.3f", v)
}

func copyFloats(x []float64) []float64 {
	if x == nil {
		return nil
	}
	out := make([]float64, len(x))
	copy(out, x)
	return out
}
