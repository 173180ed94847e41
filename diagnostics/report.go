package diagnostics

import (
	"fmt"
	"io"
	"text/tabwriter"

	mat_ "github.com/aouyang1/go-olsdiag/mat"
	"gonum.org/v1/gonum/mat"
)

// Options configures a full diagnostic run
type Options struct {
	// Alpha is the significance level of every test, defaults to 0.05
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// LagPolicy picks the number of Ljung-Box lags, defaults to LagRuleOfThumb
	LagPolicy LagPolicy `json:"lag_policy" yaml:"lag_policy"`

	// Lags is used with LagFixed
	Lags int `json:"lags" yaml:"lags"`
}

// NewDefaultOptions returns the default diagnostic options
func NewDefaultOptions() *Options {
	return &Options{
		Alpha:     DefaultAlpha,
		LagPolicy: LagRuleOfThumb,
	}
}

// Validate fills in unset fields leaving the receiver untouched
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		return NewDefaultOptions(), nil
	}
	opt := *o

	alpha, err := validateAlpha(opt.Alpha)
	if err != nil {
		return nil, err
	}
	opt.Alpha = alpha

	switch opt.LagPolicy {
	case "":
		opt.LagPolicy = LagRuleOfThumb
	case LagRuleOfThumb, LagLibraryDefault:
	case LagFixed:
		if opt.Lags < 1 {
			return nil, fmt.Errorf("fixed lag policy with %d lags, %w", opt.Lags, ErrInvalidLags)
		}
	default:
		return nil, fmt.Errorf("%q, %w", opt.LagPolicy, ErrUnknownLagPolicy)
	}
	return &opt, nil
}

// Report collects every diagnostic of a single fit
type Report struct {
	BreuschPagan *Result
	White        *Result
	LjungBox     *LjungBoxResult
	Normality    *NormalityResult
	JarqueBera   *JarqueBeraResult
	DurbinWatson float64
	ResidualMean *MeanResult
}

// Run executes every diagnostic on the residuals of a fit. fitted holds the fitted values and may
// be nil. design is the matrix the model was fit on, including its constant column if any.
func Run(resid, fitted []float64, design mat.Matrix, opt *Options) (*Report, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	r := new(Report)
	if r.BreuschPagan, err = BreuschPagan(resid, design, opt.Alpha); err != nil {
		return nil, fmt.Errorf("unable to run %s test, %w", NameBreuschPagan, err)
	}
	if r.White, err = White(resid, design, opt.Alpha); err != nil {
		return nil, fmt.Errorf("unable to run %s test, %w", NameWhite, err)
	}

	lags, err := opt.LagPolicy.Lags(len(resid), opt.Lags)
	if err != nil {
		return nil, err
	}
	if r.LjungBox, err = LjungBox(resid, lags, opt.Alpha); err != nil {
		return nil, fmt.Errorf("unable to run %s test, %w", NameLjungBox, err)
	}
	if r.Normality, err = Normality(resid, opt.Alpha); err != nil {
		return nil, fmt.Errorf("unable to run %s test, %w", NameNormality, err)
	}
	if r.JarqueBera, err = JarqueBera(resid, opt.Alpha); err != nil {
		return nil, fmt.Errorf("unable to run %s test, %w", NameJarqueBera, err)
	}
	if r.DurbinWatson, err = DurbinWatson(resid); err != nil {
		return nil, fmt.Errorf("unable to compute durbin-watson, %w", err)
	}
	if r.ResidualMean, err = ResidualMean(resid, fitted, mat_.HasConstant(design)); err != nil {
		return nil, fmt.Errorf("unable to compute residual mean, %w", err)
	}
	return r, nil
}

// Results lists the hypothesis tests in the order they ran
func (r *Report) Results() []*Result {
	return []*Result{
		r.BreuschPagan,
		r.White,
		&r.LjungBox.Result,
		&r.Normality.Result,
		&r.JarqueBera.Result,
	}
}

// TablePrint writes a row per test followed by the residual mean and Durbin-Watson statistic
func (r *Report) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sDiagnostics:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	if _, err := fmt.Fprintf(tbl, "%s%sTest\tStatistic\tP-Value\tF\tProb(F)\tDF\tConclusion\t\n", prefix, indent); err != nil {
		return err
	}
	for _, res := range r.Results() {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.4f\t%.4g\t%.4f\t%.4g\t%d\t%s\t\n",
			prefix, indent, res.Test, res.Statistic, res.PValue, res.FStatistic, res.FPValue, res.DF, res.Conclusion,
		); err != nil {
			return err
		}
	}
	if err := tbl.Flush(); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sDurbin-Watson: %.4f\n", prefix, indent, r.DurbinWatson); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sResidual Mean: %s\n", prefix, indent, r.ResidualMean.Conclusion); err != nil {
		return err
	}
	return nil
}
