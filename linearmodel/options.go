package linearmodel

import "fmt"

// CovType selects the estimator of the coefficient covariance matrix
type CovType string

const (
	// CovNonRobust assumes homoscedastic errors, sigma^2 (X'X)^-1
	CovNonRobust CovType = "nonrobust"

	// CovHC1 is the White sandwich estimator scaled by n/(n-k)
	CovHC1 CovType = "HC1"
)

const DefaultConfidenceLevel = 0.95

// OLSOptions represents input options to run the OLS Regression
type OLSOptions struct {
	// FitIntercept adds a constant 1.0 feature as the first column if set to true
	FitIntercept bool `json:"fit_intercept" yaml:"fit_intercept"`

	// CovType picks the covariance estimator behind standard errors, p-values and confidence
	// intervals. Point estimates are unaffected.
	CovType CovType `json:"cov_type" yaml:"cov_type"`

	// ConfidenceLevel of the coefficient intervals, defaults to 0.95
	ConfidenceLevel float64 `json:"confidence_level" yaml:"confidence_level"`
}

// NewDefaultOLSOptions returns a default set of OLS Regression options
func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept:    true,
		CovType:         CovNonRobust,
		ConfidenceLevel: DefaultConfidenceLevel,
	}
}

// Validate runs basic validation on OLS options filling in unset fields. The receiver is left
// untouched.
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	opt := *o

	switch opt.CovType {
	case "":
		opt.CovType = CovNonRobust
	case CovNonRobust, CovHC1:
	default:
		return nil, fmt.Errorf("%q, %w", opt.CovType, ErrUnknownCovType)
	}

	if opt.ConfidenceLevel == 0 {
		opt.ConfidenceLevel = DefaultConfidenceLevel
	}
	if opt.ConfidenceLevel <= 0 || opt.ConfidenceLevel >= 1 {
		return nil, fmt.Errorf("got %.3f, %w", opt.ConfidenceLevel, ErrInvalidConfidence)
	}
	return &opt, nil
}
