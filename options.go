package olsdiag

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aouyang1/go-olsdiag/diagnostics"
	"github.com/aouyang1/go-olsdiag/linearmodel"
)

const (
	DefaultTestSize     = 0.2
	DefaultSeed         = 42
	DefaultVIFThreshold = 10.0
)

var (
	ErrNoTarget        = errors.New("no target column set")
	ErrTargetIsFeature = errors.New("target cannot also be a feature")
	ErrInvalidTestSize = errors.New("test size must be in (0, 1)")
)

// Options configures an Analyzer
type Options struct {
	// Target is the column to regress on the features
	Target string

	// Features are the regressor columns. When empty every column other than Target is used.
	Features []string

	// DropMissing removes rows with NaN in the target or features before fitting. Otherwise
	// missing values fail the fit.
	DropMissing bool

	// VIFThreshold is the VIF above which a feature is logged as collinear
	VIFThreshold float64

	// TestSize is the share of rows held out for evaluation
	TestSize float64

	// Seed drives the train/test shuffle
	Seed uint64

	Model       *linearmodel.OLSOptions
	Diagnostics *diagnostics.Options

	// Logger receives stage progress, defaults to slog.Default()
	Logger *slog.Logger
}

// NewDefaultOptions returns the default analysis options for a target column
func NewDefaultOptions(target string) *Options {
	return &Options{
		Target:       target,
		VIFThreshold: DefaultVIFThreshold,
		TestSize:     DefaultTestSize,
		Seed:         DefaultSeed,
		Model:        linearmodel.NewDefaultOLSOptions(),
		Diagnostics:  diagnostics.NewDefaultOptions(),
	}
}

// Validate fills in unset fields and leaves the receiver untouched
func (o *Options) Validate() (*Options, error) {
	if o == nil || o.Target == "" {
		return nil, ErrNoTarget
	}
	opt := *o
	opt.Features = append([]string(nil), o.Features...)
	for _, f := range opt.Features {
		if f == opt.Target {
			return nil, fmt.Errorf("%s, %w", f, ErrTargetIsFeature)
		}
	}

	if opt.VIFThreshold == 0 {
		opt.VIFThreshold = DefaultVIFThreshold
	}
	if opt.TestSize == 0 {
		opt.TestSize = DefaultTestSize
	}
	if opt.TestSize < 0 || opt.TestSize >= 1 {
		return nil, fmt.Errorf("got %.3f, %w", opt.TestSize, ErrInvalidTestSize)
	}

	var err error
	if opt.Model, err = opt.Model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model options, %w", err)
	}
	if opt.Diagnostics, err = opt.Diagnostics.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diagnostic options, %w", err)
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &opt, nil
}
