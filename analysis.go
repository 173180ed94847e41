// Package olsdiag runs an ordinary least squares analysis of an annual indicator table: it screens
// the features for collinearity, fits the regression, tests the residuals, and evaluates a refit on
// a held out split. The resulting model can be persisted and reloaded for prediction only.
package olsdiag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aouyang1/go-olsdiag/dataset"
	"github.com/aouyang1/go-olsdiag/diagnostics"
	"github.com/aouyang1/go-olsdiag/linearmodel"
	"github.com/aouyang1/go-olsdiag/score"
	"github.com/aouyang1/go-olsdiag/stats"
)

var (
	ErrNoFeatures = errors.New("no feature columns to fit")
	ErrNoDataset  = errors.New("no dataset")
)

// Fit is a regression of one target on a feature subset
type Fit struct {
	Target     string
	Features   []string
	Index      []int
	Actual     []float64
	Regression *linearmodel.OLSRegression

	// Summary is labeled with the feature names
	Summary *linearmodel.Summary
}

// Screening is the collinearity report of a feature set
type Screening struct {
	// Correlation is nil for a single feature
	Correlation *stats.Correlation
	VIF         *stats.VIFResult

	// Collinear lists the features lying in the span of the others, their VIF is +Inf
	Collinear []string
}

// Analysis is the outcome of a full run
type Analysis struct {
	Screening

	// Full is the fit over every row and the one the diagnostics describe
	Full        *Fit
	Diagnostics *diagnostics.Report

	// Train is the refit on the training split, evaluated on the test rows
	Train     *Fit
	TestIndex []int
	Actual    []float64
	Predicted []float64
	Scores    *score.Scores

	TrainedAt time.Time
}

// Analyzer composes the pipeline stages. It holds no state between runs.
type Analyzer struct {
	opt *Options
	log *slog.Logger
}

// New creates an Analyzer from the given options
func New(opt *Options) (*Analyzer, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		opt: opt,
		log: opt.Logger,
	}, nil
}

// Options returns a copy of the validated options
func (a *Analyzer) Options() Options {
	return *a.opt
}

func (a *Analyzer) features(ds *dataset.Dataset) ([]string, error) {
	if !ds.HasColumn(a.opt.Target) {
		return nil, fmt.Errorf("target %s, %w", a.opt.Target, dataset.ErrUnknownColumn)
	}
	features := a.opt.Features
	if len(features) == 0 {
		for _, c := range ds.Columns() {
			if c != a.opt.Target {
				features = append(features, c)
			}
		}
	}
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	return features, nil
}

// Run screens, fits and diagnoses the regression on every row, then refits on a train split and
// scores the prediction of the held out rows. Perfect collinearity is reported in the analysis but
// fails the fit that follows: when the full fit fails the returned analysis still carries the
// screening alongside the error.
func (a *Analyzer) Run(ctx context.Context, ds *dataset.Dataset) (*Analysis, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	features, err := a.features(ds)
	if err != nil {
		return nil, err
	}

	if a.opt.DropMissing {
		before := ds.Len()
		if ds, err = ds.DropMissing(append([]string{a.opt.Target}, features...)...); err != nil {
			return nil, err
		}
		if dropped := before - ds.Len(); dropped > 0 {
			a.log.InfoContext(ctx, "dropped rows with missing values", "dropped", dropped, "remaining", ds.Len())
		}
	}

	screening, err := a.Screen(ctx, ds, features)
	if err != nil {
		return nil, err
	}
	res := &Analysis{Screening: *screening, TrainedAt: time.Now().UTC()}

	if res.Full, err = a.FitSubset(ds, a.opt.Target, features); err != nil {
		return res, fmt.Errorf("unable to fit full dataset, %w", err)
	}
	a.log.InfoContext(ctx, "fit regression",
		"target", a.opt.Target,
		"features", len(features),
		"observations", res.Full.Summary.NObs,
		"r_squared", res.Full.Summary.RSquared,
		"adj_r_squared", res.Full.Summary.AdjRSquared,
	)

	if res.Diagnostics, err = a.Diagnose(res.Full); err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics.Results() {
		level := slog.LevelInfo
		if d.Reject {
			level = slog.LevelWarn
		}
		a.log.Log(ctx, level, "diagnostic", "test", d.Test, "statistic", d.Statistic, "p_value", d.PValue, "conclusion", d.Conclusion)
	}
	if res.Diagnostics.ResidualMean.Fault {
		a.log.ErrorContext(ctx, "residual mean is not zero", "mean", res.Diagnostics.ResidualMean.Mean)
	}

	if err := a.evaluate(ctx, ds, features, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Screen computes the pairwise correlation and variance inflation factors of features over every
// row of ds. Perfect collinearity is not an error here, the offending features are listed in
// Collinear.
func (a *Analyzer) Screen(ctx context.Context, ds *dataset.Dataset, features []string) (*Screening, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	x, err := ds.Design(features)
	if err != nil {
		return nil, fmt.Errorf("unable to build feature matrix, %w", err)
	}

	res := new(Screening)
	if len(features) > 1 {
		if res.Correlation, err = stats.CorrelationMatrix(x, features); err != nil {
			return nil, fmt.Errorf("unable to compute correlation, %w", err)
		}
	}

	xc, labels := stats.WithConstant(x, features)
	res.VIF, err = stats.VarianceInflationFactor(xc, labels)
	var cerr *stats.CollinearityError
	switch {
	case errors.As(err, &cerr):
		res.Collinear = cerr.Labels
		a.log.WarnContext(ctx, "perfect collinearity", "columns", cerr.Labels)
	case err != nil:
		return nil, fmt.Errorf("unable to compute variance inflation factors, %w", err)
	}

	for _, v := range res.VIF.Above(a.opt.VIFThreshold) {
		a.log.WarnContext(ctx, "high variance inflation factor", "feature", v.Label, "vif", v.Value)
	}
	return res, nil
}

func (a *Analyzer) evaluate(ctx context.Context, ds *dataset.Dataset, features []string, res *Analysis) error {
	train, test, err := ds.Split(a.opt.TestSize, a.opt.Seed)
	if err != nil {
		return fmt.Errorf("unable to split dataset, %w", err)
	}
	if res.Train, err = a.FitSubset(train, a.opt.Target, features); err != nil {
		return fmt.Errorf("unable to fit training split, %w", err)
	}

	xTest, err := test.Design(features)
	if err != nil {
		return err
	}
	if res.Predicted, err = res.Train.Regression.Predict(xTest); err != nil {
		return fmt.Errorf("unable to predict test split, %w", err)
	}
	if res.Actual, err = test.Column(a.opt.Target); err != nil {
		return err
	}
	res.TestIndex = test.Index()

	if res.Scores, err = score.NewScores(res.Predicted, res.Actual); err != nil {
		return fmt.Errorf("unable to score test split, %w", err)
	}
	a.log.InfoContext(ctx, "evaluated test split",
		"train", train.Len(),
		"test", test.Len(),
		"mae", res.Scores.MAE,
		"rmse", res.Scores.RMSE,
		"r_squared", res.Scores.R2,
	)
	return nil
}

// FitSubset regresses target on features over every row of ds. It is the entry point for refitting
// after features were pruned by hand.
func (a *Analyzer) FitSubset(ds *dataset.Dataset, target string, features []string) (*Fit, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if len(features) == 0 {
		return nil, ErrNoFeatures
	}
	if slices.Contains(features, target) {
		return nil, fmt.Errorf("%s, %w", target, ErrTargetIsFeature)
	}

	x, err := ds.Design(features)
	if err != nil {
		return nil, err
	}
	y, err := ds.Target(target)
	if err != nil {
		return nil, err
	}

	reg, err := linearmodel.NewOLSRegression(a.opt.Model)
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(x, y); err != nil {
		return nil, err
	}
	summary, err := reg.Summary()
	if err != nil {
		return nil, err
	}
	if summary, err = summary.WithFeatureLabels(features); err != nil {
		return nil, err
	}

	actual, err := ds.Column(target)
	if err != nil {
		return nil, err
	}
	return &Fit{
		Target:     target,
		Features:   slices.Clone(features),
		Index:      ds.Index(),
		Actual:     actual,
		Regression: reg,
		Summary:    summary,
	}, nil
}

// Diagnose runs every residual diagnostic on a fit
func (a *Analyzer) Diagnose(f *Fit) (*diagnostics.Report, error) {
	design, err := f.Regression.Design()
	if err != nil {
		return nil, err
	}
	report, err := diagnostics.Run(f.Summary.Residuals, f.Summary.Fitted, design, a.opt.Diagnostics)
	if err != nil {
		return nil, fmt.Errorf("unable to run diagnostics, %w", err)
	}
	return report, nil
}

// TablePrint writes every section of the analysis
func (r *Analysis) TablePrint(w io.Writer, prefix, indent string) error {
	if r.Correlation != nil {
		if err := r.Correlation.TablePrint(w, prefix, indent); err != nil {
			return err
		}
	}
	if r.VIF != nil {
		if err := r.VIF.TablePrint(w, prefix, indent); err != nil {
			return err
		}
	}
	if r.Full != nil {
		if err := r.Full.Summary.TablePrint(w, prefix, indent); err != nil {
			return err
		}
	}
	if r.Diagnostics != nil {
		if err := r.Diagnostics.TablePrint(w, prefix, indent); err != nil {
			return err
		}
	}
	if r.Scores != nil {
		if _, err := fmt.Fprintf(w, "%sTest Scores:\n", prefix); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAE: %.4g    MSE: %.4g    RMSE: %.4g    R2: %.3f\n",
			prefix, indent, r.Scores.MAE, r.Scores.MSE, r.Scores.RMSE, r.Scores.R2); err != nil {
			return err
		}
	}
	return nil
}
