// Package config loads the settings of an olsdiag run from defaults, an optional YAML file and
// OLSDIAG_ prefixed environment variables, in that order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/aouyang1/go-olsdiag"
	"github.com/aouyang1/go-olsdiag/dataset"
	"github.com/aouyang1/go-olsdiag/diagnostics"
	"github.com/aouyang1/go-olsdiag/linearmodel"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment override, e.g. OLSDIAG_MODEL_TARGET
const EnvPrefix = "OLSDIAG"

var (
	ErrReadConfig  = errors.New("unable to read config file")
	ErrParseConfig = errors.New("unable to parse config")
	ErrInvalid     = errors.New("invalid config")
)

type Config struct {
	Source      SourceConfig      `yaml:"source" envconfig:"SOURCE"`
	Model       ModelConfig       `yaml:"model" envconfig:"MODEL"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" envconfig:"DIAGNOSTICS"`
	Split       SplitConfig       `yaml:"split" envconfig:"SPLIT"`
	Output      OutputConfig      `yaml:"output" envconfig:"OUTPUT"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
}

// SourceConfig locates and shapes the input table
type SourceConfig struct {
	Location      string            `yaml:"location" envconfig:"LOCATION" validate:"required"`
	Format        string            `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=csv xlsx"`
	Sheet         string            `yaml:"sheet" envconfig:"SHEET"`
	IndexColumn   string            `yaml:"index_column" envconfig:"INDEX_COLUMN"`
	MissingTokens []string          `yaml:"missing_tokens" envconfig:"MISSING_TOKENS"`
	DropColumns   []string          `yaml:"drop_columns" envconfig:"DROP_COLUMNS"`
	Transpose     bool              `yaml:"transpose" envconfig:"TRANSPOSE"`
	LabelColumn   string            `yaml:"label_column" envconfig:"LABEL_COLUMN" validate:"required_if=Transpose true"`
	Rename        map[string]string `yaml:"rename" envconfig:"RENAME"`
	StrictRename  bool              `yaml:"strict_rename" envconfig:"STRICT_RENAME"`

	// From and To bound the index inclusively, zero leaves the side open
	From int `yaml:"from" envconfig:"FROM"`
	To   int `yaml:"to" envconfig:"TO" validate:"omitempty,gtefield=From"`
}

type ModelConfig struct {
	Target          string   `yaml:"target" envconfig:"TARGET" validate:"required"`
	Features        []string `yaml:"features" envconfig:"FEATURES"`
	DropMissing     bool     `yaml:"drop_missing" envconfig:"DROP_MISSING"`
	FitIntercept    bool     `yaml:"fit_intercept" envconfig:"FIT_INTERCEPT"`
	CovType         string   `yaml:"cov_type" envconfig:"COV_TYPE" validate:"oneof=nonrobust HC1"`
	ConfidenceLevel float64  `yaml:"confidence_level" envconfig:"CONFIDENCE_LEVEL" validate:"gt=0,lt=1"`
	VIFThreshold    float64  `yaml:"vif_threshold" envconfig:"VIF_THRESHOLD" validate:"gt=1"`
}

type DiagnosticsConfig struct {
	Alpha     float64 `yaml:"alpha" envconfig:"ALPHA" validate:"gt=0,lt=1"`
	LagPolicy string  `yaml:"lag_policy" envconfig:"LAG_POLICY" validate:"oneof=rule_of_thumb library_default fixed"`
	Lags      int     `yaml:"lags" envconfig:"LAGS" validate:"required_if=LagPolicy fixed,gte=0"`
}

type SplitConfig struct {
	TestSize float64 `yaml:"test_size" envconfig:"TEST_SIZE" validate:"gt=0,lt=1"`
	Seed     uint64  `yaml:"seed" envconfig:"SEED"`
}

type OutputConfig struct {
	ModelPath string `yaml:"model_path" envconfig:"MODEL_PATH" validate:"required"`
	PlotPath  string `yaml:"plot_path" envconfig:"PLOT_PATH"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

// NewDefaultConfig returns the configuration used when neither a file nor the environment set a
// value. Location and target have no default.
func NewDefaultConfig() *Config {
	lm := linearmodel.NewDefaultOLSOptions()
	dg := diagnostics.NewDefaultOptions()
	return &Config{
		Source: SourceConfig{
			MissingTokens: append([]string(nil), dataset.DefaultMissingTokens...),
			StrictRename:  true,
		},
		Model: ModelConfig{
			FitIntercept:    lm.FitIntercept,
			CovType:         string(lm.CovType),
			ConfidenceLevel: lm.ConfidenceLevel,
			VIFThreshold:    olsdiag.DefaultVIFThreshold,
		},
		Diagnostics: DiagnosticsConfig{
			Alpha:     dg.Alpha,
			LagPolicy: string(dg.LagPolicy),
		},
		Split: SplitConfig{
			TestSize: olsdiag.DefaultTestSize,
			Seed:     olsdiag.DefaultSeed,
		},
		Output: OutputConfig{
			ModelPath: "model.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load overlays the YAML file at path, when path is set, and then the environment on the
// defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s, %s, %w", path, err.Error(), ErrReadConfig)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("%s, %s, %w", path, err.Error(), ErrParseConfig)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment, %s, %w", err.Error(), ErrParseConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s, %w", err.Error(), ErrInvalid)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%s, %w", strings.Join(msgs, "; "), ErrInvalid)
}

// LoadOptions maps the source section onto dataset loader options
func (s SourceConfig) LoadOptions() *dataset.LoadOptions {
	return &dataset.LoadOptions{
		ParseOptions: dataset.ParseOptions{
			IndexColumn:   s.IndexColumn,
			MissingTokens: s.MissingTokens,
			DropColumns:   s.DropColumns,
			Transpose:     s.Transpose,
			LabelColumn:   s.LabelColumn,
		},
		Format: dataset.Format(s.Format),
		Sheet:  s.Sheet,
	}
}

// Dataset loads the source, renames its columns and keeps the configured index range
func (s SourceConfig) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	ds, err := dataset.Load(ctx, s.Location, s.LoadOptions())
	if err != nil {
		return nil, err
	}
	if len(s.Rename) > 0 {
		if ds, err = ds.Rename(s.Rename, s.StrictRename); err != nil {
			return nil, err
		}
	}
	if s.From != 0 || s.To != 0 {
		from, to := s.From, s.To
		if from == 0 {
			from = math.MinInt
		}
		if to == 0 {
			to = math.MaxInt
		}
		if ds, err = ds.FilterRange(from, to); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// Options maps the model, diagnostics and split sections onto analysis options
func (c *Config) Options(logger *slog.Logger) *olsdiag.Options {
	return &olsdiag.Options{
		Target:       c.Model.Target,
		Features:     append([]string(nil), c.Model.Features...),
		DropMissing:  c.Model.DropMissing,
		VIFThreshold: c.Model.VIFThreshold,
		TestSize:     c.Split.TestSize,
		Seed:         c.Split.Seed,
		Model: &linearmodel.OLSOptions{
			FitIntercept:    c.Model.FitIntercept,
			CovType:         linearmodel.CovType(c.Model.CovType),
			ConfidenceLevel: c.Model.ConfidenceLevel,
		},
		Diagnostics: &diagnostics.Options{
			Alpha:     c.Diagnostics.Alpha,
			LagPolicy: diagnostics.LagPolicy(c.Diagnostics.LagPolicy),
			Lags:      c.Diagnostics.Lags,
		},
		Logger: logger,
	}
}

// SlogLevel returns the slog level named by the logging section
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
