package olsdiag

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/aouyang1/go-olsdiag/dataset"
	"github.com/aouyang1/go-olsdiag/errs"
	"github.com/aouyang1/go-olsdiag/linearmodel"
	"github.com/aouyang1/go-olsdiag/score"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// SchemaVersion is bumped whenever the persisted model layout changes
const SchemaVersion = 1

var (
	ErrNotTrained        = errors.New("analysis has no trained fit")
	ErrSchemaVersion     = fmt.Errorf("unsupported model schema version, %w", errs.ErrSerialization)
	ErrCorruptModel      = fmt.Errorf("corrupt model, %w", errs.ErrSerialization)
	ErrFeatureCountModel = fmt.Errorf("feature count does not match model, %w", errs.ErrShape)
)

// Model is the persisted form of a trained regression. It holds only what is needed to predict.
type Model struct {
	SchemaVersion int                 `json:"schema_version"`
	ID            string              `json:"id"`
	Target        string              `json:"target"`
	FeatureNames  []string            `json:"feature_names"`
	Intercept     float64             `json:"intercept"`
	Coefficients  []float64           `json:"coefficients"`
	FitIntercept  bool                `json:"fit_intercept"`
	CovType       linearmodel.CovType `json:"cov_type"`
	TrainedAt     time.Time           `json:"trained_at"`
	NObs          int                 `json:"n_obs"`
	Scores        *score.Scores       `json:"scores,omitempty"`
}

// Model returns the persisted form of the training split fit. Test scores are only kept when
// they are finite.
func (r *Analysis) Model() (*Model, error) {
	if r == nil || r.Train == nil || r.Train.Regression == nil {
		return nil, ErrNotTrained
	}
	reg := r.Train.Regression
	opt := reg.Options()
	m := &Model{
		SchemaVersion: SchemaVersion,
		ID:            uuid.NewString(),
		Target:        r.Train.Target,
		FeatureNames:  append([]string(nil), r.Train.Features...),
		Intercept:     reg.Intercept(),
		Coefficients:  reg.Coef(),
		FitIntercept:  opt.FitIntercept,
		CovType:       opt.CovType,
		TrainedAt:     r.TrainedAt,
		NObs:          r.Train.Summary.NObs,
	}
	if s := r.Scores; s != nil && allFinite(s.MAE, s.MSE, s.RMSE, s.R2) {
		cp := *s
		m.Scores = &cp
	}
	return m, nil
}

func allFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Validate checks the model can be used for prediction
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("no model, %w", ErrCorruptModel)
	}
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("got %d, expected %d, %w", m.SchemaVersion, SchemaVersion, ErrSchemaVersion)
	}
	if m.Target == "" {
		return fmt.Errorf("no target, %w", ErrCorruptModel)
	}
	if len(m.FeatureNames) == 0 {
		return fmt.Errorf("no features, %w", ErrCorruptModel)
	}
	if len(m.FeatureNames) != len(m.Coefficients) {
		return fmt.Errorf("%d features with %d coefficients, %w", len(m.FeatureNames), len(m.Coefficients), ErrCorruptModel)
	}
	if !allFinite(m.Intercept) || !allFinite(m.Coefficients...) {
		return fmt.Errorf("non-finite coefficient, %w", ErrCorruptModel)
	}
	if !m.FitIntercept && m.Intercept != 0 {
		return fmt.Errorf("intercept set without fit_intercept, %w", ErrCorruptModel)
	}
	return nil
}

// Encode writes the model as indented json
func (m *Model) Encode(w io.Writer) error {
	if err := m.Validate(); err != nil {
		return err
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%s, %w", err.Error(), errs.ErrSerialization)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("unable to write model, %s, %w", err.Error(), errs.ErrSerialization)
	}
	return nil
}

// DecodeModel reads and validates a model written by Encode
func DecodeModel(r io.Reader) (*Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read model, %s, %w", err.Error(), errs.ErrSerialization)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Model
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrCorruptModel)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// SaveModel writes the model to path, replacing any existing file
func SaveModel(path string, m *Model) error {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("unable to save model to %s, %s, %w", path, err.Error(), errs.ErrSerialization)
	}
	return nil
}

// LoadModel reads a model saved with SaveModel
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open model %s, %s, %w", path, err.Error(), errs.ErrSerialization)
	}
	defer f.Close()
	return DecodeModel(f)
}

// Predictor produces predictions from a loaded model without refitting
type Predictor struct {
	model *Model
}

// NewFromModel creates a Predictor from a persisted model
func NewFromModel(m *Model) (*Predictor, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	cp := *m
	cp.FeatureNames = append([]string(nil), m.FeatureNames...)
	cp.Coefficients = append([]float64(nil), m.Coefficients...)
	return &Predictor{model: &cp}, nil
}

// Target returns the predicted column name
func (p *Predictor) Target() string {
	return p.model.Target
}

// FeatureNames returns the feature columns in coefficient order
func (p *Predictor) FeatureNames() []string {
	return append([]string(nil), p.model.FeatureNames...)
}

// Predict evaluates the model on x whose columns follow FeatureNames
func (p *Predictor) Predict(x mat.Matrix) ([]float64, error) {
	if x == nil {
		return nil, linearmodel.ErrNoDesignMatrix
	}
	if _, n := x.Dims(); n != len(p.model.FeatureNames) {
		return nil, fmt.Errorf("got %d columns, expected %d, %w", n, len(p.model.FeatureNames), ErrFeatureCountModel)
	}
	return linearmodel.PredictLinear(x, p.model.Intercept, p.model.Coefficients, p.model.FitIntercept)
}

// PredictDataset selects the model features from ds by name and predicts every row
func (p *Predictor) PredictDataset(ds *dataset.Dataset) ([]float64, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	x, err := ds.Design(p.model.FeatureNames)
	if err != nil {
		return nil, err
	}
	return p.Predict(x)
}
