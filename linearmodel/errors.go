package linearmodel

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-olsdiag/errs"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrNotFitted          = errors.New("model has not been fit")
	ErrUnknownCovType     = errors.New("unknown covariance type")
	ErrInvalidConfidence  = errors.New("confidence level must be between 0 and 1")
	ErrTargetLenMismatch  = fmt.Errorf("target length does not match training rows, %w", errs.ErrShape)
	ErrFeatureLenMismatch = fmt.Errorf("number of features does not match number of model coefficients, %w", errs.ErrShape)
	ErrLabelLenMismatch   = fmt.Errorf("number of labels does not match number of features, %w", errs.ErrShape)
	ErrTooFewObservations = fmt.Errorf("need more observations than parameters, %w", errs.ErrUnderdetermined)
	ErrSingularDesign     = fmt.Errorf("design matrix is rank deficient, %w", errs.ErrNumeric)
	ErrNonFinite          = fmt.Errorf("design or target holds non-finite values, %w", errs.ErrData)
)
