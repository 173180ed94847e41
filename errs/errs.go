// Package errs holds the error classes shared by every stage of the regression pipeline. Stages
// wrap one of these sentinels with context so callers can branch with errors.Is.
package errs

import "errors"

var (
	// ErrData marks malformed or missing source data
	ErrData = errors.New("data error")

	// ErrNumeric marks singular or ill-conditioned matrix operations
	ErrNumeric = errors.New("numeric error")

	// ErrUnderdetermined marks a fit with no more observations than parameters
	ErrUnderdetermined = errors.New("underdetermined system")

	// ErrShape marks mismatched vector or matrix dimensions
	ErrShape = errors.New("shape mismatch")

	// ErrSerialization marks a corrupt or schema-mismatched persisted model
	ErrSerialization = errors.New("serialization error")
)
