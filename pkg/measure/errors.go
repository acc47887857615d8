package measure

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMask is returned by estimators that need at least one masked
	// voxel to define an extremal point.
	ErrEmptyMask = errors.New("measure: mask has no true voxels")

	// ErrDegenerateGeometry is returned by the PCA estimator when an
	// eigenvalue is negative beyond round-off tolerance.
	ErrDegenerateGeometry = errors.New("measure: degenerate geometry")

	// ErrSingularSystem is returned by the ellipsoid solvers when the three
	// support points do not determine the ellipsoid coefficients.
	ErrSingularSystem = errors.New("measure: singular ellipsoid system")

	// ErrNoPositiveVoxels is returned when no calibrated masked voxel has a
	// strictly positive density.
	ErrNoPositiveVoxels = errors.New("measure: no positive voxels under mask")
)

// EstimatorError records which estimator failed and why.
type EstimatorError struct {
	Estimator string
	Detail    string
	Err       error
}

func (e *EstimatorError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Estimator, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Estimator, e.Err, e.Detail)
}

func (e *EstimatorError) Unwrap() error { return e.Err }

func estimatorError(estimator string, err error, format string, args ...any) error {
	return &EstimatorError{
		Estimator: estimator,
		Detail:    fmt.Sprintf(format, args...),
		Err:       err,
	}
}
