package cla

import "errors"

// Errors returned by the solver. Callers match them with errors.Is.
var (
	// ErrInvalidProblem is returned when the inputs are inconsistent: empty or duplicated
	// universe, missing map entries, non-finite values or lower > upper.
	ErrInvalidProblem = errors.New("invalid problem")

	// ErrInfeasibleBounds is returned when no weight vector within the bounds sums to one.
	ErrInfeasibleBounds = errors.New("infeasible bounds")

	// ErrSingularMatrix is returned when a reduced covariance sub-matrix cannot be inverted.
	ErrSingularMatrix = errors.New("singular covariance sub-matrix")

	// ErrNotConverged is returned when the iteration cap is hit before λ reaches zero.
	ErrNotConverged = errors.New("turning point iteration did not converge")

	// ErrNumerical is returned when post-processing discards every turning point.
	ErrNumerical = errors.New("numerical error")

	// ErrNoTurningPoints is returned by queries on a solver without turning points.
	ErrNoTurningPoints = errors.New("no turning points")

	// ErrInvalidArgument is returned for out-of-range query arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)
