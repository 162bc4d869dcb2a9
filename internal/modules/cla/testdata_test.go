package cla

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// uncorrelatedPair is the two-asset universe with no correlation used across the tests.
func uncorrelatedPair(t *testing.T) Problem {
	t.Helper()
	p, err := NewProblemFromMatrix(
		[]Asset{"A1", "A2"},
		[]float64{0.1, 0.2},
		[][]float64{
			{0.04, 0},
			{0, 0.09},
		},
		[]float64{0, 0},
		[]float64{1, 1},
	)
	require.NoError(t, err)
	return p
}

// cappedTriple has a low-variance asset capped at 40%, so the frontier pins it to its
// upper bound before reaching minimum variance.
func cappedTriple(t *testing.T) Problem {
	t.Helper()
	p, err := NewProblemFromMatrix(
		[]Asset{"A", "B", "C"},
		[]float64{0.2, 0.15, 0.05},
		[][]float64{
			{0.09, 0, 0},
			{0, 0.04, 0},
			{0, 0, 0.01},
		},
		[]float64{0, 0, 0},
		[]float64{1, 1, 0.4},
	)
	require.NoError(t, err)
	return p
}

// cappedPair caps A1 at 50%. The frontier pins A1 at its cap one step before minimum
// variance, leaving A2 as the only free asset.
func cappedPair(t *testing.T) Problem {
	t.Helper()
	p, err := NewProblemFromMatrix(
		[]Asset{"A1", "A2"},
		[]float64{0.1, 0.2},
		[][]float64{
			{0.04, 0},
			{0, 0.09},
		},
		[]float64{0, 0},
		[]float64{0.5, 1},
	)
	require.NoError(t, err)
	return p
}

// correlatedFive is a correlated universe with mixed bounds.
func correlatedFive(t *testing.T) Problem {
	t.Helper()
	p, err := NewProblemFromMatrix(
		[]Asset{"TECH1", "TECH2", "FIN1", "FIN2", "BOND"},
		[]float64{0.15, 0.14, 0.10, 0.09, 0.04},
		[][]float64{
			{0.040, 0.030, 0.010, 0.010, 0.002},
			{0.030, 0.045, 0.012, 0.010, 0.001},
			{0.010, 0.012, 0.030, 0.020, 0.003},
			{0.010, 0.010, 0.020, 0.032, 0.002},
			{0.002, 0.001, 0.003, 0.002, 0.005},
		},
		[]float64{0.05, 0, 0, 0.05, 0},
		[]float64{0.35, 0.30, 0.40, 0.40, 0.50},
	)
	require.NoError(t, err)
	return p
}

func mustSolve(t *testing.T, p Problem) *Solver {
	t.Helper()
	s, err := NewSolver(p, DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)
	return s
}
