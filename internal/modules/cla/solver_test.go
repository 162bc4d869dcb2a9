package cla

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolver_UncorrelatedPair(t *testing.T) {
	s := mustSolve(t, uncorrelatedPair(t))
	points := s.Points()
	require.Len(t, points, 3)

	// Highest-return point is fully invested in the better asset.
	assert.InDelta(t, 0.0, points[0].Weights["A1"], 1e-12)
	assert.InDelta(t, 1.0, points[0].Weights["A2"], 1e-12)
	assert.Nil(t, points[0].Lambda)
	assert.Nil(t, points[0].Gamma)
	assert.Equal(t, []Asset{"A2"}, points[0].Free)

	// A1 is freed at λ = 0.9 without moving the weights yet.
	require.NotNil(t, points[1].Lambda)
	assert.InDelta(t, 0.9, *points[1].Lambda, 1e-12)
	assert.Equal(t, []Asset{"A2", "A1"}, points[1].Free)
	assert.InDelta(t, 1.0, points[1].Weights["A2"], 1e-12)

	// Minimum variance of uncorrelated assets is inverse-variance weighted.
	require.NotNil(t, points[2].Lambda)
	assert.Equal(t, 0.0, *points[2].Lambda)
	assert.InDelta(t, 25.0/(25.0+100.0/9.0), points[2].Weights["A1"], 1e-9)
	assert.InDelta(t, (100.0/9.0)/(25.0+100.0/9.0), points[2].Weights["A2"], 1e-9)
}

func TestNewSolver_BoundTransition(t *testing.T) {
	s := mustSolve(t, cappedTriple(t))
	points := s.Points()
	require.Len(t, points, 5)

	wantLambdas := []float64{1.8, 0.24, 0.109333333333, 0}
	for k, want := range wantLambdas {
		require.NotNil(t, points[k+1].Lambda, "turning point %d", k+1)
		assert.InDelta(t, want, *points[k+1].Lambda, 1e-9, "turning point %d", k+1)
	}

	// C reaches its 40% cap and leaves the free set.
	assert.Equal(t, []Asset{"A", "B", "C"}, points[2].Free)
	assert.Equal(t, []Asset{"A", "B"}, points[3].Free)
	assert.Equal(t, 0.4, points[3].Weights["C"])
	assert.InDelta(t, 17.0/75.0, points[3].Weights["A"], 1e-9)
	assert.InDelta(t, 28.0/75.0, points[3].Weights["B"], 1e-9)

	// Minimum variance splits the remaining 60% by inverse variance.
	last := points[4]
	assert.InDelta(t, 0.6*(100.0/9.0)/(25.0+100.0/9.0), last.Weights["A"], 1e-9)
	assert.InDelta(t, 0.6*25.0/(25.0+100.0/9.0), last.Weights["B"], 1e-9)
	assert.Equal(t, 0.4, last.Weights["C"])
}

func TestNewSolver_Invariants(t *testing.T) {
	testCases := []struct {
		name    string
		problem func(t *testing.T) Problem
	}{
		{"uncorrelated pair", uncorrelatedPair},
		{"capped pair", cappedPair},
		{"capped triple", cappedTriple},
		{"correlated five", correlatedFive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.problem(t)
			s := mustSolve(t, p)
			points := s.Points()
			require.NotEmpty(t, points)

			var prevLambda *float64
			prevReturn := math.Inf(1)
			for k, tp := range points {
				sum := 0.0
				for _, a := range p.Assets {
					w := tp.Weights[a]
					sum += w
					assert.GreaterOrEqual(t, w, p.Lower[a]-DefaultTolerance, "point %d asset %s below lower bound", k, a)
					assert.LessOrEqual(t, w, p.Upper[a]+DefaultTolerance, "point %d asset %s above upper bound", k, a)
				}
				assert.InDelta(t, 1.0, sum, DefaultTolerance, "point %d weights should sum to 1", k)

				ret, _ := s.Stats(tp.Weights)
				assert.LessOrEqual(t, ret, prevReturn+1e-12, "point %d return should not increase", k)
				prevReturn = ret

				if k == 0 {
					assert.Nil(t, tp.Lambda)
					continue
				}
				require.NotNil(t, tp.Lambda)
				// Degenerate inputs can bind and re-free an asset at the same λ, so ties are
				// possible in general. None of these fixtures has one.
				if prevLambda != nil {
					assert.Less(t, *tp.Lambda, *prevLambda, "λ should strictly decrease at point %d", k)
				}
				prevLambda = tp.Lambda
			}

			require.NotNil(t, points[len(points)-1].Lambda)
			assert.Equal(t, 0.0, *points[len(points)-1].Lambda)
		})
	}
}

func TestNewSolver_FinalBoundStepEndsAtZeroLambda(t *testing.T) {
	s := mustSolve(t, cappedPair(t))
	points := s.Points()
	require.Len(t, points, 3)

	require.NotNil(t, points[1].Lambda)
	assert.InDelta(t, 0.9, *points[1].Lambda, 1e-12)

	// Pinning A1 at λ = 0.25 already yields the minimum-variance weights, so that point
	// is replaced by the λ = 0 point.
	last := points[2]
	require.NotNil(t, last.Lambda)
	assert.Equal(t, 0.0, *last.Lambda)
	assert.Equal(t, []Asset{"A2"}, last.Free)
	assert.InDelta(t, 0.5, last.Weights["A1"], 1e-12)
	assert.InDelta(t, 0.5, last.Weights["A2"], 1e-12)
}

func TestNewSolver_UpperBoundsJustBelowOne(t *testing.T) {
	p, err := NewProblemFromMatrix(
		[]Asset{"A", "B"},
		[]float64{0.2, 0.1},
		[][]float64{{0.09, 0}, {0, 0.04}},
		[]float64{0, 0},
		[]float64{0.5, 0.5 - 1e-12},
	)
	require.NoError(t, err)

	s := mustSolve(t, p)
	first := s.Points()[0]
	assert.Equal(t, 0.5, first.Weights["A"])
	assert.LessOrEqual(t, first.Weights["B"], p.Upper["B"])
	assert.Equal(t, []Asset{"B"}, first.Free)
}

func TestNewSolver_HighestReturnFirst(t *testing.T) {
	p := correlatedFive(t)
	s := mustSolve(t, p)
	points := s.Points()

	// Caps on TECH1 and TECH2 push the remainder into FIN1 while FIN2 sits at its floor.
	first := points[0]
	assert.InDelta(t, 0.35, first.Weights["TECH1"], 1e-12)
	assert.InDelta(t, 0.30, first.Weights["TECH2"], 1e-12)
	assert.InDelta(t, 0.30, first.Weights["FIN1"], 1e-12)
	assert.InDelta(t, 0.05, first.Weights["FIN2"], 1e-12)
	assert.InDelta(t, 0.0, first.Weights["BOND"], 1e-12)
	assert.Equal(t, []Asset{"FIN1"}, first.Free)

	firstReturn, _ := s.Stats(first.Weights)
	assert.InDelta(t, 0.129, firstReturn, 1e-12)

	// BOND is freed and later pinned at its 50% cap.
	last := points[len(points)-1]
	assert.InDelta(t, 0.5, last.Weights["BOND"], 1e-12)
	assert.NotContains(t, last.Free, Asset("BOND"))
}

func TestNewSolver_SingleAsset(t *testing.T) {
	p, err := NewProblemFromMatrix(
		[]Asset{"ONLY"},
		[]float64{0.1},
		[][]float64{{0.04}},
		[]float64{1},
		[]float64{1},
	)
	require.NoError(t, err)

	s := mustSolve(t, p)
	points := s.Points()
	require.Len(t, points, 1)
	assert.Equal(t, 1.0, points[0].Weights["ONLY"])
	assert.Nil(t, points[0].Lambda)
}

func TestNewSolver_InfeasibleLowerBounds(t *testing.T) {
	p, err := NewProblemFromMatrix(
		[]Asset{"A", "B"},
		[]float64{0.1, 0.2},
		[][]float64{{0.04, 0}, {0, 0.09}},
		[]float64{0.6, 0.6},
		[]float64{1, 1},
	)
	require.NoError(t, err)

	s, err := NewSolver(p, DefaultConfig(), zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInfeasibleBounds)
}

func TestNewSolver_SingularCovariance(t *testing.T) {
	p, err := NewProblemFromMatrix(
		[]Asset{"A", "B"},
		[]float64{0.1, 0.2},
		[][]float64{{0.04, 0.04}, {0.04, 0.04}},
		[]float64{0, 0},
		[]float64{1, 1},
	)
	require.NoError(t, err)

	s, err := NewSolver(p, DefaultConfig(), zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrSingularMatrix)
}

func TestNewSolver_IterationCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 1

	s, err := NewSolver(cappedTriple(t), cfg, zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrNotConverged)
}

func TestNewSolver_ParallelScanMatchesSerial(t *testing.T) {
	p := correlatedFive(t)

	serial := mustSolve(t, p)

	cfg := DefaultConfig()
	cfg.Workers = 4
	parallel, err := NewSolver(p, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, serial.Points(), parallel.Points())
}

func TestNewSolver_InvalidProblem(t *testing.T) {
	s, err := NewSolver(Problem{}, DefaultConfig(), zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrInvalidProblem)
}
