package cla

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProblemFromMatrix(t *testing.T) {
	p := uncorrelatedPair(t)

	assert.Equal(t, []Asset{"A1", "A2"}, p.Assets)
	assert.Equal(t, 0.2, p.Mean["A2"])
	assert.Equal(t, 0.09, p.Covariance["A2"]["A2"])
	assert.Equal(t, 0.0, p.Covariance["A1"]["A2"])
	assert.NoError(t, p.Validate())
}

func TestNewProblemFromMatrix_SizeMismatch(t *testing.T) {
	_, err := NewProblemFromMatrix(
		[]Asset{"A", "B"},
		[]float64{0.1},
		[][]float64{{0.04, 0}, {0, 0.09}},
		[]float64{0, 0},
		[]float64{1, 1},
	)
	assert.ErrorIs(t, err, ErrInvalidProblem)

	_, err = NewProblemFromMatrix(
		[]Asset{"A", "B"},
		[]float64{0.1, 0.2},
		[][]float64{{0.04, 0}, {0}},
		[]float64{0, 0},
		[]float64{1, 1},
	)
	assert.ErrorIs(t, err, ErrInvalidProblem)
}

func TestProblemValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(p *Problem)
		wantErr error
	}{
		{
			name:    "empty universe",
			mutate:  func(p *Problem) { p.Assets = nil },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "duplicate asset",
			mutate:  func(p *Problem) { p.Assets = []Asset{"A1", "A1"} },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "missing mean",
			mutate:  func(p *Problem) { delete(p.Mean, "A2") },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "extra upper bound",
			mutate:  func(p *Problem) { p.Upper["A3"] = 1 },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "missing covariance entry",
			mutate:  func(p *Problem) { delete(p.Covariance["A1"], "A2") },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "non-finite mean",
			mutate:  func(p *Problem) { p.Mean["A1"] = math.NaN() },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "non-finite covariance",
			mutate:  func(p *Problem) { p.Covariance["A2"]["A1"] = math.Inf(1) },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "lower above upper",
			mutate:  func(p *Problem) { p.Lower["A1"], p.Upper["A1"] = 0.6, 0.5 },
			wantErr: ErrInvalidProblem,
		},
		{
			name:    "lower bounds above full investment",
			mutate:  func(p *Problem) { p.Lower["A1"], p.Lower["A2"] = 0.6, 0.6 },
			wantErr: ErrInfeasibleBounds,
		},
		{
			name:    "upper bounds below full investment",
			mutate:  func(p *Problem) { p.Upper["A1"], p.Upper["A2"] = 0.4, 0.4 },
			wantErr: ErrInfeasibleBounds,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := uncorrelatedPair(t)
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
