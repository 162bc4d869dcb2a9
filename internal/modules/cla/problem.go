package cla

import (
	"fmt"
	"math"
)

// Asset identifies a security in the universe. The solver only compares and hashes it.
type Asset string

// Problem holds the solver inputs. Assets fixes the universe and its ordering; every map
// must carry exactly one entry per asset. Covariance is indexed as Covariance[a][b].
type Problem struct {
	Assets     []Asset
	Mean       map[Asset]float64
	Covariance map[Asset]map[Asset]float64
	Lower      map[Asset]float64
	Upper      map[Asset]float64
}

// NewProblemFromMatrix builds a Problem from slices ordered like assets.
func NewProblemFromMatrix(assets []Asset, mean []float64, covMatrix [][]float64, lower, upper []float64) (Problem, error) {
	n := len(assets)
	if len(mean) != n || len(covMatrix) != n || len(lower) != n || len(upper) != n {
		return Problem{}, fmt.Errorf("%w: expected %d entries in every input", ErrInvalidProblem, n)
	}

	p := Problem{
		Assets:     append([]Asset(nil), assets...),
		Mean:       make(map[Asset]float64, n),
		Covariance: make(map[Asset]map[Asset]float64, n),
		Lower:      make(map[Asset]float64, n),
		Upper:      make(map[Asset]float64, n),
	}
	for i, a := range assets {
		if len(covMatrix[i]) != n {
			return Problem{}, fmt.Errorf("%w: covariance row %d has size %d, expected %d", ErrInvalidProblem, i, len(covMatrix[i]), n)
		}
		p.Mean[a] = mean[i]
		p.Lower[a] = lower[i]
		p.Upper[a] = upper[i]
		row := make(map[Asset]float64, n)
		for j, b := range assets {
			row[b] = covMatrix[i][j]
		}
		p.Covariance[a] = row
	}

	return p, nil
}

// Validate checks the structural invariants of the problem and the feasibility of the
// full-investment constraint under the box constraints.
func (p Problem) Validate() error {
	n := len(p.Assets)
	if n == 0 {
		return fmt.Errorf("%w: empty universe", ErrInvalidProblem)
	}

	seen := make(map[Asset]struct{}, n)
	for _, a := range p.Assets {
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate asset %q", ErrInvalidProblem, a)
		}
		seen[a] = struct{}{}
	}

	inputs := []struct {
		name   string
		values map[Asset]float64
	}{
		{"mean", p.Mean},
		{"lower bound", p.Lower},
		{"upper bound", p.Upper},
	}
	for _, in := range inputs {
		if len(in.values) != n {
			return fmt.Errorf("%w: %s has %d entries, expected %d", ErrInvalidProblem, in.name, len(in.values), n)
		}
		for _, a := range p.Assets {
			v, ok := in.values[a]
			if !ok {
				return fmt.Errorf("%w: missing %s for asset %q", ErrInvalidProblem, in.name, a)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s for asset %q is not finite", ErrInvalidProblem, in.name, a)
			}
		}
	}

	if len(p.Covariance) != n {
		return fmt.Errorf("%w: covariance has %d rows, expected %d", ErrInvalidProblem, len(p.Covariance), n)
	}
	for _, a := range p.Assets {
		row, ok := p.Covariance[a]
		if !ok || len(row) != n {
			return fmt.Errorf("%w: covariance row for asset %q must have %d entries", ErrInvalidProblem, a, n)
		}
		for _, b := range p.Assets {
			v, ok := row[b]
			if !ok {
				return fmt.Errorf("%w: missing covariance for (%q, %q)", ErrInvalidProblem, a, b)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: covariance for (%q, %q) is not finite", ErrInvalidProblem, a, b)
			}
		}
	}

	var sumLower, sumUpper float64
	for _, a := range p.Assets {
		if p.Lower[a] > p.Upper[a] {
			return fmt.Errorf("%w: lower bound %g exceeds upper bound %g for asset %q", ErrInvalidProblem, p.Lower[a], p.Upper[a], a)
		}
		sumLower += p.Lower[a]
		sumUpper += p.Upper[a]
	}
	if sumLower > 1+DefaultTolerance {
		return fmt.Errorf("%w: lower bounds sum to %g", ErrInfeasibleBounds, sumLower)
	}
	if sumUpper < 1-DefaultTolerance {
		return fmt.Errorf("%w: upper bounds sum to %g", ErrInfeasibleBounds, sumUpper)
	}

	return nil
}
