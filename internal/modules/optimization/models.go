package optimization

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/frontier/internal/modules/cla"
)

// ProblemInput is the wire form of a mean-variance problem. Assets fixes the ordering.
// Missing lower bounds default to 0 and missing upper bounds to 1.
type ProblemInput struct {
	Assets     []string                      `json:"assets" yaml:"assets"`
	Mean       map[string]float64            `json:"mean" yaml:"mean"`
	Covariance map[string]map[string]float64 `json:"covariance" yaml:"covariance"`
	Lower      map[string]float64            `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper      map[string]float64            `json:"upper,omitempty" yaml:"upper,omitempty"`
}

// SolveRequest is a problem plus the number of frontier samples to return.
// Zero points selects the service default.
type SolveRequest struct {
	ProblemInput `yaml:",inline"`
	Points       int `json:"points,omitempty" yaml:"points,omitempty"`
}

// ToProblem converts the input into a validated cla.Problem.
func (in ProblemInput) ToProblem() (cla.Problem, error) {
	known := make(map[string]bool, len(in.Assets))
	for _, a := range in.Assets {
		known[a] = true
	}
	for _, bounds := range []struct {
		name   string
		values map[string]float64
	}{{"lower", in.Lower}, {"upper", in.Upper}} {
		for a := range bounds.values {
			if !known[a] {
				return cla.Problem{}, fmt.Errorf("%w: %s bound for unknown asset %q", cla.ErrInvalidProblem, bounds.name, a)
			}
		}
	}

	p := cla.Problem{
		Assets:     make([]cla.Asset, len(in.Assets)),
		Mean:       make(map[cla.Asset]float64, len(in.Mean)),
		Covariance: make(map[cla.Asset]map[cla.Asset]float64, len(in.Covariance)),
		Lower:      make(map[cla.Asset]float64, len(in.Assets)),
		Upper:      make(map[cla.Asset]float64, len(in.Assets)),
	}
	for i, a := range in.Assets {
		p.Assets[i] = cla.Asset(a)

		lower, ok := in.Lower[a]
		if !ok {
			lower = 0
		}
		upper, ok := in.Upper[a]
		if !ok {
			upper = 1
		}
		p.Lower[cla.Asset(a)] = lower
		p.Upper[cla.Asset(a)] = upper
	}
	for a, v := range in.Mean {
		p.Mean[cla.Asset(a)] = v
	}
	for a, row := range in.Covariance {
		converted := make(map[cla.Asset]float64, len(row))
		for b, v := range row {
			converted[cla.Asset(b)] = v
		}
		p.Covariance[cla.Asset(a)] = converted
	}

	if err := p.Validate(); err != nil {
		return cla.Problem{}, err
	}
	return p, nil
}

// PortfolioResult is a portfolio with its statistics. Statistics that are not finite
// (a riskless portfolio's Sharpe ratio) are left empty.
type PortfolioResult struct {
	Weights map[string]float64 `json:"weights" yaml:"weights" msgpack:"weights"`
	Return  *float64           `json:"return,omitempty" yaml:"return,omitempty" msgpack:"return"`
	Risk    *float64           `json:"risk,omitempty" yaml:"risk,omitempty" msgpack:"risk"`
	Sharpe  *float64           `json:"sharpe,omitempty" yaml:"sharpe,omitempty" msgpack:"sharpe"`
}

// TurningPointResult is one turning point. Lambda and Gamma are empty for the first,
// highest-return point.
type TurningPointResult struct {
	Weights map[string]float64 `json:"weights" yaml:"weights" msgpack:"weights"`
	Lambda  *float64           `json:"lambda,omitempty" yaml:"lambda,omitempty" msgpack:"lambda"`
	Gamma   *float64           `json:"gamma,omitempty" yaml:"gamma,omitempty" msgpack:"gamma"`
	Free    []string           `json:"free" yaml:"free" msgpack:"free"`
	Return  float64            `json:"return" yaml:"return" msgpack:"return"`
	Risk    float64            `json:"risk" yaml:"risk" msgpack:"risk"`
}

// OptimizationResult is everything derived from one solve.
type OptimizationResult struct {
	RunID         string               `json:"run_id" yaml:"run_id" msgpack:"run_id"`
	ProblemHash   string               `json:"problem_hash" yaml:"problem_hash" msgpack:"problem_hash"`
	Assets        []string             `json:"assets" yaml:"assets" msgpack:"assets"`
	TurningPoints []TurningPointResult `json:"turning_points" yaml:"turning_points" msgpack:"turning_points"`
	Frontier      []PortfolioResult    `json:"frontier" yaml:"frontier" msgpack:"frontier"`
	MaxSharpe     PortfolioResult      `json:"max_sharpe" yaml:"max_sharpe" msgpack:"max_sharpe"`
	MinVariance   PortfolioResult      `json:"min_variance" yaml:"min_variance" msgpack:"min_variance"`
	Points        int                  `json:"points" yaml:"points" msgpack:"points"`
	SolvedAt      time.Time            `json:"solved_at" yaml:"solved_at" msgpack:"solved_at"`
	DurationMs    float64              `json:"duration_ms" yaml:"duration_ms" msgpack:"duration_ms"`
	CacheHit      bool                 `json:"cache_hit" yaml:"cache_hit" msgpack:"-"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func weightsByName(w map[cla.Asset]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for a, v := range w {
		out[string(a)] = v
	}
	return out
}
