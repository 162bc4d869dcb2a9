// Package cla implements the Critical-Line Algorithm for mean-variance portfolio
// optimization under per-asset bounds and a full-investment constraint.
//
// A Solver computes the full sequence of turning points of the efficient frontier at
// construction time. The sequence is ordered from the highest-return portfolio down to
// the global minimum-variance portfolio and is read-only afterwards, so a constructed
// Solver is safe for concurrent queries.
package cla

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance bounds the weight-sum and box-constraint residuals of stored turning points.
const DefaultTolerance = 1e-9

// Config tunes the solver.
type Config struct {
	// Tolerance for the purge checks. Zero means DefaultTolerance.
	Tolerance float64
	// MaxIterations caps the number of turning points computed. Zero derives a cap from
	// the universe size.
	MaxIterations int
	// Workers evaluating candidates to free in parallel. Values below 2 scan serially.
	Workers int
}

// DefaultConfig returns the serial solver configuration.
func DefaultConfig() Config {
	return Config{
		Tolerance: DefaultTolerance,
		Workers:   1,
	}
}

func (c Config) withDefaults(n int) Config {
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 20*n + 100
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

// Solver holds the problem and its turning points.
type Solver struct {
	assets []Asset
	index  map[Asset]int
	mean   *mat.VecDense
	covar  *mat.Dense
	lower  []float64
	upper  []float64

	points []turningPoint

	cfg Config
	log zerolog.Logger
}

// candidate is the best transition found by one of the two scans.
type candidate struct {
	ok     bool
	asset  int
	lambda float64
	bound  float64
}

// viable reports whether the candidate can produce a turning point.
func (c candidate) viable() bool {
	return c.ok && c.lambda >= 0
}

// NewSolver validates the problem and computes every turning point.
// Construction either fully succeeds or returns an error; no partial solver is returned.
func NewSolver(p Problem, cfg Config, log zerolog.Logger) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := len(p.Assets)
	s := &Solver{
		assets: append([]Asset(nil), p.Assets...),
		index:  make(map[Asset]int, n),
		mean:   mat.NewVecDense(n, nil),
		covar:  mat.NewDense(n, n, nil),
		lower:  make([]float64, n),
		upper:  make([]float64, n),
		cfg:    cfg.withDefaults(n),
		log:    log.With().Str("component", "cla_solver").Logger(),
	}
	for i, a := range s.assets {
		s.index[a] = i
		s.mean.SetVec(i, p.Mean[a])
		s.lower[i] = p.Lower[a]
		s.upper[i] = p.Upper[a]
		for j, b := range s.assets {
			s.covar.Set(i, j, p.Covariance[a][b])
		}
	}

	if err := s.solve(); err != nil {
		return nil, err
	}

	return s, nil
}

// solve runs the turning-point iteration and the purge steps.
func (s *Solver) solve() error {
	free, w, err := s.initAlgo()
	if err != nil {
		return err
	}
	s.points = append(s.points, turningPoint{
		w:    append([]float64(nil), w...),
		free: append([]int(nil), free...),
	})

	n := len(s.assets)
	for iteration := 1; ; iteration++ {
		if iteration > s.cfg.MaxIterations {
			return fmt.Errorf("%w: no minimum-variance point after %d iterations", ErrNotConverged, s.cfg.MaxIterations)
		}
		last := s.points[len(s.points)-1]

		in := candidate{}
		if len(free) > 1 {
			in, err = s.candidateToBound(free, last.w)
			if err != nil {
				return err
			}
		}

		out := candidate{}
		if len(free) < n {
			out, err = s.candidateToFree(free, last)
			if err != nil {
				return err
			}
		}

		var (
			lambda     float64
			rs         *reducedSystem
			transition string
		)
		terminal := !in.viable() && !out.viable()
		if terminal {
			transition = "minimum_variance"
			rs, err = s.reduce(free, w)
			if err != nil {
				return err
			}
			rs.zeroMean()
		} else {
			if in.ok && (!out.ok || in.lambda >= out.lambda) {
				transition = "bound"
				lambda = in.lambda
				free = removeIndex(free, in.asset)
				w[in.asset] = in.bound
			} else {
				transition = "free"
				lambda = out.lambda
				free = append(free, out.asset)
			}
			rs, err = s.reduce(free, w)
			if err != nil {
				return err
			}
		}

		wF, gamma := rs.weights(lambda)
		for k, i := range free {
			w[i] = wF.AtVec(k)
		}

		s.log.Debug().
			Int("iteration", iteration).
			Str("transition", transition).
			Float64("lambda", lambda).
			Float64("gamma", gamma).
			Int("free", len(free)).
			Msg("Turning point")

		tp := turningPoint{
			w:      append([]float64(nil), w...),
			lambda: floatPtr(lambda),
			gamma:  floatPtr(gamma),
			free:   append([]int(nil), free...),
		}
		if terminal && weightsEqual(w, last.w, s.cfg.Tolerance) {
			// The highest-return point of a pinned universe has no λ and stays alone.
			// Any other predecessor is the λ = 0 portfolio reached one step early.
			if len(s.points) > 1 {
				s.points[len(s.points)-1] = tp
			}
			break
		}

		s.points = append(s.points, tp)
		if terminal || lambda == 0 {
			break
		}
	}

	if err := s.purge(); err != nil {
		return err
	}

	s.log.Debug().Int("turning_points", len(s.points)).Msg("Critical line solved")
	return nil
}

// initAlgo builds the highest-return portfolio: every weight starts at its lower bound and
// assets are raised to their upper bound in descending order of mean until the portfolio
// is fully invested. The asset that crosses full investment is the only free one.
func (s *Solver) initAlgo() ([]int, []float64, error) {
	n := len(s.assets)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.mean.AtVec(order[a]) < s.mean.AtVec(order[b])
	})

	w := append([]float64(nil), s.lower...)
	for k := n - 1; k >= 0; k-- {
		i := order[k]
		w[i] = s.upper[i]
		if sum := floats.Sum(w); sum >= 1-s.cfg.Tolerance {
			// Upper bounds summing to just under one leave the residual unallocated.
			w[i] = math.Min(w[i]-(sum-1), s.upper[i])
			return []int{i}, w, nil
		}
	}

	return nil, nil, fmt.Errorf("%w: upper bounds sum to %g", ErrInfeasibleBounds, floats.Sum(s.upper))
}

// candidateToBound finds the free asset whose move to a bound yields the largest λ.
func (s *Solver) candidateToBound(free []int, last []float64) (candidate, error) {
	rs, err := s.reduce(free, last)
	if err != nil {
		return candidate{}, err
	}

	best := candidate{}
	for pos, i := range free {
		l, bi, ok := rs.lambda(pos, s.lower[i], s.upper[i])
		if !ok {
			continue
		}
		if !best.ok || l > best.lambda {
			best = candidate{ok: true, asset: i, lambda: l, bound: bi}
		}
	}

	return best, nil
}

// candidateToFree finds the bounded asset whose release yields the largest λ strictly
// below the previous turning point's λ.
func (s *Solver) candidateToFree(free []int, last turningPoint) (candidate, error) {
	bounded := s.boundedSet(free)
	found := make([]candidate, len(bounded))

	evaluate := func(k int) error {
		i := bounded[k]
		trial := make([]int, len(free), len(free)+1)
		copy(trial, free)
		trial = append(trial, i)

		rs, err := s.reduce(trial, last.w)
		if err != nil {
			return err
		}
		l, _, ok := rs.lambda(len(trial)-1, last.w[i], last.w[i])
		found[k] = candidate{ok: ok, asset: i, lambda: l}
		return nil
	}

	if s.cfg.Workers > 1 && len(bounded) > 1 {
		var g errgroup.Group
		g.SetLimit(s.cfg.Workers)
		for k := range bounded {
			g.Go(func() error { return evaluate(k) })
		}
		if err := g.Wait(); err != nil {
			return candidate{}, err
		}
	} else {
		for k := range bounded {
			if err := evaluate(k); err != nil {
				return candidate{}, err
			}
		}
	}

	best := candidate{}
	for _, c := range found {
		if !c.ok {
			continue
		}
		if last.lambda != nil && c.lambda >= *last.lambda {
			continue
		}
		if !best.ok || c.lambda > best.lambda {
			best = c
		}
	}

	return best, nil
}

func removeIndex(free []int, asset int) []int {
	out := make([]int, 0, len(free)-1)
	for _, i := range free {
		if i != asset {
			out = append(out, i)
		}
	}
	return out
}

func weightsEqual(a, b []float64, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
