package cla

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Assets returns the universe in solver order.
func (s *Solver) Assets() []Asset {
	return append([]Asset(nil), s.assets...)
}

// Points returns a copy of the turning points with their λ, γ and free sets, ordered from
// the highest-return portfolio to the minimum-variance portfolio.
func (s *Solver) Points() []TurningPoint {
	out := make([]TurningPoint, len(s.points))
	for k, tp := range s.points {
		free := make([]Asset, len(tp.free))
		for pos, i := range tp.free {
			free[pos] = s.assets[i]
		}
		out[k] = TurningPoint{
			Weights: s.weightMap(tp.w),
			Lambda:  copyPtr(tp.lambda),
			Gamma:   copyPtr(tp.gamma),
			Free:    free,
		}
	}
	return out
}

// TurningPoints returns the turning-point weight vectors. Statistics are left unset; use
// EfficientFrontier for returns and risks.
func (s *Solver) TurningPoints() ([]Portfolio, error) {
	if len(s.points) == 0 {
		return nil, ErrNoTurningPoints
	}
	out := make([]Portfolio, len(s.points))
	for k, tp := range s.points {
		out[k] = Portfolio{Weights: s.weightMap(tp.w)}
	}
	return out, nil
}

// EfficientFrontier samples the frontier by linear interpolation between adjacent turning
// points. Each segment gets points/len(turning points) fractions evenly spaced in [0, 1);
// the last segment also includes 1 so the minimum-variance end is closed.
func (s *Solver) EfficientFrontier(points int) ([]Portfolio, error) {
	if len(s.points) == 0 {
		return nil, ErrNoTurningPoints
	}
	if points <= 0 {
		return nil, fmt.Errorf("%w: frontier needs a positive number of points, got %d", ErrInvalidArgument, points)
	}
	if len(s.points) == 1 {
		return []Portfolio{s.portfolioWithStats(s.points[0].w)}, nil
	}

	closed := linspace(0, 1, points/len(s.points))
	open := closed
	if len(open) > 0 {
		open = open[:len(open)-1]
	}

	segments := len(s.points) - 1
	frontier := make([]Portfolio, 0, segments*len(closed))
	w := make([]float64, len(s.assets))
	for i := 0; i < segments; i++ {
		w0, w1 := s.points[i].w, s.points[i+1].w
		fractions := open
		if i == segments-1 {
			fractions = closed
		}
		for _, j := range fractions {
			interpolate(w, w0, w1, j)
			frontier = append(frontier, s.portfolioWithStats(w))
		}
	}

	return frontier, nil
}

// MaximumSharpeRatio returns the portfolio with the highest ratio of expected return to
// risk. Each segment between adjacent turning points is searched with GoldenSection; the
// best segment wins.
func (s *Solver) MaximumSharpeRatio() (Portfolio, error) {
	if len(s.points) == 0 {
		return Portfolio{}, ErrNoTurningPoints
	}
	if len(s.points) == 1 {
		w := s.points[0].w
		return Portfolio{Weights: s.weightMap(w), Sharpe: floatPtr(s.sharpe(w))}, nil
	}

	type segmentBest struct {
		fraction float64
		sharpe   float64
	}
	segments := len(s.points) - 1
	best := make([]segmentBest, segments)

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i := 0; i < segments; i++ {
		g.Go(func() error {
			w0, w1 := s.points[i].w, s.points[i+1].w
			w := make([]float64, len(s.assets))
			evalSR := func(a float64) float64 {
				interpolate(w, w1, w0, a)
				return s.sharpe(w)
			}
			a, sr := GoldenSection(evalSR, 0, 1, goldenTolerance, Maximize)
			best[i] = segmentBest{fraction: a, sharpe: sr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Portfolio{}, err
	}

	top := 0
	for i := 1; i < segments; i++ {
		if best[i].sharpe > best[top].sharpe {
			top = i
		}
	}

	w := make([]float64, len(s.assets))
	interpolate(w, s.points[top+1].w, s.points[top].w, best[top].fraction)
	return Portfolio{Weights: s.weightMap(w), Sharpe: floatPtr(best[top].sharpe)}, nil
}

// MinimumVariance returns the stored turning point with the smallest variance.
func (s *Solver) MinimumVariance() (Portfolio, error) {
	if len(s.points) == 0 {
		return Portfolio{}, ErrNoTurningPoints
	}

	top := 0
	minVar := s.portfolioVariance(s.points[0].w)
	for k := 1; k < len(s.points); k++ {
		if v := s.portfolioVariance(s.points[k].w); v < minVar {
			top, minVar = k, v
		}
	}

	return Portfolio{
		Weights: s.weightMap(s.points[top].w),
		Risk:    floatPtr(math.Sqrt(math.Max(minVar, 0))),
	}, nil
}

// Stats returns the expected return and risk of an arbitrary weight vector. Assets missing
// from weights count as zero.
func (s *Solver) Stats(weights map[Asset]float64) (float64, float64) {
	w := make([]float64, len(s.assets))
	for a, v := range weights {
		if i, ok := s.index[a]; ok {
			w[i] = v
		}
	}
	return s.portfolioReturn(w), math.Sqrt(math.Max(s.portfolioVariance(w), 0))
}

// PortfolioReturn is the expected return wᵗμ.
func PortfolioReturn(w, mean []float64) float64 {
	return floats.Dot(w, mean)
}

// PortfolioVariance is the variance wᵗΣw. covar must be len(w)×len(w).
func PortfolioVariance(w []float64, covar mat.Matrix) float64 {
	v := mat.NewVecDense(len(w), w)
	return mat.Inner(v, covar, v)
}

func (s *Solver) portfolioReturn(w []float64) float64 {
	return PortfolioReturn(w, s.mean.RawVector().Data)
}

func (s *Solver) portfolioVariance(w []float64) float64 {
	return PortfolioVariance(w, s.covar)
}

// sharpe is return over risk. A riskless portfolio scores ±Inf by the sign of its return.
func (s *Solver) sharpe(w []float64) float64 {
	ret := s.portfolioReturn(w)
	variance := s.portfolioVariance(w)
	if variance <= 0 {
		switch {
		case ret > 0:
			return math.Inf(1)
		case ret < 0:
			return math.Inf(-1)
		default:
			return 0
		}
	}
	return ret / math.Sqrt(variance)
}

func (s *Solver) portfolioWithStats(w []float64) Portfolio {
	return Portfolio{
		Weights: s.weightMap(w),
		Return:  floatPtr(s.portfolioReturn(w)),
		Risk:    floatPtr(math.Sqrt(math.Max(s.portfolioVariance(w), 0))),
	}
}

func (s *Solver) weightMap(w []float64) map[Asset]float64 {
	out := make(map[Asset]float64, len(w))
	for i, v := range w {
		out[s.assets[i]] = v
	}
	return out
}

// interpolate writes j·w1 + (1−j)·w0 into dst.
func interpolate(dst, w0, w1 []float64, j float64) {
	for i := range dst {
		dst[i] = j*w1[i] + (1-j)*w0[i]
	}
}

// linspace returns k evenly spaced values from lo to hi inclusive.
func linspace(lo, hi float64, k int) []float64 {
	switch {
	case k <= 0:
		return nil
	case k == 1:
		return []float64{lo}
	}
	out := make([]float64, k)
	floats.Span(out, lo, hi)
	return out
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return floatPtr(*p)
}
