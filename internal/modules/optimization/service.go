// Package optimization runs the critical-line solver on behalf of the HTTP API and CLI.
package optimization

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/cla"
)

// ResultCache stores solved results by problem key.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Stats(ctx context.Context) (calculations.Stats, error)
}

// ServiceConfig tunes the optimizer service.
type ServiceConfig struct {
	Solver        cla.Config
	DefaultPoints int
	CacheTTL      time.Duration
}

// OptimizerService validates problems, solves them and caches the results. Concurrent
// requests for the same problem share a single solve.
type OptimizerService struct {
	cache ResultCache
	cfg   ServiceConfig
	group singleflight.Group
	log   zerolog.Logger
	now   func() time.Time
}

// NewOptimizerService creates a service. cache may be nil to disable caching.
func NewOptimizerService(cache ResultCache, cfg ServiceConfig, log zerolog.Logger) *OptimizerService {
	if cfg.DefaultPoints <= 0 {
		cfg.DefaultPoints = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	return &OptimizerService{
		cache: cache,
		cfg:   cfg,
		log:   log.With().Str("component", "optimizer_service").Logger(),
		now:   time.Now,
	}
}

// Validate checks a request without solving it.
func (s *OptimizerService) Validate(req SolveRequest) (cla.Problem, error) {
	if req.Points < 0 {
		return cla.Problem{}, fmt.Errorf("%w: frontier needs a positive number of points, got %d", cla.ErrInvalidArgument, req.Points)
	}
	return req.ToProblem()
}

// Solve returns the turning points, frontier samples, maximum-Sharpe and minimum-variance
// portfolios of the requested problem.
func (s *OptimizerService) Solve(ctx context.Context, req SolveRequest) (OptimizationResult, error) {
	problem, err := s.Validate(req)
	if err != nil {
		return OptimizationResult{}, err
	}
	points := req.Points
	if points == 0 {
		points = s.cfg.DefaultPoints
	}

	key, err := ProblemKey(problem, points)
	if err != nil {
		return OptimizationResult{}, err
	}

	if cached, ok := s.cached(ctx, key); ok {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between the lookup above and this one has already
		// stored its result.
		if cached, ok := s.cached(context.Background(), key); ok {
			return cached, nil
		}
		return s.solve(problem, points, key)
	})

	select {
	case <-ctx.Done():
		return OptimizationResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return OptimizationResult{}, res.Err
		}
		return res.Val.(OptimizationResult), nil
	}
}

// cached looks key up in the cache. Read failures other than a miss are logged and
// treated as a miss.
func (s *OptimizerService) cached(ctx context.Context, key string) (OptimizationResult, bool) {
	if s.cache == nil {
		return OptimizationResult{}, false
	}

	var cached OptimizationResult
	err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		if !errors.Is(err, calculations.ErrMiss) {
			s.log.Warn().Err(err).Str("problem_hash", key).Msg("Failed to read cached frontier")
		}
		return OptimizationResult{}, false
	}

	s.log.Debug().Str("problem_hash", key).Str("run_id", cached.RunID).Msg("Serving cached frontier")
	cached.CacheHit = true
	return cached, true
}

// CacheStats reports the solution cache contents.
func (s *OptimizerService) CacheStats(ctx context.Context) (calculations.Stats, error) {
	if s.cache == nil {
		return calculations.Stats{}, nil
	}
	return s.cache.Stats(ctx)
}

// solve runs the solver outside any request context so a cancelled caller does not abort
// a solve other callers are waiting on.
func (s *OptimizerService) solve(problem cla.Problem, points int, key string) (OptimizationResult, error) {
	start := s.now()
	runID := uuid.New().String()

	solver, err := cla.NewSolver(problem, s.cfg.Solver, s.log.With().Str("run_id", runID).Logger())
	if err != nil {
		s.log.Warn().Err(err).Str("run_id", runID).Str("problem_hash", key).Msg("Solve failed")
		return OptimizationResult{}, fmt.Errorf("failed to solve problem %s: %w", key[:12], err)
	}

	result, err := BuildResult(solver, points)
	if err != nil {
		return OptimizationResult{}, err
	}
	result.RunID = runID
	result.ProblemHash = key
	result.SolvedAt = start.UTC()
	result.DurationMs = float64(s.now().Sub(start).Microseconds()) / 1000

	s.log.Info().
		Str("run_id", runID).
		Str("problem_hash", key).
		Int("assets", len(result.Assets)).
		Int("turning_points", len(result.TurningPoints)).
		Float64("duration_ms", result.DurationMs).
		Msg("Solved efficient frontier")

	if s.cache != nil {
		if err := s.cache.Set(context.Background(), key, result, s.cfg.CacheTTL); err != nil {
			s.log.Warn().Err(err).Str("problem_hash", key).Msg("Failed to cache frontier")
		}
	}

	return result, nil
}

// BuildResult runs every query on a constructed solver.
func BuildResult(solver *cla.Solver, points int) (OptimizationResult, error) {
	assets := solver.Assets()
	result := OptimizationResult{
		Assets: make([]string, len(assets)),
		Points: points,
	}
	for i, a := range assets {
		result.Assets[i] = string(a)
	}

	for _, tp := range solver.Points() {
		ret, risk := solver.Stats(tp.Weights)
		free := make([]string, len(tp.Free))
		for i, a := range tp.Free {
			free[i] = string(a)
		}
		result.TurningPoints = append(result.TurningPoints, TurningPointResult{
			Weights: weightsByName(tp.Weights),
			Lambda:  tp.Lambda,
			Gamma:   tp.Gamma,
			Free:    free,
			Return:  ret,
			Risk:    risk,
		})
	}

	frontier, err := solver.EfficientFrontier(points)
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("failed to sample frontier: %w", err)
	}
	result.Frontier = make([]PortfolioResult, len(frontier))
	for i, p := range frontier {
		result.Frontier[i] = portfolioResult(solver, p)
	}

	maxSharpe, err := solver.MaximumSharpeRatio()
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("failed to find maximum Sharpe portfolio: %w", err)
	}
	result.MaxSharpe = portfolioResult(solver, maxSharpe)

	minVariance, err := solver.MinimumVariance()
	if err != nil {
		return OptimizationResult{}, fmt.Errorf("failed to find minimum-variance portfolio: %w", err)
	}
	result.MinVariance = portfolioResult(solver, minVariance)

	return result, nil
}

// portfolioResult fills in every statistic of p.
func portfolioResult(solver *cla.Solver, p cla.Portfolio) PortfolioResult {
	ret, risk := solver.Stats(p.Weights)
	sharpe := ret / risk
	if p.Sharpe != nil {
		sharpe = *p.Sharpe
	}
	return PortfolioResult{
		Weights: weightsByName(p.Weights),
		Return:  finitePtr(ret),
		Risk:    finitePtr(risk),
		Sharpe:  finitePtr(sharpe),
	}
}

// canonicalProblem is the hashed form of a problem: every map flattened in asset order.
type canonicalProblem struct {
	Assets     []string
	Mean       []float64
	Covariance []float64
	Lower      []float64
	Upper      []float64
	Points     int
}

// ProblemKey hashes a validated problem and the frontier sample count.
func ProblemKey(p cla.Problem, points int) (string, error) {
	n := len(p.Assets)
	c := canonicalProblem{
		Assets:     make([]string, n),
		Mean:       make([]float64, n),
		Covariance: make([]float64, 0, n*n),
		Lower:      make([]float64, n),
		Upper:      make([]float64, n),
		Points:     points,
	}
	for i, a := range p.Assets {
		c.Assets[i] = string(a)
		c.Mean[i] = p.Mean[a]
		c.Lower[i] = p.Lower[a]
		c.Upper[i] = p.Upper[a]
		for _, b := range p.Assets {
			c.Covariance = append(c.Covariance, p.Covariance[a][b])
		}
	}

	data, err := msgpack.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to encode problem: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
