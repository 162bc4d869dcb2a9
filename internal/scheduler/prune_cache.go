package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// CachePruner removes expired cache entries.
type CachePruner interface {
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// PruneCacheJob deletes expired solver results from the calculation cache
type PruneCacheJob struct {
	cache   CachePruner
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewPruneCacheJob creates a new PruneCacheJob
func NewPruneCacheJob(cache CachePruner, log zerolog.Logger) *PruneCacheJob {
	return &PruneCacheJob{
		cache:   cache,
		timeout: 30 * time.Second,
		now:     time.Now,
		log:     log.With().Str("job", "prune_calculation_cache").Logger(),
	}
}

// Name returns the job name
func (j *PruneCacheJob) Name() string {
	return "prune_calculation_cache"
}

// Run executes the prune
func (j *PruneCacheJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	removed, err := j.cache.Prune(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to prune calculation cache: %w", err)
	}

	j.log.Info().Int64("removed", removed).Msg("Calculation cache pruned")
	return nil
}
