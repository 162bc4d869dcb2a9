// Package di provides dependency injection wiring and initialization.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/cla"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/scheduler"
)

// Wire initializes all dependencies and returns a fully configured container
// Order of operations:
// 1. Initialize databases
// 2. Initialize services
// 3. Register jobs
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}

	InitializeServices(container, cfg, log)

	if err := RegisterJobs(container, cfg, log); err != nil {
		_ = container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}

// InitializeDatabases opens calculations.db and applies its schema
func InitializeDatabases(cfg *config.Config) (*Container, error) {
	calculationsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "calculations.db"),
		Profile: database.ProfileCache,
		Name:    "calculations",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize calculations database: %w", err)
	}

	if err := calculationsDB.Migrate(); err != nil {
		_ = calculationsDB.Close()
		return nil, fmt.Errorf("failed to migrate calculations database: %w", err)
	}

	return &Container{CalculationsDB: calculationsDB}, nil
}

// InitializeServices builds the cache and the optimizer service
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.CalculationCache = calculations.NewCache(container.CalculationsDB.Conn(), log)

	solverCfg := cla.DefaultConfig()
	solverCfg.MaxIterations = cfg.SolverMaxIterations
	solverCfg.Workers = cfg.SolverWorkers

	container.OptimizerService = optimization.NewOptimizerService(
		container.CalculationCache,
		optimization.ServiceConfig{
			Solver:        solverCfg,
			DefaultPoints: cfg.FrontierPoints,
			CacheTTL:      cfg.CacheTTL,
		},
		log,
	)
}

// RegisterJobs creates the scheduler and registers the maintenance jobs
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	sched := scheduler.New(log)

	if err := sched.AddJob(cfg.CachePruneSchedule, scheduler.NewPruneCacheJob(container.CalculationCache, log)); err != nil {
		return fmt.Errorf("invalid cache prune schedule %q: %w", cfg.CachePruneSchedule, err)
	}
	if err := sched.AddJob("@hourly", scheduler.NewCheckWALCheckpointsJob(log, container.CalculationsDB)); err != nil {
		return fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	container.Scheduler = sched
	return nil
}
