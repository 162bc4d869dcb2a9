// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding the solution cache database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	CacheTTL           time.Duration // Lifetime of cached solver results
	CachePruneSchedule string        // Cron schedule of the cache prune job

	SolverMaxIterations int // 0 derives the cap from the universe size
	SolverWorkers       int
	FrontierPoints      int // Default frontier sample count
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("FRONTIER_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnvAsInt("GO_PORT", 8001),
		DevMode:             getEnvAsBool("DEV_MODE", false),
		CacheTTL:            time.Duration(getEnvAsInt("CACHE_TTL_MINUTES", 1440)) * time.Minute,
		CachePruneSchedule:  getEnv("CACHE_PRUNE_SCHEDULE", "@every 10m"),
		SolverMaxIterations: getEnvAsInt("SOLVER_MAX_ITERATIONS", 0),
		SolverWorkers:       getEnvAsInt("SOLVER_WORKERS", runtime.GOMAXPROCS(0)),
		FrontierPoints:      getEnvAsInt("FRONTIER_POINTS", 100),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_MINUTES must be positive, got %s", c.CacheTTL)
	}
	if c.FrontierPoints <= 0 {
		return fmt.Errorf("FRONTIER_POINTS must be positive, got %d", c.FrontierPoints)
	}
	if c.SolverMaxIterations < 0 {
		return fmt.Errorf("SOLVER_MAX_ITERATIONS must not be negative, got %d", c.SolverMaxIterations)
	}
	if c.SolverWorkers < 1 {
		c.SolverWorkers = 1
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
