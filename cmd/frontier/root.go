package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aristath/frontier/internal/modules/cla"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/pkg/logger"
)

type rootOptions struct {
	logLevel      string
	workers       int
	maxIterations int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "frontier",
		Short:        "Compute mean-variance efficient frontiers with the critical-line algorithm",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "parallel candidate evaluations per iteration")
	flags.IntVar(&opts.maxIterations, "max-iterations", 0, "turning point cap (0 derives it from the universe size)")

	cmd.AddCommand(newSolveCmd(opts), newValidateCmd(opts))
	return cmd
}

// logger writes to stderr so results on stdout stay pipeable.
func (o *rootOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logger.New(logger.Config{
		Level:  o.logLevel,
		Pretty: true,
		Output: cmd.ErrOrStderr(),
	})
}

func (o *rootOptions) service(log zerolog.Logger) *optimization.OptimizerService {
	solverCfg := cla.DefaultConfig()
	solverCfg.Workers = o.workers
	solverCfg.MaxIterations = o.maxIterations

	return optimization.NewOptimizerService(nil, optimization.ServiceConfig{Solver: solverCfg}, log)
}

// loadRequest reads a problem file. JSON files are accepted as well since they are valid YAML.
func loadRequest(path string) (optimization.SolveRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return optimization.SolveRequest{}, fmt.Errorf("failed to open problem file: %w", err)
	}
	defer f.Close()

	var req optimization.SolveRequest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return optimization.SolveRequest{}, fmt.Errorf("failed to parse problem file %s: %w", path, err)
	}
	return req, nil
}
