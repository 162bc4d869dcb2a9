package di

import (
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/aristath/frontier/internal/scheduler"
)

// Container holds every wired dependency of the service
type Container struct {
	CalculationsDB *database.DB

	CalculationCache *calculations.Cache
	OptimizerService *optimization.OptimizerService

	Scheduler *scheduler.Scheduler
}

// Close releases the databases
func (c *Container) Close() error {
	if c.CalculationsDB != nil {
		return c.CalculationsDB.Close()
	}
	return nil
}
