package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/frontier/internal/database"
)

// SystemHandlers serves host and storage status
type SystemHandlers struct {
	log            zerolog.Logger
	dataDir        string
	calculationsDB *database.DB
	startedAt      time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, dataDir string, calculationsDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:            log.With().Str("component", "system_handlers").Logger(),
		dataDir:        dataDir,
		calculationsDB: calculationsDB,
		startedAt:      time.Now(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status         string          `json:"status"` // "healthy" or "degraded"
	CPUPercent     float64         `json:"cpu_percent"`
	MemoryPercent  float64         `json:"memory_percent"`
	Goroutines     int             `json:"goroutines"`
	UptimeSeconds  float64         `json:"uptime_seconds"`
	DataDirSizeMB  float64         `json:"data_dir_size_mb"`
	CalculationsDB *database.Stats `json:"calculations_db,omitempty"`
}

// HandleSystemStatus returns host load and cache database statistics
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		DataDirSizeMB: h.getDirSize(h.dataDir),
	}

	if h.calculationsDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.calculationsDB.QuickCheck(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Calculations database unreachable")
			response.Status = "degraded"
		} else if stats, err := h.calculationsDB.GetStats(); err != nil {
			h.log.Warn().Err(err).Msg("Failed to read calculations database stats")
		} else {
			response.CalculationsDB = stats
		}
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	if dirPath == "" {
		return 0
	}

	var totalSize int64
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages over a short 100ms window
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
