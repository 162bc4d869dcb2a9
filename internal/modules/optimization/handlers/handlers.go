// Package handlers exposes the optimizer service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/cla"
	"github.com/aristath/frontier/internal/modules/optimization"
)

// maxBodyBytes bounds request bodies. A 500-asset covariance fits comfortably.
const maxBodyBytes = 16 << 20

// Solver is the part of the optimizer service the handlers use.
type Solver interface {
	Solve(ctx context.Context, req optimization.SolveRequest) (optimization.OptimizationResult, error)
	CacheStats(ctx context.Context) (calculations.Stats, error)
}

// Handler handles HTTP requests for the optimizer.
type Handler struct {
	service Solver
	log     zerolog.Logger
}

// NewHandler creates a new optimizer handler.
func NewHandler(service Solver, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("component", "optimizer_handler").Logger(),
	}
}

// HandleSolve handles POST /api/optimizer/solve - returns every derived result.
func (h *Handler) HandleSolve(w http.ResponseWriter, r *http.Request) {
	result, ok := h.solve(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleTurningPoints handles POST /api/optimizer/turning-points.
func (h *Handler) HandleTurningPoints(w http.ResponseWriter, r *http.Request) {
	result, ok := h.solve(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":         result.RunID,
		"assets":         result.Assets,
		"turning_points": result.TurningPoints,
		"cache_hit":      result.CacheHit,
	})
}

// HandleFrontier handles POST /api/optimizer/frontier?points=N.
// The query parameter overrides the points field of the body.
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	result, ok := h.solve(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"points":    result.Points,
		"frontier":  result.Frontier,
		"cache_hit": result.CacheHit,
	})
}

// HandleMaxSharpe handles POST /api/optimizer/max-sharpe.
func (h *Handler) HandleMaxSharpe(w http.ResponseWriter, r *http.Request) {
	result, ok := h.solve(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"portfolio": result.MaxSharpe,
		"cache_hit": result.CacheHit,
	})
}

// HandleMinVariance handles POST /api/optimizer/min-variance.
func (h *Handler) HandleMinVariance(w http.ResponseWriter, r *http.Request) {
	result, ok := h.solve(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    result.RunID,
		"portfolio": result.MinVariance,
		"cache_hit": result.CacheHit,
	})
}

// HandleCacheStats handles GET /api/optimizer/cache/stats.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CacheStats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read cache stats")
		h.writeError(w, http.StatusInternalServerError, "Failed to read cache stats")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// solve decodes the request and runs the service, writing the error response itself
// when it reports false.
func (h *Handler) solve(w http.ResponseWriter, r *http.Request) (optimization.OptimizationResult, bool) {
	req, err := decodeRequest(w, r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return optimization.OptimizationResult{}, false
	}

	result, err := h.service.Solve(r.Context(), req)
	if err != nil {
		status := StatusForError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("Optimization failed")
		} else {
			h.log.Debug().Err(err).Int("status", status).Msg("Optimization rejected")
		}
		h.writeError(w, status, err.Error())
		return optimization.OptimizationResult{}, false
	}

	return result, true
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (optimization.SolveRequest, error) {
	var req optimization.SolveRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("request body is empty")
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	if raw := r.URL.Query().Get("points"); raw != "" {
		points, err := strconv.Atoi(raw)
		if err != nil || points <= 0 {
			return req, fmt.Errorf("points must be a positive integer, got %q", raw)
		}
		req.Points = points
	}

	return req, nil
}

// StatusForError maps solver errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, cla.ErrInvalidProblem),
		errors.Is(err, cla.ErrInfeasibleBounds),
		errors.Is(err, cla.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, cla.ErrSingularMatrix),
		errors.Is(err, cla.ErrNotConverged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}
