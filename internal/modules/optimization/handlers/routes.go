package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers optimizer routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizer", func(r chi.Router) {
		r.Post("/solve", h.HandleSolve)
		r.Post("/turning-points", h.HandleTurningPoints)
		r.Post("/frontier", h.HandleFrontier)
		r.Post("/max-sharpe", h.HandleMaxSharpe)
		r.Post("/min-variance", h.HandleMinVariance)
		r.Get("/cache/stats", h.HandleCacheStats)
	})
}
