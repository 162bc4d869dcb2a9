package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/frontier/internal/modules/calculations"
	"github.com/aristath/frontier/internal/modules/cla"
	"github.com/aristath/frontier/internal/modules/optimization"
	testingpkg "github.com/aristath/frontier/internal/testing"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	db := testingpkg.NewTestDB(t, "calculations")
	cache := calculations.NewCache(db.Conn(), zerolog.Nop())
	svc := optimization.NewOptimizerService(cache, optimization.ServiceConfig{
		Solver:        cla.DefaultConfig(),
		DefaultPoints: 30,
	}, zerolog.Nop())

	router := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestHandleSolve(t *testing.T) {
	router := newTestRouter(t)

	rec, body := do(t, router, http.MethodPost, "/optimizer/solve", testingpkg.TwoAssetProblemJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.NotEmpty(t, body["run_id"])
	assert.Equal(t, false, body["cache_hit"])
	assert.Len(t, body["turning_points"], 3)
	assert.Len(t, body["frontier"], 19)

	maxSharpe := body["max_sharpe"].(map[string]interface{})
	assert.InDelta(t, 5.0/6.0, maxSharpe["sharpe"].(float64), 1e-6)

	first := body["turning_points"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, first, "lambda")

	// Same problem again is served from the cache.
	rec, body = do(t, router, http.MethodPost, "/optimizer/solve", testingpkg.TwoAssetProblemJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["cache_hit"])
}

func TestHandleQueries(t *testing.T) {
	router := newTestRouter(t)

	testCases := []struct {
		name  string
		path  string
		check func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "turning points",
			path: "/optimizer/turning-points",
			check: func(t *testing.T, body map[string]interface{}) {
				points := body["turning_points"].([]interface{})
				require.Len(t, points, 3)
				last := points[2].(map[string]interface{})
				assert.Equal(t, 0.0, last["lambda"])
			},
		},
		{
			name: "frontier with query points",
			path: "/optimizer/frontier?points=60",
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, 60.0, body["points"])
				// 20 fractions per segment over two segments, shared endpoint once.
				assert.Len(t, body["frontier"], 39)
			},
		},
		{
			name: "max sharpe",
			path: "/optimizer/max-sharpe",
			check: func(t *testing.T, body map[string]interface{}) {
				p := body["portfolio"].(map[string]interface{})
				weights := p["weights"].(map[string]interface{})
				assert.InDelta(t, 9.0/17.0, weights["A1"].(float64), 1e-5)
			},
		},
		{
			name: "min variance",
			path: "/optimizer/min-variance",
			check: func(t *testing.T, body map[string]interface{}) {
				p := body["portfolio"].(map[string]interface{})
				assert.InDelta(t, 0.16641, p["risk"].(float64), 1e-5)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodPost, tc.path, testingpkg.TwoAssetProblemJSON)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.NotEmpty(t, body["run_id"])
			tc.check(t, body)
		})
	}
}

func TestHandleSolve_Errors(t *testing.T) {
	router := newTestRouter(t)

	testCases := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"empty body", "/optimizer/solve", "", http.StatusBadRequest},
		{"malformed json", "/optimizer/solve", "{", http.StatusBadRequest},
		{"unknown field", "/optimizer/solve", `{"assetz": []}`, http.StatusBadRequest},
		{"empty universe", "/optimizer/solve", `{"assets": []}`, http.StatusBadRequest},
		{"infeasible bounds", "/optimizer/solve", testingpkg.InfeasibleProblemJSON, http.StatusBadRequest},
		{"singular covariance", "/optimizer/solve", testingpkg.SingularProblemJSON, http.StatusUnprocessableEntity},
		{"bad points parameter", "/optimizer/frontier?points=abc", testingpkg.TwoAssetProblemJSON, http.StatusBadRequest},
		{"zero points parameter", "/optimizer/frontier?points=0", testingpkg.TwoAssetProblemJSON, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, router, http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleCacheStats(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := do(t, router, http.MethodPost, "/optimizer/solve", testingpkg.TwoAssetProblemJSON)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, router, http.MethodGet, "/optimizer/cache/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["entries"])
	assert.Equal(t, 0.0, body["expired"])
}

type failingSolver struct{ err error }

func (f failingSolver) Solve(context.Context, optimization.SolveRequest) (optimization.OptimizationResult, error) {
	return optimization.OptimizationResult{}, f.err
}

func (f failingSolver) CacheStats(context.Context) (calculations.Stats, error) {
	return calculations.Stats{}, f.err
}

func TestHandlers_InternalErrors(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(failingSolver{err: errors.New("disk on fire")}, zerolog.Nop()).RegisterRoutes(router)

	rec, body := do(t, router, http.MethodPost, "/optimizer/solve", testingpkg.TwoAssetProblemJSON)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "disk on fire", body["error"])

	rec, _ = do(t, router, http.MethodGet, "/optimizer/cache/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusForError(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", cla.ErrInvalidProblem), http.StatusBadRequest},
		{cla.ErrInfeasibleBounds, http.StatusBadRequest},
		{cla.ErrInvalidArgument, http.StatusBadRequest},
		{fmt.Errorf("solve: %w", cla.ErrSingularMatrix), http.StatusUnprocessableEntity},
		{cla.ErrNotConverged, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{cla.ErrNumerical, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, StatusForError(tc.err))
		})
	}
}

func TestRegisterRoutes(t *testing.T) {
	router := chi.NewRouter()
	NewHandler(failingSolver{}, zerolog.Nop()).RegisterRoutes(router)

	routes := map[string]bool{}
	require.NoError(t, chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	}))

	for _, want := range []string{
		"POST /optimizer/solve",
		"POST /optimizer/turning-points",
		"POST /optimizer/frontier",
		"POST /optimizer/max-sharpe",
		"POST /optimizer/min-variance",
		"GET /optimizer/cache/stats",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}
