package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/lens/backend/internal/api/handlers"
	"github.com/wonny/lens/backend/internal/evaluation"
	"github.com/wonny/lens/backend/internal/resultcache"
	"github.com/wonny/lens/backend/pkg/logger"
)

// Dependencies wires the router
type Dependencies struct {
	Evaluator *evaluation.Evaluator
	Cache     *resultcache.Cache // nil: cache endpoints are not mounted

	// RateLimiter guards POST /api/evaluations when set
	RateLimiter   RateLimiter
	EvalRateLimit int // requests per client per minute

	Logger *logger.Logger
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "not_found", "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Evaluation endpoints
	evalHandler := handlers.NewEvaluationHandler(deps.Evaluator, log)
	eval := api.PathPrefix("/evaluations").Subrouter()
	eval.HandleFunc("", evalHandler.Evaluate).Methods("POST")
	if deps.RateLimiter != nil && deps.EvalRateLimit > 0 {
		eval.Use(rateLimitMiddleware(deps.RateLimiter, deps.EvalRateLimit, log))
	}

	// Cache endpoints
	if deps.Cache != nil {
		cacheHandler := handlers.NewCacheHandler(deps.Cache, log)
		api.HandleFunc("/cache/stats", cacheHandler.GetStats).Methods("GET")
		api.HandleFunc("/cache/sweep", cacheHandler.Sweep).Methods("POST")
	}

	// Apply middleware
	r.Use(requestIDMiddleware())
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "lens-api",
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(handlers.ErrorResponse{
		Error:     message,
		Kind:      kind,
		RequestID: handlers.RequestIDFrom(r.Context()),
	})
}
