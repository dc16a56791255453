package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/geoguess/internal/api/handler"
	"github.com/mcoot/geoguess/internal/api/middleware"
	"github.com/mcoot/geoguess/internal/api/response"
	"github.com/mcoot/geoguess/internal/metrics"
	"github.com/mcoot/geoguess/internal/services/game"
	"github.com/mcoot/geoguess/internal/services/round"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Coordinator *game.Coordinator
	Rounds      *round.Store
	Metrics     *metrics.Metrics
	// WSHandler serves the realtime endpoint (optional)
	WSHandler http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	sessionHandler := handler.NewSessionHandler(cfg.Coordinator)
	roundHandler := handler.NewRoundHandler(cfg.Coordinator)

	// Create middleware
	authMiddleware := middleware.Auth()
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Sign-in routes (token optional, reused when present)
	api.HandleFunc("/auth", sessionHandler.Authenticate).Methods(http.MethodPost)
	api.HandleFunc("/auth/test", sessionHandler.AuthenticateTest).Methods(http.MethodPost)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/auth/logout", sessionHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/state", roundHandler.State).Methods(http.MethodGet)
	protected.HandleFunc("/history", roundHandler.History).Methods(http.MethodGet)
	protected.HandleFunc("/rounds", roundHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/rounds/current/guesses", roundHandler.Guess).Methods(http.MethodPost)
	protected.HandleFunc("/rounds/current/close", roundHandler.Close).Methods(http.MethodPost)

	// Realtime endpoint authenticates via ?session= or in-band
	if cfg.WSHandler != nil {
		api.Handle("/ws", cfg.WSHandler).Methods(http.MethodGet)
	}

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler(cfg.Rounds)).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(rounds *round.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := response.Health{Status: "ok"}
		if rounds != nil {
			phase, err := rounds.Phase(r.Context())
			if err != nil {
				response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "degraded"})
				return
			}
			health.Phase = string(phase)
		}
		response.JSON(w, http.StatusOK, health)
	}
}
