// Package api provides the HTTP server for HabitLoop.
// It exposes the progression engine as a local REST API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/habitloop/habitloop/internal/app/progression"
	"github.com/habitloop/habitloop/internal/health"
)

// Server is the HabitLoop HTTP API server.
type Server struct {
	engine         *progression.Engine
	version        string
	metricsEnabled bool
	health         *health.Checker
}

// NewServer creates a new API server.
func NewServer(engine *progression.Engine, version string) *Server {
	return &Server{engine: engine, version: version}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealth attaches the periodic health checker to /health.
func (s *Server) SetHealth(h *health.Checker) { s.health = h }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if s.health == nil {
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
			})
			return
		}
		status := http.StatusOK
		label := "ok"
		if !s.health.IsHealthy() {
			status = http.StatusServiceUnavailable
			label = "degraded"
		}
		writeJSON(w, status, map[string]interface{}{
			"status": label,
			"checks": s.health.Statuses(),
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": s.version,
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/baseline", s.handleBaseline)
		r.Get("/ratings", s.handleRatings)
		r.Post("/activity", s.handleRecordActivity)

		r.Get("/challenge", s.handleCurrentChallenge)
		r.Post("/challenge/generate", s.handleGenerate)

		r.Get("/streak", s.handleStreak)
		r.Get("/streak/debt", s.handleDebt)
		r.Post("/streak/warmup", s.handleWarmUp)

		r.Get("/lifecycle/{month}", s.handleLifecycle)
		r.Post("/month/{month}/close", s.handleCloseMonth)
		r.Post("/month/{month}/preview", s.handlePreview)
	})

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
