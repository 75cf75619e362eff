package http

import (
	"net/http"

	"treelof-api/internal/auth"
	"treelof-api/internal/handlers"
	"treelof-api/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	revisionHandler *handlers.RevisionHandler,
	plantHandler *handlers.PlantHandler,
	feedHandler *handlers.FeedHandler,
	healthHandler *handlers.HealthHandler,
	trust *auth.TrustChecker,
) *mux.Router {
	r := mux.NewRouter()

	// route-level middleware sees the matched template
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.Trust(trust))

	// Revisions
	r.HandleFunc("/revisions", revisionHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/revisions", revisionHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/revisions/history", revisionHandler.History).Methods(http.MethodGet)

	// Wiki pages
	r.HandleFunc("/plants", plantHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/plants/{id}", plantHandler.Get).Methods(http.MethodGet)

	// Live feed for moderators
	r.HandleFunc("/ws/revisions", feedHandler.Subscribe).Methods(http.MethodGet)

	// Health check endpoints
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods(http.MethodGet)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
