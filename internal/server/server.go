package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Unbanked0/btcmap-api/internal/middleware"
	"github.com/Unbanked0/btcmap-api/internal/repository"
)

// Server exposes the read API over the store plus the admin tag
// endpoints. All routes are JSON.
type Server struct {
	store repository.Store
}

// NewHandler builds the full HTTP handler: routes, CORS and request
// logging.
func NewHandler(store repository.Store, allowedOrigins []string) http.Handler {
	s := &Server{store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/elements", s.handleListElements)
	mux.HandleFunc("GET /v2/elements/{id}", s.handleGetElement)
	mux.HandleFunc("POST /v2/elements/{id}/tags", s.handlePostElementTags)
	mux.HandleFunc("GET /v2/events", s.handleListEvents)
	mux.HandleFunc("GET /v2/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /v2/users", s.handleListUsers)
	mux.HandleFunc("GET /v2/users/{id}", s.handleGetUser)
	mux.HandleFunc("POST /v2/users/{id}/tags", s.handlePostUserTags)
	mux.HandleFunc("GET /v2/areas", s.handleListAreas)
	mux.HandleFunc("POST /v2/areas", s.handleCreateArea)
	mux.HandleFunc("GET /v2/areas/{alias}", s.handleGetArea)
	mux.HandleFunc("POST /v2/areas/{alias}/tags", s.handlePostAreaTags)
	mux.HandleFunc("GET /v2/reports", s.handleListReports)
	mux.HandleFunc("GET /v2/reports/{id}", s.handleGetReport)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	return middleware.LoggingMiddleware(corsHandler.Handler(mux))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
