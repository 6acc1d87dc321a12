package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)

	// Streaming thumbnail jobs
	mux.HandleFunc("POST /thumbnails/requests", h.InitThumbnailRequest)
	mux.HandleFunc("GET /thumbnails/requests/{handle}", h.GetThumbnailRequest)
	mux.HandleFunc("DELETE /thumbnails/requests/{handle}", h.RemoveThumbnailRequest)
	mux.HandleFunc("POST /thumbnails/requests/{handle}/start", h.StartThumbnailRequest)
	mux.HandleFunc("POST /thumbnails/requests/{handle}/stop", h.StopThumbnailRequest)
	mux.HandleFunc("GET /thumbnails/requests/{handle}/events", h.ThumbnailEvents)
	mux.HandleFunc("POST /dispose", h.DisposeAll)

	// One-shot operations
	mux.HandleFunc("POST /trim", h.Trim)
	mux.HandleFunc("POST /thumbnail", h.ExtractThumbnail)
	mux.HandleFunc("POST /thumbnails", h.ExtractThumbnails)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Apply middleware chain
	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}
