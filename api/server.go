package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig contains tunables for the HTTP server
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig leaves room for two sequential upstream calls per request
func DefaultServerConfig(address string) ServerConfig {
	return ServerConfig{
		Address:      address,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// NewRouter builds the full handler chain: request logging, authentication, routes and metrics
func NewRouter(service Integration, auth AuthConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	NewHandler(service).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return RequestLogger(logger, NewAuthMiddleware(auth).Wrap(mux))
}

// NewServer creates *http.Server with provided handler
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
