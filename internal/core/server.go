// Package core is the HTTP chassis for the operator API: a chi router with
// request ids, structured request logging, panic recovery and bearer-key
// auth in front of domain handlers mounted under /v1.
package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"outreach/internal/config"
	"outreach/internal/types"
)

// Server holds the router and the cross-cutting dependencies of the API.
type Server struct {
	Config *config.Config
	Logger *slog.Logger

	// AdminAPIKey guards /v1. Empty disables the check, which NewServer only
	// allows for APP_ENV=local.
	AdminAPIKey types.SecretString

	// RequestTimeout bounds each request context.
	RequestTimeout time.Duration

	HealthProbes []HealthProbe

	// V1RouteRegistrars mount domain handlers; populated by main.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer validates the configuration and prepares an empty router.
// Callers register handlers and then call MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if !cfg.Server.AdminAPIKey.IsSet() && cfg.Environment != "local" {
		return nil, fmt.Errorf("ADMIN_API_KEY is required outside local (APP_ENV=%s)", cfg.Environment)
	}

	return &Server{
		Config:         cfg,
		Logger:         logger,
		AdminAPIKey:    cfg.Server.AdminAPIKey,
		RequestTimeout: defaultRequestTimeout,
		router:         chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
