// Package handler builds the HTTP handler tree served by the server.
package handler

import (
	"net/http"

	"github.com/brizzai/simple-auth/internal/auth"
	"github.com/brizzai/simple-auth/internal/auth/constants"
	authmw "github.com/brizzai/simple-auth/internal/auth/middleware"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/brizzai/simple-auth/internal/metrics"
	"github.com/brizzai/simple-auth/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Handler manages routing and the middleware shared by every route.
type Handler struct {
	config   *config.Config
	auth     *auth.Service
	gatherer prometheus.Gatherer
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg *config.Config, authService *auth.Service, gatherer *prometheus.Registry) *Handler {
	h := &Handler{
		config: cfg,
		auth:   authService,
	}
	if gatherer != nil {
		h.gatherer = gatherer
	}
	return h
}

// CreateHTTPHandler creates the router: health and metrics endpoints plus the
// authentication routes.
func (h *Handler) CreateHTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if h.config.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(authmw.RequestLogger)
	r.Use(authmw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteError(w, constants.ErrCodeNotFound, "no route for "+r.URL.Path, http.StatusNotFound)
	})

	providers := h.config.ProviderNames()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"providers": providers,
		})
	})

	if h.config.Metrics.Enabled && h.gatherer != nil {
		path := h.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metrics.Handler(h.gatherer))
		logger.Info("Exposing metrics", zap.String("path", path))
	}

	h.auth.RegisterRoutes(r)
	logger.Info("Registered authentication routes")
	return r
}
