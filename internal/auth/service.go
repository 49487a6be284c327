package auth

import (
	"github.com/brizzai/simple-auth/internal/auth/handlers"
	"github.com/brizzai/simple-auth/internal/auth/middleware"
	"github.com/brizzai/simple-auth/internal/auth/resolver"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Service represents the authentication endpoints together with the
// middleware that only applies to them
type Service struct {
	config  *config.AuthConfig
	handler *handlers.Handler
	limiter *middleware.RateLimiter
}

// NewService creates a new authentication service around res
func NewService(cfg *config.Config, res resolver.Resolver, recorder metrics.Recorder) *Service {
	return &Service{
		config:  &cfg.Auth,
		handler: handlers.NewHandler(res, handlers.WithRecorder(recorder)),
		limiter: middleware.NewRateLimiter(cfg.Auth.RateLimit.RequestsPerMinute, cfg.Auth.RateLimit.Burst),
	}
}

// RegisterRoutes registers the authentication routes on r
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.CORSWithOrigins(s.config.AllowOrigins))
		r.Use(s.limiter.Middleware)
		s.handler.RegisterRoutes(r)
	})
}

// RateLimiter returns the limiter guarding the routes, so its cleanup loop can be run
func (s *Service) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Module provides the authentication service. A resolver.Resolver must be
// supplied by resolver.Module or fake.Module.
var Module = fx.Module("auth",
	fx.Provide(NewService),
)
