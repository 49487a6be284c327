// Package server runs the authentication HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/simple-auth/internal/auth"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/brizzai/simple-auth/internal/server/handler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is used when the configuration sets none
	shutdownTimeout = 5 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server serves the authentication routes over HTTP.
type Server struct {
	config  *config.Config
	auth    *auth.Service
	handler *handler.Handler
}

// NewServer creates a new server instance with the provided configuration.
func NewServer(cfg *config.Config, authService *auth.Service, h *handler.Handler) *Server {
	return &Server{
		config:  cfg,
		auth:    authService,
		handler: h,
	}
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler.CreateHTTPHandler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go s.auth.RateLimiter().Run(limiterCtx)

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server", zap.String("address", ln.Addr().String()))

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = shutdownTimeout
		}
		logger.Info("Shutting down server", zap.Duration("timeout", timeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// registerHooks ties the server to the fx application lifecycle
func registerHooks(lc fx.Lifecycle, sd fx.Shutdowner, s *Server) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := s.Start(ctx); err != nil {
					logger.Error("Server stopped", zap.Error(err))
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// Module provides the HTTP server and runs it for the lifetime of the application
var Module = fx.Module("server",
	fx.Provide(
		handler.NewHandler,
		NewServer,
	),
	fx.Invoke(registerHooks),
)
