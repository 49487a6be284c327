package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/auth/resolver"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/brizzai/simple-auth/internal/metrics"
	"github.com/brizzai/simple-auth/internal/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the two authentication endpoints
type Handler struct {
	resolver resolver.Resolver
	recorder metrics.Recorder
}

type Option func(*Handler)

// WithRecorder reports redirects and callbacks to r
func WithRecorder(r metrics.Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewHandler creates a new Handler delegating to res
func NewHandler(res resolver.Resolver, opts ...Option) *Handler {
	h := &Handler{
		resolver: res,
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the handler under constants.RoutePrefix.
// The callback route is static, so chi matches it before the provider pattern.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get(constants.CallbackPath, h.HandleAuthenticateCallback)
	r.Get(constants.RoutePrefix+"/{"+constants.ProviderParam+"}", h.HandleRedirectToProvider)
}

// HandleRedirectToProvider handles GET /authenticate/{provider}
func (h *Handler) HandleRedirectToProvider(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, constants.ProviderParam)

	result, err := h.resolver.RedirectToProvider(w, r, providerName)
	// provider names match case-insensitively; one series per provider
	label := strings.ToLower(providerName)
	switch {
	case errors.Is(err, models.ErrProviderNotFound):
		h.recorder.RecordRedirect(metrics.UnknownProvider, metrics.OutcomeProviderNotFound)
		utils.WriteError(w, constants.ErrCodeProviderNotFound, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		h.recorder.RecordRedirect(label, metrics.OutcomeError)
		logger.Error("Failed to redirect to provider", zap.String("provider", providerName), zap.Error(err))
		utils.WriteError(w, constants.ErrCodeRedirectFailed, "failed to start authentication", http.StatusInternalServerError)
		return
	case result == nil || result.AccessURL == "":
		h.recorder.RecordRedirect(label, metrics.OutcomeError)
		logger.Error("Provider returned no access url", zap.String("provider", providerName))
		utils.WriteError(w, constants.ErrCodeRedirectFailed, "failed to start authentication", http.StatusInternalServerError)
		return
	}

	h.recorder.RecordRedirect(label, metrics.OutcomeRedirected)
	http.Redirect(w, r, result.AccessURL, http.StatusSeeOther)
}

// HandleAuthenticateCallback handles GET /authenticate/callback.
//
//	error result           -> 500 with a JSON error body
//	client, no return URL  -> 200 with the client as JSON
//	client and return URL  -> 303 to the return URL
func (h *Handler) HandleAuthenticateCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := h.resolver.AuthenticateCallback(w, r)

	client, ok := result.Client()
	if !ok {
		h.recorder.RecordCallback(metrics.OutcomeError, time.Since(start))
		err := result.Err()
		logger.Error("Authentication callback failed", zap.Error(err))
		utils.WriteError(w, constants.ErrCodeAuthenticationFailed, err.Error(), http.StatusInternalServerError)
		return
	}

	if returnURL := result.ReturnURL(); returnURL != "" {
		h.recorder.RecordCallback(metrics.OutcomeReturned, time.Since(start))
		logger.Info("Authenticated, returning to caller",
			zap.String("provider", client.ProviderName),
			zap.String("return_url", returnURL),
		)
		http.Redirect(w, r, returnURL, http.StatusSeeOther)
		return
	}

	h.recorder.RecordCallback(metrics.OutcomeAuthenticated, time.Since(start))
	logger.Info("Authenticated", zap.String("provider", client.ProviderName))
	utils.WriteJSON(w, http.StatusOK, client)
}
