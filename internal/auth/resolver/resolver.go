// Package resolver turns incoming authentication requests into provider
// redirects and callback results.
package resolver

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/auth/providers"
	"github.com/brizzai/simple-auth/internal/auth/state"
	"github.com/brizzai/simple-auth/internal/logger"
	"go.uber.org/zap"
)

// Resolver is the collaborator the HTTP handlers delegate to.
//
// RedirectToProvider returns an error matching models.ErrProviderNotFound
// when providerName is not known. AuthenticateCallback never panics and
// reports every failure through the returned result.
type Resolver interface {
	RedirectToProvider(w http.ResponseWriter, r *http.Request, providerName string) (*models.RedirectToProviderResult, error)
	AuthenticateCallback(w http.ResponseWriter, r *http.Request) models.AuthenticateResult
}

// ProviderResolver resolves requests against a provider registry, keeping
// per-attempt data in a signed state cookie.
type ProviderResolver struct {
	registry     *providers.Registry
	store        *state.Store
	baseURL      string
	allowedHosts map[string]struct{}
	useReferer   bool
}

var _ Resolver = (*ProviderResolver)(nil)

type Option func(*ProviderResolver)

// WithBaseURL fixes the origin used for the callback URL
func WithBaseURL(baseURL string) Option {
	return func(p *ProviderResolver) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithAllowedReturnHosts lists hosts that absolute return URLs may point at
func WithAllowedReturnHosts(hosts ...string) Option {
	return func(p *ProviderResolver) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				p.allowedHosts[h] = struct{}{}
			}
		}
	}
}

// WithReferer uses the Referer header as return URL when none is given
func WithReferer(enabled bool) Option {
	return func(p *ProviderResolver) { p.useReferer = enabled }
}

func NewProviderResolver(registry *providers.Registry, store *state.Store, opts ...Option) *ProviderResolver {
	p := &ProviderResolver{
		registry:     registry,
		store:        store,
		allowedHosts: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ProviderResolver) RedirectToProvider(w http.ResponseWriter, r *http.Request, providerName string) (*models.RedirectToProviderResult, error) {
	provider, err := p.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	returnURL := p.returnURL(r)
	st, err := p.store.Issue(w, r, provider.Name(), returnURL)
	if err != nil {
		return nil, err
	}

	result, err := provider.RedirectToAuthenticate(r.Context(), p.callbackURL(r), st)
	if err != nil {
		return nil, models.NewAuthenticationError(provider.Name(), "failed to build authorization url", err)
	}

	logger.Debug("Redirecting to provider",
		zap.String("provider", provider.Name()),
		zap.String("return_url", returnURL),
	)
	return result, nil
}

func (p *ProviderResolver) AuthenticateCallback(w http.ResponseWriter, r *http.Request) models.AuthenticateResult {
	payload, err := p.store.Consume(w, r)
	if err != nil {
		return models.Failed(err)
	}

	provider, err := p.registry.Get(payload.Provider)
	if err != nil {
		return models.Failed(err)
	}

	client, err := provider.AuthenticateClient(r.Context(), p.callbackURL(r), r.URL.Query())
	if err != nil {
		return models.Failed(models.NewAuthenticationError(provider.Name(), "", err))
	}
	if client == nil {
		return models.Failed(models.NewAuthenticationError(provider.Name(), "", models.ErrEmptyResult))
	}

	// The return URL was checked when the state was issued
	return models.Succeeded(*client, payload.ReturnURL)
}

// callbackURL is the absolute URL providers send the browser back to
func (p *ProviderResolver) callbackURL(r *http.Request) string {
	if p.baseURL != "" {
		return p.baseURL + constants.CallbackPath
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, constants.CallbackPath)
}

// returnURL picks the first safe return URL from the query or the Referer header
func (p *ProviderResolver) returnURL(r *http.Request) string {
	q := r.URL.Query()
	candidates := []string{q.Get(constants.ReturnURLQueryParam), q.Get(constants.IdentifierQueryParam)}
	if p.useReferer {
		candidates = append(candidates, r.Referer())
	}

	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		if safe := p.sanitizeReturnURL(r, raw); safe != "" {
			return safe
		}
		logger.Warn("Ignoring unsafe return url", zap.String("return_url", raw))
	}
	return ""
}

// sanitizeReturnURL accepts relative paths, and absolute http(s) URLs that point
// at the request host or an allowed host. Anything else yields "".
func (p *ProviderResolver) sanitizeReturnURL(r *http.Request, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	if u.Scheme == "" && u.Host == "" {
		if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return ""
		}
		return raw
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if _, ok := p.allowedHosts[host]; ok {
		return u.String()
	}
	if reqHost := r.Host; reqHost != "" && strings.EqualFold(u.Host, reqHost) {
		return u.String()
	}
	return ""
}
