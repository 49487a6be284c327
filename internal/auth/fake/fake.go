// Package fake provides a Resolver that never talks to a provider. It backs
// the --fake development mode and handler tests.
package fake

import (
	"net/http"
	"strings"
	"sync"

	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/auth/providers"
	"github.com/brizzai/simple-auth/internal/auth/resolver"
)

// Resolver answers every call with fixed data
type Resolver struct {
	mu        sync.Mutex
	accessURL string
	known     map[string]struct{}
	result    models.AuthenticateResult
	redirErr  error
	redirects []string
	callbacks int
}

var _ resolver.Resolver = (*Resolver)(nil)

type Option func(*Resolver)

// WithAccessURL changes the URL returned by RedirectToProvider
func WithAccessURL(accessURL string) Option {
	return func(r *Resolver) { r.accessURL = accessURL }
}

// WithProviders restricts RedirectToProvider to the given names. Without it
// every name is accepted.
func WithProviders(names ...string) Option {
	return func(r *Resolver) {
		r.known = make(map[string]struct{}, len(names))
		for _, n := range names {
			r.known[strings.ToLower(n)] = struct{}{}
		}
	}
}

// WithResult changes the result returned by AuthenticateCallback
func WithResult(result models.AuthenticateResult) Option {
	return func(r *Resolver) { r.result = result }
}

// WithRedirectError makes RedirectToProvider fail with err for known providers
func WithRedirectError(err error) Option {
	return func(r *Resolver) { r.redirErr = err }
}

// New returns a Resolver that redirects to providers.DefaultFakeAccessURL and
// authenticates every callback as providers.SampleClient("google").
func New(opts ...Option) *Resolver {
	r := &Resolver{
		accessURL: providers.DefaultFakeAccessURL,
		result:    models.Succeeded(providers.SampleClient("google"), ""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewWithError returns a Resolver whose callbacks fail with err
func NewWithError(err error, opts ...Option) *Resolver {
	return New(append([]Option{WithResult(models.Failed(err))}, opts...)...)
}

func (r *Resolver) RedirectToProvider(_ http.ResponseWriter, _ *http.Request, providerName string) (*models.RedirectToProviderResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.known != nil {
		if _, ok := r.known[strings.ToLower(providerName)]; !ok {
			return nil, &models.ProviderNotFoundError{Name: providerName}
		}
	}
	r.redirects = append(r.redirects, providerName)
	if r.redirErr != nil {
		return nil, r.redirErr
	}
	return &models.RedirectToProviderResult{AccessURL: r.accessURL}, nil
}

func (r *Resolver) AuthenticateCallback(_ http.ResponseWriter, _ *http.Request) models.AuthenticateResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callbacks++
	return r.result
}

// Redirects returns the provider names RedirectToProvider accepted, in order
func (r *Resolver) Redirects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.redirects...)
}

// Callbacks returns how often AuthenticateCallback ran
func (r *Resolver) Callbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callbacks
}
