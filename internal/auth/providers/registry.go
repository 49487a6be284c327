package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"go.uber.org/zap"
)

// ErrInvalidProviderType indicates an unsupported provider type was configured
var ErrInvalidProviderType = fmt.Errorf("unsupported provider type")

// Registry stores configured providers by lower-cased name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds p under p.Name()
func (r *Registry) Register(p Provider) error {
	key := strings.ToLower(p.Name())
	if key == "" {
		return fmt.Errorf("provider name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %q is already registered", key)
	}
	r.providers[key] = p
	return nil
}

// Get returns the provider registered as name, or a *models.ProviderNotFoundError
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, &models.ProviderNotFoundError{Name: name}
	}
	return p, nil
}

// Names returns the registered provider names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the provider described by cfg
func New(ctx context.Context, name string, cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case config.ProviderTypeGoogle:
		return NewGoogleProvider(ctx, name, cfg)
	case config.ProviderTypeOIDC:
		return NewOIDCProvider(ctx, name, cfg)
	case config.ProviderTypeGitHub:
		return NewGitHubProvider(name, cfg), nil
	case config.ProviderTypeOAuth2:
		return NewOAuth2Provider(name, cfg), nil
	case config.ProviderTypeFake:
		return NewFakeProvider(name, cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidProviderType, cfg.Type)
	}
}

// NewRegistryFromConfig builds and registers every configured provider
func NewRegistryFromConfig(ctx context.Context, cfgs map[string]config.ProviderConfig) (*Registry, error) {
	registry, _ := NewRegistry()

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := cfgs[name]
		p, err := New(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", name, err)
		}
		if err := registry.Register(p); err != nil {
			return nil, err
		}
		logger.Info("Registered provider", zap.String("provider", name), zap.String("type", string(cfg.Type)))
	}
	return registry, nil
}
