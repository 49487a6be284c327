package resolver

import (
	"github.com/brizzai/simple-auth/internal/auth/providers"
	"github.com/brizzai/simple-auth/internal/auth/state"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"go.uber.org/fx"
)

// NewFromConfig builds a ProviderResolver from the auth section of cfg
func NewFromConfig(cfg *config.Config, registry *providers.Registry) (*ProviderResolver, error) {
	secret := []byte(cfg.Auth.StateSecret)
	if len(secret) == 0 {
		logger.Warn("auth.state_secret is not set, using a random key; pending logins will not survive a restart")
		var err error
		if secret, err = state.RandomSecret(); err != nil {
			return nil, err
		}
	}

	store, err := state.NewStore(secret, cfg.Auth.StateTTL, state.WithSecureCookie(cfg.Auth.SecureCookies))
	if err != nil {
		return nil, err
	}

	return NewProviderResolver(registry, store,
		WithBaseURL(cfg.Auth.BaseURL),
		WithAllowedReturnHosts(cfg.Auth.AllowedReturnHosts...),
		WithReferer(cfg.Auth.UseReferer),
	), nil
}

// Module provides a Resolver backed by the configured providers
var Module = fx.Module("resolver",
	providers.Module,
	fx.Provide(
		fx.Annotate(
			NewFromConfig,
			fx.As(new(Resolver)),
		),
	),
)
