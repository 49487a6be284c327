package fake

import (
	"github.com/brizzai/simple-auth/internal/auth/resolver"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"go.uber.org/fx"
)

// Module provides a fake Resolver in place of resolver.Module. Configured
// provider names are honored so unknown names still answer 404.
var Module = fx.Module("fake_resolver",
	fx.Provide(
		fx.Annotate(
			func(cfg *config.Config) *Resolver {
				logger.Warn("Serving canned authentication results, do not use in production")
				if names := cfg.ProviderNames(); len(names) > 0 {
					return New(WithProviders(names...))
				}
				return New()
			},
			fx.As(new(resolver.Resolver)),
		),
	),
)
