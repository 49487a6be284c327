package providers

import (
	"context"

	"github.com/brizzai/simple-auth/internal/config"
	"go.uber.org/fx"
)

// Module provides the provider registry built from configuration
var Module = fx.Module("providers",
	fx.Provide(
		func(cfg *config.Config) (*Registry, error) {
			// OIDC key sets are refreshed with this context, so it is never cancelled
			return NewRegistryFromConfig(context.Background(), cfg.Providers)
		},
	),
)
