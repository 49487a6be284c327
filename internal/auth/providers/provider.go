package providers

import (
	"context"
	"net/url"

	"github.com/brizzai/simple-auth/internal/auth/models"
)

// Provider defines the interface that all identity providers must implement
type Provider interface {
	// Name is the name the provider is registered and routed under
	Name() string

	// RedirectToAuthenticate returns where to send the browser so the user can
	// authenticate. callbackURL is where the provider must send the user back.
	RedirectToAuthenticate(ctx context.Context, callbackURL, state string) (*models.RedirectToProviderResult, error)

	// AuthenticateClient completes the authentication from the callback query.
	// Failures are returned as *models.AuthenticationError.
	AuthenticateClient(ctx context.Context, callbackURL string, query url.Values) (*models.AuthenticatedClient, error)
}
