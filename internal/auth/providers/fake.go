package providers

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
)

// DefaultFakeAccessURL is where the fake provider sends the browser
const DefaultFakeAccessURL = "http://www.someProvider.com/oauth/authenticate"

// SampleClient returns the canned client handed out by fake providers
func SampleClient(providerName string) models.AuthenticatedClient {
	return models.NewAuthenticatedClient(providerName,
		models.AccessToken{
			Token:     "abcde",
			Secret:    "pewpewpew",
			ExpiresOn: time.Date(2020, 5, 23, 0, 0, 0, 0, time.UTC),
		},
		models.UserInformation{
			Name:  "Pure Krome",
			Email: "pewpew@some.email.rebell-alliance",
		},
		"some json string with raw user information",
	)
}

// FakeProvider never leaves the process. The access URL it returns carries
// the state and callback URL so a test can play the provider's part.
type FakeProvider struct {
	name      string
	accessURL string
	client    models.AuthenticatedClient
	err       error
}

type FakeOption func(*FakeProvider)

// WithFakeClient changes the client returned on callback
func WithFakeClient(client models.AuthenticatedClient) FakeOption {
	return func(p *FakeProvider) { p.client = client }
}

// WithFakeError makes every callback fail with err
func WithFakeError(err error) FakeOption {
	return func(p *FakeProvider) { p.err = err }
}

func NewFakeProvider(name string, cfg config.ProviderConfig, opts ...FakeOption) *FakeProvider {
	accessURL := cfg.AccessURL
	if accessURL == "" {
		accessURL = DefaultFakeAccessURL
	}
	p := &FakeProvider{
		name:      name,
		accessURL: accessURL,
		client:    SampleClient(name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FakeProvider) Name() string {
	return p.name
}

func (p *FakeProvider) RedirectToAuthenticate(_ context.Context, callbackURL, state string) (*models.RedirectToProviderResult, error) {
	u, err := url.Parse(p.accessURL)
	if err != nil {
		return nil, fmt.Errorf("invalid fake access url: %w", err)
	}
	q := u.Query()
	q.Set(constants.StateQueryParam, state)
	q.Set("redirect_uri", callbackURL)
	u.RawQuery = q.Encode()

	return &models.RedirectToProviderResult{AccessURL: u.String(), State: state}, nil
}

func (p *FakeProvider) AuthenticateClient(_ context.Context, _ string, query url.Values) (*models.AuthenticatedClient, error) {
	if err := callbackError(p.name, query); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, models.NewAuthenticationError(p.name, "", p.err)
	}
	client := p.client
	return &client, nil
}
