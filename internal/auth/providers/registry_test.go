package providers

import (
	"context"
	"testing"

	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(
		NewFakeProvider("Google", config.ProviderConfig{}),
		NewFakeProvider("github", config.ProviderConfig{}),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"github", "google"}, registry.Names())

	p, err := registry.Get("GOOGLE")
	require.NoError(t, err)
	assert.Equal(t, "Google", p.Name())

	_, err = registry.Get("myspace")
	assert.ErrorIs(t, err, models.ErrProviderNotFound)

	err = registry.Register(NewFakeProvider("github", config.ProviderConfig{}))
	assert.Error(t, err, "duplicate names are rejected")

	err = registry.Register(NewFakeProvider("", config.ProviderConfig{}))
	assert.Error(t, err)
}

func TestNewRegistryFromConfig(t *testing.T) {
	srv := newIdentityServer(t)

	registry, err := NewRegistryFromConfig(context.Background(), map[string]config.ProviderConfig{
		"local":  {Type: config.ProviderTypeFake},
		"github": {Type: config.ProviderTypeGitHub, ClientID: "id"},
		"corp":   {Type: config.ProviderTypeOIDC, ClientID: "id", Issuer: srv.URL},
		"plain": {
			Type:        config.ProviderTypeOAuth2,
			ClientID:    "id",
			AuthURL:     srv.URL + "/authorize",
			TokenURL:    srv.URL + "/token",
			UserInfoURL: srv.URL + "/userinfo",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"corp", "github", "local", "plain"}, registry.Names())

	p, err := registry.Get("github")
	require.NoError(t, err)
	assert.IsType(t, &GitHubProvider{}, p)

	_, err = NewRegistryFromConfig(context.Background(), map[string]config.ProviderConfig{
		"saml": {Type: "saml"},
	})
	assert.ErrorIs(t, err, ErrInvalidProviderType)
}
