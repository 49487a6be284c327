package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

// OIDCProvider authenticates against an OpenID Connect issuer. The ID token
// is preferred for user information; the userinfo endpoint is used when the
// token response carries none.
type OIDCProvider struct {
	oauthBase
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCProvider discovers issuer and builds a provider for it. ctx is kept by
// go-oidc for key set refreshes and must outlive the provider.
func NewOIDCProvider(ctx context.Context, name string, cfg config.ProviderConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return newOIDCProvider(name, cfg, provider, provider.Endpoint()), nil
}

// NewGoogleProvider creates an OIDC provider for Google accounts
func NewGoogleProvider(ctx context.Context, name string, cfg config.ProviderConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return newOIDCProvider(name, cfg, provider, google.Endpoint), nil
}

func newOIDCProvider(name string, cfg config.ProviderConfig, provider *oidc.Provider, endpoint oauth2.Endpoint) *OIDCProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = constants.DefaultScopes
	}
	return &OIDCProvider{
		oauthBase: oauthBase{
			name: name,
			oauth2Config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint:     endpoint,
				Scopes:       scopes,
			},
		},
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}
}

func (p *OIDCProvider) RedirectToAuthenticate(_ context.Context, callbackURL, state string) (*models.RedirectToProviderResult, error) {
	return p.redirect(callbackURL, state), nil
}

func (p *OIDCProvider) AuthenticateClient(ctx context.Context, callbackURL string, query url.Values) (*models.AuthenticatedClient, error) {
	token, err := p.exchange(ctx, callbackURL, query)
	if err != nil {
		return nil, err
	}

	raw, err := p.claims(ctx, token)
	if err != nil {
		return nil, &models.AuthenticationError{Provider: p.name, Message: "failed to retrieve user information", Err: err}
	}

	claims, err := decodeClaims(raw)
	if err != nil {
		return nil, &models.AuthenticationError{Provider: p.name, Message: "failed to decode user information", Err: err}
	}

	client := models.NewAuthenticatedClient(p.name, accessToken(token), userInformationFromClaims(claims), string(raw))
	return &client, nil
}

// claims returns the raw JSON claims from the ID token, or from the userinfo
// endpoint when there is no ID token.
func (p *OIDCProvider) claims(ctx context.Context, token *oauth2.Token) ([]byte, error) {
	var raw json.RawMessage

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
		if err := idToken.Claims(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse claims: %w", err)
		}
		return raw, nil
	}

	logger.Debug("No id_token in token response, using userinfo endpoint", zap.String("provider", p.name))
	userInfo, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("failed to call userinfo endpoint: %w", err)
	}
	if err := userInfo.Claims(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo claims: %w", err)
	}
	return raw, nil
}
