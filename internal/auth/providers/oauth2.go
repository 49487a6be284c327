package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/brizzai/simple-auth/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxUserInfoSize caps how much of a userinfo response is read
const maxUserInfoSize = 1 << 20

// oauthBase holds what every authorization-code provider shares
type oauthBase struct {
	name         string
	oauth2Config *oauth2.Config
}

func (b *oauthBase) Name() string {
	return b.name
}

func (b *oauthBase) redirect(callbackURL, state string, opts ...oauth2.AuthCodeOption) *models.RedirectToProviderResult {
	cfg := *b.oauth2Config // copy
	cfg.RedirectURL = callbackURL
	return &models.RedirectToProviderResult{
		AccessURL: cfg.AuthCodeURL(state, opts...),
		State:     state,
	}
}

// exchange turns the callback query into a token
func (b *oauthBase) exchange(ctx context.Context, callbackURL string, query url.Values) (*oauth2.Token, error) {
	if err := callbackError(b.name, query); err != nil {
		return nil, err
	}

	code := query.Get(constants.CodeQueryParam)
	if code == "" {
		return nil, &models.AuthenticationError{Provider: b.name, Err: models.ErrMissingCode}
	}

	cfg := *b.oauth2Config // copy
	cfg.RedirectURL = callbackURL

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, &models.AuthenticationError{Provider: b.name, Message: "failed to exchange code", Err: err}
	}
	return token, nil
}

// fetchUserInfo GETs endpoint with token and returns the raw body
func (b *oauthBase) fetchUserInfo(ctx context.Context, token *oauth2.Token, endpoint string) ([]byte, error) {
	client := b.oauth2Config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}
	return body, nil
}

// callbackError maps an RFC 6749 error response on the callback to an error
func callbackError(provider string, query url.Values) error {
	code := query.Get(constants.ErrorQueryParam)
	if code == "" {
		return nil
	}
	cause := fmt.Errorf("provider returned %q", code)
	if code == "access_denied" {
		cause = models.ErrAccessDenied
	}
	return &models.AuthenticationError{
		Provider: provider,
		Message:  query.Get(constants.ErrorDescQueryParam),
		Err:      cause,
	}
}

func accessToken(token *oauth2.Token) models.AccessToken {
	return models.AccessToken{
		Token:     token.AccessToken,
		Secret:    token.RefreshToken,
		ExpiresOn: token.Expiry,
	}
}

// OAuth2Provider is a plain OAuth2 authorization-code provider whose
// endpoints all come from configuration.
type OAuth2Provider struct {
	oauthBase
	userInfoURL string
}

func NewOAuth2Provider(name string, cfg config.ProviderConfig) *OAuth2Provider {
	return &OAuth2Provider{
		oauthBase: oauthBase{
			name: name,
			oauth2Config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Scopes:       cfg.Scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:  cfg.AuthURL,
					TokenURL: cfg.TokenURL,
				},
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

func (p *OAuth2Provider) RedirectToAuthenticate(_ context.Context, callbackURL, state string) (*models.RedirectToProviderResult, error) {
	return p.redirect(callbackURL, state), nil
}

func (p *OAuth2Provider) AuthenticateClient(ctx context.Context, callbackURL string, query url.Values) (*models.AuthenticatedClient, error) {
	token, err := p.exchange(ctx, callbackURL, query)
	if err != nil {
		return nil, err
	}

	raw, err := p.fetchUserInfo(ctx, token, p.userInfoURL)
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

func decodeClaims(raw []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var claims map[string]interface{}
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}
	if claims == nil {
		return nil, errors.New("user information is empty")
	}
	return claims, nil
}

// userInformationFromClaims maps the common OIDC and OAuth2 userinfo claim
// names onto UserInformation. The first non-empty candidate wins.
func userInformationFromClaims(claims map[string]interface{}) models.UserInformation {
	pick := func(keys ...string) string {
		for _, key := range keys {
			v, ok := claims[key]
			if !ok || v == nil {
				continue
			}
			if s := fmt.Sprint(v); s != "" {
				return s
			}
		}
		return ""
	}

	return models.UserInformation{
		ID:       pick("sub", "id", "user_id"),
		Name:     pick("name", "display_name"),
		UserName: pick("preferred_username", "login", "username", "nickname"),
		Email:    pick("email"),
		Locale:   pick("locale"),
		Picture:  pick("picture", "avatar_url"),
		Gender:   pick("gender"),
	}
}
