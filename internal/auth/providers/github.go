package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubUserURL = "https://api.github.com/user"

var defaultGitHubScopes = []string{"read:user", "user:email"}

type GitHubProvider struct {
	oauthBase
	userURL string
}

// NewGitHubProvider creates a GitHub provider. auth_url, token_url and
// userinfo_url may be set to point at a GitHub Enterprise installation.
func NewGitHubProvider(name string, cfg config.ProviderConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultGitHubScopes
	}
	userURL := cfg.UserInfoURL
	if userURL == "" {
		userURL = defaultGitHubUserURL
	}

	return &GitHubProvider{
		oauthBase: oauthBase{
			name: name,
			oauth2Config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				Endpoint:     endpoint,
				Scopes:       scopes,
			},
		},
		userURL: userURL,
	}
}

func (p *GitHubProvider) RedirectToAuthenticate(_ context.Context, callbackURL, state string) (*models.RedirectToProviderResult, error) {
	return p.redirect(callbackURL, state), nil
}

func (p *GitHubProvider) AuthenticateClient(ctx context.Context, callbackURL string, query url.Values) (*models.AuthenticatedClient, error) {
	token, err := p.exchange(ctx, callbackURL, query)
	if err != nil {
		return nil, err
	}

	raw, err := p.fetchUserInfo(ctx, token, p.userURL)
	if err != nil {
		return nil, &models.AuthenticationError{Provider: p.name, Message: "failed to retrieve user information", Err: err}
	}

	var gh struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		HTMLURL   string `json:"html_url"`
		Company   string `json:"company"`
	}
	if err := json.Unmarshal(raw, &gh); err != nil {
		return nil, &models.AuthenticationError{Provider: p.name, Message: "failed to decode user information", Err: err}
	}

	name := gh.Name
	if name == "" {
		name = gh.Login
	}

	info := models.UserInformation{
		ID:       fmt.Sprintf("%d", gh.ID),
		Name:     name,
		UserName: gh.Login,
		Email:    gh.Email,
		Picture:  gh.AvatarURL,
		Metadata: map[string]interface{}{
			"html_url": gh.HTMLURL,
		},
	}
	if gh.Company != "" {
		info.Metadata["company"] = gh.Company
	}

	client := models.NewAuthenticatedClient(p.name, accessToken(token), info, string(raw))
	return &client, nil
}
