package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/brizzai/simple-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCode        = "good-code"
	testAccessToken = "access-123"
	testCallback    = "http://localhost:8080/authenticate/callback"
)

// newIdentityServer plays an OAuth2/OIDC provider: discovery, token and
// userinfo endpoints, plus a GitHub style /user endpoint.
func newIdentityServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+testAccessToken
	}

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"jwks_uri":               srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != testCode {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		assert.Equal(t, testCallback, r.Form.Get("redirect_uri"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  testAccessToken,
			"token_type":    "Bearer",
			"refresh_token": "refresh-456",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sub":                "1234567890123",
			"name":               "Pure Krome",
			"preferred_username": "purekrome",
			"email":              "pewpew@some.email.rebell-alliance",
			"locale":             "en-AU",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":         583231,
			"login":      "octocat",
			"name":       "",
			"email":      "octocat@github.com",
			"avatar_url": "https://github.com/images/error/octocat_happy.gif",
			"html_url":   "https://github.com/octocat",
		})
	})
	return srv
}

func callbackQuery(pairs ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return q
}

func TestOAuth2Provider(t *testing.T) {
	srv := newIdentityServer(t)
	p := NewOAuth2Provider("corp", config.ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{"profile"},
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
	assert.Equal(t, "corp", p.Name())

	t.Run("redirect", func(t *testing.T) {
		res, err := p.RedirectToAuthenticate(context.Background(), testCallback, "state-1")
		require.NoError(t, err)
		assert.Equal(t, "state-1", res.State)

		u, err := url.Parse(res.AccessURL)
		require.NoError(t, err)
		assert.Equal(t, "/authorize", u.Path)
		assert.Equal(t, "state-1", u.Query().Get("state"))
		assert.Equal(t, testCallback, u.Query().Get("redirect_uri"))
		assert.Equal(t, "client", u.Query().Get("client_id"))
		assert.Equal(t, "code", u.Query().Get("response_type"))
	})

	t.Run("callback", func(t *testing.T) {
		client, err := p.AuthenticateClient(context.Background(), testCallback, callbackQuery("code", testCode))
		require.NoError(t, err)

		assert.Equal(t, "corp", client.ProviderName)
		assert.Equal(t, testAccessToken, client.AccessToken.Token)
		assert.Equal(t, "refresh-456", client.AccessToken.Secret)
		assert.False(t, client.AccessToken.ExpiresOn.IsZero())
		assert.Equal(t, "1234567890123", client.UserInformation.ID)
		assert.Equal(t, "Pure Krome", client.UserInformation.Name)
		assert.Equal(t, "purekrome", client.UserInformation.UserName)
		assert.Equal(t, "en-AU", client.UserInformation.Locale)
		assert.Contains(t, client.RawUserInformation, `"preferred_username":"purekrome"`)
	})

	t.Run("bad code", func(t *testing.T) {
		_, err := p.AuthenticateClient(context.Background(), testCallback, callbackQuery("code", "stolen"))
		var authErr *models.AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "corp", authErr.Provider)
	})
}

func TestCallbackErrors(t *testing.T) {
	srv := newIdentityServer(t)
	p := NewGitHubProvider("github", config.ProviderConfig{
		ClientID:    "client",
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/user",
	})

	tests := []struct {
		name    string
		query   url.Values
		wantErr error
		wantMsg string
	}{
		{
			name:    "user denied",
			query:   callbackQuery("error", "access_denied", "error_description", "The user has denied your application access."),
			wantErr: models.ErrAccessDenied,
			wantMsg: "The user has denied your application access.",
		},
		{
			name:    "missing code",
			query:   callbackQuery("state", "abc"),
			wantErr: models.ErrMissingCode,
		},
		{
			name:    "other provider error",
			query:   callbackQuery("error", "server_error"),
			wantMsg: "server_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AuthenticateClient(context.Background(), testCallback, tt.query)
			var authErr *models.AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, "github", authErr.Provider)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGitHubProvider(t *testing.T) {
	srv := newIdentityServer(t)
	p := NewGitHubProvider("github", config.ProviderConfig{
		ClientID:    "client",
		AuthURL:     srv.URL + "/authorize",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/user",
	})

	res, err := p.RedirectToAuthenticate(context.Background(), testCallback, "s")
	require.NoError(t, err)
	u, err := url.Parse(res.AccessURL)
	require.NoError(t, err)
	assert.Equal(t, "read:user user:email", u.Query().Get("scope"))

	client, err := p.AuthenticateClient(context.Background(), testCallback, callbackQuery("code", testCode))
	require.NoError(t, err)
	assert.Equal(t, "583231", client.UserInformation.ID)
	assert.Equal(t, "octocat", client.UserInformation.Name, "login is used when name is empty")
	assert.Equal(t, "octocat", client.UserInformation.UserName)
	assert.Equal(t, "https://github.com/octocat", client.UserInformation.Metadata["html_url"])
}

func TestOIDCProvider_UserInfoFallback(t *testing.T) {
	srv := newIdentityServer(t)
	p, err := NewOIDCProvider(context.Background(), "corp", config.ProviderConfig{
		ClientID: "client",
		Issuer:   srv.URL,
	})
	require.NoError(t, err)

	res, err := p.RedirectToAuthenticate(context.Background(), testCallback, "s")
	require.NoError(t, err)
	assert.Contains(t, res.AccessURL, srv.URL+"/authorize?")
	assert.Contains(t, res.AccessURL, "scope=openid+profile+email")

	client, err := p.AuthenticateClient(context.Background(), testCallback, callbackQuery("code", testCode))
	require.NoError(t, err)
	assert.Equal(t, "pewpew@some.email.rebell-alliance", client.UserInformation.Email)
	assert.Equal(t, "1234567890123", client.UserInformation.ID)
}

func TestFakeProvider(t *testing.T) {
	p := NewFakeProvider("google", config.ProviderConfig{})

	res, err := p.RedirectToAuthenticate(context.Background(), testCallback, "xyz")
	require.NoError(t, err)
	u, err := url.Parse(res.AccessURL)
	require.NoError(t, err)
	assert.Equal(t, "www.someProvider.com", u.Host)
	assert.Equal(t, "/oauth/authenticate", u.Path)
	assert.Equal(t, "xyz", u.Query().Get("state"))
	assert.Equal(t, testCallback, u.Query().Get("redirect_uri"))

	client, err := p.AuthenticateClient(context.Background(), testCallback, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, SampleClient("google"), *client)

	failing := NewFakeProvider("google", config.ProviderConfig{}, WithFakeError(errors.New("provider is down")))
	_, err = failing.AuthenticateClient(context.Background(), testCallback, url.Values{})
	var authErr *models.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, err.Error(), "provider is down")
}

func TestUserInformationFromClaims(t *testing.T) {
	claims, err := decodeClaims([]byte(`{"id": 12345678901, "login": "jdoe", "avatar_url": "https://x/y.png", "email": null}`))
	require.NoError(t, err)

	info := userInformationFromClaims(claims)
	assert.Equal(t, "12345678901", info.ID)
	assert.Equal(t, "jdoe", info.UserName)
	assert.Equal(t, "https://x/y.png", info.Picture)
	assert.Empty(t, info.Email)

	_, err = decodeClaims([]byte(`null`))
	assert.Error(t, err)
}
