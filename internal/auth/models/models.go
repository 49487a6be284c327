package models

import "time"

// AccessToken is the credential a provider issued for the authenticated user
type AccessToken struct {
	Token string `json:"token"`
	// Secret carries the refresh token for OAuth2 providers
	Secret    string    `json:"secret,omitempty"`
	ExpiresOn time.Time `json:"expires_on"`
}

// UserInformation represents authenticated user information from any provider
type UserInformation struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name,omitempty"`
	UserName string                 `json:"user_name,omitempty"`
	Email    string                 `json:"email,omitempty"`
	Locale   string                 `json:"locale,omitempty"`
	Picture  string                 `json:"picture,omitempty"`
	Gender   string                 `json:"gender,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AuthenticatedClient is the outcome of one successful authentication.
// It is built once per callback and never modified afterwards.
type AuthenticatedClient struct {
	ProviderName       string          `json:"provider_name"`
	AccessToken        AccessToken     `json:"access_token"`
	UserInformation    UserInformation `json:"user_information"`
	RawUserInformation string          `json:"raw_user_information,omitempty"`
}

// NewAuthenticatedClient creates an AuthenticatedClient
func NewAuthenticatedClient(providerName string, token AccessToken, info UserInformation, raw string) AuthenticatedClient {
	return AuthenticatedClient{
		ProviderName:       providerName,
		AccessToken:        token,
		UserInformation:    info,
		RawUserInformation: raw,
	}
}

// RedirectToProviderResult describes where to send the browser to start an
// authentication with a provider.
type RedirectToProviderResult struct {
	AccessURL string
	State     string
	// CacheData is provider specific data needed again on the callback
	CacheData map[string]string
}
