package constants

import "time"

const (
	// RoutePrefix is where the authentication routes are mounted
	RoutePrefix = "/authenticate"

	// CallbackPath is the path providers redirect the browser back to
	CallbackPath = RoutePrefix + "/callback"

	// ProviderParam is the chi URL parameter holding the provider name
	ProviderParam = "provider"

	// StateCookieName holds the signed state between redirect and callback
	StateCookieName = "simpleauth_state"

	// DefaultStateTTL bounds how long a user may take at the provider
	DefaultStateTTL = 10 * time.Minute
)

// Query parameters read on the redirect and callback requests
const (
	ReturnURLQueryParam  = "returnUrl"
	IdentifierQueryParam = "identifier"
	StateQueryParam      = "state"
	CodeQueryParam       = "code"
	ErrorQueryParam      = "error"
	ErrorDescQueryParam  = "error_description"
)

// Error codes written in JSON error bodies
const (
	ErrCodeProviderNotFound     = "provider_not_found"
	ErrCodeRedirectFailed       = "redirect_failed"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeRateLimited          = "rate_limited"
	ErrCodeInternal             = "internal_error"
	ErrCodeNotFound             = "not_found"
)

// DefaultScopes requested from OpenID Connect providers
var DefaultScopes = []string{"openid", "profile", "email"}
