package models

// AuthenticateResult is either a successfully authenticated client with an
// optional return URL, or an error. The two cases cannot be mixed: the only
// constructors are Succeeded and Failed.
type AuthenticateResult struct {
	client    *AuthenticatedClient
	returnURL string
	err       error
}

// Succeeded returns a result carrying client. An empty returnURL means the
// client should be rendered instead of redirected to.
func Succeeded(client AuthenticatedClient, returnURL string) AuthenticateResult {
	return AuthenticateResult{client: &client, returnURL: returnURL}
}

// Failed returns a result carrying err. A nil err is replaced with ErrEmptyResult.
func Failed(err error) AuthenticateResult {
	if err == nil {
		err = ErrEmptyResult
	}
	return AuthenticateResult{err: err}
}

// IsError reports whether the result is a failure. The zero value is a failure.
func (r AuthenticateResult) IsError() bool {
	return r.client == nil
}

// Err returns the failure cause, or nil for a successful result
func (r AuthenticateResult) Err() error {
	if r.client != nil {
		return nil
	}
	if r.err == nil {
		return ErrEmptyResult
	}
	return r.err
}

// Client returns a copy of the authenticated client when the result succeeded
func (r AuthenticateResult) Client() (AuthenticatedClient, bool) {
	if r.client == nil {
		return AuthenticatedClient{}, false
	}
	return *r.client, true
}

// ReturnURL is empty for failures
func (r AuthenticateResult) ReturnURL() string {
	return r.returnURL
}
