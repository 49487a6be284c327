package models

import (
	"errors"
	"fmt"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrEmptyResult      = errors.New("authentication produced no result")
	ErrInvalidState     = errors.New("invalid or expired state")
	ErrMissingCode      = errors.New("missing authorization code")
	ErrAccessDenied     = errors.New("access denied by provider")
)

// ProviderNotFoundError is returned when a provider name does not match any
// configured provider. It matches ErrProviderNotFound with errors.Is.
type ProviderNotFoundError struct {
	Name string
}

func (e *ProviderNotFoundError) Error() string {
	return fmt.Sprintf("no provider named %q is configured", e.Name)
}

func (e *ProviderNotFoundError) Is(target error) bool {
	return target == ErrProviderNotFound
}

// AuthenticationError reports that a provider rejected or failed the
// authentication exchange.
type AuthenticationError struct {
	Provider string
	Message  string
	Err      error
}

func (e *AuthenticationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Provider == "" {
		return fmt.Sprintf("authentication failed: %s", msg)
	}
	return fmt.Sprintf("authentication with %s failed: %s", e.Provider, msg)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NewAuthenticationError wraps err as an AuthenticationError unless it already is one
func NewAuthenticationError(provider, message string, err error) error {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return err
	}
	return &AuthenticationError{Provider: provider, Message: message, Err: err}
}
