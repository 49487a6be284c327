// Package state carries the data needed between the redirect to a provider
// and the provider's callback in a signed, expiring cookie.
package state

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/google/uuid"
)

// Payload is what is remembered about one authentication attempt
type Payload struct {
	State     string `json:"state"`
	Provider  string `json:"provider"`
	ReturnURL string `json:"return_url,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
}

// Store issues and consumes state cookies
type Store struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

type Option func(*Store)

// WithSecureCookie marks the state cookie Secure regardless of the request scheme
func WithSecureCookie(secure bool) Option {
	return func(s *Store) { s.secure = secure }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store signing with secret. ttl <= 0 uses constants.DefaultStateTTL.
func NewStore(secret []byte, ttl time.Duration, opts ...Option) (*Store, error) {
	if len(secret) == 0 {
		return nil, errors.New("state secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = constants.DefaultStateTTL
	}
	s := &Store{
		secret:     secret,
		ttl:        ttl,
		cookieName: constants.StateCookieName,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RandomSecret returns 32 random bytes for a process-local signing key
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate state secret: %w", err)
	}
	return b, nil
}

// Issue creates a new state for provider, stores it in a cookie on w and
// returns the state value to send to the provider.
func (s *Store) Issue(w http.ResponseWriter, r *http.Request, provider, returnURL string) (string, error) {
	expires := s.now().Add(s.ttl)
	payload := Payload{
		State:     uuid.NewString(),
		Provider:  provider,
		ReturnURL: returnURL,
		ExpiresAt: expires.Unix(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode state: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    s.sign(data),
		Path:     constants.RoutePrefix,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		Secure:   s.secure || r.TLS != nil,
	})
	return payload.State, nil
}

// Consume validates the state cookie against the state query parameter of r
// and clears the cookie. Every failure matches models.ErrInvalidState.
func (s *Store) Consume(w http.ResponseWriter, r *http.Request) (*Payload, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: missing state cookie", models.ErrInvalidState)
	}
	s.clear(w, r)

	data, err := s.verify(cookie.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidState, err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed payload", models.ErrInvalidState)
	}
	if payload.ExpiresAt < s.now().Unix() {
		return nil, fmt.Errorf("%w: state expired", models.ErrInvalidState)
	}

	state := r.URL.Query().Get(constants.StateQueryParam)
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(payload.State)) != 1 {
		return nil, fmt.Errorf("%w: state mismatch", models.ErrInvalidState)
	}
	return &payload, nil
}

func (s *Store) clear(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     constants.RoutePrefix,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.secure || r.TLS != nil,
	})
}

func (s *Store) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Store) verify(value string) ([]byte, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, errors.New("invalid format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.New("invalid payload encoding")
	}
	signature, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, errors.New("invalid signature encoding")
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return nil, errors.New("invalid signature")
	}
	return payload, nil
}
