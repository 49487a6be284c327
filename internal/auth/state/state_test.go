package state

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/auth/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newStore(t *testing.T, c *clock) *Store {
	t.Helper()
	s, err := NewStore([]byte("test-secret"), time.Minute, WithClock(c.now))
	require.NoError(t, err)
	return s
}

// issue runs Issue and returns the state value and the cookie it set
func issue(t *testing.T, s *Store, provider, returnURL string) (string, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	state, err := s.Issue(rec, httptest.NewRequest(http.MethodGet, "/authenticate/"+provider, nil), provider, returnURL)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return state, cookies[0]
}

func callback(state string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/authenticate/callback?code=abc&state="+state, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestStore_RoundTrip(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := newStore(t, c)

	state, cookie := issue(t, s, "google", "/dashboard")
	_, err := uuid.Parse(state)
	require.NoError(t, err, "state is a uuid")

	assert.Equal(t, constants.StateCookieName, cookie.Name)
	assert.Equal(t, constants.RoutePrefix, cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)

	rec := httptest.NewRecorder()
	payload, err := s.Consume(rec, callback(state, cookie))
	require.NoError(t, err)
	assert.Equal(t, "google", payload.Provider)
	assert.Equal(t, "/dashboard", payload.ReturnURL)
	assert.Equal(t, state, payload.State)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestStore_ConsumeFailures(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := newStore(t, c)

	other, err := NewStore([]byte("another-secret"), time.Minute, WithClock(c.now))
	require.NoError(t, err)

	tests := []struct {
		name  string
		build func() *http.Request
	}{
		{
			name: "no cookie",
			build: func() *http.Request {
				state, _ := issue(t, s, "google", "")
				return callback(state, nil)
			},
		},
		{
			name: "state mismatch",
			build: func() *http.Request {
				_, cookie := issue(t, s, "google", "")
				return callback(uuid.NewString(), cookie)
			},
		},
		{
			name: "missing state parameter",
			build: func() *http.Request {
				_, cookie := issue(t, s, "google", "")
				return callback("", cookie)
			},
		},
		{
			name: "signed with another secret",
			build: func() *http.Request {
				state, cookie := issue(t, other, "google", "")
				return callback(state, cookie)
			},
		},
		{
			name: "tampered payload",
			build: func() *http.Request {
				state, cookie := issue(t, s, "google", "")
				cookie.Value = "x" + cookie.Value
				return callback(state, cookie)
			},
		},
		{
			name: "garbage cookie",
			build: func() *http.Request {
				state, cookie := issue(t, s, "google", "")
				cookie.Value = strings.Repeat("a", 10)
				return callback(state, cookie)
			},
		},
		{
			name: "expired",
			build: func() *http.Request {
				state, cookie := issue(t, s, "google", "")
				c.t = c.t.Add(2 * time.Minute)
				return callback(state, cookie)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.t = time.Unix(1_700_000_000, 0)
			req := tt.build()
			_, err := s.Consume(httptest.NewRecorder(), req)
			assert.ErrorIs(t, err, models.ErrInvalidState)
		})
	}
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil, time.Minute)
	assert.Error(t, err)

	s, err := NewStore([]byte("k"), 0, WithSecureCookie(true))
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultStateTTL, s.ttl)

	_, cookie := issue(t, s, "github", "")
	assert.True(t, cookie.Secure)

	secret, err := RandomSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 32)
}
