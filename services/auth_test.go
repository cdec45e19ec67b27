package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

func TestTokenCacheRoundTrip(t *testing.T) {
	key, err := utils.DeriveKey("test-key")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tokens", "google.enc")
	now := testNow

	c := NewTokenCache(path, key, func() time.Time { return now })
	_, err = c.Load()
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, c.Save(StoredToken{AccessToken: "ya29.a0", ExpiresIn: 3600, IssuedAt: now, Email: "asha@arneor.com"}))

	reopened := NewTokenCache(path, key, func() time.Time { return now })
	tok, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "ya29.a0", tok.AccessToken)
	assert.Equal(t, "asha@arneor.com", tok.Email)

	oauthTok, err := reopened.Token()
	require.NoError(t, err)
	assert.Equal(t, "Bearer", oauthTok.TokenType)
	assert.Equal(t, now.Add(59*time.Minute), oauthTok.Expiry)
}

func TestTokenCacheExpiresWithBuffer(t *testing.T) {
	now := testNow
	c := NewTokenCache("", nil, func() time.Time { return now })
	require.NoError(t, c.Save(StoredToken{AccessToken: "t", ExpiresIn: 3600, IssuedAt: now}))

	now = now.Add(58 * time.Minute)
	_, err := c.Load()
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = c.Load()
	assert.ErrorIs(t, err, ErrTokenExpired)
	_, err = c.Load()
	assert.ErrorIs(t, err, ErrUnauthorized, "an expired token is forgotten")
}

func TestTokenCacheWithWrongKeyStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google.enc")
	k1, _ := utils.DeriveKey("one")
	k2, _ := utils.DeriveKey("two")

	require.NoError(t, NewTokenCache(path, k1, nil).Save(StoredToken{AccessToken: "t", ExpiresIn: 3600, IssuedAt: time.Now()}))
	_, err := NewTokenCache(path, k2, nil).Load()
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func userInfoServer(t *testing.T, users map[string]googleUserInfo) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		switch token {
		case "expired":
			w.WriteHeader(http.StatusUnauthorized)
			return
		case "broken":
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		info, ok := users[token]
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestAuth(t *testing.T) *AuthService {
	srv := userInfoServer(t, map[string]googleUserInfo{
		"good":       {Email: "Asha@Arneor.com", EmailVerified: true, Name: "Asha"},
		"stranger":   {Email: "someone@example.com", EmailVerified: true},
		"unverified": {Email: "ravi@arneor.com", EmailVerified: false},
	})
	return NewAuthService(NewTokenCache("", nil, func() time.Time { return testNow }), AuthConfig{
		AllowedEmails: []string{" asha@arneor.com", "ravi@arneor.com"},
		JWTSecret:     "session-secret",
		UserInfoURL:   srv.URL,
		HTTPClient:    srv.Client(),
		Now:           func() time.Time { return testNow },
	})
}

func TestLoginAdmitsAllowListedAccounts(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	resp, err := a.Login(ctx, models.GoogleLoginRequest{AccessToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, "asha@arneor.com", resp.User.Email)
	assert.Equal(t, testNow.Add(DefaultSessionTTL), resp.ExpiresAt)

	ok, email := a.Status()
	assert.True(t, ok)
	assert.Equal(t, "asha@arneor.com", email)

	tok, err := a.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, "good", tok.AccessToken)
}

func TestLoginRejections(t *testing.T) {
	a := newTestAuth(t)
	ctx := context.Background()

	_, err := a.Login(ctx, models.GoogleLoginRequest{AccessToken: "stranger"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = a.Login(ctx, models.GoogleLoginRequest{AccessToken: "unverified"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = a.Login(ctx, models.GoogleLoginRequest{AccessToken: "expired"})
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = a.Login(ctx, models.GoogleLoginRequest{AccessToken: "broken"})
	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, http.StatusBadGateway, rerr.Status)

	_, err = a.Login(ctx, models.GoogleLoginRequest{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	ok, _ := a.Status()
	assert.False(t, ok)
}

func TestVerifySession(t *testing.T) {
	a := newTestAuth(t)
	a.now = time.Now // session expiry is checked against the wall clock
	resp, err := a.Login(context.Background(), models.GoogleLoginRequest{AccessToken: "good"})
	require.NoError(t, err)

	claims, err := a.VerifySession(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "asha@arneor.com", claims.Email)

	_, err = a.VerifySession("not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthorized)

	outsider, err := utils.GenerateAccessToken([]byte("session-secret"), "someone@example.com", time.Hour, time.Now())
	require.NoError(t, err)
	_, err = a.VerifySession(outsider)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLogoutRunsHooks(t *testing.T) {
	a := newTestAuth(t)
	_, err := a.Login(context.Background(), models.GoogleLoginRequest{AccessToken: "good"})
	require.NoError(t, err)

	cleared := 0
	a.OnLogout(func() { cleared++ })
	require.NoError(t, a.Logout(context.Background()))

	assert.Equal(t, 1, cleared)
	ok, _ := a.Status()
	assert.False(t, ok)
}
