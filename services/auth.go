package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

const (
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	DefaultSessionTTL  = 12 * time.Hour
	defaultTokenLife   = 3600
)

type AuthConfig struct {
	AllowedEmails []string
	JWTSecret     string
	SessionTTL    time.Duration
	UserInfoURL   string
	HTTPClient    *http.Client
	Now           func() time.Time
}

// AuthService admits Google accounts from the allow-list and issues the
// API session tokens.
type AuthService struct {
	tokens      *TokenCache
	allowed     map[string]bool
	secret      []byte
	ttl         time.Duration
	userInfoURL string
	client      *http.Client
	now         func() time.Time

	mu       sync.Mutex
	onLogout []func()
}

func NewAuthService(tokens *TokenCache, cfg AuthConfig) *AuthService {
	a := &AuthService{
		tokens:      tokens,
		allowed:     make(map[string]bool, len(cfg.AllowedEmails)),
		secret:      []byte(cfg.JWTSecret),
		ttl:         cfg.SessionTTL,
		userInfoURL: cfg.UserInfoURL,
		client:      cfg.HTTPClient,
		now:         cfg.Now,
	}
	for _, e := range cfg.AllowedEmails {
		if e = normalizeEmail(e); e != "" {
			a.allowed[e] = true
		}
	}
	if a.ttl <= 0 {
		a.ttl = DefaultSessionTTL
	}
	if a.userInfoURL == "" {
		a.userInfoURL = DefaultUserInfoURL
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 15 * time.Second}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func (a *AuthService) IsAllowed(email string) bool {
	return a.allowed[normalizeEmail(email)]
}

// TokenSource feeds the cached Google token to the Sheets client.
func (a *AuthService) TokenSource() oauth2.TokenSource {
	return a.tokens
}

// OnLogout registers state that must be dropped with the session, such as
// the data cache.
func (a *AuthService) OnLogout(fn func()) {
	a.mu.Lock()
	a.onLogout = append(a.onLogout, fn)
	a.mu.Unlock()
}

type googleUserInfo struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Login checks the Google access token, enforces the allow-list, keeps the
// token for spreadsheet access and returns a session.
func (a *AuthService) Login(ctx context.Context, req models.GoogleLoginRequest) (*models.AuthResponse, error) {
	if strings.TrimSpace(req.AccessToken) == "" {
		return nil, &ValidationError{Fields: map[string]string{"access_token": "Access token is required"}}
	}

	info, err := a.lookupUser(ctx, req.AccessToken)
	if err != nil {
		utils.LogAuthAction("login", "", false)
		return nil, err
	}
	if !info.EmailVerified || !a.IsAllowed(info.Email) {
		utils.LogAuthAction("login denied", info.Email, false)
		return nil, fmt.Errorf("%s is not on the allow-list: %w", utils.MaskEmail(info.Email), ErrForbidden)
	}

	now := a.now()
	expiresIn := req.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenLife
	}
	if err := a.tokens.Save(StoredToken{
		AccessToken: req.AccessToken,
		ExpiresIn:   expiresIn,
		IssuedAt:    now,
		Email:       normalizeEmail(info.Email),
	}); err != nil {
		return nil, err
	}

	session, err := utils.GenerateAccessToken(a.secret, normalizeEmail(info.Email), a.ttl, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	utils.LogAuthAction("login", info.Email, true)

	return &models.AuthResponse{
		Token:     session,
		ExpiresAt: now.Add(a.ttl),
		User:      models.User{Email: normalizeEmail(info.Email), Name: info.Name, Picture: info.Picture},
	}, nil
}

func (a *AuthService) lookupUser(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: "userinfo", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenExpired
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrForbidden
	case resp.StatusCode != http.StatusOK:
		return nil, &RemoteError{Op: "userinfo", Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &RemoteError{Op: "userinfo", Err: fmt.Errorf("decode error: %w", err)}
	}
	if info.Email == "" {
		return nil, ErrForbidden
	}
	return &info, nil
}

// VerifySession validates a session token and re-checks the allow-list.
func (a *AuthService) VerifySession(token string) (*utils.Claims, error) {
	claims, err := utils.ParseAccessToken(a.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !a.IsAllowed(claims.Email) {
		return nil, ErrForbidden
	}
	return claims, nil
}

// Status reports whether a usable Google token is cached.
func (a *AuthService) Status() (bool, string) {
	tok, err := a.tokens.Load()
	if err != nil {
		return false, ""
	}
	return true, tok.Email
}

// Logout forgets the Google token and every piece of session state.
func (a *AuthService) Logout(ctx context.Context) error {
	err := a.tokens.Clear()
	a.mu.Lock()
	hooks := append([]func(){}, a.onLogout...)
	a.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	utils.LogAuthAction("logout", "", true)
	return err
}
