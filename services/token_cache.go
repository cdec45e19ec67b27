package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/arneor/vault-api/utils"
)

// tokenExpiryBuffer makes a token count as expired slightly early.
const tokenExpiryBuffer = 60 * time.Second

// StoredToken is the Google access token kept between restarts.
type StoredToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int       `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	Email       string    `json:"email"`
}

// ExpiresAt is the instant the token stops being usable, buffer applied.
func (t StoredToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn)*time.Second - tokenExpiryBuffer)
}

// TokenCache holds the current Google token in memory and, when a path is
// set, in an AES-GCM encrypted file. It is the oauth2.TokenSource used for
// spreadsheet calls when no service account is configured.
type TokenCache struct {
	path string
	key  []byte
	now  func() time.Time

	mu     sync.Mutex
	token  *StoredToken
	loaded bool
}

func NewTokenCache(path string, key []byte, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	return &TokenCache{path: path, key: key, now: now}
}

func (c *TokenCache) Save(tok StoredToken) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token, c.loaded = &tok, true
	if c.path == "" {
		return nil
	}
	plain, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	sealed, err := utils.Encrypt(c.key, plain)
	if err != nil {
		return fmt.Errorf("failed to encrypt token cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}
	return nil
}

// Load returns the cached token. It fails with ErrUnauthorized when none is
// stored, and with ErrTokenExpired (after clearing it) when it has expired.
func (c *TokenCache) Load() (*StoredToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		c.loaded = true
		if err := c.readFile(); err != nil {
			return nil, err
		}
	}
	if c.token == nil {
		return nil, ErrUnauthorized
	}
	if !c.now().Before(c.token.ExpiresAt()) {
		c.clearLocked()
		return nil, ErrTokenExpired
	}
	tok := *c.token
	return &tok, nil
}

func (c *TokenCache) readFile() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token cache: %w", err)
	}
	plain, err := utils.Decrypt(c.key, string(data))
	if err != nil {
		// unreadable cache, e.g. after a key rotation
		_ = os.Remove(c.path)
		return nil
	}
	var tok StoredToken
	if err := json.Unmarshal(plain, &tok); err != nil {
		_ = os.Remove(c.path)
		return nil
	}
	c.token = &tok
	return nil
}

func (c *TokenCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked()
}

func (c *TokenCache) clearLocked() error {
	c.token, c.loaded = nil, true
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token cache: %w", err)
	}
	return nil
}

// Token implements oauth2.TokenSource.
func (c *TokenCache) Token() (*oauth2.Token, error) {
	tok, err := c.Load()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresAt(),
	}, nil
}
