package models

import "time"

// ============================================================================
// USER MODEL
// ============================================================================

// User is the Google identity behind a session. Only allow-listed e-mails
// ever get one.
type User struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// ============================================================================
// AUTHENTICATION REQUESTS
// ============================================================================

// GoogleLoginRequest carries the access token obtained by the browser from
// Google Identity Services.
type GoogleLoginRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
