package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/middleware"
	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

type AuthHandler struct {
	Auth   *services.AuthService
	Ledger *services.LedgerService
}

func NewAuthHandler(auth *services.AuthService, ledger *services.LedgerService) *AuthHandler {
	return &AuthHandler{Auth: auth, Ledger: ledger}
}

// GoogleLogin exchanges a Google access token for a session token.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req models.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "This account is not allowed to access the vault"})
		case services.IsAuthError(err):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Google rejected the token"})
		default:
			utils.SafeError("login failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to verify Google account", "retryable": true})
		}
		return
	}

	// a new token means the previous Google identity's reads are stale
	h.Ledger.ClearCache()
	c.JSON(http.StatusOK, resp)
}

// Status tells the login page whether a Google token is cached.
func (h *AuthHandler) Status(c *gin.Context) {
	ok, email := h.Auth.Status()
	c.JSON(http.StatusOK, gin.H{"authenticated": ok, "email": email})
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, models.User{Email: middleware.GetUserID(c)})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context()); err != nil {
		utils.SafeError("logout failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session"})
		return
	}
	h.Ledger.ClearCache()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
