package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

const userEmailKey = "user_email"

// SessionVerifier is satisfied by services.AuthService.
type SessionVerifier interface {
	VerifySession(token string) (*utils.Claims, error)
}

// AuthMiddleware requires a valid session token. Browsers cannot set headers
// on websocket upgrades, so a token query parameter is accepted as well.
func AuthMiddleware(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required", "reauth": true})
			return
		}

		claims, err := verifier.VerifySession(token)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, services.ErrForbidden) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "Invalid or expired session", "reauth": true})
			return
		}

		c.Set(userEmailKey, claims.Email)
		c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), claims.Email))
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserID returns the e-mail of the authenticated user.
func GetUserID(c *gin.Context) string {
	return c.GetString(userEmailKey)
}
