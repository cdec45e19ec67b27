package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/services"
)

// SessionResetter drops cached credentials once Google rejects them.
type SessionResetter interface {
	Logout(ctx context.Context) error
}

// respondError maps service errors to HTTP responses. An authorization
// failure from Google ends the stored session so the client logs in again.
func respondError(c *gin.Context, err error, auth SessionResetter, ledger *services.LedgerService) {
	var verr *services.ValidationError
	var remote *services.RemoteError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsAuthError(err):
		status := http.StatusUnauthorized
		if errors.Is(err, services.ErrForbidden) {
			status = http.StatusForbidden
		}
		if auth != nil {
			if lerr := auth.Logout(c.Request.Context()); lerr != nil {
				log.Printf("⚠️ Failed to clear session: %v", lerr)
			}
		}
		if ledger != nil {
			ledger.ClearCache()
		}
		c.JSON(status, gin.H{"error": err.Error(), "reauth": true})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out", "retryable": true})
	case errors.As(err, &remote):
		log.Printf("❌ Spreadsheet error: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Spreadsheet unavailable, try again", "retryable": true})
	default:
		log.Printf("❌ Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
