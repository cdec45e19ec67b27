package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/services"
)

// AdminHandler groups the maintenance endpoints: full refresh, sheet
// provisioning and the audit trail.
type AdminHandler struct {
	*Handler
	Audit *services.AuditService
}

func NewAdminHandler(h *Handler, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{Handler: h, Audit: audit}
}

// Sync drops the cache and re-reads every collection.
func (h *AdminHandler) Sync(c *gin.Context) {
	snap, err := h.Ledger.FetchAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *AdminHandler) InitializeSheets(c *gin.Context) {
	created, err := h.Ledger.InitializeSheets(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	log.Printf("✅ Spreadsheet initialized, %d sheets created", len(created))
	c.JSON(http.StatusOK, gin.H{"created": created})
}

func (h *AdminHandler) GetAuditLog(c *gin.Context) {
	if h.Audit == nil || !h.Audit.Enabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Audit trail is disabled"})
		return
	}
	limit, ok := intQuery(c, "limit", 100)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	entries, err := h.Audit.List(c.Request.Context(), c.Query("entity"), limit)
	if err != nil {
		log.Printf("❌ Failed to read audit log: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
