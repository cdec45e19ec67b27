package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/models"
)

func (h *Handler) GetTransfers(c *gin.Context) {
	transfers, err := h.Ledger.Transfers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]models.InterPartnerTransfer, 0, len(transfers))
	for _, t := range transfers {
		if t.ID != "" {
			out = append(out, t)
		}
	}
	c.JSON(http.StatusOK, gin.H{"transfers": out})
}

// CreateTransfer moves funds between two partners.
func (h *Handler) CreateTransfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tr, err := h.Ledger.AddTransfer(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tr)
}
