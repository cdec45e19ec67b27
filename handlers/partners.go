package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
)

type AdjustBalanceRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

func (h *Handler) GetPartners(c *gin.Context) {
	partners, err := h.Ledger.Partners(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]models.Partner, 0, len(partners))
	for _, p := range partners {
		if p.ID != "" {
			out = append(out, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"partners": out})
}

func (h *Handler) GetPartner(c *gin.Context) {
	partners, err := h.Ledger.Partners(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("id")
	for _, p := range partners {
		if p.ID != "" && p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Partner not found"})
}

func (h *Handler) UpdatePartner(c *gin.Context) {
	var req models.UpdatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Ledger.UpdatePartner(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AdjustPartnerBalance applies a manual correction to a running balance.
func (h *Handler) AdjustPartnerBalance(c *gin.Context) {
	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Delta.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": gin.H{"delta": "Delta must not be zero"}})
		return
	}
	p, err := h.Ledger.AdjustPartnerBalance(c.Request.Context(), c.Param("id"), req.Delta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
