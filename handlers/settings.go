package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/models"
)

// GetSettings returns stored settings merged over the defaults.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.Ledger.EffectiveSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *Handler) UpdateSetting(c *gin.Context) {
	var req models.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.Ledger.UpdateSetting(c.Request.Context(), c.Param("name"), req.Value)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) GetMonthlySummaries(c *gin.Context) {
	summaries, err := h.Ledger.MonthlySummaries(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

type SnapshotRequest struct {
	Notes string `json:"notes"`
}

// RecordMonthlySummary stores this month's figures in Monthly_Summary.
func (h *Handler) RecordMonthlySummary(c *gin.Context) {
	var req SnapshotRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	sum, err := h.Ledger.RecordMonthlySummary(c.Request.Context(), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) GetCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, h.Catalog)
}
