package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
)

// GetBudgets returns every budget with this month's spend recomputed from
// the ledger.
func (h *Handler) GetBudgets(c *gin.Context) {
	ctx := c.Request.Context()
	budgets, err := h.Ledger.Budgets(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.BudgetUsage(budgets, txs, h.Ledger.Now()))
}

func (h *Handler) CreateBudget(c *gin.Context) {
	var req models.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Ledger.AddBudget(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBudget(c *gin.Context) {
	var req models.BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.Ledger.UpdateBudget(c.Request.Context(), c.Param("category"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBudget(c *gin.Context) {
	if err := h.Ledger.DeleteBudget(c.Request.Context(), c.Param("category")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}
