package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/middleware"
	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
)

// GetTransactions lists the ledger with the filters of the transactions
// page: date range, type, category, partner, amount range, free-text search,
// sort and pagination.
func (h *Handler) GetTransactions(c *gin.Context) {
	var f models.TransactionFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	page, err := services.FilterTransactions(txs, f, h.Ledger.Now())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetRecentTransactions(c *gin.Context) {
	limit, ok := intQuery(c, "limit", 10)
	if !ok || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": services.RecentTransactions(txs, limit, h.Ledger.Now())})
}

func (h *Handler) GetTransaction(c *gin.Context) {
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	id := c.Param("id")
	for _, t := range txs {
		if t.Persisted() && t.ID == id {
			c.JSON(http.StatusOK, t)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
}

// CreateTransaction appends to the ledger and updates the partner balance.
// Added_By defaults to the logged in user.
func (h *Handler) CreateTransaction(c *gin.Context) {
	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AddedBy == "" {
		req.AddedBy = middleware.GetUserID(c)
	}
	tx, err := h.Ledger.AddTransaction(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) UpdateTransaction(c *gin.Context) {
	var req models.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := h.Ledger.UpdateTransaction(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(c *gin.Context) {
	if err := h.Ledger.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
