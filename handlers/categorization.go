package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
)

type CategorizationHandler struct {
	*Handler
	Service *services.CategorizerService
}

func NewCategorizationHandler(h *Handler) *CategorizationHandler {
	categories := append(append([]string{}, h.Catalog.IncomeCategories...), h.Catalog.ExpenseCategories...)
	return &CategorizationHandler{
		Handler: h,
		Service: services.NewCategorizerService(h.Ledger, categories),
	}
}

type CategorizeRequest struct {
	Description string                 `json:"description" binding:"required"`
	Type        models.TransactionType `json:"type"`
}

// SuggestCategory proposes a category for the transaction form.
func (h *CategorizationHandler) SuggestCategory(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be Income or Expense"})
		return
	}

	suggestion, err := h.Service.Suggest(c.Request.Context(), req.Description, req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"description": req.Description,
		"category":    suggestion.Category,
		"source":      suggestion.Source,
	})
}
