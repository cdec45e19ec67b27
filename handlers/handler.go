package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/services"
)

// Catalog holds the pick lists offered by the entry forms.
type Catalog struct {
	IncomeCategories  []string `json:"income_categories"`
	ExpenseCategories []string `json:"expense_categories"`
	PaymentMethods    []string `json:"payment_methods"`
}

// Handler serves the ledger API. Every route reads through the shared
// LedgerService so that the cache and write ordering are process wide.
type Handler struct {
	Ledger  *services.LedgerService
	Auth    *services.AuthService
	Catalog Catalog
}

func NewHandler(ledger *services.LedgerService, auth *services.AuthService, catalog Catalog) *Handler {
	return &Handler{Ledger: ledger, Auth: auth, Catalog: catalog}
}

func (h *Handler) fail(c *gin.Context, err error) {
	var resetter SessionResetter
	if h.Auth != nil {
		resetter = h.Auth
	}
	respondError(c, err, resetter, h.Ledger)
}
