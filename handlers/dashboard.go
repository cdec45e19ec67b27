package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
)

// GetDashboard returns metrics, the monthly chart, both category breakdowns
// and the latest transactions in one response.
func (h *Handler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	partners, err := h.Ledger.Partners(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.BuildDashboard(partners, txs, h.Ledger.Now()))
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	partners, err := h.Ledger.Partners(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.FinancialHealth(partners, txs, h.Ledger.Now()))
}

func (h *Handler) GetMonthlySeries(c *gin.Context) {
	months, ok := intQuery(c, "months", 6)
	if !ok || months < 1 || months > 36 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "months must be between 1 and 36"})
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.MonthlySeries(txs, months, h.Ledger.Now()))
}

func (h *Handler) GetCategoryBreakdown(c *gin.Context) {
	typ := models.TransactionType(c.DefaultQuery("type", string(models.TransactionExpense)))
	if !typ.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be Income or Expense"})
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.CategoryBreakdown(txs, typ))
}

func (h *Handler) GetCashFlow(c *gin.Context) {
	months, ok := intQuery(c, "months", 3)
	if !ok || months < 1 || months > 24 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "months must be between 1 and 24"})
		return
	}
	ctx := c.Request.Context()
	partners, err := h.Ledger.Partners(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	now := h.Ledger.Now()
	balance := services.DashboardMetrics(partners, txs, now).TotalCashAvailable
	c.JSON(http.StatusOK, services.ProjectCashFlow(balance, txs, months, now))
}

// GetProfitAndLoss reports one period against the previous one.
// Query: period=month|quarter|year|custom, year, month, from, to.
func (h *Handler) GetProfitAndLoss(c *gin.Context) {
	year, okYear := intQuery(c, "year", 0)
	month, okMonth := intQuery(c, "month", 0)
	if !okYear || !okMonth {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year and month must be numbers"})
		return
	}
	now := h.Ledger.Now()
	period, err := services.PeriodRange(models.PeriodKind(c.Query("period")), year, month, c.Query("from"), c.Query("to"), now)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ProfitAndLoss(txs, period, now))
}

func (h *Handler) GetPartnerStats(c *gin.Context) {
	ctx := c.Request.Context()
	partners, err := h.Ledger.Partners(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"partners": services.PartnerStats(partners, txs)})
}

func (h *Handler) GetCategoryReport(c *gin.Context) {
	txs, err := h.Ledger.Transactions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": services.CategoryReport(txs)})
}

// GetAlerts derives low balance, budget and monthly loss notifications.
func (h *Handler) GetAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	partners, err := h.Ledger.Partners(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.Ledger.Transactions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	budgets, err := h.Ledger.Budgets(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	threshold, err := h.Ledger.DecimalSetting(ctx, models.SettingLowBalanceThreshold)
	if err != nil {
		h.fail(c, err)
		return
	}
	currency, err := h.Ledger.Setting(ctx, models.SettingCurrency)
	if err != nil {
		h.fail(c, err)
		return
	}

	now := h.Ledger.Now()
	alerts := services.Alerts(partners, services.BudgetUsage(budgets, txs, now),
		services.DashboardMetrics(partners, txs, now), threshold, currency, now)
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
