package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/arneor/vault-api/handlers"
)

// SetupAuthRoutes sets up the public login routes.
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler) {
	rg.POST("/auth/google", h.GoogleLogin)
	rg.GET("/auth/status", h.Status)
}

// SetupSessionRoutes sets up the routes that need a session but touch no
// spreadsheet data.
func SetupSessionRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler, ws *handlers.WSHandler) {
	rg.GET("/auth/me", h.Me)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/ws", ws.HandleWS)
}

// SetupLedgerRoutes sets up partners, transactions, budgets, transfers and
// settings.
func SetupLedgerRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.GET("/partners", h.GetPartners)
	rg.GET("/partners/:id", h.GetPartner)
	rg.PUT("/partners/:id", h.UpdatePartner)
	rg.POST("/partners/:id/adjust", h.AdjustPartnerBalance)

	rg.GET("/transactions", h.GetTransactions)
	rg.GET("/transactions/recent", h.GetRecentTransactions)
	rg.GET("/transactions/:id", h.GetTransaction)
	rg.POST("/transactions", h.CreateTransaction)
	rg.PUT("/transactions/:id", h.UpdateTransaction)
	rg.DELETE("/transactions/:id", h.DeleteTransaction)

	rg.GET("/budgets", h.GetBudgets)
	rg.POST("/budgets", h.CreateBudget)
	rg.PUT("/budgets/:category", h.UpdateBudget)
	rg.DELETE("/budgets/:category", h.DeleteBudget)

	rg.GET("/transfers", h.GetTransfers)
	rg.POST("/transfers", h.CreateTransfer)

	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings/:name", h.UpdateSetting)

	rg.GET("/summaries", h.GetMonthlySummaries)
	rg.POST("/summaries", h.RecordMonthlySummary)

	rg.GET("/catalog", h.GetCatalog)
}

// SetupCategorizationRoutes sets up the category suggestion used by the
// transaction form.
func SetupCategorizationRoutes(rg *gin.RouterGroup, h *handlers.CategorizationHandler) {
	rg.POST("/transactions/suggest-category", h.SuggestCategory)
}

// SetupAnalyticsRoutes sets up the dashboard, analytics and report routes.
func SetupAnalyticsRoutes(rg *gin.RouterGroup, h *handlers.Handler) {
	rg.GET("/dashboard", h.GetDashboard)
	rg.GET("/alerts", h.GetAlerts)

	analytics := rg.Group("/analytics")
	analytics.GET("/health", h.GetHealth)
	analytics.GET("/monthly", h.GetMonthlySeries)
	analytics.GET("/categories", h.GetCategoryBreakdown)
	analytics.GET("/cashflow", h.GetCashFlow)
	analytics.GET("/pnl", h.GetProfitAndLoss)
	analytics.GET("/partners", h.GetPartnerStats)
	analytics.GET("/category-report", h.GetCategoryReport)

	rg.GET("/reports", h.ListReports)
	rg.GET("/reports/:kind", h.DownloadReport)
}

// SetupAdminRoutes sets up sync, provisioning and the audit trail.
func SetupAdminRoutes(rg *gin.RouterGroup, h *handlers.AdminHandler) {
	rg.POST("/sync", h.Sync)
	rg.POST("/admin/initialize", h.InitializeSheets)
	rg.GET("/admin/audit", h.GetAuditLog)
}
