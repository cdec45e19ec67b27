package models

import "github.com/shopspring/decimal"

// Budget is one category ceiling. CurrentSpent and Remaining are stored in
// the sheet but are not authoritative: BudgetUsage recomputes them.
type Budget struct {
	Row             int             `json:"-" sheet:"-"`
	Category        string          `json:"category" sheet:"Category"`
	MonthlyBudget   decimal.Decimal `json:"monthly_budget" sheet:"Monthly_Budget"`
	QuarterlyBudget decimal.Decimal `json:"quarterly_budget" sheet:"Quarterly_Budget"`
	YearlyBudget    decimal.Decimal `json:"yearly_budget" sheet:"Yearly_Budget"`
	CurrentSpent    decimal.Decimal `json:"current_spent" sheet:"Current_Spent"`
	Remaining       decimal.Decimal `json:"remaining" sheet:"Remaining"`
}

type BudgetRequest struct {
	Category        string          `json:"category" binding:"required"`
	MonthlyBudget   decimal.Decimal `json:"monthly_budget"`
	QuarterlyBudget decimal.Decimal `json:"quarterly_budget"`
	YearlyBudget    decimal.Decimal `json:"yearly_budget"`
}

const (
	BudgetOK      = "ok"
	BudgetWarning = "warning"
	BudgetOver    = "over"
)

type BudgetUsage struct {
	Budget
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

type BudgetOverview struct {
	Budgets     []BudgetUsage   `json:"budgets"`
	TotalBudget decimal.Decimal `json:"total_budget"`
	TotalSpent  decimal.Decimal `json:"total_spent"`
	OverBudget  []string        `json:"over_budget"`
}
