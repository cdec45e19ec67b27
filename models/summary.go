package models

import "github.com/shopspring/decimal"

type MonthlySummary struct {
	Row           int             `json:"-" sheet:"-"`
	Month         string          `json:"month" sheet:"Month"`
	Year          int             `json:"year" sheet:"Year"`
	TotalRevenue  decimal.Decimal `json:"total_revenue" sheet:"Total_Revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses" sheet:"Total_Expenses"`
	NetProfitLoss decimal.Decimal `json:"net_profit_loss" sheet:"Net_Profit_Loss"`
	CashBalance   decimal.Decimal `json:"cash_balance" sheet:"Cash_Balance"`
	BurnRate      decimal.Decimal `json:"burn_rate" sheet:"Burn_Rate"`
	Notes         string          `json:"notes" sheet:"Notes"`
}
