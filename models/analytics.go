package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardMetrics struct {
	TotalCashAvailable  decimal.Decimal `json:"total_cash_available"`
	ThisMonthRevenue    decimal.Decimal `json:"this_month_revenue"`
	ThisMonthExpenses   decimal.Decimal `json:"this_month_expenses"`
	ThisMonthProfitLoss decimal.Decimal `json:"this_month_profit_loss"`
	BurnRate            decimal.Decimal `json:"burn_rate"`
}

// MonthlySeries holds parallel per-month arrays, oldest bucket first.
type MonthlySeries struct {
	Labels   []string          `json:"labels"`
	Revenue  []decimal.Decimal `json:"revenue"`
	Expenses []decimal.Decimal `json:"expenses"`
	Profit   []decimal.Decimal `json:"profit"`
}

type CategoryBreakdown struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type FinancialHealth struct {
	Score           int             `json:"score"`
	OperatingMargin float64         `json:"operating_margin"`
	BurnRate        decimal.Decimal `json:"burn_rate"`
	Runway          float64         `json:"runway"`
	RunwayInfinite  bool            `json:"runway_infinite"`
	RevenueGrowth   float64         `json:"revenue_growth"`
	ExpenseGrowth   float64         `json:"expense_growth"`
}

// CashFlowProjection carries historical points followed by projected ones.
// Actual is null for projected months.
type CashFlowProjection struct {
	Labels    []string              `json:"labels"`
	Projected []decimal.Decimal     `json:"projected"`
	Actual    []decimal.NullDecimal `json:"actual"`
}

type PeriodKind string

const (
	PeriodMonth   PeriodKind = "month"
	PeriodQuarter PeriodKind = "quarter"
	PeriodYear    PeriodKind = "year"
	PeriodCustom  PeriodKind = "custom"
)

// Period is an inclusive date range plus the range it is compared against.
type Period struct {
	Kind     PeriodKind `json:"kind"`
	From     time.Time  `json:"from"`
	To       time.Time  `json:"to"`
	PrevFrom *time.Time `json:"prev_from,omitempty"`
	PrevTo   *time.Time `json:"prev_to,omitempty"`
}

type ProfitAndLoss struct {
	Period           Period            `json:"period"`
	TotalRevenue     decimal.Decimal   `json:"total_revenue"`
	TotalExpenses    decimal.Decimal   `json:"total_expenses"`
	GrossProfit      decimal.Decimal   `json:"gross_profit"`
	ProfitMargin     float64           `json:"profit_margin"`
	RevenueBreakdown CategoryBreakdown `json:"revenue_breakdown"`
	ExpenseBreakdown CategoryBreakdown `json:"expense_breakdown"`
	PreviousRevenue  decimal.Decimal   `json:"previous_revenue"`
	PreviousExpenses decimal.Decimal   `json:"previous_expenses"`
	RevenueChange    float64           `json:"revenue_change"`
	ExpenseChange    float64           `json:"expense_change"`
}

type PartnerStat struct {
	Partner
	CapitalAdded decimal.Decimal `json:"capital_added"`
	TxCount      int             `json:"tx_count"`
	FundsShare   float64         `json:"funds_share"`
}

type CategoryTotal struct {
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Percentage  float64         `json:"percentage"`
}

type Dashboard struct {
	Metrics            DashboardMetrics  `json:"metrics"`
	Monthly            MonthlySeries     `json:"monthly"`
	ExpenseBreakdown   CategoryBreakdown `json:"expense_breakdown"`
	RevenueBreakdown   CategoryBreakdown `json:"revenue_breakdown"`
	RecentTransactions []Transaction     `json:"recent_transactions"`
	Partners           []Partner         `json:"partners"`
}
