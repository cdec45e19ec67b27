package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arneor/vault-api/models"
)

var testNow = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if !dec(want).Equal(got) {
		assert.Fail(t, "decimal mismatch: want "+want+", got "+got.String(), msgAndArgs...)
	}
}

func assertDecs(t *testing.T, want []string, got []decimal.Decimal) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assertDec(t, want[i], got[i], "index %d", i)
	}
}

func income(id, date, category, amount, partner string) models.Transaction {
	return models.Transaction{ID: id, Date: date, Type: models.TransactionIncome,
		Category: category, Amount: dec(amount), PartnerAccount: partner}
}

func expense(id, date, category, amount, partner string) models.Transaction {
	return models.Transaction{ID: id, Date: date, Type: models.TransactionExpense,
		Category: category, Amount: dec(amount), PartnerAccount: partner}
}

func TestMonthlySeriesBuckets(t *testing.T) {
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		income("TXN0001", "2024-01-10", "Consulting Revenue", "100", "P1"),
		expense("TXN0002", "2024-02-03", "Software & Tools", "40", "P1"),
	}

	s := MonthlySeries(txs, 2, now)

	assert.Equal(t, []string{"Jan 2024", "Feb 2024"}, s.Labels)
	assertDecs(t, []string{"100", "0"}, s.Revenue)
	assertDecs(t, []string{"0", "40"}, s.Expenses)
	assertDecs(t, []string{"100", "-40"}, s.Profit)
}

func TestMonthlySeriesSumsMatchWindow(t *testing.T) {
	txs := []models.Transaction{
		income("TXN0001", "2025-09-01", "Product Sales", "250", "P1"),
		income("TXN0002", "46066", "Product Sales", "75.5", "P2"),
		expense("TXN0003", "2025-12-31", "Team Salaries", "300", "P1"),
		expense("TXN0004", "2025-08-31", "Team Salaries", "999", "P1"), // outside
		expense("", "2026-02-01", "Team Salaries", "5000", "P1"),       // placeholder
		expense("TXN0005", "not a date", "Team Salaries", "42", "P1"),  // unparseable
	}

	s := MonthlySeries(txs, 6, testNow)
	require.Len(t, s.Labels, 6)
	assert.Equal(t, "Sep 2025", s.Labels[0])
	assert.Equal(t, "Feb 2026", s.Labels[5])

	rev, exp := decimal.Zero, decimal.Zero
	for i := range s.Labels {
		rev = rev.Add(s.Revenue[i])
		exp = exp.Add(s.Expenses[i])
		assert.True(t, s.Profit[i].Equal(s.Revenue[i].Sub(s.Expenses[i])))
	}
	assertDec(t, "325.5", rev)
	assertDec(t, "300", exp)
}

func TestMonthlySeriesDefaultsToSixMonths(t *testing.T) {
	s := MonthlySeries(nil, 0, testNow)
	assert.Len(t, s.Labels, 6)
	for _, v := range s.Revenue {
		assert.True(t, v.IsZero())
	}
}

func TestCategoryBreakdownOrdering(t *testing.T) {
	txs := []models.Transaction{
		expense("TXN0001", "2026-02-01", "A", "30", "P1"),
		expense("TXN0002", "2026-02-01", "B", "20", "P1"),
		expense("TXN0003", "2026-02-01", "C", "10", "P1"),
		expense("TXN0004", "2026-02-02", "B", "30", "P1"),
		income("TXN0005", "2026-02-02", "D", "1000", "P1"),
	}

	b := CategoryBreakdown(txs, models.TransactionExpense)
	assert.Equal(t, []string{"B", "A", "C"}, b.Labels)
	assertDecs(t, []string{"50", "30", "10"}, b.Values)

	for i := 1; i < len(b.Values); i++ {
		assert.False(t, b.Values[i].GreaterThan(b.Values[i-1]))
	}
}

func TestCategoryBreakdownTiesKeepFirstSeen(t *testing.T) {
	txs := []models.Transaction{
		expense("TXN0001", "", "Rent", "10", "P1"),
		expense("TXN0002", "", "Travel", "10", "P1"),
		expense("TXN0003", "", "Legal", "10", "P1"),
	}
	b := CategoryBreakdown(txs, models.TransactionExpense)
	assert.Equal(t, []string{"Rent", "Travel", "Legal"}, b.Labels)
}

func TestBurnRate(t *testing.T) {
	txs := []models.Transaction{
		expense("TXN0001", "2025-09-10", "Rent", "200", "P1"),
		expense("TXN0002", "2025-12-01", "Rent", "250", "P1"),
		expense("TXN0003", "2026-02-14", "Rent", "150", "P1"),
		expense("TXN0004", "2025-08-01", "Rent", "10000", "P1"), // before the cutoff
		income("TXN0005", "2026-02-01", "Product Sales", "9000", "P1"),
	}
	assertDec(t, "100", BurnRate(txs, testNow))
	assert.True(t, BurnRate(nil, testNow).IsZero())
}

func TestFinancialHealthInfiniteRunway(t *testing.T) {
	partners := []models.Partner{{ID: "P1", CurrentBalance: dec("5000")}}
	txs := []models.Transaction{
		income("TXN0001", "2026-02-01", "Product Sales", "1000", "P1"),
	}

	h := FinancialHealth(partners, txs, testNow)
	assert.True(t, h.RunwayInfinite)
	assert.Equal(t, float64(RunwayInfinite), h.Runway)
	assert.InDelta(t, 100, h.OperatingMargin, 0.0001)
	// base 50, margin +20, runway +20, growth against an empty month is 0
	assert.Equal(t, 90, h.Score)
	assert.Equal(t, 0.0, h.RevenueGrowth)
}

func TestFinancialHealthZeroRevenue(t *testing.T) {
	h := FinancialHealth([]models.Partner{{ID: "P1", CurrentBalance: dec("100")}}, nil, testNow)
	assert.Equal(t, 0.0, h.OperatingMargin)
	// base 50, margin -15, runway +20
	assert.Equal(t, 55, h.Score)
}

func TestFinancialHealthBounds(t *testing.T) {
	best := FinancialHealth(
		[]models.Partner{{ID: "P1", CurrentBalance: dec("1000000")}},
		[]models.Transaction{
			income("TXN0001", "2026-01-10", "Product Sales", "100", "P1"),
			income("TXN0002", "2026-02-10", "Product Sales", "1000", "P1"),
			expense("TXN0003", "2026-02-11", "Rent", "60", "P1"),
		}, testNow)
	assert.Equal(t, 100, best.Score)
	assert.InDelta(t, 900, best.RevenueGrowth, 0.0001)
	assert.False(t, best.RunwayInfinite)

	worst := FinancialHealth(
		[]models.Partner{{ID: "P1", CurrentBalance: dec("0")}},
		[]models.Transaction{expense("TXN0001", "2026-02-10", "Rent", "600", "P1")},
		testNow)
	// base 50, margin -15, runway 0 -20
	assert.Equal(t, 15, worst.Score)
	assert.Equal(t, 0.0, worst.Runway)

	for _, h := range []models.FinancialHealth{best, worst} {
		assert.GreaterOrEqual(t, h.Score, 0)
		assert.LessOrEqual(t, h.Score, 100)
	}
}

func TestProjectCashFlow(t *testing.T) {
	txs := []models.Transaction{
		income("TXN0001", "2025-09-05", "Product Sales", "600", "P1"),
		expense("TXN0002", "2026-02-05", "Rent", "300", "P1"),
	}

	p := ProjectCashFlow(dec("1000"), txs, 3, testNow)

	require.Len(t, p.Labels, 9)
	require.Len(t, p.Projected, 9)
	require.Len(t, p.Actual, 9)
	assert.Equal(t, "Sep 2025", p.Labels[0])
	assert.Equal(t, "Mar 2026", p.Labels[6])
	assert.Equal(t, "May 2026", p.Labels[8])

	assertDecs(t, []string{"1300", "1300", "1300", "1300", "1300", "1000", "1050", "1100", "1150"}, p.Projected)
	for i := 0; i < 6; i++ {
		assert.True(t, p.Actual[i].Valid, "month %d", i)
		assert.True(t, p.Actual[i].Decimal.Equal(p.Projected[i]))
	}
	for i := 6; i < 9; i++ {
		assert.False(t, p.Actual[i].Valid, "month %d", i)
	}
}

func TestProjectCashFlowDefaultHorizon(t *testing.T) {
	p := ProjectCashFlow(dec("10"), nil, 0, testNow)
	assert.Len(t, p.Labels, 9)
	assertDec(t, "10", p.Projected[8])
}

func TestDashboardMetricsSkipsPlaceholders(t *testing.T) {
	partners := []models.Partner{
		{ID: "P1", CurrentBalance: dec("800")},
		{ID: "P2", CurrentBalance: dec("700")},
	}
	txs := []models.Transaction{
		income("TXN0001", "2026-02-01", "Product Sales", "500", "P1"),
		expense("TXN0002", "2026-02-02", "Rent", "200", "P2"),
		income("", "2026-02-03", "Product Sales", "99999", "P1"),
		income("TXN0003", "2026-01-31", "Product Sales", "70", "P1"),
	}

	m := DashboardMetrics(partners, txs, testNow)
	assertDec(t, "1500", m.TotalCashAvailable)
	assertDec(t, "500", m.ThisMonthRevenue)
	assertDec(t, "200", m.ThisMonthExpenses)
	assertDec(t, "300", m.ThisMonthProfitLoss)
}

func TestBudgetUsageStatuses(t *testing.T) {
	budgets := []models.Budget{
		{Category: "Rent", MonthlyBudget: dec("1000")},
		{Category: "Travel", MonthlyBudget: dec("1000")},
		{Category: "Legal", MonthlyBudget: dec("1000")},
		{Category: ""},
	}
	txs := []models.Transaction{
		expense("TXN0001", "2026-02-01", "Rent", "1200", "P1"),
		expense("TXN0002", "2026-02-02", "Travel", "850", "P1"),
		expense("TXN0003", "2026-02-03", "Legal", "500", "P1"),
		expense("TXN0004", "2026-01-03", "Legal", "900", "P1"), // last month
	}

	o := BudgetUsage(budgets, txs, testNow)
	require.Len(t, o.Budgets, 3)
	assert.Equal(t, models.BudgetOver, o.Budgets[0].Status)
	assert.Equal(t, models.BudgetWarning, o.Budgets[1].Status)
	assert.Equal(t, models.BudgetOK, o.Budgets[2].Status)
	assertDec(t, "-200", o.Budgets[0].Remaining)
	assertDec(t, "500", o.Budgets[2].CurrentSpent)
	assert.InDelta(t, 85, o.Budgets[1].Percentage, 0.0001)
	assert.Equal(t, []string{"Rent"}, o.OverBudget)
	assertDec(t, "3000", o.TotalBudget)
	assertDec(t, "2550", o.TotalSpent)
}

func TestPeriodRange(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	t.Run("month", func(t *testing.T) {
		p, err := PeriodRange(models.PeriodMonth, 2024, 2, "", "", testNow)
		require.NoError(t, err)
		assert.Equal(t, day(2024, 2, 1), p.From)
		assert.Equal(t, day(2024, 2, 29), p.To)
		assert.Equal(t, day(2024, 1, 1), *p.PrevFrom)
		assert.Equal(t, day(2024, 1, 31), *p.PrevTo)
	})

	t.Run("first quarter compares with last year", func(t *testing.T) {
		p, err := PeriodRange(models.PeriodQuarter, 2026, 2, "", "", testNow)
		require.NoError(t, err)
		assert.Equal(t, day(2026, 1, 1), p.From)
		assert.Equal(t, day(2026, 3, 31), p.To)
		assert.Equal(t, day(2025, 10, 1), *p.PrevFrom)
		assert.Equal(t, day(2025, 12, 31), *p.PrevTo)
	})

	t.Run("year", func(t *testing.T) {
		p, err := PeriodRange(models.PeriodYear, 2025, 0, "", "", testNow)
		require.NoError(t, err)
		assert.Equal(t, day(2025, 1, 1), p.From)
		assert.Equal(t, day(2025, 12, 31), p.To)
		assert.Equal(t, day(2024, 1, 1), *p.PrevFrom)
	})

	t.Run("custom", func(t *testing.T) {
		p, err := PeriodRange(models.PeriodCustom, 0, 0, "", "", testNow)
		require.NoError(t, err)
		assert.Equal(t, day(2026, 1, 1), p.From)
		assert.Equal(t, day(2026, 2, 15), p.To)
		assert.Nil(t, p.PrevFrom)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, tc := range []struct {
			kind     models.PeriodKind
			month    int
			from, to string
		}{
			{models.PeriodMonth, 13, "", ""},
			{"fortnight", 1, "", ""},
			{models.PeriodCustom, 1, "2026-02-10", "2026-02-01"},
			{models.PeriodCustom, 1, "soon", ""},
		} {
			_, err := PeriodRange(tc.kind, 2026, tc.month, tc.from, tc.to, testNow)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "%+v", tc)
		}
	})
}

func TestProfitAndLoss(t *testing.T) {
	txs := []models.Transaction{
		income("TXN0001", "2026-02-01", "Product Sales", "1000", "P1"),
		income("TXN0002", "2026-02-28", "Consulting Revenue", "500", "P1"), // last day is included
		expense("TXN0003", "2026-02-10", "Rent", "300", "P1"),
		income("TXN0004", "2026-01-15", "Product Sales", "750", "P1"),
		expense("TXN0005", "2026-01-20", "Rent", "600", "P1"),
		expense("TXN0006", "2026-03-01", "Rent", "999", "P1"),
	}
	period, err := PeriodRange(models.PeriodMonth, 2026, 2, "", "", testNow)
	require.NoError(t, err)

	pl := ProfitAndLoss(txs, period, testNow)
	assertDec(t, "1500", pl.TotalRevenue)
	assertDec(t, "300", pl.TotalExpenses)
	assertDec(t, "1200", pl.GrossProfit)
	assert.InDelta(t, 80, pl.ProfitMargin, 0.0001)
	assert.Equal(t, []string{"Product Sales", "Consulting Revenue"}, pl.RevenueBreakdown.Labels)
	assertDec(t, "750", pl.PreviousRevenue)
	assertDec(t, "600", pl.PreviousExpenses)
	assert.InDelta(t, 100, pl.RevenueChange, 0.0001)
	assert.InDelta(t, -50, pl.ExpenseChange, 0.0001)
}

func TestPartnerStats(t *testing.T) {
	partners := []models.Partner{
		{ID: "P1", Name: "Asha", CurrentBalance: dec("800")},
		{ID: "P2", Name: "Ravi", CurrentBalance: dec("700")},
		{ID: ""},
	}
	txs := []models.Transaction{
		income("TXN0001", "2026-01-01", "Partner Capital Injection", "1000", "P1"),
		expense("TXN0002", "2026-01-02", "Rent", "200", "P1"),
		income("TXN0003", "2026-01-03", "Product Sales", "700", "P2"),
	}

	stats := PartnerStats(partners, txs)
	require.Len(t, stats, 2)
	assertDec(t, "1000", stats[0].CapitalAdded)
	assert.Equal(t, 2, stats[0].TxCount)
	assert.True(t, stats[1].CapitalAdded.IsZero())
	assert.InDelta(t, 53.333, stats[0].FundsShare, 0.001)
	assert.InDelta(t, 100, stats[0].FundsShare+stats[1].FundsShare, 0.0001)
}

func ledgerFixture() []models.Transaction {
	return []models.Transaction{
		income("TXN0001", "2026-01-05", "Product Sales", "1200", "P1"),
		expense("TXN0002", "2026-01-20", "Team Salaries", "800", "P2"),
		expense("TXN0003", "2026-02-02", "Software & Tools", "49.99", "P1"),
		income("TXN0004", "46066", "Consulting Revenue", "300", "P2"),
		expense("", "", "", "0", ""),
	}
}

func TestFilterTransactionsDefaults(t *testing.T) {
	page, err := FilterTransactions(ledgerFixture(), models.TransactionFilter{}, testNow)
	require.NoError(t, err)

	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PerPage)
	assert.Equal(t, 1, page.TotalPages)
	ids := []string{}
	for _, tx := range page.Items {
		ids = append(ids, tx.ID)
	}
	assert.Equal(t, []string{"TXN0004", "TXN0003", "TXN0002", "TXN0001"}, ids)
	assertDec(t, "1500", page.TotalIncome)
	assertDec(t, "849.99", page.TotalExpense)
}

func TestFilterTransactionsFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter models.TransactionFilter
		want   []string
	}{
		{"type", models.TransactionFilter{Type: "Income", SortDir: "asc"}, []string{"TXN0001", "TXN0004"}},
		{"partner", models.TransactionFilter{Partner: "P2", SortField: "id", SortDir: "asc"}, []string{"TXN0002", "TXN0004"}},
		{"date range", models.TransactionFilter{DateFrom: "2026-02-01", DateTo: "13 Feb 2026"}, []string{"TXN0004", "TXN0003"}},
		{"amount", models.TransactionFilter{AmountMin: "100", AmountMax: "1000", SortField: "amount"}, []string{"TXN0002", "TXN0004"}},
		{"search", models.TransactionFilter{Search: "  SALARIES "}, []string{"TXN0002"}},
		{"search id", models.TransactionFilter{Search: "txn0003"}, []string{"TXN0003"}},
		{"category", models.TransactionFilter{Category: "Product Sales"}, []string{"TXN0001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := FilterTransactions(ledgerFixture(), tt.filter, testNow)
			require.NoError(t, err)
			got := []string{}
			for _, tx := range page.Items {
				got = append(got, tx.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterTransactionsPagination(t *testing.T) {
	page, err := FilterTransactions(ledgerFixture(), models.TransactionFilter{Page: 2, PerPage: 3}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TXN0001", page.Items[0].ID)

	page, err = FilterTransactions(ledgerFixture(), models.TransactionFilter{Page: 9, PerPage: 3}, testNow)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestFilterTransactionsRejectsBadInput(t *testing.T) {
	_, err := FilterTransactions(nil, models.TransactionFilter{
		Type: "Refund", SortField: "colour", AmountMin: "ten", DateFrom: "yesterday",
	}, testNow)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "sort")
	assert.Contains(t, verr.Fields, "amount_min")
	assert.Contains(t, verr.Fields, "date_from")
}

func TestRecentTransactions(t *testing.T) {
	got := RecentTransactions(ledgerFixture(), 2, testNow)
	require.Len(t, got, 2)
	assert.Equal(t, "TXN0004", got[0].ID)
	assert.Equal(t, "TXN0003", got[1].ID)
}

func TestCategoryReport(t *testing.T) {
	txs := []models.Transaction{
		expense("TXN0001", "", "Rent", "300", "P1"),
		income("TXN0002", "", "Product Sales", "5000", "P1"),
		expense("TXN0003", "", "Travel", "600", "P1"),
		expense("TXN0004", "", "Rent", "100", "P1"),
	}
	report := CategoryReport(txs)
	require.Len(t, report, 2)
	assert.Equal(t, "Rent", report[0].Category)
	assertDec(t, "400", report[0].TotalAmount)
	assert.Equal(t, 40.0, report[0].Percentage)
	assert.Equal(t, 60.0, report[1].Percentage)

	assert.Empty(t, CategoryReport(nil))
}

func TestAlerts(t *testing.T) {
	partners := []models.Partner{
		{ID: "P1", Name: "Asha", CurrentBalance: dec("500")},
		{ID: "P2", Name: "Ravi", CurrentBalance: dec("50000")},
	}
	overview := models.BudgetOverview{Budgets: []models.BudgetUsage{
		{Budget: models.Budget{Category: "Rent"}, Status: models.BudgetOver, Percentage: 120},
		{Budget: models.Budget{Category: "Travel"}, Status: models.BudgetWarning, Percentage: 85},
		{Budget: models.Budget{Category: "Legal"}, Status: models.BudgetOK},
	}}
	metrics := models.DashboardMetrics{ThisMonthProfitLoss: dec("-250")}

	alerts := Alerts(partners, overview, metrics, dec("10000"), "INR", testNow)
	require.Len(t, alerts, 4)
	assert.Equal(t, models.AlertWarning, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "Asha")
	assert.Equal(t, models.AlertDanger, alerts[1].Type)
	assert.Equal(t, models.AlertWarning, alerts[2].Type)
	assert.Equal(t, "Monthly loss", alerts[3].Title)
	assert.Contains(t, alerts[3].Message, "₹250.00")

	again := Alerts(partners, overview, metrics, dec("10000"), "INR", testNow.Add(time.Hour))
	for i := range alerts {
		assert.Equal(t, alerts[i].ID, again[i].ID)
	}
	assert.NotEqual(t, alerts[0].ID, alerts[1].ID)
}

func TestBuildDashboardDropsPlaceholderPartners(t *testing.T) {
	d := BuildDashboard([]models.Partner{{ID: "P1"}, {ID: ""}}, ledgerFixture(), testNow)
	assert.Len(t, d.Partners, 1)
	assert.Len(t, d.RecentTransactions, 4)
	assert.Len(t, d.Monthly.Labels, 6)
}
