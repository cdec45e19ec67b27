package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

// Everything in this file is pure: no I/O, and "now" always comes from the
// caller. Dates are parsed in now's location.

const (
	// RunwayInfinite is reported when the trailing burn rate is zero.
	RunwayInfinite = 999

	burnRateMonths       = 6
	defaultSeriesMonths  = 6
	defaultHorizonMonths = 3
	recentLimit          = 10

	capitalInjectionCategory = "Partner Capital Injection"
)

var hundred = decimal.NewFromInt(100)

// txDate resolves a transaction date. An empty date counts as now, an
// unparseable one matches no period at all.
func txDate(raw string, now time.Time) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return now, true
	}
	t, err := utils.ParseSheetDate(raw, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type monthTotals struct {
	revenue  decimal.Decimal
	expenses decimal.Decimal
}

func totalsForMonth(txs []models.Transaction, month, now time.Time) monthTotals {
	var out monthTotals
	for _, t := range txs {
		if !t.Persisted() {
			continue
		}
		d, ok := txDate(t.Date, now)
		if !ok || !utils.SameMonth(d, month) {
			continue
		}
		switch t.Type {
		case models.TransactionIncome:
			out.revenue = out.revenue.Add(t.Amount)
		case models.TransactionExpense:
			out.expenses = out.expenses.Add(t.Amount)
		}
	}
	return out
}

// BurnRate is the sum of expenses dated on or after now minus six months,
// divided by six whatever the number of months that actually have data.
func BurnRate(txs []models.Transaction, now time.Time) decimal.Decimal {
	cutoff := now.AddDate(0, -burnRateMonths, 0)
	sum := decimal.Zero
	for _, t := range txs {
		if !t.Persisted() || t.Type != models.TransactionExpense {
			continue
		}
		d, ok := txDate(t.Date, now)
		if !ok || d.Before(cutoff) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum.Div(decimal.NewFromInt(burnRateMonths))
}

func totalCash(partners []models.Partner) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range partners {
		sum = sum.Add(p.CurrentBalance)
	}
	return sum
}

// percentChange is 0 when the previous value is not positive.
func percentChange(cur, prev decimal.Decimal) float64 {
	if !prev.IsPositive() {
		return 0
	}
	return cur.Sub(prev).Div(prev).Mul(hundred).InexactFloat64()
}

func DashboardMetrics(partners []models.Partner, txs []models.Transaction, now time.Time) models.DashboardMetrics {
	cur := totalsForMonth(txs, now, now)
	return models.DashboardMetrics{
		TotalCashAvailable:  totalCash(partners),
		ThisMonthRevenue:    cur.revenue,
		ThisMonthExpenses:   cur.expenses,
		ThisMonthProfitLoss: cur.revenue.Sub(cur.expenses),
		BurnRate:            BurnRate(txs, now),
	}
}

// MonthlySeries buckets income and expenses over the n calendar months
// ending with now's month, oldest first. Empty months are zero.
func MonthlySeries(txs []models.Transaction, n int, now time.Time) models.MonthlySeries {
	if n <= 0 {
		n = defaultSeriesMonths
	}
	s := models.MonthlySeries{
		Labels:   make([]string, 0, n),
		Revenue:  make([]decimal.Decimal, 0, n),
		Expenses: make([]decimal.Decimal, 0, n),
		Profit:   make([]decimal.Decimal, 0, n),
	}
	for i := n - 1; i >= 0; i-- {
		month := utils.MonthStart(now, -i)
		tot := totalsForMonth(txs, month, now)
		s.Labels = append(s.Labels, utils.MonthLabel(month))
		s.Revenue = append(s.Revenue, tot.revenue)
		s.Expenses = append(s.Expenses, tot.expenses)
		s.Profit = append(s.Profit, tot.revenue.Sub(tot.expenses))
	}
	return s
}

// CategoryBreakdown sums amounts per category for one transaction type,
// largest first. Ties keep the order in which categories were first seen.
func CategoryBreakdown(txs []models.Transaction, typ models.TransactionType) models.CategoryBreakdown {
	totals := map[string]decimal.Decimal{}
	order := []string{}
	for _, t := range txs {
		if !t.Persisted() || t.Type != typ {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]].GreaterThan(totals[order[j]])
	})

	out := models.CategoryBreakdown{Labels: order, Values: make([]decimal.Decimal, len(order))}
	for i, c := range order {
		out.Values[i] = totals[c]
	}
	return out
}

// FinancialHealth scores the company between 0 and 100.
//
//	base 50
//	margin > 20%: +20, margin > 0: +10, otherwise -15 (zero revenue included)
//	runway > 12 months: +20, runway < 3 months: -20
//	revenue growth > 10%: +10
func FinancialHealth(partners []models.Partner, txs []models.Transaction, now time.Time) models.FinancialHealth {
	cash := totalCash(partners)
	cur := totalsForMonth(txs, now, now)
	prev := totalsForMonth(txs, utils.MonthStart(now, -1), now)

	margin := 0.0
	if cur.revenue.IsPositive() {
		margin = cur.revenue.Sub(cur.expenses).Div(cur.revenue).Mul(hundred).InexactFloat64()
	}

	burn := BurnRate(txs, now)
	runway := float64(RunwayInfinite)
	infinite := true
	if burn.IsPositive() {
		runway = cash.Div(burn).InexactFloat64()
		infinite = false
	}

	h := models.FinancialHealth{
		OperatingMargin: margin,
		BurnRate:        burn,
		Runway:          runway,
		RunwayInfinite:  infinite,
		RevenueGrowth:   percentChange(cur.revenue, prev.revenue),
		ExpenseGrowth:   percentChange(cur.expenses, prev.expenses),
	}

	score := 50
	switch {
	case margin > 20:
		score += 20
	case margin > 0:
		score += 10
	default:
		score -= 15
	}
	switch {
	case runway > 12:
		score += 20
	case runway < 3:
		score -= 20
	}
	if h.RevenueGrowth > 10 {
		score += 10
	}
	h.Score = min(100, max(0, score))
	return h
}

// ProjectCashFlow rebuilds the balance over the last six months by walking
// the monthly net flows back from balance, then extends it months ahead with
// the six month average net flow. Projected months have a null actual.
func ProjectCashFlow(balance decimal.Decimal, txs []models.Transaction, months int, now time.Time) models.CashFlowProjection {
	if months <= 0 {
		months = defaultHorizonMonths
	}
	hist := MonthlySeries(txs, defaultSeriesMonths, now)

	net := decimal.Zero
	for _, p := range hist.Profit {
		net = net.Add(p)
	}
	avgNet := net.Div(decimal.NewFromInt(int64(len(hist.Profit))))

	size := len(hist.Labels) + months
	out := models.CashFlowProjection{
		Labels:    make([]string, 0, size),
		Projected: make([]decimal.Decimal, 0, size),
		Actual:    make([]decimal.NullDecimal, 0, size),
	}

	running := balance.Sub(net)
	for i, label := range hist.Labels {
		running = running.Add(hist.Profit[i])
		out.Labels = append(out.Labels, label)
		out.Projected = append(out.Projected, running)
		out.Actual = append(out.Actual, decimal.NewNullDecimal(running))
	}

	proj := balance
	for i := 1; i <= months; i++ {
		proj = proj.Add(avgNet)
		out.Labels = append(out.Labels, utils.MonthLabel(utils.MonthStart(now, i)))
		out.Projected = append(out.Projected, proj)
		out.Actual = append(out.Actual, decimal.NullDecimal{})
	}
	return out
}

// BudgetUsage recomputes spend and remaining for every budget from this
// month's expenses. Rows without a category are skipped.
func BudgetUsage(budgets []models.Budget, txs []models.Transaction, now time.Time) models.BudgetOverview {
	spent := map[string]decimal.Decimal{}
	for _, t := range txs {
		if !t.Persisted() || t.Type != models.TransactionExpense {
			continue
		}
		d, ok := txDate(t.Date, now)
		if !ok || !utils.SameMonth(d, now) {
			continue
		}
		spent[t.Category] = spent[t.Category].Add(t.Amount)
	}

	out := models.BudgetOverview{Budgets: []models.BudgetUsage{}, OverBudget: []string{}}
	for _, b := range budgets {
		if b.Category == "" {
			continue
		}
		u := models.BudgetUsage{Budget: b, Status: models.BudgetOK}
		u.CurrentSpent = spent[b.Category]
		u.Remaining = b.MonthlyBudget.Sub(u.CurrentSpent)
		if b.MonthlyBudget.IsPositive() {
			u.Percentage = u.CurrentSpent.Div(b.MonthlyBudget).Mul(hundred).InexactFloat64()
		}
		switch {
		case u.Percentage > 100:
			u.Status = models.BudgetOver
			out.OverBudget = append(out.OverBudget, b.Category)
		case u.Percentage > 80:
			u.Status = models.BudgetWarning
		}
		out.TotalBudget = out.TotalBudget.Add(b.MonthlyBudget)
		out.TotalSpent = out.TotalSpent.Add(u.CurrentSpent)
		out.Budgets = append(out.Budgets, u)
	}
	return out
}

// PeriodRange resolves a reporting period. month is 1-12. From and To are
// whole days, To inclusive. Custom ranges default to January 1st of year and
// today, and have no comparison period.
func PeriodRange(kind models.PeriodKind, year, month int, from, to string, now time.Time) (models.Period, error) {
	loc := now.Location()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	verr := &ValidationError{}
	if month < 1 || month > 12 {
		verr.add("month", "must be between 1 and 12")
	}
	if year < 1900 || year > 9999 {
		verr.add("year", "is out of range")
	}

	day := func(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc) }
	p := models.Period{Kind: kind}
	var prevFrom, prevTo time.Time

	switch kind {
	case models.PeriodMonth, "":
		p.Kind = models.PeriodMonth
		p.From, p.To = day(year, month, 1), day(year, month+1, 0)
		prevFrom, prevTo = day(year, month-1, 1), day(year, month, 0)
	case models.PeriodQuarter:
		q := (month - 1) / 3
		p.From, p.To = day(year, q*3+1, 1), day(year, q*3+4, 0)
		prevFrom, prevTo = day(year, (q-1)*3+1, 1), day(year, q*3+1, 0)
	case models.PeriodYear:
		p.From, p.To = day(year, 1, 1), day(year, 12, 31)
		prevFrom, prevTo = day(year-1, 1, 1), day(year-1, 12, 31)
	case models.PeriodCustom:
		p.From = day(year, 1, 1)
		p.To = day(now.Year(), int(now.Month()), now.Day())
		if from != "" {
			t, err := utils.ParseSheetDate(from, loc)
			if err != nil {
				verr.add("from", "is not a valid date")
			}
			p.From = day(t.Year(), int(t.Month()), t.Day())
		}
		if to != "" {
			t, err := utils.ParseSheetDate(to, loc)
			if err != nil {
				verr.add("to", "is not a valid date")
			}
			p.To = day(t.Year(), int(t.Month()), t.Day())
		}
		if p.To.Before(p.From) {
			verr.add("to", "must not be before from")
		}
	default:
		verr.add("period", fmt.Sprintf("unknown period %q", kind))
	}
	if err := verr.orNil(); err != nil {
		return models.Period{}, err
	}
	if kind != models.PeriodCustom {
		p.PrevFrom, p.PrevTo = &prevFrom, &prevTo
	}
	return p, nil
}

func inRange(txs []models.Transaction, from, to time.Time, now time.Time) []models.Transaction {
	end := to.AddDate(0, 0, 1)
	out := []models.Transaction{}
	for _, t := range txs {
		if !t.Persisted() {
			continue
		}
		d, ok := txDate(t.Date, now)
		if !ok || d.Before(from) || !d.Before(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func sumByType(txs []models.Transaction) (revenue, expenses decimal.Decimal) {
	for _, t := range txs {
		switch t.Type {
		case models.TransactionIncome:
			revenue = revenue.Add(t.Amount)
		case models.TransactionExpense:
			expenses = expenses.Add(t.Amount)
		}
	}
	return revenue, expenses
}

// ProfitAndLoss builds the statement for a period and compares it with the
// previous one when the period has a comparison range.
func ProfitAndLoss(txs []models.Transaction, period models.Period, now time.Time) models.ProfitAndLoss {
	cur := inRange(txs, period.From, period.To, now)
	rev, exp := sumByType(cur)

	pl := models.ProfitAndLoss{
		Period:           period,
		TotalRevenue:     rev,
		TotalExpenses:    exp,
		GrossProfit:      rev.Sub(exp),
		RevenueBreakdown: CategoryBreakdown(cur, models.TransactionIncome),
		ExpenseBreakdown: CategoryBreakdown(cur, models.TransactionExpense),
	}
	if rev.IsPositive() {
		pl.ProfitMargin = pl.GrossProfit.Div(rev).Mul(hundred).InexactFloat64()
	}
	if period.PrevFrom != nil && period.PrevTo != nil {
		pl.PreviousRevenue, pl.PreviousExpenses = sumByType(inRange(txs, *period.PrevFrom, *period.PrevTo, now))
		pl.RevenueChange = percentChange(rev, pl.PreviousRevenue)
		pl.ExpenseChange = percentChange(exp, pl.PreviousExpenses)
	}
	return pl
}

// PartnerStats adds capital injected, activity and share of total funds to
// each partner.
func PartnerStats(partners []models.Partner, txs []models.Transaction) []models.PartnerStat {
	total := totalCash(partners)
	out := make([]models.PartnerStat, 0, len(partners))
	for _, p := range partners {
		if p.ID == "" {
			continue
		}
		st := models.PartnerStat{Partner: p}
		for _, t := range txs {
			if !t.Persisted() || t.PartnerAccount != p.ID {
				continue
			}
			st.TxCount++
			if t.Type == models.TransactionIncome && t.Category == capitalInjectionCategory {
				st.CapitalAdded = st.CapitalAdded.Add(t.Amount)
			}
		}
		if total.IsPositive() {
			st.FundsShare = p.CurrentBalance.Div(total).Mul(hundred).InexactFloat64()
		}
		out = append(out, st)
	}
	return out
}

const defaultPerPage = 20

// FilterTransactions applies the ledger filters, sorts and paginates.
// Default order is newest first.
func FilterTransactions(txs []models.Transaction, f models.TransactionFilter, now time.Time) (models.TransactionPage, error) {
	loc := now.Location()
	verr := &ValidationError{}

	var from, to time.Time
	if f.DateFrom != "" {
		t, err := utils.ParseSheetDate(f.DateFrom, loc)
		if err != nil {
			verr.add("date_from", "is not a valid date")
		}
		from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	if f.DateTo != "" {
		t, err := utils.ParseSheetDate(f.DateTo, loc)
		if err != nil {
			verr.add("date_to", "is not a valid date")
		}
		to = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
	}
	var minAmt, maxAmt *decimal.Decimal
	if f.AmountMin != "" {
		d, err := decimal.NewFromString(f.AmountMin)
		if err != nil {
			verr.add("amount_min", "is not a number")
		}
		minAmt = &d
	}
	if f.AmountMax != "" {
		d, err := decimal.NewFromString(f.AmountMax)
		if err != nil {
			verr.add("amount_max", "is not a number")
		}
		maxAmt = &d
	}
	if f.Type != "" && !models.TransactionType(f.Type).Valid() {
		verr.add("type", "must be Income or Expense")
	}
	less, ok := transactionOrder(f.SortField, now)
	if !ok {
		verr.add("sort", fmt.Sprintf("cannot sort by %q", f.SortField))
	}
	if err := verr.orNil(); err != nil {
		return models.TransactionPage{}, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	matched := []models.Transaction{}
	for _, t := range txs {
		if !t.Persisted() {
			continue
		}
		if !from.IsZero() || !to.IsZero() {
			d, ok := txDate(t.Date, now)
			if !ok || (!from.IsZero() && d.Before(from)) || (!to.IsZero() && !d.Before(to)) {
				continue
			}
		}
		if f.Type != "" && string(t.Type) != f.Type {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Partner != "" && t.PartnerAccount != f.Partner {
			continue
		}
		if minAmt != nil && t.Amount.LessThan(*minAmt) {
			continue
		}
		if maxAmt != nil && t.Amount.GreaterThan(*maxAmt) {
			continue
		}
		if q != "" && !matchesSearch(t, q) {
			continue
		}
		matched = append(matched, t)
	}

	desc := !strings.EqualFold(f.SortDir, "asc")
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	page := models.TransactionPage{Total: len(matched), Page: f.Page, PerPage: f.PerPage}
	if page.PerPage <= 0 {
		page.PerPage = defaultPerPage
	}
	page.TotalPages = int(math.Ceil(float64(page.Total) / float64(page.PerPage)))
	if page.Page <= 0 {
		page.Page = 1
	}
	page.TotalIncome, page.TotalExpense = sumByType(matched)

	start := (page.Page - 1) * page.PerPage
	end := min(start+page.PerPage, len(matched))
	if start >= len(matched) {
		page.Items = []models.Transaction{}
	} else {
		page.Items = matched[start:end]
	}
	return page, nil
}

func matchesSearch(t models.Transaction, q string) bool {
	for _, field := range []string{t.Description, t.Category, t.Tags, t.ID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func transactionOrder(field string, now time.Time) (func(a, b models.Transaction) bool, bool) {
	switch strings.ToLower(field) {
	case "", "date":
		return func(a, b models.Transaction) bool {
			return utils.NormalizeDate(a.Date, now.Location(), now).Before(utils.NormalizeDate(b.Date, now.Location(), now))
		}, true
	case "amount":
		return func(a, b models.Transaction) bool { return a.Amount.LessThan(b.Amount) }, true
	case "type":
		return func(a, b models.Transaction) bool { return a.Type < b.Type }, true
	case "category":
		return func(a, b models.Transaction) bool { return a.Category < b.Category }, true
	case "partner", "partner_account":
		return func(a, b models.Transaction) bool { return a.PartnerAccount < b.PartnerAccount }, true
	case "id", "transaction_id":
		return func(a, b models.Transaction) bool { return a.ID < b.ID }, true
	}
	return nil, false
}

// RecentTransactions returns up to n transactions, newest first.
func RecentTransactions(txs []models.Transaction, n int, now time.Time) []models.Transaction {
	if n <= 0 {
		n = recentLimit
	}
	out := models.PersistedTransactions(txs)
	sort.SliceStable(out, func(i, j int) bool {
		return utils.NormalizeDate(out[i].Date, now.Location(), now).After(utils.NormalizeDate(out[j].Date, now.Location(), now))
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// CategoryReport lists expense categories in first-seen order with their
// share of total expenses.
func CategoryReport(txs []models.Transaction) []models.CategoryTotal {
	totals := map[string]decimal.Decimal{}
	order := []string{}
	sum := decimal.Zero
	for _, t := range txs {
		if !t.Persisted() || t.Type != models.TransactionExpense {
			continue
		}
		if _, seen := totals[t.Category]; !seen {
			order = append(order, t.Category)
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
		sum = sum.Add(t.Amount)
	}

	out := make([]models.CategoryTotal, len(order))
	for i, c := range order {
		out[i] = models.CategoryTotal{Category: c, TotalAmount: totals[c]}
		if sum.IsPositive() {
			out[i].Percentage = totals[c].Div(sum).Mul(hundred).Round(1).InexactFloat64()
		}
	}
	return out
}

// BuildDashboard assembles the overview page in one pass over the data.
func BuildDashboard(partners []models.Partner, txs []models.Transaction, now time.Time) models.Dashboard {
	active := make([]models.Partner, 0, len(partners))
	for _, p := range partners {
		if p.ID != "" {
			active = append(active, p)
		}
	}
	return models.Dashboard{
		Metrics:            DashboardMetrics(partners, txs, now),
		Monthly:            MonthlySeries(txs, defaultSeriesMonths, now),
		ExpenseBreakdown:   CategoryBreakdown(txs, models.TransactionExpense),
		RevenueBreakdown:   CategoryBreakdown(txs, models.TransactionIncome),
		RecentTransactions: RecentTransactions(txs, recentLimit, now),
		Partners:           active,
	}
}

// Alerts derives the notifications shown next to the dashboard. IDs are
// stable for a given condition so clients can dismiss them.
func Alerts(partners []models.Partner, overview models.BudgetOverview, metrics models.DashboardMetrics,
	threshold decimal.Decimal, currency string, now time.Time) []models.Alert {
	stamp := now.Format(time.RFC3339)
	alert := func(key string, typ models.AlertType, title, msg string) models.Alert {
		return models.Alert{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String(),
			Type:      typ,
			Title:     title,
			Message:   msg,
			Timestamp: stamp,
		}
	}

	out := []models.Alert{}
	for _, p := range partners {
		if p.ID == "" || !p.CurrentBalance.LessThan(threshold) {
			continue
		}
		out = append(out, alert("low-balance:"+p.ID, models.AlertWarning, "Low balance",
			fmt.Sprintf("%s holds %s, below the %s threshold", p.Name,
				utils.FormatCurrency(p.CurrentBalance, currency, false), utils.FormatCurrency(threshold, currency, false))))
	}
	for _, b := range overview.Budgets {
		switch b.Status {
		case models.BudgetOver:
			out = append(out, alert("budget-over:"+b.Category, models.AlertDanger, "Budget exceeded",
				fmt.Sprintf("%s is at %s of its monthly budget", b.Category, utils.FormatPercentage(b.Percentage))))
		case models.BudgetWarning:
			out = append(out, alert("budget-warning:"+b.Category, models.AlertWarning, "Budget almost used",
				fmt.Sprintf("%s is at %s of its monthly budget", b.Category, utils.FormatPercentage(b.Percentage))))
		}
	}
	if metrics.ThisMonthProfitLoss.IsNegative() {
		out = append(out, alert("monthly-loss:"+utils.MonthLabel(now), models.AlertDanger, "Monthly loss",
			fmt.Sprintf("Expenses exceed revenue by %s this month",
				utils.FormatCurrency(metrics.ThisMonthProfitLoss.Abs(), currency, false))))
	}
	return out
}
