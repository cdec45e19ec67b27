package services

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/utils"
)

type ReportKind string

const (
	ReportLedger     ReportKind = "ledger"
	ReportRevenue    ReportKind = "revenue"
	ReportExpenses   ReportKind = "expenses"
	ReportPartners   ReportKind = "partners"
	ReportBudgets    ReportKind = "budgets"
	ReportTransfers  ReportKind = "transfers"
	ReportCategories ReportKind = "categories"
)

// ReportKinds lists the CSV exports in menu order.
var ReportKinds = []ReportKind{
	ReportLedger, ReportRevenue, ReportExpenses, ReportPartners,
	ReportBudgets, ReportTransfers, ReportCategories,
}

func ParseReportKind(raw string) (ReportKind, error) {
	for _, k := range ReportKinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", &ValidationError{Fields: map[string]string{"kind": fmt.Sprintf("unknown report %q", raw)}}
}

type partnerReportRow struct {
	ID             string          `json:"partner_id"`
	Name           string          `json:"partner_name"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	CapitalAdded   decimal.Decimal `json:"capital_added"`
	TxCount        int             `json:"tx_count"`
	FundsShare     string          `json:"funds_share"`
}

type budgetReportRow struct {
	Category      string          `json:"category"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	CurrentSpent  decimal.Decimal `json:"current_spent"`
	Remaining     decimal.Decimal `json:"remaining"`
	Percentage    string          `json:"percentage"`
	Status        string          `json:"status"`
}

// WriteReport renders one export as CSV. Dates are written as YYYY-MM-DD
// whatever form the sheet stores them in.
func (s *LedgerService) WriteReport(ctx context.Context, w io.Writer, kind ReportKind) error {
	now := s.Now()

	switch kind {
	case ReportLedger, ReportRevenue, ReportExpenses:
		txs, err := s.Transactions(ctx)
		if err != nil {
			return err
		}
		rows := []models.Transaction{}
		for _, t := range models.PersistedTransactions(txs) {
			if kind == ReportRevenue && t.Type != models.TransactionIncome {
				continue
			}
			if kind == ReportExpenses && t.Type != models.TransactionExpense {
				continue
			}
			t.Date = utils.FormatDateInput(t.Date, s.loc, now)
			rows = append(rows, t)
		}
		return utils.WriteCSV(w, rows)

	case ReportPartners:
		partners, err := s.Partners(ctx)
		if err != nil {
			return err
		}
		txs, err := s.Transactions(ctx)
		if err != nil {
			return err
		}
		stats := PartnerStats(partners, txs)
		rows := make([]partnerReportRow, len(stats))
		for i, st := range stats {
			rows[i] = partnerReportRow{
				ID:             st.ID,
				Name:           st.Name,
				CurrentBalance: st.CurrentBalance,
				CapitalAdded:   st.CapitalAdded,
				TxCount:        st.TxCount,
				FundsShare:     fmt.Sprintf("%.1f", st.FundsShare),
			}
		}
		return utils.WriteCSV(w, rows)

	case ReportBudgets:
		budgets, err := s.Budgets(ctx)
		if err != nil {
			return err
		}
		txs, err := s.Transactions(ctx)
		if err != nil {
			return err
		}
		overview := BudgetUsage(budgets, txs, now)
		rows := make([]budgetReportRow, len(overview.Budgets))
		for i, b := range overview.Budgets {
			rows[i] = budgetReportRow{
				Category:      b.Category,
				MonthlyBudget: b.MonthlyBudget,
				CurrentSpent:  b.CurrentSpent,
				Remaining:     b.Remaining,
				Percentage:    fmt.Sprintf("%.1f", b.Percentage),
				Status:        b.Status,
			}
		}
		return utils.WriteCSV(w, rows)

	case ReportTransfers:
		transfers, err := s.Transfers(ctx)
		if err != nil {
			return err
		}
		rows := []models.InterPartnerTransfer{}
		for _, t := range transfers {
			if t.ID == "" {
				continue
			}
			t.Date = utils.FormatDateInput(t.Date, s.loc, now)
			rows = append(rows, t)
		}
		return utils.WriteCSV(w, rows)

	case ReportCategories:
		txs, err := s.Transactions(ctx)
		if err != nil {
			return err
		}
		return utils.WriteCSV(w, CategoryReport(txs))
	}
	return &ValidationError{Fields: map[string]string{"kind": fmt.Sprintf("unknown report %q", kind)}}
}

// ReportFilename is the attachment name offered for a download.
func (s *LedgerService) ReportFilename(kind ReportKind) string {
	return fmt.Sprintf("%s-%s.csv", kind, s.Now().Format("2006-01-02"))
}
