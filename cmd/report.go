package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kr/text"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/arneor/vault-api/models"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

// NewReportCommand prints the dashboard figures as plain text.
func NewReportCommand(opts *RootOptions) *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:          "report",
		Short:        "Print a financial summary",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			snap, err := a.ledger.FetchAll(ctx)
			if err != nil {
				return err
			}
			settings, err := a.ledger.EffectiveSettings(ctx)
			if err != nil {
				return err
			}
			r := textReport{
				company:  settings[models.SettingCompanyName],
				currency: settings[models.SettingCurrency],
				compact:  compact,
			}
			return r.write(cmd.OutOrStdout(), snap, a.ledger.Now())
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "abbreviate amounts (K, L, Cr)")
	return cmd
}

type textReport struct {
	company  string
	currency string
	compact  bool
}

func (r textReport) money(d decimal.Decimal) string {
	return utils.FormatCurrency(d, r.currency, r.compact)
}

func (r textReport) write(w io.Writer, snap *models.Snapshot, now time.Time) error {
	m := services.DashboardMetrics(snap.Partners, snap.Transactions, now)
	health := services.FinancialHealth(snap.Partners, snap.Transactions, now)
	budgets := services.BudgetUsage(snap.Budgets, snap.Transactions, now)

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\n", r.company, now.Format("02 Jan 2006"))

	section := func(title string, lines []string) {
		b.WriteString(title + "\n")
		b.WriteString(text.Indent(strings.Join(lines, "\n"), "  ") + "\n\n")
	}

	section("Overview", []string{
		"Cash available:   " + r.money(m.TotalCashAvailable),
		"Revenue (month):  " + r.money(m.ThisMonthRevenue),
		"Expenses (month): " + r.money(m.ThisMonthExpenses),
		"Profit / loss:    " + r.money(m.ThisMonthProfitLoss),
		"Burn rate:        " + r.money(m.BurnRate) + " / month",
	})

	runway := fmt.Sprintf("%.1f months", health.Runway)
	if health.RunwayInfinite {
		runway = "not burning cash"
	}
	section("Health", []string{
		fmt.Sprintf("Score:            %d / 100", health.Score),
		"Operating margin: " + utils.FormatPercentage(health.OperatingMargin),
		"Runway:           " + runway,
		"Revenue growth:   " + utils.FormatPercentage(health.RevenueGrowth),
		"Expense growth:   " + utils.FormatPercentage(health.ExpenseGrowth),
	})

	var partners []string
	for _, st := range services.PartnerStats(snap.Partners, snap.Transactions) {
		partners = append(partners, fmt.Sprintf("%-20s %s (%s)", st.Name,
			r.money(st.CurrentBalance), utils.FormatPercentage(st.FundsShare)))
	}
	if len(partners) > 0 {
		section("Partners", partners)
	}

	var lines []string
	for _, u := range budgets.Budgets {
		lines = append(lines, fmt.Sprintf("%-34s %s of %s [%s]", u.Category,
			r.money(u.CurrentSpent), r.money(u.MonthlyBudget), u.Status))
	}
	if len(lines) > 0 {
		section("Budgets", lines)
	}

	if len(budgets.OverBudget) > 0 {
		section("Over budget", []string{text.Wrap(strings.Join(budgets.OverBudget, ", "), 72)})
	}

	_, err := io.WriteString(w, b.String())
	return err
}
