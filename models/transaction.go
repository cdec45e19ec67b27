package models

import "github.com/shopspring/decimal"

type TransactionType string

const (
	TransactionIncome  TransactionType = "Income"
	TransactionExpense TransactionType = "Expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction is a row of the Transactions sheet. Amount is always positive,
// the sign comes from Type.
type Transaction struct {
	Row            int             `json:"-" sheet:"-"`
	ID             string          `json:"transaction_id" sheet:"Transaction_ID"`
	Date           string          `json:"date" sheet:"Date"`
	Type           TransactionType `json:"type" sheet:"Type"`
	Category       string          `json:"category" sheet:"Category"`
	Amount         decimal.Decimal `json:"amount" sheet:"Amount"`
	PartnerAccount string          `json:"partner_account" sheet:"Partner_Account"`
	Description    string          `json:"description" sheet:"Description"`
	PaymentMethod  string          `json:"payment_method" sheet:"Payment_Method"`
	Tags           string          `json:"tags" sheet:"Tags"`
	AddedBy        string          `json:"added_by" sheet:"Added_By"`
	Timestamp      string          `json:"timestamp" sheet:"Timestamp"`
}

// SignedAmount is the effect of the transaction on its partner's balance.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TransactionIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// Persisted reports whether the row carries an identifier. Rows without one
// are placeholders and never take part in listings or analytics.
func (t Transaction) Persisted() bool {
	return t.ID != ""
}

// PersistedTransactions drops placeholder rows.
func PersistedTransactions(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Persisted() {
			out = append(out, t)
		}
	}
	return out
}

type TransactionRequest struct {
	Date           string          `json:"date" binding:"required"`
	Type           TransactionType `json:"type" binding:"required"`
	Category       string          `json:"category" binding:"required"`
	Amount         decimal.Decimal `json:"amount"`
	PartnerAccount string          `json:"partner_account"`
	Description    string          `json:"description"`
	PaymentMethod  string          `json:"payment_method"`
	Tags           string          `json:"tags"`
	AddedBy        string          `json:"added_by"`
}

// TransactionFilter mirrors the filter panel of the ledger view.
type TransactionFilter struct {
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	Type      string `form:"type"`
	Category  string `form:"category"`
	Partner   string `form:"partner"`
	AmountMin string `form:"amount_min"`
	AmountMax string `form:"amount_max"`
	Search    string `form:"search"`
	SortField string `form:"sort"`
	SortDir   string `form:"dir"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

type TransactionPage struct {
	Items        []Transaction   `json:"items"`
	Total        int             `json:"total"`
	Page         int             `json:"page"`
	PerPage      int             `json:"per_page"`
	TotalPages   int             `json:"total_pages"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
}
