package models

import "time"

// Snapshot is the result of a full refresh of every collection.
type Snapshot struct {
	Partners         []Partner              `json:"partners"`
	Transactions     []Transaction          `json:"transactions"`
	Budgets          []Budget               `json:"budgets"`
	Transfers        []InterPartnerTransfer `json:"transfers"`
	MonthlySummaries []MonthlySummary       `json:"monthly_summaries"`
	Settings         []Setting              `json:"settings"`
	LastSync         time.Time              `json:"last_sync"`
}
