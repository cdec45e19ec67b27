package models

import "github.com/shopspring/decimal"

// InterPartnerTransfer moves funds between two partners; applying it is zero-sum.
type InterPartnerTransfer struct {
	Row         int             `json:"-" sheet:"-"`
	ID          string          `json:"transfer_id" sheet:"Transfer_ID"`
	Date        string          `json:"date" sheet:"Date"`
	FromPartner string          `json:"from_partner" sheet:"From_Partner"`
	ToPartner   string          `json:"to_partner" sheet:"To_Partner"`
	Amount      decimal.Decimal `json:"amount" sheet:"Amount"`
	Purpose     string          `json:"purpose" sheet:"Purpose"`
	Timestamp   string          `json:"timestamp" sheet:"Timestamp"`
}

type TransferRequest struct {
	Date        string          `json:"date"`
	FromPartner string          `json:"from_partner" binding:"required"`
	ToPartner   string          `json:"to_partner" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Purpose     string          `json:"purpose"`
}
