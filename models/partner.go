package models

import "github.com/shopspring/decimal"

// Partner is a row of the Partners sheet. CurrentBalance is maintained
// incrementally by every transaction and transfer attributed to the partner.
type Partner struct {
	Row            int             `json:"-" sheet:"-"`
	ID             string          `json:"partner_id" sheet:"Partner_ID"`
	Name           string          `json:"partner_name" sheet:"Partner_Name"`
	CurrentBalance decimal.Decimal `json:"current_balance" sheet:"Current_Balance"`
	Phone          string          `json:"phone" sheet:"Phone"`
	Email          string          `json:"email" sheet:"Email"`
	LastUpdated    string          `json:"last_updated" sheet:"Last_Updated"`
}

// UpdatePartnerRequest edits the contact fields of a partner. The balance is
// not editable from the API.
type UpdatePartnerRequest struct {
	Name  *string `json:"partner_name"`
	Phone *string `json:"phone"`
	Email *string `json:"email" binding:"omitempty,email"`
}

// SeedPartner is used to provision an empty Partners sheet.
type SeedPartner struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}
