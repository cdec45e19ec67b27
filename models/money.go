package models

import "github.com/shopspring/decimal"

func init() {
	// amounts go over the wire as JSON numbers, like the sheet shows them
	decimal.MarshalJSONWithoutQuotes = true
}
