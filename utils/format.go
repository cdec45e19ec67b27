package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

var currencySymbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatCurrency renders an amount with its currency symbol and digit grouping.
// Compact mode uses the K / L (lakh) / Cr (crore) suffixes.
func FormatCurrency(amount decimal.Decimal, currency string, compact bool) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}

	if compact {
		abs := amount.Abs()
		switch {
		case abs.GreaterThanOrEqual(decimal.NewFromInt(10_000_000)):
			return fmt.Sprintf("%s%sCr", symbol, amount.Div(decimal.NewFromInt(10_000_000)).StringFixed(1))
		case abs.GreaterThanOrEqual(decimal.NewFromInt(100_000)):
			return fmt.Sprintf("%s%sL", symbol, amount.Div(decimal.NewFromInt(100_000)).StringFixed(1))
		case abs.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
			return fmt.Sprintf("%s%sK", symbol, amount.Div(decimal.NewFromInt(1_000)).StringFixed(1))
		}
	}
	return symbol + printer.Sprintf("%.2f", amount.InexactFloat64())
}

// FormatPercentage renders n with one decimal.
func FormatPercentage(n float64) string {
	return fmt.Sprintf("%.1f%%", n)
}
