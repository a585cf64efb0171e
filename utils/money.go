package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatAmount renders a whole-unit USD amount for display,
// e.g. 25000 -> "$25,000".
func FormatAmount(amount int64) string {
	return moneyPrinter.Sprintf("$%d", amount)
}
