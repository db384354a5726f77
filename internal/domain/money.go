package domain

import "github.com/shopspring/decimal"

// Fixed scales for persisted monetary fields. Intermediate arithmetic runs
// at full precision; values are rounded only when written into a field of
// fixed scale (half away from zero, matching Postgres NUMERIC).
const (
	BalanceScale = 2
	AmountScale  = 5
	RateScale    = 16
)

// RoundBalance rounds a value to the balance column scale.
func RoundBalance(d decimal.Decimal) decimal.Decimal {
	return d.Round(BalanceScale)
}

// RoundAmount rounds a value to the transaction amount scale.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// RoundRate rounds a value to the exchange rate scale.
func RoundRate(d decimal.Decimal) decimal.Decimal {
	return d.Round(RateScale)
}

// FormatBalance renders a balance with its full fractional digits, e.g. "100000.00".
func FormatBalance(d decimal.Decimal) string {
	return d.StringFixed(BalanceScale)
}

// FormatAmount renders a transaction amount, e.g. "5000.00000".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// FormatRate renders an exchange rate, e.g. "85.0000000000000000".
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(RateScale)
}
