package shop

import "github.com/shopspring/decimal"

// CurrencyExponent is the number of minor-unit digits of the shop currency.
const CurrencyExponent = 2

// MinorUnits converts a whole-unit amount to the minor units the payment
// gateway charges.
func MinorUnits(units int64) int64 {
	return decimal.NewFromInt(units).Shift(CurrencyExponent).IntPart()
}

// FormatMinor renders a minor-unit amount with the currency's fixed decimals.
func FormatMinor(minor int64) string {
	return decimal.New(minor, -CurrencyExponent).StringFixed(CurrencyExponent)
}
