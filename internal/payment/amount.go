package payment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyExponent maps ISO currency codes to their minor-unit exponent.
// West African CFA francs have no subunit; unknown currencies default to 2.
var currencyExponent = map[string]int32{
	"XOF": 0,
	"XAF": 0,
	"GNF": 0,
	"RWF": 0,
	"UGX": 0,
	"NGN": 2,
	"GHS": 2,
	"KES": 2,
	"ZAR": 2,
	"USD": 2,
	"EUR": 2,
}

// Exponent returns the minor-unit exponent for a currency code.
func Exponent(currency string) int32 {
	if exp, ok := currencyExponent[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return exp
	}
	return 2
}

// MajorUnits converts a minor-unit amount to a decimal in major units, e.g.
// NGN 150050 -> 1500.50, XOF 3500 -> 3500.
func MajorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -Exponent(currency))
}

// MajorUnitString formats a minor-unit amount the way providers expecting
// decimal strings want it ("1500.50", "3500").
func MajorUnitString(amount int64, currency string) string {
	exp := Exponent(currency)
	return MajorUnits(amount, currency).StringFixed(exp)
}

// ParseMajorUnits converts a provider's decimal string back to minor units.
func ParseMajorUnits(value, currency string) (int64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return d.Shift(Exponent(currency)).IntPart(), true
}
