// internal/pkg/money/money.go
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as integer minor units (cents)

// ToDecimal converts minor units to a decimal major-unit amount
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders minor units as "KES 1234.50"
func Format(cents int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, ToDecimal(cents).StringFixed(2))
}

// LineTotal multiplies a unit price by a quantity
func LineTotal(unitPrice int64, quantity int) int64 {
	return decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).IntPart()
}
