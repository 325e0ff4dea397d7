package util

import (
	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	maxAmount = decimal.NewFromInt(models.MaxAmount)
	printer   = message.NewPrinter(language.Spanish)
)

// ToAmount converts a decoded JSON amount into whole pesos. Fractions, negatives
// and values beyond models.MaxAmount are rejected.
func ToAmount(d decimal.Decimal) (int64, error) {
	if !d.IsInteger() {
		return 0, apperr.New(apperr.KindInvalidAmount, "amount must be a whole number, got %s", d)
	}
	if d.IsNegative() {
		return 0, apperr.New(apperr.KindInvalidAmount, "amount must be non-negative, got %s", d)
	}
	if d.GreaterThan(maxAmount) {
		return 0, apperr.New(apperr.KindInvalidAmount, "amount %s is too large", d)
	}
	return d.IntPart(), nil
}

// FormatAmount renders pesos with Spanish digit grouping, e.g. 1.000.000.
func FormatAmount(v int64) string {
	return printer.Sprintf("%d", v)
}
