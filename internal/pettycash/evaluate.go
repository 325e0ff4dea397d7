// Package pettycash runs the caja menor of each period and the escalation protocol
// that asks for a top-up once spending crosses the configured share of the
// assigned amount.
package pettycash

import (
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultThreshold is the spent/assigned ratio at which an automatic top-up request
// is raised.
var DefaultThreshold = decimal.RequireFromString("0.75")

// Decision is the outcome of Evaluate.
type Decision struct {
	Escalate        bool
	RequestedAmount int64
	Justification   string
	Ratio           decimal.Decimal
}

// Evaluate decides whether the account needs an automatic escalation. It has no side
// effects: the caller persists the request when Escalate is set.
func Evaluate(acct models.PettyCashAccount, openAutomatic bool, threshold decimal.Decimal) Decision {
	ratio := acct.SpentRatio()
	d := Decision{Ratio: ratio}
	if acct.Assigned <= 0 || openAutomatic {
		return d
	}
	if ratio.LessThan(threshold) {
		return d
	}
	d.Escalate = true
	d.RequestedAmount = acct.Assigned
	d.Justification = justification(acct, ratio, threshold)
	return d
}

var printer = message.NewPrinter(language.Spanish)

func justification(acct models.PettyCashAccount, ratio, threshold decimal.Decimal) string {
	return printer.Sprintf(
		"Solicitud automática: la caja menor del periodo %s ha ejecutado $%d de $%d asignados (%s), por encima del umbral del %s. Se solicita reposición por $%d.",
		acct.Period, acct.Spent, acct.Assigned, percent(ratio), percent(threshold), acct.Assigned,
	)
}

func percent(r decimal.Decimal) string {
	return r.Mul(decimal.NewFromInt(100)).StringFixed(0) + "%"
}
