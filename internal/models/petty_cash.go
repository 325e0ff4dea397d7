package models

import (
	"math"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/shopspring/decimal"
)

// PettyCashAccount is the caja menor of one period.
type PettyCashAccount struct {
	ID        uint   `gorm:"primaryKey"`
	Period    string `gorm:"size:16;not null;uniqueIndex"`
	Assigned  int64  `gorm:"not null"`
	Spent     int64  `gorm:"not null;default:0"`
	Cap       int64  `gorm:"not null"` // tope máximo for Assigned
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPettyCashAccount opens an account; the first assignment is held to the cap too.
func NewPettyCashAccount(period string, amount, limit int64) (*PettyCashAccount, error) {
	if amount < 0 {
		return nil, apperr.InvalidAmount(amount)
	}
	if limit < 0 {
		return nil, apperr.InvalidAmount(limit)
	}
	if amount > limit {
		return nil, apperr.CapExceeded(amount, limit)
	}
	return &PettyCashAccount{Period: period, Assigned: amount, Cap: limit}, nil
}

func (a *PettyCashAccount) Available() int64 {
	return a.Assigned - a.Spent
}

// SpentRatio is spent/assigned; zero when nothing has been assigned.
func (a *PettyCashAccount) SpentRatio() decimal.Decimal {
	if a.Assigned <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(a.Spent).Div(decimal.NewFromInt(a.Assigned))
}

// TopUp adds to assigned. The cap is checked against the new cumulative total.
func (a *PettyCashAccount) TopUp(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	if amount > a.Cap-a.Assigned {
		// saturate so the message never shows a wrapped total
		return apperr.CapExceeded(a.Assigned+min(amount, math.MaxInt64-a.Assigned), a.Cap)
	}
	a.Assigned += amount
	return nil
}

func (a *PettyCashAccount) Debit(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	if amount > a.Available() {
		return apperr.InsufficientPettyCash(amount, max(a.Available(), 0))
	}
	a.Spent += amount
	return nil
}
