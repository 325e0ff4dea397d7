package models

import (
	"math"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
)

// MaxAmount is the largest figure a ledger accepts, in whole pesos.
const MaxAmount int64 = 1_000_000_000_000_000

// Budget is the annual allocation of one area for one fiscal period.
// Amounts are whole currency units, never floats.
type Budget struct {
	ID        uint   `gorm:"primaryKey"`
	AreaID    string `gorm:"size:64;not null;uniqueIndex:idx_budget_area_period"`
	Period    string `gorm:"size:16;not null;uniqueIndex:idx_budget_area_period;index"`
	Allocated int64  `gorm:"not null"`
	Spent     int64  `gorm:"not null;default:0"`
	Committed int64  `gorm:"not null;default:0"` // reserved by approved, unpaid requisitions
	Overdrawn bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Area Area `gorm:"foreignKey:AreaID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Available is allocated minus spent minus committed. Negative only after an override.
func (b *Budget) Available() int64 {
	return b.Allocated - b.Spent - b.Committed
}

// CanCommit reports whether amount fits in the available balance.
func (b *Budget) CanCommit(amount int64) bool {
	return amount >= 0 && amount <= b.Available()
}

// Commit reserves amount. It never lets spent+committed pass allocated.
func (b *Budget) Commit(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	if !b.CanCommit(amount) {
		return apperr.BudgetExceeded(amount, max(b.Available(), 0))
	}
	b.Committed += amount
	b.syncOverdrawn()
	return nil
}

// CommitOverride reserves amount even past the allocation and flags the budget.
func (b *Budget) CommitOverride(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	if amount > MaxAmount-b.Spent-b.Committed {
		return apperr.New(apperr.KindInvalidAmount,
			"amount %d would take spent plus committed past %d", amount, MaxAmount)
	}
	b.Committed += amount
	b.syncOverdrawn()
	return nil
}

// ReleaseCommitment gives back a reservation, flooring committed at zero.
func (b *Budget) ReleaseCommitment(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	b.Committed -= min(amount, b.Committed)
	b.syncOverdrawn()
	return nil
}

// ConvertCommitToSpend moves amount from committed to spent; the sum is unchanged.
func (b *Budget) ConvertCommitToSpend(amount int64) error {
	if amount < 0 {
		return apperr.InvalidAmount(amount)
	}
	if amount > b.Committed {
		return apperr.New(apperr.KindInvalidAmount,
			"amount %d exceeds committed budget of %d", amount, b.Committed)
	}
	if amount > math.MaxInt64-b.Spent {
		return apperr.New(apperr.KindInvalidAmount, "amount %d overflows spent budget", amount)
	}
	b.Committed -= amount
	b.Spent += amount
	b.syncOverdrawn()
	return nil
}

func (b *Budget) syncOverdrawn() {
	b.Overdrawn = b.Spent+b.Committed > b.Allocated
}
