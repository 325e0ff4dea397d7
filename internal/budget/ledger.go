// Package budget is the ledger of area budgets: what each area was allocated for a
// period, how much of it is committed by approved requisitions and how much has
// actually been spent.
package budget

import (
	"context"
	"errors"
	"strings"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/lock"
	"github.com/CXmiloxx/secop-app-sub001/internal/logging"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"go.uber.org/zap"
)

// Key identifies one budget.
type Key struct {
	AreaID string
	Period string
}

func (k Key) String() string {
	return k.AreaID + ":" + k.Period
}

func (k Key) lockKey() string {
	return lock.BudgetKey(k.AreaID, k.Period)
}

// Ledger applies budget mutations under the budget's lock inside a transaction.
// A Ledger obtained from Bind instead runs inside the caller's transaction and
// relies on the caller holding the lock.
type Ledger struct {
	store  store.Store
	locker lock.Locker
	audit  *audit.Recorder
	logger *zap.Logger
	bound  bool
}

func NewLedger(s store.Store, locker lock.Locker, rec *audit.Recorder, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: s, locker: locker, audit: rec, logger: logger}
}

func (l *Ledger) Bind(s store.Store) *Ledger {
	return &Ledger{store: s, locker: l.locker, audit: l.audit.Bind(s), logger: l.logger, bound: true}
}

func (l *Ledger) run(ctx context.Context, key Key, fn func(ctx context.Context, s store.Store) error) error {
	if l.bound {
		return fn(ctx, l.store)
	}
	return l.locker.WithLock(ctx, []string{key.lockKey()}, func(ctx context.Context) error {
		return l.store.Tx(ctx, fn)
	})
}

// Open creates the budget of an area for a period. Opening an existing key returns
// the stored budget unchanged.
func (l *Ledger) Open(ctx context.Context, key Key, allocated int64, actor string) (*models.Budget, error) {
	if strings.TrimSpace(key.AreaID) == "" || strings.TrimSpace(key.Period) == "" {
		return nil, apperr.InvalidInput("area and period are required")
	}
	if allocated < 0 || allocated > models.MaxAmount {
		return nil, apperr.InvalidAmount(allocated)
	}

	var out *models.Budget
	err := l.run(ctx, key, func(ctx context.Context, s store.Store) error {
		existing, err := s.Budgets().Get(ctx, key.AreaID, key.Period)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := s.Areas().Get(ctx, key.AreaID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("area", key.AreaID)
			}
			return err
		}

		b := &models.Budget{AreaID: key.AreaID, Period: key.Period, Allocated: allocated}
		if err := s.Budgets().Create(ctx, b); err != nil {
			return err
		}
		out = b
		return l.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityBudget, EntityID: key.String(), Action: "open",
			Actor: actor, After: b,
		})
	})
	if err != nil {
		err = l.fail(ctx, key, "open", actor, false, nil, err)
		return nil, err
	}
	return out, nil
}

// Get returns the current budget figures.
func (l *Ledger) Get(ctx context.Context, key Key) (*models.Budget, error) {
	b, err := l.store.Budgets().Get(ctx, key.AreaID, key.Period)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("budget", key.String())
	}
	return b, err
}

func (l *Ledger) ListByPeriod(ctx context.Context, period string) ([]models.Budget, error) {
	return l.store.Budgets().ListByPeriod(ctx, period)
}

// CanCommit is advisory; Commit checks again when it mutates.
func (l *Ledger) CanCommit(ctx context.Context, key Key, amount int64) (bool, error) {
	if amount < 0 {
		return false, apperr.InvalidAmount(amount)
	}
	b, err := l.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return b.CanCommit(amount), nil
}

func (l *Ledger) Commit(ctx context.Context, key Key, amount int64, actor string) (*models.Budget, error) {
	return l.mutate(ctx, key, "commit", actor, false, func(b *models.Budget) error {
		return b.Commit(amount)
	})
}

// CommitOverride reserves amount past the allocation. The reason is mandatory and
// the audit entry is flagged.
func (l *Ledger) CommitOverride(ctx context.Context, key Key, amount int64, reason, actor string) (*models.Budget, error) {
	if strings.TrimSpace(reason) == "" {
		err := apperr.InvalidInput("a budget override requires a reason")
		return nil, l.fail(ctx, key, "commit_override", actor, true, nil, err)
	}
	return l.mutate(ctx, key, "commit_override", actor, true, func(b *models.Budget) error {
		return b.CommitOverride(amount)
	})
}

func (l *Ledger) ReleaseCommitment(ctx context.Context, key Key, amount int64, actor string) (*models.Budget, error) {
	return l.mutate(ctx, key, "release", actor, false, func(b *models.Budget) error {
		return b.ReleaseCommitment(amount)
	})
}

func (l *Ledger) ConvertCommitToSpend(ctx context.Context, key Key, amount int64, actor string) (*models.Budget, error) {
	return l.mutate(ctx, key, "convert", actor, false, func(b *models.Budget) error {
		return b.ConvertCommitToSpend(amount)
	})
}

func (l *Ledger) mutate(ctx context.Context, key Key, action, actor string, flagged bool, apply func(*models.Budget) error) (*models.Budget, error) {
	var before, after *models.Budget
	err := l.run(ctx, key, func(ctx context.Context, s store.Store) error {
		b, err := s.Budgets().Get(ctx, key.AreaID, key.Period)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("budget", key.String())
			}
			return err
		}
		snap := *b
		before = &snap

		if err := apply(b); err != nil {
			return err
		}
		if err := s.Budgets().Save(ctx, b); err != nil {
			return err
		}
		after = b
		return l.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityBudget, EntityID: key.String(), Action: action,
			Actor: actor, Flagged: flagged || b.Overdrawn, Before: before, After: after,
		})
	})
	if err != nil {
		return nil, l.fail(ctx, key, action, actor, flagged, before, err)
	}
	logging.Outcome(l.logger, "budget "+action, nil,
		zap.String("budget", key.String()), zap.Int64("committed", after.Committed), zap.Int64("spent", after.Spent))
	return after, nil
}

// fail records a rejected attempt outside the rolled-back transaction. A bound
// Ledger leaves that to the caller, whose own audit covers the whole operation.
func (l *Ledger) fail(ctx context.Context, key Key, action, actor string, flagged bool, before *models.Budget, opErr error) error {
	if l.bound {
		return opErr
	}
	logging.Outcome(l.logger, "budget "+action, opErr, zap.String("budget", key.String()))
	recErr := l.audit.Record(ctx, audit.Entry{
		EntityType: audit.EntityBudget, EntityID: key.String(), Action: action,
		Actor: actor, Flagged: flagged, Before: before, Err: opErr,
	})
	if recErr != nil {
		return errors.Join(opErr, recErr)
	}
	return opErr
}
