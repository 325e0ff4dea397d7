package pettycash

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/lock"
	"github.com/CXmiloxx/secop-app-sub001/internal/logging"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service owns petty cash accounts and their escalation requests. Like
// budget.Ledger, a bound Service runs inside the caller's transaction.
type Service struct {
	store     store.Store
	locker    lock.Locker
	audit     *audit.Recorder
	logger    *zap.Logger
	threshold decimal.Decimal
	now       func() time.Time
	bound     bool
}

func NewService(s store.Store, locker lock.Locker, rec *audit.Recorder, logger *zap.Logger, threshold decimal.Decimal) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !threshold.IsPositive() {
		threshold = DefaultThreshold
	}
	return &Service{
		store:     s,
		locker:    locker,
		audit:     rec,
		logger:    logger,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (p *Service) Bind(s store.Store) *Service {
	cp := *p
	cp.store = s
	cp.audit = p.audit.Bind(s)
	cp.bound = true
	return &cp
}

func (p *Service) Threshold() decimal.Decimal { return p.threshold }

func (p *Service) run(ctx context.Context, period string, fn func(ctx context.Context, s store.Store) error) error {
	if p.bound {
		return fn(ctx, p.store)
	}
	return p.locker.WithLock(ctx, []string{lock.PettyCashKey(period)}, func(ctx context.Context) error {
		return p.store.Tx(ctx, fn)
	})
}

func getAccount(ctx context.Context, s store.Store, period string) (*models.PettyCashAccount, error) {
	a, err := s.PettyCash().Get(ctx, period)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("petty cash account", period)
	}
	return a, err
}

// ---------- account ----------

// Assign opens the period's account with amount, capped at limit, or adds amount to
// an existing account. An existing account keeps its stored cap.
func (p *Service) Assign(ctx context.Context, period string, amount, limit int64, actor string) (*models.PettyCashAccount, error) {
	if strings.TrimSpace(period) == "" {
		return nil, apperr.InvalidInput("period is required")
	}
	if amount < 0 {
		return nil, apperr.InvalidAmount(amount)
	}

	var before, after *models.PettyCashAccount
	err := p.run(ctx, period, func(ctx context.Context, s store.Store) error {
		acct, err := s.PettyCash().Get(ctx, period)
		switch {
		case errors.Is(err, store.ErrNotFound):
			acct, err = models.NewPettyCashAccount(period, amount, limit)
			if err != nil {
				return err
			}
			if err := s.PettyCash().Create(ctx, acct); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			snap := *acct
			before = &snap
			if err := acct.TopUp(amount); err != nil {
				return err
			}
			if err := s.PettyCash().Save(ctx, acct); err != nil {
				return err
			}
		}
		after = acct
		return p.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityPettyCash, EntityID: period, Action: "assign",
			Actor: actor, Before: before, After: after,
		})
	})
	if err != nil {
		return nil, p.fail(ctx, audit.EntityPettyCash, period, "assign", actor, before, err)
	}
	logging.Outcome(p.logger, "petty cash assign", nil,
		zap.String("period", period), zap.Int64("assigned", after.Assigned), zap.Int64("cap", after.Cap))
	return after, nil
}

// Debit spends from the account and evaluates the escalation threshold in the same
// transaction. The returned request is non-nil when the debit raised one.
func (p *Service) Debit(ctx context.Context, period string, amount int64, actor string) (*models.PettyCashAccount, *models.EscalationRequest, error) {
	var (
		before, after *models.PettyCashAccount
		raised        *models.EscalationRequest
	)
	err := p.run(ctx, period, func(ctx context.Context, s store.Store) error {
		acct, err := getAccount(ctx, s, period)
		if err != nil {
			return err
		}
		snap := *acct
		before = &snap

		if err := acct.Debit(amount); err != nil {
			return err
		}
		if err := s.PettyCash().Save(ctx, acct); err != nil {
			return err
		}
		after = acct
		if err := p.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityPettyCash, EntityID: period, Action: "debit",
			Actor: actor, Before: before, After: after,
		}); err != nil {
			return err
		}

		raised, err = p.evaluate(ctx, s, acct, actor)
		return err
	})
	if err != nil {
		return nil, nil, p.fail(ctx, audit.EntityPettyCash, period, "debit", actor, before, err)
	}
	logging.Outcome(p.logger, "petty cash debit", nil,
		zap.String("period", period), zap.Int64("amount", amount), zap.Int64("spent", after.Spent),
		zap.Bool("escalated", raised != nil))
	return after, raised, nil
}

// EvaluateAccount runs the threshold rule on demand. Repeated calls open at most one
// automatic request.
func (p *Service) EvaluateAccount(ctx context.Context, period, actor string) (*models.EscalationRequest, error) {
	var raised *models.EscalationRequest
	err := p.run(ctx, period, func(ctx context.Context, s store.Store) error {
		acct, err := getAccount(ctx, s, period)
		if err != nil {
			return err
		}
		raised, err = p.evaluate(ctx, s, acct, actor)
		return err
	})
	if err != nil {
		return nil, p.fail(ctx, audit.EntityEscalation, period, "evaluate", actor, nil, err)
	}
	return raised, nil
}

func (p *Service) evaluate(ctx context.Context, s store.Store, acct *models.PettyCashAccount, actor string) (*models.EscalationRequest, error) {
	open := true
	if _, err := s.Escalations().FindOpenAutomatic(ctx, acct.Period); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		open = false
	}

	d := Evaluate(*acct, open, p.threshold)
	if !d.Escalate {
		return nil, nil
	}

	guard := acct.Period
	req := &models.EscalationRequest{
		ID:              uuid.NewString(),
		Period:          acct.Period,
		RequestedAmount: d.RequestedAmount,
		Justification:   d.Justification,
		Status:          models.EscalationPending,
		Origin:          models.OriginAutomatic,
		OpenAutoGuard:   &guard,
		RequestedBy:     actor,
		CreatedAt:       p.now(),
	}
	if err := s.Escalations().Create(ctx, req); err != nil {
		return nil, err
	}
	if err := p.audit.Bind(s).Record(ctx, audit.Entry{
		EntityType: audit.EntityEscalation, EntityID: req.ID, Action: "open",
		To: string(req.Status), Actor: actor, After: req,
	}); err != nil {
		return nil, err
	}
	p.logger.Info("petty cash escalation opened",
		zap.String("period", acct.Period), zap.String("request", req.ID),
		zap.String("ratio", d.Ratio.StringFixed(4)), zap.Int64("requested", req.RequestedAmount))
	return req, nil
}

// ---------- escalation requests ----------

// RequestTopUp files a manual top-up request. Manual requests do not count against
// the one-open-automatic rule.
func (p *Service) RequestTopUp(ctx context.Context, period string, amount int64, justification, actor string) (*models.EscalationRequest, error) {
	if amount <= 0 {
		return nil, apperr.New(apperr.KindInvalidAmount, "top-up amount must be positive, got %d", amount)
	}
	if strings.TrimSpace(justification) == "" {
		return nil, apperr.InvalidInput("a top-up request requires a justification")
	}

	var req *models.EscalationRequest
	err := p.run(ctx, period, func(ctx context.Context, s store.Store) error {
		if _, err := getAccount(ctx, s, period); err != nil {
			return err
		}
		req = &models.EscalationRequest{
			ID:              uuid.NewString(),
			Period:          period,
			RequestedAmount: amount,
			Justification:   justification,
			Status:          models.EscalationPending,
			Origin:          models.OriginManual,
			RequestedBy:     actor,
			CreatedAt:       p.now(),
		}
		if err := s.Escalations().Create(ctx, req); err != nil {
			return err
		}
		return p.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityEscalation, EntityID: req.ID, Action: "open",
			To: string(req.Status), Actor: actor, After: req,
		})
	})
	if err != nil {
		return nil, p.fail(ctx, audit.EntityEscalation, period, "request_top_up", actor, nil, err)
	}
	logging.Outcome(p.logger, "petty cash top-up request", nil,
		zap.String("period", period), zap.String("request", req.ID), zap.Int64("amount", amount))
	return req, nil
}

// ResolveEscalation approves or rejects a pending request. Approval tops the account
// up by approvedAmount, held to the account's cap, in the same transaction.
func (p *Service) ResolveEscalation(ctx context.Context, id, approver string, approvedAmount int64, decision models.EscalationStatus, note string) (*models.EscalationRequest, error) {
	peek, err := p.store.Escalations().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apperr.NotFound("escalation request", id)
		}
		return nil, err
	}

	var before, after *models.EscalationRequest
	err = p.run(ctx, peek.Period, func(ctx context.Context, s store.Store) error {
		req, err := s.Escalations().Get(ctx, id)
		if err != nil {
			return err
		}
		snap := *req
		before = &snap

		var approved *int64
		if decision == models.EscalationApproved {
			if approvedAmount <= 0 {
				return apperr.New(apperr.KindInvalidAmount, "approved amount must be positive, got %d", approvedAmount)
			}
			approved = &approvedAmount
		}
		if err := req.Resolve(decision, approver, approved, note, p.now()); err != nil {
			return err
		}
		if err := s.Escalations().Save(ctx, req); err != nil {
			return err
		}
		after = req

		rec := p.audit.Bind(s)
		if err := rec.Record(ctx, audit.Entry{
			EntityType: audit.EntityEscalation, EntityID: req.ID, Action: "resolve",
			From: string(before.Status), To: string(req.Status), Actor: approver, Before: before, After: req,
		}); err != nil {
			return err
		}
		if decision != models.EscalationApproved {
			return nil
		}

		acct, err := getAccount(ctx, s, req.Period)
		if err != nil {
			return err
		}
		acctBefore := *acct
		if err := acct.TopUp(approvedAmount); err != nil {
			return err
		}
		if err := s.PettyCash().Save(ctx, acct); err != nil {
			return err
		}
		return rec.Record(ctx, audit.Entry{
			EntityType: audit.EntityPettyCash, EntityID: req.Period, Action: "top_up",
			Actor: approver, Before: &acctBefore, After: acct,
		})
	})
	if err != nil {
		return nil, p.fail(ctx, audit.EntityEscalation, id, "resolve", approver, before, err)
	}
	logging.Outcome(p.logger, "petty cash escalation resolve", nil,
		zap.String("request", id), zap.String("status", string(after.Status)))
	return after, nil
}

func (p *Service) Get(ctx context.Context, period string) (*models.PettyCashAccount, error) {
	return getAccount(ctx, p.store, period)
}

func (p *Service) ListEscalations(ctx context.Context, f store.EscalationFilter) ([]models.EscalationRequest, error) {
	return p.store.Escalations().List(ctx, f)
}

func (p *Service) fail(ctx context.Context, entity, id, action, actor string, before any, opErr error) error {
	if p.bound {
		return opErr
	}
	logging.Outcome(p.logger, "petty cash "+action, opErr, zap.String("id", id))
	recErr := p.audit.Record(ctx, audit.Entry{
		EntityType: entity, EntityID: id, Action: action,
		Actor: actor, Before: before, Err: opErr,
	})
	if recErr != nil {
		return errors.Join(opErr, recErr)
	}
	return opErr
}
