package requisition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/audit"
	"github.com/CXmiloxx/secop-app-sub001/internal/budget"
	"github.com/CXmiloxx/secop-app-sub001/internal/lock"
	"github.com/CXmiloxx/secop-app-sub001/internal/logging"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
	"github.com/CXmiloxx/secop-app-sub001/internal/pettycash"
	"github.com/CXmiloxx/secop-app-sub001/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	seqRequisition = "requisition"
	seqCommittee   = "committee"
)

type SubmitInput struct {
	Period      string
	AreaID      string
	Account     string
	Concept     string
	Provider    string
	AmountBase  int64
	AmountTax   int64
	RequestedBy string
}

// CommitteeFlags are the decisions the approval committee attaches to an approval.
type CommitteeFlags struct {
	RequiresDelivery bool
	BudgetOverride   bool
	OverrideReason   string
}

type ApproveInput struct {
	Approver      string
	DefinedAmount int64
	Provider      string
	Flags         CommitteeFlags
}

type Machine struct {
	store  store.Store
	locker lock.Locker
	ledger *budget.Ledger
	petty  *pettycash.Service
	audit  *audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewMachine(s store.Store, locker lock.Locker, ledger *budget.Ledger, petty *pettycash.Service, rec *audit.Recorder, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		store:  s,
		locker: locker,
		ledger: ledger,
		petty:  petty,
		audit:  rec,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ---------- submit ----------

func (m *Machine) Submit(ctx context.Context, in SubmitInput) (*models.Requisition, error) {
	if err := validateSubmit(in); err != nil {
		return nil, m.fail(ctx, "", ActionSubmit, in.RequestedBy, nil, err)
	}

	var r *models.Requisition
	err := m.store.Tx(ctx, func(ctx context.Context, s store.Store) error {
		if _, err := s.Areas().Get(ctx, in.AreaID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("area", in.AreaID)
			}
			return err
		}
		seq, err := s.Sequences().Next(ctx, seqRequisition, in.Period)
		if err != nil {
			return err
		}

		r = &models.Requisition{
			ID:          uuid.NewString(),
			Number:      fmt.Sprintf("REQ-%s-%06d", in.Period, seq),
			Period:      in.Period,
			AreaID:      in.AreaID,
			Account:     strings.TrimSpace(in.Account),
			Concept:     in.Concept,
			Provider:    in.Provider,
			AmountBase:  in.AmountBase,
			AmountTax:   in.AmountTax,
			AmountTotal: in.AmountBase + in.AmountTax,
			State:       models.StatePending,
			RequestedBy: in.RequestedBy,
			SubmittedAt: m.now(),
		}
		if err := s.Requisitions().Create(ctx, r); err != nil {
			return err
		}
		return m.audit.Bind(s).Record(ctx, audit.Entry{
			EntityType: audit.EntityRequisition, EntityID: r.ID, Action: string(ActionSubmit),
			To: string(r.State), Actor: in.RequestedBy, After: r,
		})
	})
	if err != nil {
		return nil, m.fail(ctx, "", ActionSubmit, in.RequestedBy, nil, err)
	}
	logging.Outcome(m.logger, "requisition submit", nil,
		zap.String("requisition", r.ID), zap.String("number", r.Number), zap.Int64("total", r.AmountTotal))
	return r, nil
}

func validateSubmit(in SubmitInput) error {
	switch {
	case strings.TrimSpace(in.Period) == "":
		return apperr.InvalidInput("period is required")
	case strings.TrimSpace(in.AreaID) == "":
		return apperr.InvalidInput("area is required")
	case strings.TrimSpace(in.Account) == "":
		return apperr.InvalidInput("account is required")
	case strings.TrimSpace(in.RequestedBy) == "":
		return apperr.InvalidInput("requester is required")
	case in.AmountBase < 0:
		return apperr.InvalidAmount(in.AmountBase)
	case in.AmountTax < 0:
		return apperr.InvalidAmount(in.AmountTax)
	case in.AmountBase+in.AmountTax <= 0:
		return apperr.New(apperr.KindInvalidAmount, "requisition total must be positive, got %d", in.AmountBase+in.AmountTax)
	}
	return nil
}

// ---------- transitions ----------

// Approve commits the defined amount against the area budget and moves the
// requisition to Approved. A shortage leaves it Pending.
func (m *Machine) Approve(ctx context.Context, id string, in ApproveInput) (*models.Requisition, error) {
	if in.DefinedAmount < 0 {
		return nil, m.fail(ctx, id, ActionApprove, in.Approver, nil, apperr.InvalidAmount(in.DefinedAmount))
	}
	if in.Flags.BudgetOverride && strings.TrimSpace(in.Flags.OverrideReason) == "" {
		return nil, m.fail(ctx, id, ActionApprove, in.Approver, nil,
			apperr.InvalidInput("a budget override requires a reason"))
	}

	return m.transition(ctx, id, ActionApprove, in.Approver, in.Flags.BudgetOverride,
		func(ctx context.Context, s store.Store, r *models.Requisition) error {
			if err := checkTransition(ActionApprove, r.State, models.StateApproved); err != nil {
				return err
			}
			ledger := m.ledger.Bind(s)
			key := budget.Key{AreaID: r.AreaID, Period: r.Period}
			var err error
			if in.Flags.BudgetOverride {
				_, err = ledger.CommitOverride(ctx, key, in.DefinedAmount, in.Flags.OverrideReason, in.Approver)
			} else {
				_, err = ledger.Commit(ctx, key, in.DefinedAmount, in.Approver)
			}
			if err != nil {
				return err
			}

			seq, err := s.Sequences().Next(ctx, seqCommittee, r.Period)
			if err != nil {
				return err
			}
			now := m.now()
			r.State = models.StateApproved
			r.AmountTotal = in.DefinedAmount
			if strings.TrimSpace(in.Provider) != "" {
				r.Provider = in.Provider
			}
			r.CommitteeNumber = fmt.Sprintf("CM-%s-%04d", r.Period, seq)
			r.RequiresDelivery = in.Flags.RequiresDelivery
			r.BudgetOverride = in.Flags.BudgetOverride
			r.ApprovedBy = in.Approver
			r.ApprovedAt = &now
			return nil
		})
}

// Reject ends the requisition. Rejecting an approved requisition releases its whole
// commitment.
func (m *Machine) Reject(ctx context.Context, id, approver, reason string) (*models.Requisition, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, m.fail(ctx, id, ActionReject, approver, nil, apperr.InvalidInput("a rejection requires a reason"))
	}
	return m.transition(ctx, id, ActionReject, approver, false,
		func(ctx context.Context, s store.Store, r *models.Requisition) error {
			if err := checkTransition(ActionReject, r.State, models.StateRejected); err != nil {
				return err
			}
			if r.State == models.StateApproved {
				key := budget.Key{AreaID: r.AreaID, Period: r.Period}
				if _, err := m.ledger.Bind(s).ReleaseCommitment(ctx, key, r.AmountTotal, approver); err != nil {
					return err
				}
			}
			now := m.now()
			r.State = models.StateRejected
			r.RejectedBy = approver
			r.RejectionReason = reason
			r.RejectedAt = &now
			return nil
		})
}

func (m *Machine) RouteToPayment(ctx context.Context, id string, route models.PaymentRoute, actor string) (*models.Requisition, error) {
	if !route.Valid() {
		return nil, m.fail(ctx, id, ActionRoute, actor, nil, apperr.InvalidInput("unknown payment route %q", route))
	}
	return m.transition(ctx, id, ActionRoute, actor, false,
		func(ctx context.Context, s store.Store, r *models.Requisition) error {
			if err := checkTransition(ActionRoute, r.State, routeTarget(route)); err != nil {
				return err
			}
			now := m.now()
			r.State = routeTarget(route)
			r.PaymentRoute = route
			r.RoutedAt = &now
			return nil
		})
}

// RegisterPayment turns the commitment into spend. Petty cash payments also debit the
// period's account, which may raise an automatic escalation.
func (m *Machine) RegisterPayment(ctx context.Context, id, payer string) (*models.Requisition, error) {
	return m.transition(ctx, id, ActionPay, payer, false,
		func(ctx context.Context, s store.Store, r *models.Requisition) error {
			next := models.StateDelivered
			if r.RequiresDelivery {
				next = models.StatePendingInventory
			}
			if err := checkTransition(ActionPay, r.State, next); err != nil {
				return err
			}

			key := budget.Key{AreaID: r.AreaID, Period: r.Period}
			if _, err := m.ledger.Bind(s).ConvertCommitToSpend(ctx, key, r.AmountTotal, payer); err != nil {
				return err
			}
			if r.State == models.StatePendingPettyCash {
				if _, _, err := m.petty.Bind(s).Debit(ctx, r.Period, r.AmountTotal, payer); err != nil {
					return err
				}
			}

			now := m.now()
			r.State = next
			r.PaidBy = payer
			r.PaidAt = &now
			if next == models.StateDelivered {
				r.DeliveredAt = &now
			}
			return nil
		})
}

// ConfirmDelivery closes a requisition waiting on inventory. One routed straight to
// inventory was never paid, so its commitment becomes spend here.
func (m *Machine) ConfirmDelivery(ctx context.Context, id, recipient string) (*models.Requisition, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, m.fail(ctx, id, ActionDeliver, recipient, nil, apperr.InvalidInput("recipient is required"))
	}
	return m.transition(ctx, id, ActionDeliver, recipient, false,
		func(ctx context.Context, s store.Store, r *models.Requisition) error {
			if err := checkTransition(ActionDeliver, r.State, models.StateDelivered); err != nil {
				return err
			}
			if r.PaidAt == nil {
				key := budget.Key{AreaID: r.AreaID, Period: r.Period}
				if _, err := m.ledger.Bind(s).ConvertCommitToSpend(ctx, key, r.AmountTotal, recipient); err != nil {
					return err
				}
			}
			now := m.now()
			r.State = models.StateDelivered
			r.DeliveredTo = recipient
			r.DeliveredAt = &now
			return nil
		})
}

// lockKeys names the entities an action on r may touch. Only payment moves petty
// cash, so other transitions leave the period's petty cash key free.
func lockKeys(r *models.Requisition, action Action) []string {
	keys := []string{
		lock.RequisitionKey(r.ID),
		lock.BudgetKey(r.AreaID, r.Period),
	}
	if action == ActionPay || r.State == models.StatePendingPettyCash {
		keys = append(keys, lock.PettyCashKey(r.Period))
	}
	return keys
}

// transition runs apply on a fresh copy of the requisition under the keys from
// lockKeys, persists it and audits the result.
func (m *Machine) transition(ctx context.Context, id string, action Action, actor string, flagged bool,
	apply func(ctx context.Context, s store.Store, r *models.Requisition) error) (*models.Requisition, error) {

	peek, err := m.Get(ctx, id)
	if err != nil {
		return nil, m.fail(ctx, id, action, actor, nil, err)
	}
	keys := lockKeys(peek, action)

	var before, after *models.Requisition
	err = m.locker.WithLock(ctx, keys, func(ctx context.Context) error {
		return m.store.Tx(ctx, func(ctx context.Context, s store.Store) error {
			r, err := s.Requisitions().Get(ctx, id)
			if err != nil {
				return err
			}
			snap := *r
			before = &snap

			if err := apply(ctx, s, r); err != nil {
				return err
			}
			if err := s.Requisitions().Save(ctx, r); err != nil {
				return err
			}
			after = r
			return m.audit.Bind(s).Record(ctx, audit.Entry{
				EntityType: audit.EntityRequisition, EntityID: id, Action: string(action),
				From: string(before.State), To: string(r.State), Actor: actor,
				Flagged: flagged, Before: before, After: r,
			})
		})
	})
	if err != nil {
		return nil, m.fail(ctx, id, action, actor, before, err)
	}
	logging.Outcome(m.logger, "requisition "+string(action), nil,
		zap.String("requisition", id), zap.String("from", string(before.State)), zap.String("to", string(after.State)))
	return after, nil
}

func (m *Machine) fail(ctx context.Context, id string, action Action, actor string, before *models.Requisition, opErr error) error {
	logging.Outcome(m.logger, "requisition "+string(action), opErr, zap.String("requisition", id))
	e := audit.Entry{
		EntityType: audit.EntityRequisition, EntityID: id, Action: string(action),
		Actor: actor, Before: before, Err: opErr,
	}
	if before != nil {
		e.From = string(before.State)
	}
	if recErr := m.audit.Record(ctx, e); recErr != nil {
		return errors.Join(opErr, recErr)
	}
	return opErr
}

// ---------- reads ----------

func (m *Machine) Get(ctx context.Context, id string) (*models.Requisition, error) {
	r, err := m.store.Requisitions().Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("requisition", id)
	}
	return r, err
}

func (m *Machine) List(ctx context.Context, f store.RequisitionFilter) ([]models.Requisition, int64, error) {
	return m.store.Requisitions().List(ctx, f)
}
